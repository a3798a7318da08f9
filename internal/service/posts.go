package service

import (
	"context"
	"fmt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/storage"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type PostService struct {
	posts      postgres.PostRepo
	categories postgres.PostCategoryRepo
	storage    storage.Service
}

func NewPostService(posts postgres.PostRepo, categories postgres.PostCategoryRepo, st storage.Service) *PostService {
	return &PostService{posts: posts, categories: categories, storage: st}
}

func (s *PostService) Create(ctx context.Context, in domain.PostInput, authorID int64) (*domain.Post, error) {
	if in.Title == "" || in.Content == "" {
		return nil, domain.ErrMissingFields
	}
	if in.Category != nil {
		if _, err := s.categories.GetByID(ctx, *in.Category); err != nil {
			return nil, fmt.Errorf("%w: category does not exist", domain.ErrInvalidInput)
		}
	}
	slug, err := uniqueSlug(ctx, in.Title, s.posts.SlugExists)
	if err != nil {
		return nil, err
	}
	return s.posts.Create(ctx, &domain.Post{
		Title:             in.Title,
		ShortDescription:  in.ShortDescription,
		Content:           in.Content,
		Slug:              slug,
		CategoryID:        in.Category,
		AuthorID:          authorID,
		ThumbnailURL:      in.ThumbnailURL,
		ThumbnailPublicID: in.ThumbnailPublicID,
	})
}

func (s *PostService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	return s.posts.GetBySlug(ctx, slug)
}

func (s *PostService) List(ctx context.Context, f domain.PostFilter) ([]domain.Post, domain.ListMeta, error) {
	ps, total, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, domain.ListMeta{}, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	return ps, domain.ListMeta{Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *PostService) Update(ctx context.Context, id int64, patch domain.PostPatch) (*domain.Post, error) {
	current, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Category != nil {
		if _, err := s.categories.GetByID(ctx, *patch.Category); err != nil {
			return nil, fmt.Errorf("%w: category does not exist", domain.ErrInvalidInput)
		}
	}

	newSlug := ""
	if patch.Title != nil && *patch.Title != current.Title {
		newSlug, err = uniqueSlug(ctx, *patch.Title, s.posts.SlugExists)
		if err != nil {
			return nil, err
		}
	}

	oldPublicID := ""
	if patch.ThumbnailPublicID != nil && *patch.ThumbnailPublicID != current.ThumbnailPublicID {
		oldPublicID = current.ThumbnailPublicID
	}

	updated, err := s.posts.Update(ctx, id, patch, newSlug)
	if err != nil {
		return nil, err
	}
	if oldPublicID != "" && s.storage != nil {
		if err := s.storage.Destroy(ctx, oldPublicID); err != nil {
			logger.ErrorContext(ctx, "failed to destroy replaced thumbnail", "public_id", oldPublicID, "error", err)
		}
	}
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if deleted.ThumbnailPublicID != "" && s.storage != nil {
		if err := s.storage.Destroy(ctx, deleted.ThumbnailPublicID); err != nil {
			logger.ErrorContext(ctx, "failed to destroy post thumbnail", "public_id", deleted.ThumbnailPublicID, "error", err)
		}
	}
	return nil
}

func (s *PostService) CreateCategory(ctx context.Context, in domain.PostCategoryInput, createdBy int64) (*domain.PostCategory, error) {
	if in.Name == "" {
		return nil, domain.ErrMissingFields
	}
	slug, err := uniqueSlug(ctx, in.Name, s.categories.SlugExists)
	if err != nil {
		return nil, err
	}
	return s.categories.Create(ctx, &domain.PostCategory{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		CreatedBy:   createdBy,
	})
}

func (s *PostService) GetCategory(ctx context.Context, id int64) (*domain.PostCategory, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *PostService) ListCategories(ctx context.Context) ([]domain.PostCategory, error) {
	return s.categories.List(ctx)
}

func (s *PostService) UpdateCategory(ctx context.Context, id int64, patch domain.PostCategoryPatch) (*domain.PostCategory, error) {
	current, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	newSlug := ""
	if patch.Name != nil && *patch.Name != current.Name {
		newSlug, err = uniqueSlug(ctx, *patch.Name, s.categories.SlugExists)
		if err != nil {
			return nil, err
		}
	}
	return s.categories.Update(ctx, id, patch, newSlug)
}

// DeleteCategory refuses while posts still reference the category.
func (s *PostService) DeleteCategory(ctx context.Context, id int64) error {
	inUse, err := s.categories.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: category still has posts", domain.ErrInvalidInput)
	}
	return s.categories.Delete(ctx, id)
}
