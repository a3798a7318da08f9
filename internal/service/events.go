package service

import (
	"context"
	"fmt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/storage"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/utils"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type EventService struct {
	repo    postgres.EventRepo
	storage storage.Service
}

func NewEventService(repo postgres.EventRepo, st storage.Service) *EventService {
	return &EventService{repo: repo, storage: st}
}

type slugChecker func(ctx context.Context, slug string) (bool, error)

// uniqueSlug appends a numeric suffix until the slug is free.
func uniqueSlug(ctx context.Context, title string, exists slugChecker) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "untitled"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func validateEventInput(in domain.EventInput) (domain.EventType, error) {
	if in.Title == "" || in.StartDate.IsZero() || in.StartTime == "" {
		return "", domain.ErrMissingFields
	}
	typ, ok := domain.ParseEventType(in.Type)
	if !ok {
		return "", fmt.Errorf("%w: invalid event type %q", domain.ErrInvalidInput, in.Type)
	}
	if !domain.ValidTimeOfDay(in.StartTime) {
		return "", fmt.Errorf("%w: startTime must be HH:mm", domain.ErrInvalidInput)
	}
	if in.EndTime != "" && !domain.ValidTimeOfDay(in.EndTime) {
		return "", fmt.Errorf("%w: endTime must be HH:mm", domain.ErrInvalidInput)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return "", fmt.Errorf("%w: endDate before startDate", domain.ErrInvalidInput)
	}
	if in.Price < 0 || in.Capacity < 0 {
		return "", fmt.Errorf("%w: price and capacity must not be negative", domain.ErrInvalidInput)
	}
	return typ, nil
}

func (s *EventService) Create(ctx context.Context, in domain.EventInput, createdBy int64) (*domain.Event, error) {
	typ, err := validateEventInput(in)
	if err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(ctx, in.Title, s.repo.SlugExists)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &domain.Event{
		Title:             in.Title,
		Description:       in.Description,
		ShortDescription:  in.ShortDescription,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Price:             in.Price,
		Capacity:          in.Capacity,
		Type:              typ,
		Slug:              slug,
		ThumbnailURL:      in.ThumbnailURL,
		ThumbnailPublicID: in.ThumbnailPublicID,
		CreatedBy:         createdBy,
	})
}

func (s *EventService) Get(ctx context.Context, id int64) (*domain.Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EventService) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *EventService) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, domain.ListMeta, error) {
	evs, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, domain.ListMeta{}, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	return evs, domain.ListMeta{Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *EventService) Update(ctx context.Context, id int64, patch domain.EventPatch) (*domain.Event, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Type != nil {
		if _, ok := domain.ParseEventType(*patch.Type); !ok {
			return nil, fmt.Errorf("%w: invalid event type %q", domain.ErrInvalidInput, *patch.Type)
		}
	}
	if patch.StartTime != nil && !domain.ValidTimeOfDay(*patch.StartTime) {
		return nil, fmt.Errorf("%w: startTime must be HH:mm", domain.ErrInvalidInput)
	}
	if patch.EndTime != nil && *patch.EndTime != "" && !domain.ValidTimeOfDay(*patch.EndTime) {
		return nil, fmt.Errorf("%w: endTime must be HH:mm", domain.ErrInvalidInput)
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if patch.Capacity != nil && *patch.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", domain.ErrInvalidInput)
	}

	// The dates the row would end up with must still form a valid range.
	startDate := current.StartDate
	if patch.StartDate != nil {
		startDate = *patch.StartDate
	}
	endDate := current.EndDate
	if patch.EndDate != nil {
		endDate = patch.EndDate
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: endDate before startDate", domain.ErrInvalidInput)
	}

	newSlug := ""
	if patch.Title != nil && *patch.Title != current.Title {
		newSlug, err = uniqueSlug(ctx, *patch.Title, s.repo.SlugExists)
		if err != nil {
			return nil, err
		}
	}

	// A replaced thumbnail orphans the old hosted image.
	oldPublicID := ""
	if patch.ThumbnailPublicID != nil && *patch.ThumbnailPublicID != current.ThumbnailPublicID {
		oldPublicID = current.ThumbnailPublicID
	}

	updated, err := s.repo.Update(ctx, id, patch, newSlug)
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

func (s *EventService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if deleted.ThumbnailPublicID != "" && s.storage != nil {
		if err := s.storage.Destroy(ctx, deleted.ThumbnailPublicID); err != nil {
			logger.ErrorContext(ctx, "failed to destroy event thumbnail", "public_id", deleted.ThumbnailPublicID, "error", err)
		}
	}
	return nil
}
