package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
)

type PostCategoryRepo interface {
	Create(ctx context.Context, c *domain.PostCategory) (*domain.PostCategory, error)
	GetByID(ctx context.Context, id int64) (*domain.PostCategory, error)
	List(ctx context.Context) ([]domain.PostCategory, error)
	Update(ctx context.Context, id int64, patch domain.PostCategoryPatch, newSlug string) (*domain.PostCategory, error)
	Delete(ctx context.Context, id int64) error
	// InUse reports whether any post still references the category.
	InUse(ctx context.Context, id int64) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type PostCategoryRepoImpl struct{ pool *pgxpool.Pool }

func NewPostCategoryRepo(pool *pgxpool.Pool) *PostCategoryRepoImpl {
	return &PostCategoryRepoImpl{pool: pool}
}

const categoryCols = `id, name, slug, description, is_active, created_by, created_at, updated_at`

func scanCategory(row pgx.Row) (*domain.PostCategory, error) {
	var c domain.PostCategory
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostCategoryRepoImpl) Create(ctx context.Context, c *domain.PostCategory) (*domain.PostCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanCategory(r.pool.QueryRow(ctx, `INSERT INTO post_categories
(name, slug, description, created_by) VALUES ($1,$2,$3,$4)
RETURNING `+categoryCols,
		c.Name, c.Slug, c.Description, c.CreatedBy))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return created, err
}

func (r *PostCategoryRepoImpl) GetByID(ctx context.Context, id int64) (*domain.PostCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryCols+` FROM post_categories WHERE id = $1`, id))
}

func (r *PostCategoryRepoImpl) List(ctx context.Context) ([]domain.PostCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+categoryCols+` FROM post_categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cs []domain.PostCategory
	for rows.Next() {
		var c domain.PostCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive,
			&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

func (r *PostCategoryRepoImpl) Update(ctx context.Context, id int64, patch domain.PostCategoryPatch, newSlug string) (*domain.PostCategory, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if newSlug != "" {
		add("slug", newSlug)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := fmt.Sprintf(`UPDATE post_categories SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), categoryCols)
	c, err := scanCategory(r.pool.QueryRow(ctx, q, args...))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return c, err
}

func (r *PostCategoryRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, `DELETE FROM post_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostCategoryRepoImpl) InUse(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE category_id = $1)`, id).Scan(&found)
	return found, err
}

func (r *PostCategoryRepoImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM post_categories WHERE slug = $1)`, slug).Scan(&found)
	return found, err
}

var _ PostCategoryRepo = (*PostCategoryRepoImpl)(nil)
