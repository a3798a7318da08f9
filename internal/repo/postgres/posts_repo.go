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

type PostRepo interface {
	Create(ctx context.Context, p *domain.Post) (*domain.Post, error)
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)
	List(ctx context.Context, f domain.PostFilter) ([]domain.Post, int64, error)
	Update(ctx context.Context, id int64, patch domain.PostPatch, newSlug string) (*domain.Post, error)
	Delete(ctx context.Context, id int64) (*domain.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type PostRepoImpl struct{ pool *pgxpool.Pool }

func NewPostRepo(pool *pgxpool.Pool) *PostRepoImpl { return &PostRepoImpl{pool: pool} }

const postCols = `id, title, short_description, content, slug,
category_id, is_active, author_id,
thumbnail_url, thumbnail_public_id, created_at, updated_at`

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.ShortDescription, &p.Content, &p.Slug,
		&p.CategoryID, &p.IsActive, &p.AuthorID,
		&p.ThumbnailURL, &p.ThumbnailPublicID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepoImpl) Create(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `INSERT INTO posts (
  title, short_description, content, slug,
  category_id, author_id, thumbnail_url, thumbnail_public_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + postCols

	created, err := scanPost(r.pool.QueryRow(ctx, q,
		p.Title, p.ShortDescription, p.Content, p.Slug,
		p.CategoryID, p.AuthorID, p.ThumbnailURL, p.ThumbnailPublicID,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return created, err
}

func (r *PostRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	return r.getOne(ctx, "p.id = $1", id)
}

func (r *PostRepoImpl) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	return r.getOne(ctx, "p.slug = $1", slug)
}

func (r *PostRepoImpl) getOne(ctx context.Context, cond string, arg any) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := `SELECT p.id, p.title, p.short_description, p.content, p.slug,
p.category_id, p.is_active, p.author_id,
p.thumbnail_url, p.thumbnail_public_id, p.created_at, p.updated_at,
c.id, c.name, c.slug, c.description, c.is_active, c.created_by, c.created_at, c.updated_at,
u.id, u.name, u.email
FROM posts p
LEFT JOIN post_categories c ON c.id = p.category_id
LEFT JOIN users u ON u.id = p.author_id
WHERE ` + cond

	return scanPostJoined(r.pool.QueryRow(ctx, q, arg))
}

func scanPostJoined(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	var cID *int64
	var cName, cSlug, cDesc *string
	var cActive *bool
	var cBy *int64
	var cCreated, cUpdated *time.Time
	var uID *int64
	var uName, uEmail *string
	err := row.Scan(
		&p.ID, &p.Title, &p.ShortDescription, &p.Content, &p.Slug,
		&p.CategoryID, &p.IsActive, &p.AuthorID,
		&p.ThumbnailURL, &p.ThumbnailPublicID, &p.CreatedAt, &p.UpdatedAt,
		&cID, &cName, &cSlug, &cDesc, &cActive, &cBy, &cCreated, &cUpdated,
		&uID, &uName, &uEmail,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cID != nil {
		p.Category = &domain.PostCategory{
			ID: *cID, Name: *cName, Slug: *cSlug, Description: *cDesc,
			IsActive: *cActive, CreatedBy: *cBy, CreatedAt: *cCreated, UpdatedAt: *cUpdated,
		}
	}
	if uID != nil {
		p.Author = &domain.UserSummary{ID: *uID, Name: *uName, Email: *uEmail}
	}
	return &p, nil
}

func (r *PostRepoImpl) List(ctx context.Context, f domain.PostFilter) ([]domain.Post, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where := []string{"true"}
	args := []any{}
	if f.Search != "" {
		args = append(args, f.Search)
		where = append(where, fmt.Sprintf(
			"(p.title ILIKE '%%' || $%d || '%%' OR p.slug ILIKE '%%' || $%[1]d || '%%')", len(args)))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("p.is_active = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM posts p WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := fmt.Sprintf(`SELECT p.id, p.title, p.short_description, p.content, p.slug,
p.category_id, p.is_active, p.author_id,
p.thumbnail_url, p.thumbnail_public_id, p.created_at, p.updated_at,
c.id, c.name, c.slug, c.description, c.is_active, c.created_by, c.created_at, c.updated_at,
u.id, u.name, u.email
FROM posts p
LEFT JOIN post_categories c ON c.id = p.category_id
LEFT JOIN users u ON u.id = p.author_id
WHERE %s
ORDER BY p.created_at DESC
LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ps := make([]domain.Post, 0, f.Limit)
	for rows.Next() {
		p, err := scanPostJoined(rows)
		if err != nil {
			return nil, 0, err
		}
		ps = append(ps, *p)
	}
	return ps, total, rows.Err()
}

func (r *PostRepoImpl) Update(ctx context.Context, id int64, patch domain.PostPatch, newSlug string) (*domain.Post, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if newSlug != "" {
		add("slug", newSlug)
	}
	if patch.ShortDescription != nil {
		add("short_description", *patch.ShortDescription)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Category != nil {
		add("category_id", *patch.Category)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.ThumbnailURL != nil {
		add("thumbnail_url", *patch.ThumbnailURL)
	}
	if patch.ThumbnailPublicID != nil {
		add("thumbnail_public_id", *patch.ThumbnailPublicID)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), postCols)
	p, err := scanPost(r.pool.QueryRow(ctx, q, args...))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return p, err
}

func (r *PostRepoImpl) Delete(ctx context.Context, id int64) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanPost(r.pool.QueryRow(ctx,
		`DELETE FROM posts WHERE id = $1 RETURNING `+postCols, id))
}

func (r *PostRepoImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&found)
	return found, err
}

var _ PostRepo = (*PostRepoImpl)(nil)
