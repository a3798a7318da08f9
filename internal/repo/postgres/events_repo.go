package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
)

type EventRepo interface {
	Create(ctx context.Context, ev *domain.Event) (*domain.Event, error)
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Event, error)
	List(ctx context.Context, f domain.EventFilter) ([]domain.Event, int64, error)
	// Update applies the patch; newSlug is set when the title changed.
	Update(ctx context.Context, id int64, patch domain.EventPatch, newSlug string) (*domain.Event, error)
	// Delete removes the row and returns it so the caller can destroy
	// the hosted thumbnail.
	Delete(ctx context.Context, id int64) (*domain.Event, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// DeactivateExpired flips is_active off for events whose end date has
	// passed. Returns the IDs it touched.
	DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error)
}

type EventRepoImpl struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *EventRepoImpl { return &EventRepoImpl{pool: pool} }

const eventCols = `id, title, description, short_description,
start_date, end_date, start_time, end_time,
price, capacity, is_active, type, slug,
thumbnail_url, thumbnail_public_id,
created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var ev domain.Event
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.ShortDescription,
		&ev.StartDate, &ev.EndDate, &ev.StartTime, &ev.EndTime,
		&ev.Price, &ev.Capacity, &ev.IsActive, &ev.Type, &ev.Slug,
		&ev.ThumbnailURL, &ev.ThumbnailPublicID,
		&ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *EventRepoImpl) Create(ctx context.Context, ev *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `INSERT INTO events (
  title, description, short_description,
  start_date, end_date, start_time, end_time,
  price, capacity, type, slug,
  thumbnail_url, thumbnail_public_id, created_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING ` + eventCols

	created, err := scanEvent(r.pool.QueryRow(ctx, q,
		ev.Title, ev.Description, ev.ShortDescription,
		ev.StartDate, ev.EndDate, ev.StartTime, ev.EndTime,
		ev.Price, ev.Capacity, ev.Type, ev.Slug,
		ev.ThumbnailURL, ev.ThumbnailPublicID, ev.CreatedBy,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return created, err
}

func (r *EventRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = $1`, id))
}

func (r *EventRepoImpl) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM events WHERE slug = $1`, slug))
}

func (r *EventRepoImpl) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where := []string{"true"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		add("(e.title ILIKE '%%' || $%d || '%%' OR e.slug ILIKE '%%' || $%[1]d || '%%')", f.Search)
	}
	if f.IsActive != nil {
		add("e.is_active = $%d", *f.IsActive)
	}
	if f.Slug != "" {
		add("e.slug = $%d", f.Slug)
	}
	if f.CreatedBy != nil {
		add("e.created_by = $%d", *f.CreatedBy)
	}
	if f.Type != nil {
		add("e.type = $%d", *f.Type)
	}
	if f.StartDateFrom != nil {
		add("e.start_date >= $%d", *f.StartDateFrom)
	}
	if f.EndDateTo != nil {
		add("e.end_date <= $%d", *f.EndDateTo)
	}
	if f.PriceMin != nil {
		add("e.price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("e.price <= $%d", *f.PriceMax)
	}
	if f.CapacityMin != nil {
		add("e.capacity >= $%d", *f.CapacityMin)
	}
	if f.CapacityMax != nil {
		add("e.capacity <= $%d", *f.CapacityMax)
	}
	cond := strings.Join(where, " AND ")

	sortCol, ok := domain.EventSortFields[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		order = "ASC"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM events e WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := fmt.Sprintf(`SELECT e.id, e.title, e.description, e.short_description,
e.start_date, e.end_date, e.start_time, e.end_time,
e.price, e.capacity, e.is_active, e.type, e.slug,
e.thumbnail_url, e.thumbnail_public_id,
e.created_by, e.created_at, e.updated_at,
u.id, u.name, u.email
FROM events e
LEFT JOIN users u ON u.id = e.created_by
WHERE %s
ORDER BY e.%s %s
LIMIT $%d OFFSET $%d`, cond, sortCol, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	evs := make([]domain.Event, 0, f.Limit)
	for rows.Next() {
		var ev domain.Event
		var uID *int64
		var uName, uEmail *string
		if err := rows.Scan(
			&ev.ID, &ev.Title, &ev.Description, &ev.ShortDescription,
			&ev.StartDate, &ev.EndDate, &ev.StartTime, &ev.EndTime,
			&ev.Price, &ev.Capacity, &ev.IsActive, &ev.Type, &ev.Slug,
			&ev.ThumbnailURL, &ev.ThumbnailPublicID,
			&ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt,
			&uID, &uName, &uEmail,
		); err != nil {
			return nil, 0, err
		}
		if uID != nil {
			ev.Creator = &domain.UserSummary{ID: *uID, Name: *uName, Email: *uEmail}
		}
		evs = append(evs, ev)
	}
	return evs, total, rows.Err()
}

func (r *EventRepoImpl) Update(ctx context.Context, id int64, patch domain.EventPatch, newSlug string) (*domain.Event, error) {
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
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ShortDescription != nil {
		add("short_description", *patch.ShortDescription)
	}
	if patch.StartDate != nil {
		add("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		add("end_date", *patch.EndDate)
	}
	if patch.StartTime != nil {
		add("start_time", *patch.StartTime)
	}
	if patch.EndTime != nil {
		add("end_time", *patch.EndTime)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Capacity != nil {
		add("capacity", *patch.Capacity)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.ThumbnailURL != nil {
		add("thumbnail_url", *patch.ThumbnailURL)
	}
	if patch.ThumbnailPublicID != nil {
		add("thumbnail_public_id", *patch.ThumbnailPublicID)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := fmt.Sprintf(`UPDATE events SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), eventCols)
	ev, err := scanEvent(r.pool.QueryRow(ctx, q, args...))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return ev, err
}

func (r *EventRepoImpl) Delete(ctx context.Context, id int64) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanEvent(r.pool.QueryRow(ctx,
		`DELETE FROM events WHERE id = $1 RETURNING `+eventCols, id))
}

func (r *EventRepoImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE slug = $1)`, slug).Scan(&found)
	return found, err
}

func (r *EventRepoImpl) DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `UPDATE events
SET is_active = false, updated_at = now()
WHERE is_active AND end_date IS NOT NULL AND end_date < $1
RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ EventRepo = (*EventRepoImpl)(nil)
