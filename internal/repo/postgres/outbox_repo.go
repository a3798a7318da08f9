package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
)

type OutboxRepo interface {
	Enqueue(ctx context.Context, kind domain.NotificationKind, recipient, name string, payload any) error
	// Claim grabs up to limit pending rows for delivery, bumping their
	// attempt counter. FOR UPDATE SKIP LOCKED keeps concurrent
	// dispatchers from double-sending.
	Claim(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	// MarkError records a delivery failure. Permanent failures stay
	// failed; transient ones go back to pending for the next poll.
	MarkError(ctx context.Context, id int64, errMsg string, permanent bool) error
}

type OutboxRepoImpl struct{ pool *pgxpool.Pool }

func NewOutboxRepo(pool *pgxpool.Pool) *OutboxRepoImpl { return &OutboxRepoImpl{pool: pool} }

func (r *OutboxRepoImpl) Enqueue(ctx context.Context, kind domain.NotificationKind, recipient, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.pool.Exec(ctx, `INSERT INTO notifications (kind, recipient, name, payload)
VALUES ($1, $2, $3, $4)`, kind, recipient, name, raw)
	return err
}

func (r *OutboxRepoImpl) Claim(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	const q = `UPDATE notifications
SET attempts = attempts + 1
WHERE id IN (
  SELECT id FROM notifications
  WHERE status = 'pending'
  ORDER BY id
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
RETURNING id, kind, recipient, name, payload, status, attempts, last_error, created_at, sent_at`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ns []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.Recipient, &n.Name, &n.Payload,
			&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

func (r *OutboxRepoImpl) MarkSent(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, `UPDATE notifications
SET status = 'sent', sent_at = now(), last_error = ''
WHERE id = $1`, id)
	return err
}

func (r *OutboxRepoImpl) MarkError(ctx context.Context, id int64, errMsg string, permanent bool) error {
	status := domain.NotificationPending
	if permanent {
		status = domain.NotificationFailed
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, `UPDATE notifications
SET status = $2, last_error = $3
WHERE id = $1`, id, status, errMsg)
	return err
}

var _ OutboxRepo = (*OutboxRepoImpl)(nil)
