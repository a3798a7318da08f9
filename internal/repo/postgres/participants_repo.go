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

type ParticipantRepo interface {
	// CreateWithCapacityCheck inserts a registration inside a transaction
	// that locks the event row, so the capacity check and the insert are
	// atomic. Returns domain.ErrEventNotFound or domain.ErrEventFull.
	CreateWithCapacityCheck(ctx context.Context, p *domain.Participant) (*domain.Participant, error)
	GetByID(ctx context.Context, id int64) (*domain.Participant, error)
	// GetWithEvent populates the participant's event summary.
	GetWithEvent(ctx context.Context, id int64) (*domain.Participant, error)
	List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, int64, error)
	// HasPriorRegistration reports whether any active participant with
	// the same email or phone exists on a different event.
	HasPriorRegistration(ctx context.Context, email, phone string, excludeEventID int64) (bool, error)
	// ConfirmIfRoom transitions a pending participant to confirmed,
	// re-checking the confirmed count against the event capacity under
	// the event row lock. Returns domain.ErrEventFull when full.
	ConfirmIfRoom(ctx context.Context, id int64) (*domain.Participant, error)
	// MarkEmailVerified records a successful OTP check for paid events
	// without confirming, clearing the code.
	MarkEmailVerified(ctx context.Context, id int64) (*domain.Participant, error)
	// Approve confirms unconditionally (staff override) and clears any
	// residual code.
	Approve(ctx context.Context, id int64) (*domain.Participant, error)
	CheckIn(ctx context.Context, id int64, at time.Time) (*domain.Participant, error)
	Update(ctx context.Context, id int64, patch domain.ParticipantPatch, resetStatus bool) (*domain.Participant, error)
	SetActive(ctx context.Context, id int64, active bool) (*domain.Participant, error)
	SetOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error
}

type ParticipantRepoImpl struct{ pool *pgxpool.Pool }

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepoImpl {
	return &ParticipantRepoImpl{pool: pool}
}

const participantCols = `id, name, email, phone, note, job, info_source,
event_id, status, robe_option, robe_size,
has_agreed, is_first_time, is_active,
is_email_verified, is_checked_in, checked_in_at,
otp_hash, otp_expires_at, created_at, updated_at`

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Note, &p.Job, &p.Source,
		&p.EventID, &p.Status, &p.RobeOption, &p.RobeSize,
		&p.HasAgreed, &p.IsFirstTime, &p.IsActive,
		&p.IsEmailVerified, &p.IsCheckedIn, &p.CheckedInAt,
		&p.OTPHash, &p.OTPExpiresAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// countActiveQ counts the participants holding a capacity slot.
const countActiveQ = `SELECT count(*) FROM participants
WHERE event_id = $1 AND is_active AND status IN ('pending','confirmed')`

func (r *ParticipantRepoImpl) CreateWithCapacityCheck(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var capacity int
	err = tx.QueryRow(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, p.EventID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	var current int
	if err := tx.QueryRow(ctx, countActiveQ, p.EventID).Scan(&current); err != nil {
		return nil, err
	}
	if capacity > 0 && current >= capacity {
		return nil, domain.ErrEventFull
	}

	const q = `INSERT INTO participants (
  name, email, phone, note, job, info_source,
  event_id, status, robe_option, robe_size,
  has_agreed, is_first_time, otp_hash, otp_expires_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',$8,$9,$10,$11,$12,$13)
RETURNING ` + participantCols

	created, err := scanParticipant(tx.QueryRow(ctx, q,
		p.Name, p.Email, p.Phone, p.Note, p.Job, p.Source,
		p.EventID, p.RobeOption, p.RobeSize,
		p.HasAgreed, p.IsFirstTime, p.OTPHash, p.OTPExpiresAt,
	))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ParticipantRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanParticipant(r.pool.QueryRow(ctx,
		`SELECT `+participantCols+` FROM participants WHERE id = $1`, id))
}

func (r *ParticipantRepoImpl) GetWithEvent(ctx context.Context, id int64) (*domain.Participant, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var ev domain.EventSummary
	err = r.pool.QueryRow(ctx,
		`SELECT id, title, start_date, price FROM events WHERE id = $1`, p.EventID,
	).Scan(&ev.ID, &ev.Title, &ev.StartDate, &ev.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil // event deleted; detail reads report it as missing
	}
	if err != nil {
		return nil, err
	}
	p.Event = &ev
	return p, nil
}

func (r *ParticipantRepoImpl) List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where := []string{"p.is_active"}
	args := []any{}
	if f.EventID != nil {
		args = append(args, *f.EventID)
		where = append(where, fmt.Sprintf("p.event_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM participants p WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := fmt.Sprintf(`SELECT p.id, p.name, p.email, p.phone, p.note, p.job, p.info_source,
p.event_id, p.status, p.robe_option, p.robe_size,
p.has_agreed, p.is_first_time, p.is_active,
p.is_email_verified, p.is_checked_in, p.checked_in_at,
p.otp_hash, p.otp_expires_at, p.created_at, p.updated_at,
e.id, e.title, e.start_date, e.price
FROM participants p
LEFT JOIN events e ON e.id = p.event_id
WHERE %s
ORDER BY p.created_at DESC
LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ps := make([]domain.Participant, 0, f.Limit)
	for rows.Next() {
		var p domain.Participant
		var evID *int64
		var evTitle *string
		var evStart *time.Time
		var evPrice *int64
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Email, &p.Phone, &p.Note, &p.Job, &p.Source,
			&p.EventID, &p.Status, &p.RobeOption, &p.RobeSize,
			&p.HasAgreed, &p.IsFirstTime, &p.IsActive,
			&p.IsEmailVerified, &p.IsCheckedIn, &p.CheckedInAt,
			&p.OTPHash, &p.OTPExpiresAt, &p.CreatedAt, &p.UpdatedAt,
			&evID, &evTitle, &evStart, &evPrice,
		); err != nil {
			return nil, 0, err
		}
		if evID != nil {
			p.Event = &domain.EventSummary{ID: *evID, Title: *evTitle, StartDate: *evStart, Price: *evPrice}
		}
		ps = append(ps, p)
	}
	return ps, total, rows.Err()
}

func (r *ParticipantRepoImpl) HasPriorRegistration(ctx context.Context, email, phone string, excludeEventID int64) (bool, error) {
	if email == "" && phone == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `SELECT EXISTS (
  SELECT 1 FROM participants
  WHERE is_active
    AND event_id <> $1
    AND (($2 <> '' AND lower(email) = lower($2)) OR ($3 <> '' AND phone = $3))
)`
	var found bool
	err := r.pool.QueryRow(ctx, q, excludeEventID, email, phone).Scan(&found)
	return found, err
}

func (r *ParticipantRepoImpl) ConfirmIfRoom(ctx context.Context, id int64) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var eventID int64
	var capacity int
	err = tx.QueryRow(ctx, `SELECT e.id, e.capacity
FROM participants p JOIN events e ON e.id = p.event_id
WHERE p.id = $1
FOR UPDATE OF e`, id).Scan(&eventID, &capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var confirmed int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM participants
WHERE event_id = $1 AND is_active AND status = 'confirmed'`, eventID).Scan(&confirmed); err != nil {
		return nil, err
	}
	if capacity > 0 && confirmed >= capacity {
		return nil, domain.ErrEventFull
	}

	p, err := scanParticipant(tx.QueryRow(ctx, `UPDATE participants
SET status = 'confirmed', is_email_verified = true,
    otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
WHERE id = $1
RETURNING `+participantCols, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ParticipantRepoImpl) MarkEmailVerified(ctx context.Context, id int64) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanParticipant(r.pool.QueryRow(ctx, `UPDATE participants
SET is_email_verified = true, otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
WHERE id = $1
RETURNING `+participantCols, id))
}

func (r *ParticipantRepoImpl) Approve(ctx context.Context, id int64) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanParticipant(r.pool.QueryRow(ctx, `UPDATE participants
SET status = 'confirmed', otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
WHERE id = $1
RETURNING `+participantCols, id))
}

func (r *ParticipantRepoImpl) CheckIn(ctx context.Context, id int64, at time.Time) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanParticipant(r.pool.QueryRow(ctx, `UPDATE participants
SET is_checked_in = true, checked_in_at = $2, updated_at = now()
WHERE id = $1
RETURNING `+participantCols, id, at))
}

func (r *ParticipantRepoImpl) Update(ctx context.Context, id int64, patch domain.ParticipantPatch, resetStatus bool) (*domain.Participant, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Note != nil {
		add("note", *patch.Note)
	}
	if patch.Job != nil {
		add("job", *patch.Job)
	}
	if patch.InfoSource != nil {
		add("info_source", *patch.InfoSource)
	}
	if patch.RobeOption != nil {
		add("robe_option", *patch.RobeOption)
		// No robe means no size to keep around.
		if domain.RobeOption(*patch.RobeOption) == domain.RobeNone {
			set = append(set, "robe_size = NULL")
			patch.RobeSize = nil
		}
	}
	if patch.RobeSize != nil {
		add("robe_size", patch.RobeSize)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if resetStatus {
		set = append(set, "status = 'pending'", "is_email_verified = false")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := fmt.Sprintf(`UPDATE participants SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), participantCols)
	return scanParticipant(r.pool.QueryRow(ctx, q, args...))
}

func (r *ParticipantRepoImpl) SetActive(ctx context.Context, id int64, active bool) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanParticipant(r.pool.QueryRow(ctx, `UPDATE participants
SET is_active = $2, updated_at = now()
WHERE id = $1
RETURNING `+participantCols, id, active))
}

func (r *ParticipantRepoImpl) SetOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, `UPDATE participants
SET otp_hash = $2, otp_expires_at = $3, updated_at = now()
WHERE id = $1`, id, hash, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ ParticipantRepo = (*ParticipantRepoImpl)(nil)
