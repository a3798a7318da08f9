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

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SetVerifyOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id int64) error
	SetResetOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error
	// ClearResetAndSetPassword atomically consumes the reset code.
	ClearResetAndSetPassword(ctx context.Context, id int64, passwordHash string) error
}

type UserRepoImpl struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepoImpl { return &UserRepoImpl{pool: pool} }

const userCols = `id, name, email, phone, password_hash, role,
is_email_verified, gender, birthday, address, dharma_name, has_taken_refuge, avatar_url,
verify_otp_hash, verify_otp_expires_at, reset_otp_hash, reset_otp_expires_at,
created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.IsEmailVerified, &u.Gender, &u.Birthday, &u.Address, &u.DharmaName, &u.HasTakenRefuge, &u.AvatarURL,
		&u.VerifyOTPHash, &u.VerifyOTPExpiresAt, &u.ResetOTPHash, &u.ResetOTPExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `INSERT INTO users (
  name, email, phone, password_hash, role,
  gender, birthday, address, dharma_name, has_taken_refuge, avatar_url,
  verify_otp_hash, verify_otp_expires_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING ` + userCols

	created, err := scanUser(r.pool.QueryRow(ctx, q,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role,
		u.Gender, u.Birthday, u.Address, u.DharmaName, u.HasTakenRefuge, u.AvatarURL,
		u.VerifyOTPHash, u.VerifyOTPExpiresAt,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return created, err
}

func (r *UserRepoImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *UserRepoImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepoImpl) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
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
			"(name ILIKE '%%' || $%d || '%%' OR email ILIKE '%%' || $%[1]d || '%%')", len(args)))
	}
	if f.Role != nil {
		args = append(args, *f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	sortCol := "created_at"
	if f.SortBy == "name" || f.SortBy == "email" {
		sortCol = f.SortBy
	}
	order := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		order = "ASC"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userCols, cond, sortCol, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	us := make([]domain.User, 0, f.Limit)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
			&u.IsEmailVerified, &u.Gender, &u.Birthday, &u.Address, &u.DharmaName, &u.HasTakenRefuge, &u.AvatarURL,
			&u.VerifyOTPHash, &u.VerifyOTPExpiresAt, &u.ResetOTPHash, &u.ResetOTPExpiresAt,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		us = append(us, u)
	}
	return us, total, rows.Err()
}

func (r *UserRepoImpl) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.Gender != nil {
		add("gender", *patch.Gender)
	}
	if patch.Birthday != nil {
		add("birthday", *patch.Birthday)
	}
	if patch.Address != nil {
		add("address", *patch.Address)
	}
	if patch.DharmaName != nil {
		add("dharma_name", *patch.DharmaName)
	}
	if patch.HasTakenRefuge != nil {
		add("has_taken_refuge", *patch.HasTakenRefuge)
	}
	if patch.AvatarURL != nil {
		add("avatar_url", *patch.AvatarURL)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), userCols)
	return scanUser(r.pool.QueryRow(ctx, q, args...))
}

func (r *UserRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepoImpl) exec(ctx context.Context, q string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepoImpl) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
}

func (r *UserRepoImpl) SetVerifyOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	return r.exec(ctx, `UPDATE users
SET verify_otp_hash = $2, verify_otp_expires_at = $3, updated_at = now()
WHERE id = $1`, id, hash, expiresAt)
}

func (r *UserRepoImpl) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users
SET is_email_verified = true, verify_otp_hash = NULL, verify_otp_expires_at = NULL, updated_at = now()
WHERE id = $1`, id)
}

func (r *UserRepoImpl) SetResetOTP(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	return r.exec(ctx, `UPDATE users
SET reset_otp_hash = $2, reset_otp_expires_at = $3, updated_at = now()
WHERE id = $1`, id, hash, expiresAt)
}

func (r *UserRepoImpl) ClearResetAndSetPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users
SET password_hash = $2, reset_otp_hash = NULL, reset_otp_expires_at = NULL, updated_at = now()
WHERE id = $1`, id, passwordHash)
}

var _ UserRepo = (*UserRepoImpl)(nil)
