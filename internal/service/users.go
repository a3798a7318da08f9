package service

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/utils"
)

type UserService struct {
	repo postgres.UserRepo
}

func NewUserService(repo postgres.UserRepo) *UserService {
	return &UserService{repo: repo}
}

type AdminCreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create adds an account on behalf of an admin. The account skips email
// verification since a staff member vouched for it.
func (s *UserService) Create(ctx context.Context, in AdminCreateUserInput) (*domain.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrMissingFields
	}
	email := utils.NormalizeEmail(in.Email)
	if !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	role := domain.RoleUser
	if in.Role != "" {
		parsed, ok := domain.ParseRole(in.Role)
		if !ok {
			return nil, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidInput, in.Role)
		}
		role = parsed
	}
	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        email,
		Phone:        utils.NormalizePhone(in.Phone),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	u.IsEmailVerified = true
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter) ([]domain.User, domain.ListMeta, error) {
	us, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, domain.ListMeta{}, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	return us, domain.ListMeta{Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Update applies a profile edit. Role changes are only honored when the
// caller is an admin; handlers strip the field otherwise.
func (s *UserService) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	if patch.Role != nil {
		if _, ok := domain.ParseRole(*patch.Role); !ok {
			return nil, fmt.Errorf("%w: invalid role %q", domain.ErrInvalidInput, *patch.Role)
		}
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *UserService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if current == "" || next == "" {
		return domain.ErrMissingFields
	}
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	match, err := argon2id.ComparePasswordAndHash(current, u.PasswordHash)
	if err != nil || !match {
		return domain.ErrInvalidCredentials
	}
	hash, err := argon2id.CreateHash(next, argon2id.DefaultParams)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, hash)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
