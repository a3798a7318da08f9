package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/auth"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/otp"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/utils"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/events"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

// AuthService covers account registration, login, token refresh and the
// two OTP email flows (account verification and password reset).
type AuthService struct {
	users     postgres.UserRepo
	outbox    postgres.OutboxRepo
	signer    *auth.Signer
	bus       events.Publisher
	verifyTTL time.Duration
	resetTTL  time.Duration
}

func NewAuthService(users postgres.UserRepo, outbox postgres.OutboxRepo, signer *auth.Signer, bus events.Publisher, verifyTTL, resetTTL time.Duration) *AuthService {
	if verifyTTL <= 0 {
		verifyTTL = 10 * time.Minute
	}
	if resetTTL <= 0 {
		resetTTL = 5 * time.Minute
	}
	return &AuthService{
		users:     users,
		outbox:    outbox,
		signer:    signer,
		bus:       bus,
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
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

	passwordHash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, err
	}

	code, err := otp.Generate(otp.DefaultLength)
	if err != nil {
		return nil, err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	h := string(codeHash)
	exp := time.Now().Add(s.verifyTTL)

	u, err := s.users.Create(ctx, &domain.User{
		Name:               in.Name,
		Email:              email,
		Phone:              utils.NormalizePhone(in.Phone),
		PasswordHash:       passwordHash,
		Role:               domain.RoleUser,
		VerifyOTPHash:      &h,
		VerifyOTPExpiresAt: &exp,
	})
	if err != nil {
		return nil, err
	}

	if err := s.outbox.Enqueue(ctx, domain.NotifyOTP, u.Email, u.Name, domain.OTPPayload{
		Code:       code,
		TTLMinutes: int(s.verifyTTL.Minutes()),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to queue verification email", "user_id", u.ID, "error", err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
			UserID:       u.ID,
			Email:        u.Email,
			RegisteredAt: u.CreatedAt,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to publish event", "subject", events.UserRegistered, "error", err)
		}
	}
	return u, nil
}

type LoginResult struct {
	User   *domain.User   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrMissingFields
	}
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil || !match {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	tokens, err := s.signer.NewTokenPair(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: tokens}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingFields
	}
	claims, err := s.signer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	// Role is re-read so a demoted account cannot keep minting elevated
	// access tokens from an old refresh token.
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	tokens, err := s.signer.NewTokenPair(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return domain.ErrMissingFields
	}
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return domain.ErrAlreadyVerified
	}
	if u.VerifyOTPHash == nil {
		return domain.ErrNoValidCode
	}
	if u.VerifyOTPExpiresAt != nil && time.Now().After(*u.VerifyOTPExpiresAt) {
		return domain.ErrCodeExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.VerifyOTPHash), []byte(code)) != nil {
		return domain.ErrCodeMismatch
	}
	return s.users.MarkEmailVerified(ctx, u.ID)
}

func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrMissingFields
	}
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return domain.ErrAlreadyVerified
	}
	code, err := otp.Generate(otp.DefaultLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.SetVerifyOTP(ctx, u.ID, string(hash), time.Now().Add(s.verifyTTL)); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, domain.NotifyOTP, u.Email, u.Name, domain.OTPPayload{
		Code:       code,
		TTLMinutes: int(s.verifyTTL.Minutes()),
	})
}

// ForgotPassword never reveals whether the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrMissingFields
	}
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	code, err := otp.Generate(otp.DefaultLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.SetResetOTP(ctx, u.ID, string(hash), time.Now().Add(s.resetTTL)); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, domain.NotifyOTP, u.Email, u.Name, domain.OTPPayload{
		Code:       code,
		TTLMinutes: int(s.resetTTL.Minutes()),
	})
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if email == "" || code == "" || newPassword == "" {
		return domain.ErrMissingFields
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	u, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u.ResetOTPHash == nil {
		return domain.ErrNoValidCode
	}
	if u.ResetOTPExpiresAt != nil && time.Now().After(*u.ResetOTPExpiresAt) {
		return domain.ErrCodeExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.ResetOTPHash), []byte(code)) != nil {
		return domain.ErrCodeMismatch
	}
	passwordHash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return err
	}
	return s.users.ClearResetAndSetPassword(ctx, u.ID, passwordHash)
}
