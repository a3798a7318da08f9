package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/auth"
)

type mockUserRepo struct {
	byID   map[int64]*domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[int64]*domain.User{}, nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicate
		}
	}
	cp := *u
	cp.ID = m.nextID
	m.nextID++
	cp.CreatedAt = time.Now()
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) List(_ context.Context, _ domain.UserFilter) ([]domain.User, int64, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = domain.Role(*patch.Role)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockUserRepo) SetPassword(_ context.Context, id int64, hash string) error {
	m.byID[id].PasswordHash = hash
	return nil
}

func (m *mockUserRepo) SetVerifyOTP(_ context.Context, id int64, hash string, expiresAt time.Time) error {
	u := m.byID[id]
	u.VerifyOTPHash = &hash
	u.VerifyOTPExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, id int64) error {
	u := m.byID[id]
	u.IsEmailVerified = true
	u.VerifyOTPHash = nil
	u.VerifyOTPExpiresAt = nil
	return nil
}

func (m *mockUserRepo) SetResetOTP(_ context.Context, id int64, hash string, expiresAt time.Time) error {
	u := m.byID[id]
	u.ResetOTPHash = &hash
	u.ResetOTPExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepo) ClearResetAndSetPassword(_ context.Context, id int64, hash string) error {
	u := m.byID[id]
	u.PasswordHash = hash
	u.ResetOTPHash = nil
	u.ResetOTPExpiresAt = nil
	return nil
}

func newAuthFixture() (*AuthService, *mockUserRepo, *mockOutbox) {
	users := newMockUserRepo()
	ob := &mockOutbox{}
	signer := auth.NewSigner("test-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
	svc := NewAuthService(users, ob, signer, nil, 10*time.Minute, 5*time.Minute)
	return svc, users, ob
}

func TestAuthRegisterQueuesVerification(t *testing.T) {
	svc, users, ob := newAuthFixture()

	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "An", Email: "An@Example.com", Password: "secret-password",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "an@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.Role != domain.RoleUser {
		t.Errorf("role = %s, want user", u.Role)
	}
	if stored := users.byID[u.ID]; stored.VerifyOTPHash == nil {
		t.Error("verification code should be stored")
	}
	if len(ob.queued) != 1 || ob.queued[0].kind != domain.NotifyOTP {
		t.Fatalf("expected one queued verification email, got %+v", ob.queued)
	}

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "An again", Email: "an@example.com", Password: "secret-password",
	}); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("duplicate email: got %v", err)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthFixture()

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "an@example.com", Password: "x"}); !errors.Is(err, domain.ErrMissingFields) {
		t.Errorf("missing name: got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "An", Email: "not-an-email", Password: "secret-password"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad email: got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "An", Email: "an@example.com", Password: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("short password: got %v", err)
	}
}

func registerVerifiedUser(t *testing.T, svc *AuthService, users *mockUserRepo) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "An", Email: "an@example.com", Password: "secret-password",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := users.MarkEmailVerified(context.Background(), u.ID); err != nil {
		t.Fatal(err)
	}
	return users.byID[u.ID]
}

func TestAuthLogin(t *testing.T) {
	svc, users, _ := newAuthFixture()
	registerVerifiedUser(t, svc, users)

	res, err := svc.Login(context.Background(), "an@example.com", "secret-password")
	if err != nil {
		t.Fatal(err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Error("login should issue both tokens")
	}

	if _, err := svc.Login(context.Background(), "an@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "unknown@example.com", "secret-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown account: got %v", err)
	}
}

func TestAuthLoginRequiresVerifiedEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "An", Email: "an@example.com", Password: "secret-password",
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(context.Background(), "an@example.com", "secret-password"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("got %v, want ErrEmailNotVerified", err)
	}
}

func TestAuthRefreshReloadsRole(t *testing.T) {
	svc, users, _ := newAuthFixture()
	u := registerVerifiedUser(t, svc, users)

	res, err := svc.Login(context.Background(), "an@example.com", "secret-password")
	if err != nil {
		t.Fatal(err)
	}

	users.byID[u.ID].Role = domain.RoleStaff
	tokens, err := svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if tokens.AccessToken == "" {
		t.Fatal("refresh should issue a new access token")
	}

	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("garbage token: got %v", err)
	}
}

func TestAuthVerifyEmail(t *testing.T) {
	svc, users, _ := newAuthFixture()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "An", Email: "an@example.com", Password: "secret-password",
	})
	if err != nil {
		t.Fatal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.SetVerifyOTP(context.Background(), u.ID, string(hash), time.Now().Add(10*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := svc.VerifyEmail(context.Background(), "an@example.com", "000000"); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Errorf("wrong code: got %v", err)
	}
	if err := svc.VerifyEmail(context.Background(), "an@example.com", "123456"); err != nil {
		t.Fatal(err)
	}
	if !users.byID[u.ID].IsEmailVerified {
		t.Error("user should be verified")
	}
	if err := svc.VerifyEmail(context.Background(), "an@example.com", "123456"); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Errorf("second verify: got %v", err)
	}
}

func TestAuthForgotPasswordFlow(t *testing.T) {
	svc, users, ob := newAuthFixture()
	u := registerVerifiedUser(t, svc, users)
	ob.queued = nil

	// Unknown accounts are not revealed.
	if err := svc.ForgotPassword(context.Background(), "unknown@example.com"); err != nil {
		t.Fatalf("unknown account should not error: %v", err)
	}
	if len(ob.queued) != 0 {
		t.Error("no email for unknown account")
	}

	if err := svc.ForgotPassword(context.Background(), "an@example.com"); err != nil {
		t.Fatal(err)
	}
	if len(ob.queued) != 1 {
		t.Fatalf("expected one reset email, got %d", len(ob.queued))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("654321"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.SetResetOTP(context.Background(), u.ID, string(hash), time.Now().Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := svc.ResetPassword(context.Background(), "an@example.com", "654321", "new-password-1"); err != nil {
		t.Fatal(err)
	}
	if users.byID[u.ID].ResetOTPHash != nil {
		t.Error("reset code should be consumed")
	}
	if _, err := svc.Login(context.Background(), "an@example.com", "new-password-1"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "an@example.com", "secret-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("old password should no longer work: %v", err)
	}
}
