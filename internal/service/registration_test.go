package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
)

// mockParticipantRepo keeps participants in a map and applies the same
// capacity accounting as the SQL implementation.
type mockParticipantRepo struct {
	participants map[int64]*domain.Participant
	events       *mockEventRepo
	nextID       int64
}

func newMockParticipantRepo(events *mockEventRepo) *mockParticipantRepo {
	return &mockParticipantRepo{
		participants: map[int64]*domain.Participant{},
		events:       events,
		nextID:       1,
	}
}

func (m *mockParticipantRepo) activeCount(eventID int64) int {
	n := 0
	for _, p := range m.participants {
		if p.EventID == eventID && p.IsActive &&
			(p.Status == domain.ParticipantPending || p.Status == domain.ParticipantConfirmed) {
			n++
		}
	}
	return n
}

func (m *mockParticipantRepo) confirmedCount(eventID int64) int {
	n := 0
	for _, p := range m.participants {
		if p.EventID == eventID && p.IsActive && p.Status == domain.ParticipantConfirmed {
			n++
		}
	}
	return n
}

func (m *mockParticipantRepo) CreateWithCapacityCheck(_ context.Context, p *domain.Participant) (*domain.Participant, error) {
	ev, ok := m.events.byID[p.EventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if ev.Capacity > 0 && m.activeCount(p.EventID) >= ev.Capacity {
		return nil, domain.ErrEventFull
	}
	cp := *p
	cp.ID = m.nextID
	m.nextID++
	cp.Status = domain.ParticipantPending
	cp.IsActive = true
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.participants[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockParticipantRepo) GetByID(_ context.Context, id int64) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) GetWithEvent(ctx context.Context, id int64) (*domain.Participant, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev, ok := m.events.byID[p.EventID]; ok {
		p.Event = &domain.EventSummary{ID: ev.ID, Title: ev.Title, StartDate: ev.StartDate, Price: ev.Price}
	}
	return p, nil
}

func (m *mockParticipantRepo) List(_ context.Context, f domain.ParticipantFilter) ([]domain.Participant, int64, error) {
	var out []domain.Participant
	for _, p := range m.participants {
		if !p.IsActive {
			continue
		}
		if f.EventID != nil && p.EventID != *f.EventID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *mockParticipantRepo) HasPriorRegistration(_ context.Context, email, phone string, excludeEventID int64) (bool, error) {
	for _, p := range m.participants {
		if !p.IsActive || p.EventID == excludeEventID {
			continue
		}
		if (email != "" && p.Email == email) || (phone != "" && p.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockParticipantRepo) ConfirmIfRoom(_ context.Context, id int64) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	ev := m.events.byID[p.EventID]
	if ev.Capacity > 0 && m.confirmedCount(p.EventID) >= ev.Capacity {
		return nil, domain.ErrEventFull
	}
	p.Status = domain.ParticipantConfirmed
	p.IsEmailVerified = true
	p.OTPHash = nil
	p.OTPExpiresAt = nil
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) MarkEmailVerified(_ context.Context, id int64) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.IsEmailVerified = true
	p.OTPHash = nil
	p.OTPExpiresAt = nil
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) Approve(_ context.Context, id int64) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Status = domain.ParticipantConfirmed
	p.OTPHash = nil
	p.OTPExpiresAt = nil
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) CheckIn(_ context.Context, id int64, at time.Time) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.IsCheckedIn = true
	p.CheckedInAt = &at
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) Update(_ context.Context, id int64, patch domain.ParticipantPatch, resetStatus bool) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.RobeOption != nil {
		p.RobeOption = domain.RobeOption(*patch.RobeOption)
		if p.RobeOption == domain.RobeNone {
			p.RobeSize = nil
			patch.RobeSize = nil
		}
	}
	if patch.RobeSize != nil {
		p.RobeSize = patch.RobeSize
	}
	if patch.Status != nil {
		p.Status = domain.ParticipantStatus(*patch.Status)
	}
	if resetStatus {
		p.Status = domain.ParticipantPending
		p.IsEmailVerified = false
	}
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) SetActive(_ context.Context, id int64, active bool) (*domain.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.IsActive = active
	cp := *p
	return &cp, nil
}

func (m *mockParticipantRepo) SetOTP(_ context.Context, id int64, hash string, expiresAt time.Time) error {
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.OTPHash = &hash
	p.OTPExpiresAt = &expiresAt
	return nil
}

type mockEventRepo struct {
	byID map[int64]*domain.Event
}

func (m *mockEventRepo) Create(_ context.Context, ev *domain.Event) (*domain.Event, error) {
	if ev.ID == 0 {
		ev.ID = int64(len(m.byID) + 1)
	}
	ev.IsActive = true
	m.byID[ev.ID] = ev
	return ev, nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id int64) (*domain.Event, error) {
	ev, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepo) GetBySlug(_ context.Context, slug string) (*domain.Event, error) {
	for _, ev := range m.byID {
		if ev.Slug == slug {
			return ev, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEventRepo) List(_ context.Context, _ domain.EventFilter) ([]domain.Event, int64, error) {
	return nil, 0, nil
}

func (m *mockEventRepo) Update(_ context.Context, id int64, _ domain.EventPatch, _ string) (*domain.Event, error) {
	ev, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepo) Delete(_ context.Context, id int64) (*domain.Event, error) {
	ev, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.byID, id)
	return ev, nil
}

func (m *mockEventRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	_, err := m.GetBySlug(context.Background(), slug)
	return err == nil, nil
}

func (m *mockEventRepo) DeactivateExpired(_ context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	for _, ev := range m.byID {
		if ev.IsActive && ev.EndDate != nil && ev.EndDate.Before(now) {
			ev.IsActive = false
			ids = append(ids, ev.ID)
		}
	}
	return ids, nil
}

type queuedMail struct {
	kind      domain.NotificationKind
	recipient string
	payload   []byte
}

type mockOutbox struct {
	queued []queuedMail
}

func (m *mockOutbox) Enqueue(_ context.Context, kind domain.NotificationKind, recipient, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.queued = append(m.queued, queuedMail{kind: kind, recipient: recipient, payload: raw})
	return nil
}

func (m *mockOutbox) Claim(_ context.Context, _ int) ([]domain.Notification, error) { return nil, nil }
func (m *mockOutbox) MarkSent(_ context.Context, _ int64) error                     { return nil }
func (m *mockOutbox) MarkError(_ context.Context, _ int64, _ string, _ bool) error  { return nil }

type mockPublisher struct {
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type fixture struct {
	svc          *RegistrationService
	participants *mockParticipantRepo
	eventsRepo   *mockEventRepo
	outbox       *mockOutbox
	bus          *mockPublisher
}

func newFixture(evs ...*domain.Event) *fixture {
	er := &mockEventRepo{byID: map[int64]*domain.Event{}}
	for _, ev := range evs {
		er.byID[ev.ID] = ev
	}
	pr := newMockParticipantRepo(er)
	ob := &mockOutbox{}
	bus := &mockPublisher{}
	return &fixture{
		svc:          NewRegistrationService(pr, er, ob, bus, 5*time.Minute),
		participants: pr,
		eventsRepo:   er,
		outbox:       ob,
		bus:          bus,
	}
}

func freeEvent(id int64, capacity int) *domain.Event {
	return &domain.Event{ID: id, Title: "Khóa tu một ngày", StartDate: time.Now().Add(48 * time.Hour), Capacity: capacity, IsActive: true}
}

func paidEvent(id int64, capacity int, price int64) *domain.Event {
	ev := freeEvent(id, capacity)
	ev.Price = price
	return ev
}

func validInput(eventID int64) domain.RegistrationInput {
	return domain.RegistrationInput{
		Name:      "Nguyễn Văn An",
		Event:     eventID,
		Phone:     "0901234567",
		HasAgreed: true,
	}
}

func TestRegisterWithoutEmailCompletesImmediately(t *testing.T) {
	f := newFixture(freeEvent(1, 10))

	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if res.VerificationPending {
		t.Error("registration without email should not wait on verification")
	}
	if res.Participant.Status != domain.ParticipantPending {
		t.Errorf("status = %s, want pending", res.Participant.Status)
	}
	if !res.Participant.IsFirstTime {
		t.Error("first registration should be marked first-time")
	}
	if len(f.outbox.queued) != 0 {
		t.Errorf("queued %d emails, want 0", len(f.outbox.queued))
	}
}

func TestRegisterWithEmailQueuesOTP(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	in := validInput(1)
	in.Email = "An.Nguyen@Example.com"

	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !res.VerificationPending {
		t.Error("registration with email should wait on verification")
	}
	if res.Participant.Email != "an.nguyen@example.com" {
		t.Errorf("email not normalized: %q", res.Participant.Email)
	}
	if res.Participant.OTPHash == nil {
		t.Fatal("expected a stored OTP hash")
	}
	if len(f.outbox.queued) != 1 || f.outbox.queued[0].kind != domain.NotifyOTP {
		t.Fatalf("expected one queued OTP email, got %+v", f.outbox.queued)
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	f := newFixture(freeEvent(1, 10))

	cases := []struct {
		name string
		in   domain.RegistrationInput
		want error
	}{
		{"missing name", domain.RegistrationInput{Event: 1, HasAgreed: true}, domain.ErrMissingFields},
		{"missing event", domain.RegistrationInput{Name: "An", HasAgreed: true}, domain.ErrMissingFields},
		{"robe size missing", func() domain.RegistrationInput {
			in := validInput(1)
			in.RobeOption = "borrow"
			return in
		}(), domain.ErrRobeSizeMissing},
		{"bad robe option", func() domain.RegistrationInput {
			in := validInput(1)
			in.RobeOption = "steal"
			return in
		}(), domain.ErrInvalidInput},
		{"unknown event", validInput(99), domain.ErrEventNotFound},
		{"no consent", func() domain.RegistrationInput {
			in := validInput(1)
			in.HasAgreed = false
			return in
		}(), domain.ErrConsentRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterEnforcesCapacity(t *testing.T) {
	f := newFixture(freeEvent(1, 2))

	for i := 0; i < 2; i++ {
		in := validInput(1)
		in.Phone = ""
		if _, err := f.svc.Register(context.Background(), in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Register(context.Background(), validInput(1)); !errors.Is(err, domain.ErrEventFull) {
		t.Fatalf("got %v, want ErrEventFull", err)
	}
}

func TestRegisterPendingHoldsCapacitySlot(t *testing.T) {
	f := newFixture(freeEvent(1, 1))
	in := validInput(1)
	in.Email = "an@example.com"

	if _, err := f.svc.Register(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	// Unverified but pending still occupies the only slot.
	second := validInput(1)
	second.Phone = "0907654321"
	if _, err := f.svc.Register(context.Background(), second); !errors.Is(err, domain.ErrEventFull) {
		t.Fatalf("got %v, want ErrEventFull", err)
	}
}

func TestRegisterFirstTimeDetection(t *testing.T) {
	f := newFixture(freeEvent(1, 0), freeEvent(2, 0))

	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Participant.IsFirstTime {
		t.Error("first registration should be first-time")
	}

	res2, err := f.svc.Register(context.Background(), validInput(2))
	if err != nil {
		t.Fatal(err)
	}
	if res2.Participant.IsFirstTime {
		t.Error("same phone on another event should not be first-time")
	}
}

func setOTP(t *testing.T, f *fixture, id int64, code string, expiresAt time.Time) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.participants.SetOTP(context.Background(), id, string(hash), expiresAt); err != nil {
		t.Fatal(err)
	}
}

func registerWithEmail(t *testing.T, f *fixture, eventID int64) int64 {
	t.Helper()
	in := validInput(eventID)
	in.Email = "an@example.com"
	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	return res.Participant.ID
}

func TestVerifyOTPConfirmsFreeEvent(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(5*time.Minute))

	p, err := f.svc.VerifyOTP(context.Background(), id, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.ParticipantConfirmed {
		t.Errorf("status = %s, want confirmed", p.Status)
	}
	if !p.IsEmailVerified {
		t.Error("email should be verified")
	}
	if p.OTPHash != nil {
		t.Error("code should be cleared after successful verification")
	}

	var tickets int
	for _, q := range f.outbox.queued {
		if q.kind == domain.NotifyQRTicket {
			tickets++
		}
	}
	if tickets != 1 {
		t.Errorf("queued %d ticket emails, want 1", tickets)
	}
}

func TestVerifyOTPPaidEventOnlyVerifies(t *testing.T) {
	f := newFixture(paidEvent(1, 10, 500000))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(5*time.Minute))

	p, err := f.svc.VerifyOTP(context.Background(), id, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.ParticipantPending {
		t.Errorf("status = %s, want pending until staff approval", p.Status)
	}
	if !p.IsEmailVerified {
		t.Error("email should be verified")
	}
	for _, q := range f.outbox.queued {
		if q.kind == domain.NotifyQRTicket {
			t.Error("paid event must not queue a ticket before approval")
		}
	}
}

func TestVerifyOTPRejections(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(5*time.Minute))

	if _, err := f.svc.VerifyOTP(context.Background(), id, ""); !errors.Is(err, domain.ErrMissingFields) {
		t.Errorf("empty code: got %v", err)
	}
	if _, err := f.svc.VerifyOTP(context.Background(), 999, "123456"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown participant: got %v", err)
	}
	if _, err := f.svc.VerifyOTP(context.Background(), id, "654321"); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Errorf("wrong code: got %v", err)
	}
}

func TestVerifyOTPExpiredKeepsCode(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(-time.Minute))

	if _, err := f.svc.VerifyOTP(context.Background(), id, "123456"); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("got %v, want ErrCodeExpired", err)
	}
	// A second attempt still reports expiry, not absence.
	if _, err := f.svc.VerifyOTP(context.Background(), id, "123456"); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("retry got %v, want ErrCodeExpired", err)
	}
}

func TestVerifyOTPNoCode(t *testing.T) {
	f := newFixture(freeEvent(1, 10))

	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.VerifyOTP(context.Background(), res.Participant.ID, "123456"); !errors.Is(err, domain.ErrNoValidCode) {
		t.Fatalf("got %v, want ErrNoValidCode", err)
	}
}

func TestVerifyOTPFreeEventFullAtConfirmation(t *testing.T) {
	f := newFixture(freeEvent(1, 1))

	// Two pending registrations can exist only when capacity was raised
	// and lowered between intakes; simulate by confirming one directly.
	id1 := registerWithEmail(t, f, 1)
	if _, err := f.participants.Approve(context.Background(), id1); err != nil {
		t.Fatal(err)
	}

	in := validInput(1)
	in.Email = "binh@example.com"
	in.Phone = "0907654321"
	f.eventsRepo.byID[1].Capacity = 2
	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	f.eventsRepo.byID[1].Capacity = 1

	setOTP(t, f, res.Participant.ID, "123456", time.Now().Add(5*time.Minute))
	if _, err := f.svc.VerifyOTP(context.Background(), res.Participant.ID, "123456"); !errors.Is(err, domain.ErrEventFull) {
		t.Fatalf("got %v, want ErrEventFull", err)
	}
}

func TestResendOTP(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	f.outbox.queued = nil

	if err := f.svc.ResendOTP(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if len(f.outbox.queued) != 1 || f.outbox.queued[0].kind != domain.NotifyOTP {
		t.Fatalf("expected one queued OTP email, got %+v", f.outbox.queued)
	}

	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ResendOTP(context.Background(), res.Participant.ID); !errors.Is(err, domain.ErrNoEmail) {
		t.Errorf("no email: got %v", err)
	}

	if _, err := f.participants.MarkEmailVerified(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.ResendOTP(context.Background(), id); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Errorf("already verified: got %v", err)
	}
}

func TestApproveSkipsCapacityCheck(t *testing.T) {
	f := newFixture(paidEvent(1, 1, 500000))
	id1 := registerWithEmail(t, f, 1)
	if _, err := f.participants.Approve(context.Background(), id1); err != nil {
		t.Fatal(err)
	}

	// Room made for a second pending record, then capacity shrinks back.
	f.eventsRepo.byID[1].Capacity = 2
	in := validInput(1)
	in.Phone = "0907654321"
	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	f.eventsRepo.byID[1].Capacity = 1

	p, err := f.svc.Approve(context.Background(), res.Participant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.ParticipantConfirmed {
		t.Errorf("status = %s, want confirmed", p.Status)
	}
}

func TestApproveQueuesTicketWhenEmailPresent(t *testing.T) {
	f := newFixture(paidEvent(1, 10, 500000))
	id := registerWithEmail(t, f, 1)
	f.outbox.queued = nil

	if _, err := f.svc.Approve(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if len(f.outbox.queued) != 1 || f.outbox.queued[0].kind != domain.NotifyQRTicket {
		t.Fatalf("expected one queued ticket email, got %+v", f.outbox.queued)
	}
}

func TestCheckInRepeatScanRefreshesTimestamp(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}

	first, err := f.svc.CheckIn(context.Background(), res.Participant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsCheckedIn || first.CheckedInAt == nil {
		t.Fatal("expected checked-in record")
	}

	time.Sleep(5 * time.Millisecond)
	second, err := f.svc.CheckIn(context.Background(), res.Participant.ID)
	if err != nil {
		t.Fatalf("repeat scan must not error: %v", err)
	}
	if !second.IsCheckedIn {
		t.Error("record should stay checked in")
	}
	if !second.CheckedInAt.After(*first.CheckedInAt) {
		t.Errorf("repeat scan should refresh checkedInAt: first=%v second=%v",
			first.CheckedInAt, second.CheckedInAt)
	}
}

func TestUpdateEmailChangeResetsWithoutNewCode(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(5*time.Minute))
	if _, err := f.svc.VerifyOTP(context.Background(), id, "123456"); err != nil {
		t.Fatal(err)
	}
	f.outbox.queued = nil

	newEmail := "binh@example.com"
	p, err := f.svc.Update(context.Background(), id, domain.ParticipantPatch{Email: &newEmail})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.ParticipantPending {
		t.Errorf("status = %s, want pending after email change", p.Status)
	}
	if p.IsEmailVerified {
		t.Error("email change must clear the verified flag")
	}
	if len(f.outbox.queued) != 0 {
		t.Fatalf("email change must not queue a code, got %+v", f.outbox.queued)
	}

	// Resending is the explicit path back to a valid code.
	if err := f.svc.ResendOTP(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if len(f.outbox.queued) != 1 || f.outbox.queued[0].kind != domain.NotifyOTP {
		t.Fatalf("expected one queued OTP email after resend, got %+v", f.outbox.queued)
	}
}

func TestUpdateUnchangedEmailKeepsStatus(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	id := registerWithEmail(t, f, 1)
	setOTP(t, f, id, "123456", time.Now().Add(5*time.Minute))
	if _, err := f.svc.VerifyOTP(context.Background(), id, "123456"); err != nil {
		t.Fatal(err)
	}

	same := "an@example.com"
	name := "Nguyễn Văn Bình"
	p, err := f.svc.Update(context.Background(), id, domain.ParticipantPatch{Email: &same, Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != domain.ParticipantConfirmed {
		t.Errorf("status = %s, want confirmed to survive a no-op email", p.Status)
	}
}

func TestUpdateRobeOptionNoneClearsSize(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	in := validInput(1)
	in.RobeOption = "borrow"
	in.RobeSize = "M"
	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Participant.RobeSize == nil || *res.Participant.RobeSize != "M" {
		t.Fatal("expected stored robe size")
	}

	none := "none"
	p, err := f.svc.Update(context.Background(), res.Participant.ID, domain.ParticipantPatch{RobeOption: &none})
	if err != nil {
		t.Fatal(err)
	}
	if p.RobeOption != domain.RobeNone {
		t.Errorf("robeOption = %s, want none", p.RobeOption)
	}
	if p.RobeSize != nil {
		t.Errorf("robeSize = %q, want cleared", *p.RobeSize)
	}
}

func TestDeactivateFreesCapacitySlot(t *testing.T) {
	f := newFixture(freeEvent(1, 1))
	res, err := f.svc.Register(context.Background(), validInput(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Register(context.Background(), validInput(1)); !errors.Is(err, domain.ErrEventFull) {
		t.Fatal("event should be full")
	}

	if _, err := f.svc.Deactivate(context.Background(), res.Participant.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Register(context.Background(), validInput(1)); err != nil {
		t.Fatalf("soft-deleted registration should free its slot: %v", err)
	}
}

func TestRegisterPublishesEvent(t *testing.T) {
	f := newFixture(freeEvent(1, 10))
	if _, err := f.svc.Register(context.Background(), validInput(1)); err != nil {
		t.Fatal(err)
	}
	if len(f.bus.subjects) != 1 || f.bus.subjects[0] != "participant.registered" {
		t.Errorf("published %v, want participant.registered", f.bus.subjects)
	}
}
