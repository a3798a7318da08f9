package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/otp"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/utils"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/events"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

// RegistrationService owns the participant lifecycle: intake, email
// verification, staff confirmation, check-in and record upkeep.
type RegistrationService struct {
	participants postgres.ParticipantRepo
	eventsRepo   postgres.EventRepo
	outbox       postgres.OutboxRepo
	bus          events.Publisher
	otpTTL       time.Duration
}

func NewRegistrationService(
	participants postgres.ParticipantRepo,
	eventsRepo postgres.EventRepo,
	outbox postgres.OutboxRepo,
	bus events.Publisher,
	otpTTL time.Duration,
) *RegistrationService {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &RegistrationService{
		participants: participants,
		eventsRepo:   eventsRepo,
		outbox:       outbox,
		bus:          bus,
		otpTTL:       otpTTL,
	}
}

// RegistrationResult distinguishes the two intake outcomes: a
// registration waiting on an emailed code, or a completed record.
type RegistrationResult struct {
	Participant         *domain.Participant
	VerificationPending bool
}

func (s *RegistrationService) Register(ctx context.Context, in domain.RegistrationInput) (*RegistrationResult, error) {
	if in.Name == "" || in.Event == 0 {
		return nil, domain.ErrMissingFields
	}

	robe := domain.RobeNone
	if in.RobeOption != "" {
		parsed, ok := domain.ParseRobeOption(in.RobeOption)
		if !ok {
			return nil, fmt.Errorf("%w: robeOption must be none, borrow or buy", domain.ErrInvalidInput)
		}
		robe = parsed
	}
	var robeSize *string
	if robe == domain.RobeBorrow || robe == domain.RobeBuy {
		if in.RobeSize == "" {
			return nil, domain.ErrRobeSizeMissing
		}
		if !domain.ValidRobeSize(in.RobeSize) {
			return nil, fmt.Errorf("%w: invalid robe size %q", domain.ErrInvalidInput, in.RobeSize)
		}
		size := in.RobeSize
		robeSize = &size
	}

	email := utils.NormalizeEmail(in.Email)
	if email != "" && !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	phone := utils.NormalizePhone(in.Phone)
	if phone != "" && !utils.IsValidPhone(phone) {
		return nil, fmt.Errorf("%w: invalid phone number", domain.ErrInvalidInput)
	}

	if _, err := s.eventsRepo.GetByID(ctx, in.Event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}

	prior, err := s.participants.HasPriorRegistration(ctx, email, phone, in.Event)
	if err != nil {
		return nil, err
	}

	if !in.HasAgreed {
		return nil, domain.ErrConsentRequired
	}

	p := &domain.Participant{
		Name:        in.Name,
		Email:       email,
		Phone:       phone,
		Note:        in.Note,
		Job:         in.Job,
		Source:      in.InfoSource,
		EventID:     in.Event,
		RobeOption:  robe,
		RobeSize:    robeSize,
		HasAgreed:   true,
		IsFirstTime: !prior,
	}

	var code string
	if email != "" {
		code, err = otp.Generate(otp.DefaultLength)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		exp := time.Now().Add(s.otpTTL)
		p.OTPHash = &h
		p.OTPExpiresAt = &exp
	}

	created, err := s.participants.CreateWithCapacityCheck(ctx, p)
	if err != nil {
		return nil, err
	}

	if email != "" {
		if err := s.outbox.Enqueue(ctx, domain.NotifyOTP, email, created.Name, domain.OTPPayload{
			Code:       code,
			TTLMinutes: int(s.otpTTL.Minutes()),
		}); err != nil {
			logger.ErrorContext(ctx, "failed to queue OTP email", "participant_id", created.ID, "error", err)
		}
	}

	s.publish(ctx, events.ParticipantRegistered, events.ParticipantRegisteredEvent{
		ParticipantID: created.ID,
		EventID:       created.EventID,
		Name:          created.Name,
		Email:         created.Email,
		FirstTime:     created.IsFirstTime,
		RegisteredAt:  created.CreatedAt,
	})

	return &RegistrationResult{
		Participant:         created,
		VerificationPending: email != "",
	}, nil
}

// VerifyOTP checks the emailed code. Free events confirm immediately and
// queue the QR ticket; paid events only mark the email verified and wait
// for staff approval. An expired code stays stored so retries keep
// reporting expiry instead of absence.
func (s *RegistrationService) VerifyOTP(ctx context.Context, participantID int64, code string) (*domain.Participant, error) {
	if participantID == 0 || code == "" {
		return nil, domain.ErrMissingFields
	}

	p, err := s.participants.GetWithEvent(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.Event == nil {
		return nil, domain.ErrEventNotFound
	}
	if p.OTPHash == nil {
		return nil, domain.ErrNoValidCode
	}
	if p.OTPExpiresAt != nil && time.Now().After(*p.OTPExpiresAt) {
		return nil, domain.ErrCodeExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(*p.OTPHash), []byte(code)) != nil {
		return nil, domain.ErrCodeMismatch
	}

	if p.Event.Price > 0 {
		verified, err := s.participants.MarkEmailVerified(ctx, participantID)
		if err != nil {
			return nil, err
		}
		verified.Event = p.Event
		return verified, nil
	}

	confirmed, err := s.participants.ConfirmIfRoom(ctx, participantID)
	if err != nil {
		return nil, err
	}
	confirmed.Event = p.Event
	s.queueTicket(ctx, confirmed, p.Event.Title)
	s.publish(ctx, events.ParticipantConfirmed, events.ParticipantConfirmedEvent{
		ParticipantID: confirmed.ID,
		EventID:       confirmed.EventID,
		Via:           "otp",
		ConfirmedAt:   time.Now(),
	})
	return confirmed, nil
}

// ResendOTP issues a fresh code, replacing any previous one.
func (s *RegistrationService) ResendOTP(ctx context.Context, participantID int64) error {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if p.Email == "" {
		return domain.ErrNoEmail
	}
	if p.IsEmailVerified {
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
	if err := s.participants.SetOTP(ctx, participantID, string(hash), time.Now().Add(s.otpTTL)); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, domain.NotifyOTP, p.Email, p.Name, domain.OTPPayload{
		Code:       code,
		TTLMinutes: int(s.otpTTL.Minutes()),
	})
}

// Approve confirms a registration without re-checking capacity. Staff
// decide overbooking for paid events; the system does not second-guess.
func (s *RegistrationService) Approve(ctx context.Context, participantID int64) (*domain.Participant, error) {
	p, err := s.participants.Approve(ctx, participantID)
	if err != nil {
		return nil, err
	}
	full, err := s.participants.GetWithEvent(ctx, participantID)
	if err == nil {
		p = full
	}
	if p.Email != "" && p.Event != nil {
		s.queueTicket(ctx, p, p.Event.Title)
	}
	s.publish(ctx, events.ParticipantConfirmed, events.ParticipantConfirmedEvent{
		ParticipantID: p.ID,
		EventID:       p.EventID,
		Via:           "approval",
		ConfirmedAt:   time.Now(),
	})
	return p, nil
}

// CheckIn records attendance. Scanning the same QR twice does not
// error; the later scan refreshes checkedInAt.
func (s *RegistrationService) CheckIn(ctx context.Context, participantID int64) (*domain.Participant, error) {
	now := time.Now()
	checked, err := s.participants.CheckIn(ctx, participantID, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ParticipantCheckedIn, events.ParticipantCheckedInEvent{
		ParticipantID: checked.ID,
		EventID:       checked.EventID,
		CheckedInAt:   now,
	})
	return checked, nil
}

// Update applies a staff edit. Changing the email drops the record back
// to pending without issuing a code; the resend-otp endpoint restarts
// verification on demand.
func (s *RegistrationService) Update(ctx context.Context, participantID int64, patch domain.ParticipantPatch) (*domain.Participant, error) {
	current, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if patch.RobeOption != nil {
		if _, ok := domain.ParseRobeOption(*patch.RobeOption); !ok {
			return nil, fmt.Errorf("%w: robeOption must be none, borrow or buy", domain.ErrInvalidInput)
		}
	}
	if patch.RobeSize != nil && *patch.RobeSize != "" && !domain.ValidRobeSize(*patch.RobeSize) {
		return nil, fmt.Errorf("%w: invalid robe size %q", domain.ErrInvalidInput, *patch.RobeSize)
	}
	if patch.Status != nil {
		if _, ok := domain.ParseParticipantStatus(*patch.Status); !ok {
			return nil, fmt.Errorf("%w: invalid status %q", domain.ErrInvalidInput, *patch.Status)
		}
	}

	emailChanged := false
	if patch.Email != nil {
		normalized := utils.NormalizeEmail(*patch.Email)
		if normalized != "" && !utils.IsValidEmail(normalized) {
			return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
		}
		patch.Email = &normalized
		emailChanged = normalized != current.Email
	}
	if patch.Phone != nil {
		normalized := utils.NormalizePhone(*patch.Phone)
		if normalized != "" && !utils.IsValidPhone(normalized) {
			return nil, fmt.Errorf("%w: invalid phone number", domain.ErrInvalidInput)
		}
		patch.Phone = &normalized
	}

	return s.participants.Update(ctx, participantID, patch, emailChanged)
}

// Deactivate soft-deletes, freeing the participant's capacity slot.
func (s *RegistrationService) Deactivate(ctx context.Context, participantID int64) (*domain.Participant, error) {
	return s.participants.SetActive(ctx, participantID, false)
}

// Activate restores a soft-deleted registration. Capacity is not
// re-checked here; restoring over a full event is a staff call.
func (s *RegistrationService) Activate(ctx context.Context, participantID int64) (*domain.Participant, error) {
	return s.participants.SetActive(ctx, participantID, true)
}

func (s *RegistrationService) Get(ctx context.Context, participantID int64) (*domain.Participant, error) {
	return s.participants.GetWithEvent(ctx, participantID)
}

func (s *RegistrationService) List(ctx context.Context, f domain.ParticipantFilter) ([]domain.Participant, domain.ListMeta, error) {
	ps, total, err := s.participants.List(ctx, f)
	if err != nil {
		return nil, domain.ListMeta{}, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	return ps, domain.ListMeta{Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *RegistrationService) queueTicket(ctx context.Context, p *domain.Participant, eventTitle string) {
	if p.Email == "" {
		return
	}
	if err := s.outbox.Enqueue(ctx, domain.NotifyQRTicket, p.Email, p.Name, domain.TicketPayload{
		ParticipantID: p.ID,
		EventTitle:    eventTitle,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to queue ticket email", "participant_id", p.ID, "error", err)
	}
}

func (s *RegistrationService) publish(ctx context.Context, subject string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}
