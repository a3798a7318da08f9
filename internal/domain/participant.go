package domain

import "time"

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantCanceled  ParticipantStatus = "canceled"
)

func ParseParticipantStatus(s string) (ParticipantStatus, bool) {
	switch ParticipantStatus(s) {
	case ParticipantPending, ParticipantConfirmed, ParticipantCanceled:
		return ParticipantStatus(s), true
	default:
		return "", false
	}
}

type RobeOption string

const (
	RobeNone   RobeOption = "none"
	RobeBorrow RobeOption = "borrow"
	RobeBuy    RobeOption = "buy"
)

func ParseRobeOption(s string) (RobeOption, bool) {
	switch RobeOption(s) {
	case RobeNone, RobeBorrow, RobeBuy:
		return RobeOption(s), true
	default:
		return "", false
	}
}

var robeSizes = map[string]bool{"S": true, "M": true, "L": true, "XL": true, "XXL": true}

func ValidRobeSize(s string) bool { return robeSizes[s] }

// Participant is one registration attempt for one event. A participant
// counts toward the event's capacity only while IsActive and status is
// pending or confirmed.
type Participant struct {
	ID     int64             `json:"id"`
	Name   string            `json:"name"`
	Email  string            `json:"email,omitempty"`
	Phone  string            `json:"phone,omitempty"`
	Note   string            `json:"note,omitempty"`
	Job    string            `json:"job,omitempty"`
	Source string            `json:"infoSource,omitempty"`
	EventID int64            `json:"event"`
	Status ParticipantStatus `json:"status"`

	RobeOption RobeOption `json:"robeOption"`
	RobeSize   *string    `json:"robeSize"`

	HasAgreed   bool `json:"hasAgreed"`
	IsFirstTime bool `json:"isFirstTime"`
	IsActive    bool `json:"isActive"`

	IsEmailVerified bool       `json:"isEmailVerified"`
	IsCheckedIn     bool       `json:"isCheckedIn"`
	CheckedInAt     *time.Time `json:"checkedInAt"`

	// One-time code, bcrypt-hashed at rest. Non-null only while a
	// verification window is open; cleared on success or approval.
	OTPHash      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Populated on detail/list reads.
	Event *EventSummary `json:"eventDetail,omitempty"`
}

// EventSummary is the slice of event fields attached to participant reads.
type EventSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	Price     int64     `json:"price"`
}

// RegistrationInput is the whitelisted intake payload.
type RegistrationInput struct {
	Name       string `json:"name"`
	Event      int64  `json:"event"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Note       string `json:"note"`
	Job        string `json:"job"`
	InfoSource string `json:"infoSource"`
	RobeOption string `json:"robeOption"`
	RobeSize   string `json:"robeSize"`
	HasAgreed  bool   `json:"hasAgreed"`
}

// ParticipantPatch is the whitelisted staff update payload. Nil fields
// are left untouched.
type ParticipantPatch struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Note       *string `json:"note"`
	Job        *string `json:"job"`
	InfoSource *string `json:"infoSource"`
	RobeOption *string `json:"robeOption"`
	RobeSize   *string `json:"robeSize"`
	Status     *string `json:"status"`
}

type ParticipantFilter struct {
	EventID *int64
	Status  *ParticipantStatus
	Page    int
	Limit   int
}

type ListMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
