package domain

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	NotifyOTP      NotificationKind = "otp"
	NotifyQRTicket NotificationKind = "qr_ticket"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is one queued outbound email. Rows are written in the
// same transaction scope as the state change that requires them and
// delivered out-of-band by the outbox dispatcher.
type Notification struct {
	ID        int64              `json:"id"`
	Kind      NotificationKind   `json:"kind"`
	Recipient string             `json:"recipient"`
	Name      string             `json:"name"`
	Payload   json.RawMessage    `json:"payload"`
	Status    NotificationStatus `json:"status"`
	Attempts  int                `json:"attempts"`
	LastError string             `json:"lastError,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	SentAt    *time.Time         `json:"sentAt"`
}

// OTPPayload is the payload for NotifyOTP notifications.
type OTPPayload struct {
	Code      string `json:"code"`
	TTLMinutes int   `json:"ttlMinutes"`
}

// TicketPayload is the payload for NotifyQRTicket notifications. The QR
// content encodes CHECKIN:<participantID>.
type TicketPayload struct {
	ParticipantID int64  `json:"participantId"`
	EventTitle    string `json:"eventTitle"`
}
