package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	logger.DebugContext(ctx, "publishing event", "subject", subject)
	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects published after successful mutations. Publish failures are
// logged and never fail the originating request.
const (
	ParticipantRegistered = "participant.registered"
	ParticipantConfirmed  = "participant.confirmed"
	ParticipantCheckedIn  = "participant.checked_in"
	EventDeactivated      = "event.deactivated"
	UserRegistered        = "user.registered"
)

type ParticipantRegisteredEvent struct {
	ParticipantID int64     `json:"participant_id"`
	EventID       int64     `json:"event_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	FirstTime     bool      `json:"first_time"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type ParticipantConfirmedEvent struct {
	ParticipantID int64     `json:"participant_id"`
	EventID       int64     `json:"event_id"`
	Via           string    `json:"via"` // otp | approval
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type ParticipantCheckedInEvent struct {
	ParticipantID int64     `json:"participant_id"`
	EventID       int64     `json:"event_id"`
	CheckedInAt   time.Time `json:"checked_in_at"`
}

type EventDeactivatedEvent struct {
	Count         int64     `json:"count"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}
