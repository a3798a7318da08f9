// Package notify delivers queued notification emails. A dispatcher
// polls the outbox table, claims pending rows and renders/sends them,
// so registration requests never block on the mail provider.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/mailer"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/qr"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type Dispatcher struct {
	outbox      postgres.OutboxRepo
	mailer      mailer.Service
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewDispatcher(outbox postgres.OutboxRepo, m mailer.Service, interval time.Duration, batchSize, maxAttempts int) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		outbox:      outbox,
		mailer:      m,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Run polls until the context is canceled. Call it from its own
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger.Info("notification dispatcher started", "interval", d.interval.String(), "batch_size", d.batchSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce claims and delivers one batch.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	batch, err := d.outbox.Claim(ctx, d.batchSize)
	if err != nil {
		logger.Error("failed to claim notifications", "error", err)
		return
	}
	for _, n := range batch {
		d.deliver(ctx, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	subject, text, html, err := d.render(n)
	if err != nil {
		// Unrenderable payloads never succeed on retry.
		logger.Error("failed to render notification", "id", n.ID, "kind", n.Kind, "error", err)
		if markErr := d.outbox.MarkError(ctx, n.ID, err.Error(), true); markErr != nil {
			logger.Error("failed to mark notification", "id", n.ID, "error", markErr)
		}
		return
	}

	if _, err := d.mailer.Send(n.Recipient, n.Name, subject, text, html); err != nil {
		permanent := n.Attempts >= d.maxAttempts
		logger.Error("failed to send notification",
			"id", n.ID, "kind", n.Kind, "attempts", n.Attempts, "permanent", permanent, "error", err)
		if markErr := d.outbox.MarkError(ctx, n.ID, err.Error(), permanent); markErr != nil {
			logger.Error("failed to mark notification", "id", n.ID, "error", markErr)
		}
		return
	}

	if err := d.outbox.MarkSent(ctx, n.ID); err != nil {
		logger.Error("failed to mark notification sent", "id", n.ID, "error", err)
	}
}

func (d *Dispatcher) render(n domain.Notification) (subject, text, html string, err error) {
	switch n.Kind {
	case domain.NotifyOTP:
		var p domain.OTPPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return "", "", "", fmt.Errorf("decode otp payload: %w", err)
		}
		subject, text, html = mailer.OTPEmail(p.Code, p.TTLMinutes)
		return subject, text, html, nil
	case domain.NotifyQRTicket:
		var p domain.TicketPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return "", "", "", fmt.Errorf("decode ticket payload: %w", err)
		}
		dataURL, err := qr.DataURL(qr.CheckInContent(p.ParticipantID))
		if err != nil {
			return "", "", "", fmt.Errorf("render qr code: %w", err)
		}
		subject, text, html = mailer.TicketEmail(n.Name, p.EventTitle, dataURL)
		return subject, text, html, nil
	default:
		return "", "", "", fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}
