// Package mail delivers account e-mail: verification codes and temporary
// passwords.  Callers depend on Sender; deployments pick Mailgun directly,
// Mailgun behind a RabbitMQ queue, or no delivery at all.
package mail

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/queue"
)

// ErrDisabled is returned by DisabledSender.
var ErrDisabled = errors.New("email service is not configured")

// Sender sends one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// DisabledSender refuses every message.  Workflows treat the error like any
// other delivery failure.
type DisabledSender struct{}

func (DisabledSender) Send(context.Context, string, string, string) error { return ErrDisabled }

// QueueSender hands messages to the mail.outbound queue; the consumer does
// the actual delivery.
type QueueSender struct {
	pub *queue.Publisher
}

func NewQueueSender(pub *queue.Publisher) *QueueSender { return &QueueSender{pub: pub} }

func (s *QueueSender) Send(ctx context.Context, to, subject, html string) error {
	return s.pub.PublishMail(ctx, queue.MailRequestedEvent{
		To:          to,
		Subject:     subject,
		HTML:        html,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
