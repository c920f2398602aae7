package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/wardrobe-planner/internal/logger"
)

// MailQueueName is the durable queue carrying outbound mail.
const MailQueueName = "mail.outbound"

// Publisher publishes events to RabbitMQ.  It dials per publish, which is
// fine for the low volume of account mail.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishMail publishes a MailRequestedEvent to the mail.outbound queue as a
// persistent message.  Errors are logged and returned so the caller can
// decide whether they matter.
func (p *Publisher) PublishMail(ctx context.Context, ev MailRequestedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Error("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		logger.Error("rabbitmq: queue declare failed", "error", err)
		return err
	}

	if ev.RequestedAt == "" {
		ev.RequestedAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", MailQueueName, false, false, pub); err != nil {
		logger.Error("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
