package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/wardrobe-planner/internal/logger"
)

// Deliverer sends one message.  The mail package's Mailgun sender
// satisfies it.
type Deliverer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// StartMailConsumer connects to RabbitMQ, declares the mail.outbound queue
// and hands every message to d.  It reconnects with exponential backoff and
// returns only when ctx is cancelled.  Messages that cannot be decoded or
// delivered are rejected without requeue so a poison message cannot spin.
func StartMailConsumer(ctx context.Context, url string, d Deliverer) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("mail-consumer: failed to dial broker", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, d)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("mail-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, d Deliverer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warn("mail-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, m.Body, d); err != nil {
				logger.Error("mail-consumer: handle message failed", "error", err)
				_ = m.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = m.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, d Deliverer) error {
	var ev MailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.To == "" {
		return errors.New("event without recipient")
	}
	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := d.Send(sendCtx, ev.To, ev.Subject, ev.HTML); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	logger.Info("mail-consumer: delivered", "email", ev.To, "subject", ev.Subject)
	return nil
}
