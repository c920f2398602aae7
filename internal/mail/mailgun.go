package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v5"

	"github.com/iliyamo/wardrobe-planner/internal/config"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
)

// MailgunSender delivers through the Mailgun HTTP API.
type MailgunSender struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
}

// NewMailgunSender returns nil when the domain or API key is missing.
func NewMailgunSender(cfg config.MailConfig) *MailgunSender {
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
		return nil
	}
	return &MailgunSender{
		client:      mailgun.NewMailgun(cfg.MailgunAPIKey),
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
	}
}

func (s *MailgunSender) Send(ctx context.Context, to, subject, html string) error {
	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		plainFallback(subject),
		to,
	)
	message.SetHTML(html)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.client.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	logger.Info("email sent", "email", to, "subject", subject)
	return nil
}
