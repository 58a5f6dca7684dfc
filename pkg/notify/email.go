package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the mail transport settings sourced from the process
// environment.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Email delivers rendered email messages over SMTP. Send failures are
// transient: SMTP outages resolve, so the queue retries them.
type Email struct {
	config  SMTPConfig
	fetcher FileFetcher
	logger  *slog.Logger
}

// NewEmail creates an SMTP email sender. fetcher may be nil.
func NewEmail(config SMTPConfig, fetcher FileFetcher, logger *slog.Logger) *Email {
	return &Email{
		config:  config,
		fetcher: fetcher,
		logger:  logger.With("module", "email_sender"),
	}
}

// Send delivers one email.
func (e *Email) Send(ctx context.Context, documentID string, msg *EmailMessage) error {
	m := mail.NewMsg()

	if err := m.From(e.config.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", e.config.From, err)
	}

	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient list %v: %w", msg.To, err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if msg.AttachDocument && e.fetcher != nil {
		data, filename, err := e.fetcher.Fetch(ctx, documentID)
		if err != nil {
			return fmt.Errorf("%w: failed to fetch document file: %w", ErrTransient, err)
		}

		if err := m.AttachReader(filename, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
	}

	client, err := mail.NewClient(e.config.Host,
		mail.WithPort(e.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.config.Username),
		mail.WithPassword(e.config.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: failed to send email: %w", ErrTransient, err)
	}

	e.logger.InfoContext(ctx, "Email sent",
		"document_id", documentID, "recipients", len(msg.To))

	return nil
}
