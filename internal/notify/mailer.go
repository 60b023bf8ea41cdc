package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"brhygiene/internal/config"
	"brhygiene/internal/logging"
)

// Message is one outbound email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer when email is enabled and a console
// mailer otherwise.
func NewMailer(cfg *config.EmailConfig) (Mailer, error) {
	if !cfg.Enabled {
		return NewConsoleMailer(), nil
	}
	m, err := NewSMTPMailer(cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SMTPMailer sends email through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    *config.EmailConfig
	client *mail.Client
}

// NewSMTPMailer creates an SMTP mailer from the email configuration.
func NewSMTPMailer(cfg *config.EmailConfig) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email service not properly configured")
	}

	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPMailer{cfg: cfg, client: client}, nil
}

// Send builds a multipart/alternative message and delivers it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()

	if m.cfg.FromName != "" {
		if err := email.FromFormat(m.cfg.FromName, m.cfg.FromEmail); err != nil {
			return fmt.Errorf("invalid sender address: %w", err)
		}
	} else if err := email.From(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := email.ReplyTo(msg.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to address: %w", err)
		}
	}

	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		email.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := m.client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// ConsoleMailer logs emails instead of sending them. It is used in
// development when EMAIL_ENABLED is false.
type ConsoleMailer struct {
	log *logrus.Entry
}

// NewConsoleMailer creates a console mailer.
func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{log: logging.For("email")}
}

// Send logs the recipient and subject.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email disabled, would send")
	return nil
}
