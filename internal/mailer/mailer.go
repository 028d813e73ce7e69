// Package mailer sends transactional email for the platform, such as
// referral claim notices and new message alerts. When no SMTP host is
// configured the mailer is a no-op so local development does not need
// a mail server.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

// Message is an email to deliver.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers messages over SMTP, or drops them when disabled.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New creates a mailer. Sending is enabled only when cfg.Host is set.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mailer{cfg: cfg, log: logger}
}

// Enabled reports whether SMTP delivery is configured.
func (m *Mailer) Enabled() bool { return m.cfg.Host != "" }

// Send delivers msg. When the mailer is disabled the message is logged
// at debug level and dropped without error.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		m.log.Debug("mailer disabled, dropping message",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject))
		return nil
	}

	if len(msg.To) == 0 {
		return fmt.Errorf("mailer: no recipients specified")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return fmt.Errorf("mailer: message body is empty")
	}

	em := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := em.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
			return fmt.Errorf("mailer: invalid from address: %w", err)
		}
	} else {
		if err := em.From(m.cfg.FromAddress); err != nil {
			return fmt.Errorf("mailer: invalid from address: %w", err)
		}
	}
	if err := em.To(msg.To...); err != nil {
		return fmt.Errorf("mailer: invalid to address: %w", err)
	}
	em.Subject(msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		em.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		em.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		em.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		em.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}

	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: failed to create client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("mailer: failed to send: %w", err)
	}
	return nil
}
