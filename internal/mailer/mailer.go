// ABOUTME: SMTP notification for new escalations, sent to the support inbox
// ABOUTME: Best-effort delivery; a misconfigured or absent mailer never blocks escalation

package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/coursly/coursly-gateway/internal/store"
)

// Config holds SMTP settings. An empty Host disables the mailer entirely.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Enabled reports whether the configuration is complete enough to send.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != "" && c.To != ""
}

// Mailer sends escalation notifications to the support team over SMTP.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a mailer. A mailer with incomplete config is valid and simply
// skips sending.
func New(cfg Config, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger.With("component", "mailer"),
	}
}

// NotifyEscalation emails the support inbox about a newly created escalation.
func (m *Mailer) NotifyEscalation(ctx context.Context, esc *store.Escalation) error {
	if !m.cfg.Enabled() {
		m.logger.Debug("mailer not configured, skipping notification", "session_key", esc.SessionKey)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(escalationSubject(esc))
	msg.SetBodyString(mail.TypeTextPlain, escalationBody(esc))

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending escalation notification: %w", err)
	}

	m.logger.Info("escalation notification sent", "session_key", esc.SessionKey, "to", m.cfg.To)
	return nil
}

func escalationSubject(esc *store.Escalation) string {
	return fmt.Sprintf("New escalation from %s (session %s)", esc.Name, esc.SessionKey)
}

func escalationBody(esc *store.Escalation) string {
	var b strings.Builder
	b.WriteString("A chat session was escalated to a human advisor.\n\n")
	fmt.Fprintf(&b, "Session:  %s\n", esc.SessionKey)
	fmt.Fprintf(&b, "Name:     %s\n", esc.Name)
	fmt.Fprintf(&b, "Email:    %s\n", esc.Email)
	fmt.Fprintf(&b, "Created:  %s\n\n", esc.CreatedAt.Format(time.RFC3339))
	b.WriteString("Message:\n")
	b.WriteString(esc.Message)
	b.WriteString("\n")
	return b.String()
}
