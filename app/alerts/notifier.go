package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// DefaultSMTPHost and DefaultSMTPPort point at Gmail's implicit-TLS endpoint.
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 465
)

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	To       string
	Password string
	Timeout  time.Duration
}

func (c SMTPConfig) complete() bool {
	return c.From != "" && c.To != "" && c.Password != ""
}

// sender delivers a built message. It is replaced in tests.
type sender func(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error

type Notifier struct {
	cfg  SMTPConfig
	send sender
}

func NewNotifier(cfg SMTPConfig) *Notifier {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Notifier{cfg: cfg, send: dialAndSend}
}

// Enabled reports whether sender, recipient and password are all set.
func (n *Notifier) Enabled() bool {
	return n.cfg.complete()
}

// Notify sends the alert when d asks for one. It reports whether a message
// was sent.
func (n *Notifier) Notify(ctx context.Context, d Decision) (bool, error) {
	if !n.Enabled() {
		slog.Debug("Alerts disabled, mail settings incomplete")
		return false, nil
	}
	if !d.Notify {
		slog.Debug("Below alert threshold", "skill", d.Skill, "mentions", d.Mentions)
		return false, nil
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return false, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return false, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(d.Subject())
	msg.SetBodyString(mail.TypeTextPlain, d.Body())

	if err := n.send(ctx, n.cfg, msg); err != nil {
		return false, fmt.Errorf("failed to send alert: %w", err)
	}

	slog.Info("Alert sent", "skill", d.Skill, "mentions", d.Mentions, "to", n.cfg.To)
	return true, nil
}

func dialAndSend(ctx context.Context, cfg SMTPConfig, msg *mail.Msg) error {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.From),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
