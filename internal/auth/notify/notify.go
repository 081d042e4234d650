// Package notify delivers password-reset codes out of band. The service
// layer only sees the Notifier interface; delivery transport is an external
// concern.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Notifier delivers a reset code to a destination (email address or phone
// number). Implementations must not log the code.
type Notifier interface {
	Deliver(ctx context.Context, destination, code string) error
}

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string // e.g. "smtp.example.com"
	Port     int    // e.g. 587
	From     string // sender address
	Username string // empty disables authentication
	Password string
}

// SMTPNotifier sends the reset code as a plain-text email through a relay.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Deliver(ctx context.Context, destination, code string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Trinity password reset code\r\n\r\n"+
			"Your password reset code is: %s\r\n\r\n"+
			"The code is valid for 15 minutes. If you did not request a reset, ignore this message.\r\n",
		n.cfg.From, destination, code,
	)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{destination}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp delivery to %s failed: %w", destination, err)
	}
	return nil
}

// LogNotifier is the dev fallback when no SMTP relay is configured. It logs
// that a delivery happened without including the code itself.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Deliver(ctx context.Context, destination, code string) error {
	n.Logger.Info("reset code delivery (log notifier, code withheld)",
		"destination", destination,
	)
	return nil
}
