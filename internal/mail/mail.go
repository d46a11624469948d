// Package mail delivers outbound notification email, currently just the
// signup confirmation code.
//
// Delivery is best-effort by contract: the auth service logs a failed send
// and still reports signup success, because the user record and code are
// already persisted and the user can always request a fresh code.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config holds the SMTP settings. It is passed explicitly at construction;
// there is no package-level state.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // e.g. "noreply@reviewhub.example"
}

// Sender delivers a single message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail over plain SMTP with optional AUTH.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender creates an SMTPSender from the given config.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mail: host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers the message. net/smtp has no context support, so ctx is
// only honored up front; a hung SMTP server is bounded by the server's
// request timeouts.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used in
// development when no SMTP host is configured, so the confirmation code is
// still reachable (in the server log).
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("mail (log delivery)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
