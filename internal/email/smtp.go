package email

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"

	"clientlance/internal/config"
)

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = oops.Code("EMAIL_NOT_CONFIGURED").Errorf("email is not configured")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}

	m := buildMessage(s.cfg.From, msg)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.SSL = s.cfg.Secure
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	// gomail has no context support; the dial finishes in the background
	// if ctx ends first.
	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return oops.Code("EMAIL_SEND_FAILED").With("to", msg.To).Wrap(err)
		}
		return nil
	case <-ctx.Done():
		return oops.Code("EMAIL_SEND_TIMEOUT").With("to", msg.To).Wrap(ctx.Err())
	}
}

func buildMessage(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case strings.TrimSpace(msg.Text) != "" && strings.TrimSpace(msg.HTML) != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case strings.TrimSpace(msg.HTML) != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}
