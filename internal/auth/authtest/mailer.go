package authtest

import (
	"context"
	"regexp"
	"sync"

	"clientlance/internal/email"
)

// Mailer records every message. SendErr, when set, fails synchronous sends.
type Mailer struct {
	mu      sync.Mutex
	sent    []email.Message
	SendErr error
}

func (m *Mailer) Dispatch(_ context.Context, msg email.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *Mailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *Mailer) Messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]email.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent message sent to addr.
func (m *Mailer) Last(addr string) (email.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return m.sent[i], true
		}
	}
	return email.Message{}, false
}

var tokenInLink = regexp.MustCompile(`/([0-9a-f]{40})\b`)

// TokenFrom extracts the one-time token from a mailed link.
func TokenFrom(msg email.Message) string {
	if match := tokenInLink.FindStringSubmatch(msg.Text); match != nil {
		return match[1]
	}
	return ""
}
