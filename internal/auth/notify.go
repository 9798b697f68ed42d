package auth

import (
	"context"
	"strings"

	"clientlance/internal/email"
	"clientlance/internal/i18n"
)

// Mailer is the outbound mail collaborator. Dispatch is fire-and-forget
// and must outlive ctx's cancellation; Send reports delivery failure to
// the caller.
type Mailer interface {
	Dispatch(ctx context.Context, msg email.Message)
	Send(ctx context.Context, msg email.Message) error
}

// Links builds the URLs mailed to account holders.
type Links struct {
	VerifyEmailURL   string
	ResetPasswordURL string
}

func (l Links) verify(token string) string {
	return joinLink(l.VerifyEmailURL, token)
}

func (l Links) reset(token string) string {
	return joinLink(l.ResetPasswordURL, token)
}

func joinLink(base, token string) string {
	return strings.TrimRight(base, "/") + "/" + token
}

func toMessage(to string, content i18n.EmailContent) email.Message {
	return email.Message{To: to, Subject: content.Subject, Text: content.Text, HTML: content.HTML}
}
