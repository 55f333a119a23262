package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	sendgrid "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// DefaultSendGridHost is the SendGrid API host.
const DefaultSendGridHost = "https://api.sendgrid.com"

// Mailer delivers a single email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, content string) error
}

// SendGridMailer implements Mailer using SendGrid.
type SendGridMailer struct {
	apiKey string
	host   string
	from   *sgmail.Email
}

// SendGridOption configures a SendGridMailer.
type SendGridOption func(*SendGridMailer)

// WithHost overrides the SendGrid API host.
func WithHost(host string) SendGridOption {
	return func(m *SendGridMailer) {
		m.host = host
	}
}

// NewSendGridMailer creates a mailer that sends from sender.
func NewSendGridMailer(apiKey, sender, senderName string, opts ...SendGridOption) *SendGridMailer {
	m := &SendGridMailer{
		apiKey: apiKey,
		host:   DefaultSendGridHost,
		from:   sgmail.NewEmail(senderName, sender),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendEmail sends a plain-text email to a single recipient.
func (m *SendGridMailer) SendEmail(ctx context.Context, to, subject, content string) error {
	message := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(to, to), content, "")

	request := sendgrid.GetRequest(m.apiKey, "/v3/mail/send", m.host)
	request.Method = rest.Post
	request.Body = sgmail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail: send to %s: unexpected status %d: %s", to, resp.StatusCode, resp.Body)
	}
	return nil
}
