package testkit

import (
	"context"
	"sync"
)

// SentEmail is an email captured by Mailer.
type SentEmail struct {
	To      string
	Subject string
	Content string
}

// Mailer records every email it is asked to send.
type Mailer struct {
	failures

	mu   sync.Mutex
	sent []SentEmail
}

// NewMailer creates a recording mailer.
func NewMailer() *Mailer {
	return &Mailer{}
}

// SendEmail records the email, or returns the injected "SendEmail" failure.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, content string) error {
	if err := m.enter("SendEmail"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Content: content})
	return nil
}

// Sent returns the recorded emails.
func (m *Mailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// SentTo returns the recorded emails addressed to to.
func (m *Mailer) SentTo(to string) []SentEmail {
	var out []SentEmail
	for _, e := range m.Sent() {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}
