package mailer

import (
	"context"
	"sync"
)

// DummyMailer records messages instead of delivering them. Used in tests and
// in development when no SendGrid key is configured.
type DummyMailer struct {
	mu   sync.Mutex
	sent []Message
}

// NewDummyMailer constructs an empty recorder.
func NewDummyMailer() *DummyMailer {
	return &DummyMailer{}
}

// Send records the message.
func (m *DummyMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *DummyMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
