package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers messages to students. Implementations must be safe for
// concurrent use; delivery failures are returned for the caller to retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
