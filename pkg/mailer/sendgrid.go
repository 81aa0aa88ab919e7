package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridMailer delivers mail through the SendGrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgridMailer constructs a mailer with the given API key and sender.
func NewSendgridMailer(apiKey, fromName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromEmail),
	}
}

// Send delivers a single message.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	email := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.TextBody, msg.HTMLBody)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
