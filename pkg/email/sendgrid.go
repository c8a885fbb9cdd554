package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Sender = (*SendGridSender)(nil)

func NewSendGridSender(key, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipient() || !msg.HasContent() {
		return fmt.Errorf("email to %q has no recipient or content", msg.To.Address)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
