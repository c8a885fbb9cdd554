package email

import (
	"context"
	"net/mail"
)

// Message is a single outbound email. Either Text or HTML must be set.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

func (m Message) HasRecipient() bool {
	return m.To.Address != ""
}

func (m Message) HasContent() bool {
	return m.Text != "" || m.HTML != ""
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
