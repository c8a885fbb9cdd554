package email

import (
	"context"
	"sync"

	"tutorbook/pkg/logger"
)

// LogSender writes emails to the log instead of delivering them. Used when no SendGrid
// key is configured, and by tests through Sent.
type LogSender struct {
	log  *logger.Logger
	mu   sync.Mutex
	sent []Message
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("Email (not delivered)",
		"to", msg.To.String(),
		"subject", msg.Subject,
		"body", msg.Text,
	)

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
