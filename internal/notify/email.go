package notify

import (
	"context"

	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// DefaultFromName is used when no sender display name is configured.
const DefaultFromName = "HairLoss Doctor"

// EmailSender delivers a single email. SendGrid, SES and the stub satisfy it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string // optional
}

// StubEmailSender logs instead of sending. Used when EMAIL_PROVIDER=none.
type StubEmailSender struct {
	logger *logging.Logger
	sent   []EmailMessage
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send records the message.
func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.sent = append(s.sent, msg)
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns the messages passed to Send so far.
func (s *StubEmailSender) Sent() []EmailMessage {
	out := make([]EmailMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

func fromNameOrDefault(name string) string {
	if name == "" {
		return DefaultFromName
	}
	return name
}
