package chat

import "time"

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry in a chat transcript.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Products  []string  `json:"products,omitempty"`
}

// Session is a chat transcript plus its conversation context. Sessions are
// values: Append returns a new Session and leaves the receiver untouched.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts an empty session.
func NewSession(id string, now time.Time) Session {
	now = now.UTC()
	return Session{
		ID:        id,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append returns a copy of s with a new message. Message ids are 1-based and
// increase by one per message.
func (s Session) Append(sender Sender, text string, products []string, now time.Time) (Session, Message) {
	msg := Message{
		ID:        s.nextMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: now.UTC(),
	}
	if len(products) > 0 {
		msg.Products = append([]string(nil), products...)
	}

	next := s
	next.Messages = make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(next.Messages, s.Messages)
	next.Messages = append(next.Messages, msg)
	next.UpdatedAt = msg.Timestamp
	return next, msg
}

func (s Session) nextMessageID() int {
	if len(s.Messages) == 0 {
		return 1
	}
	return s.Messages[len(s.Messages)-1].ID + 1
}
