package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// Greeting opens every session.
const Greeting = "Hi! I'm the HairLoss Doctor assistant. Tell me what you're noticing with your hair or scalp and I'll point you to the right treatment."

// Observer receives one call per bot reply.
type Observer interface {
	ObserveReply(category string, nudged bool)
}

// Turn is the result of one user message.
type Turn struct {
	Session     Session  `json:"session"`
	UserMessage Message  `json:"user_message"`
	BotMessage  Message  `json:"bot_message"`
	Response    Response `json:"response"`
}

// Service owns session lifecycle and runs each user turn through the responder.
type Service struct {
	store     Store
	responder *Responder
	observer  Observer
	logger    *logging.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is held by in-flight turns; refs counts holders and waiters so
// the entry can be dropped when the last one leaves.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService wires a chat service. observer may be nil.
func NewService(store Store, responder *Responder, observer Observer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if responder == nil {
		responder = NewResponder(logger)
	}
	return &Service{
		store:     store,
		responder: responder,
		observer:  observer,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sessionLock),
	}
}

// Start creates a session seeded with the greeting.
func (s *Service) Start(ctx context.Context) (Session, error) {
	session := NewSession(uuid.NewString(), s.now())
	session, _ = session.Append(SenderBot, Greeting, nil, s.now())
	if err := s.store.Save(ctx, session); err != nil {
		return Session{}, fmt.Errorf("chat: start session: %w", err)
	}
	s.logger.Info("chat session started", "session_id", session.ID)
	return session, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// Send records a user message and the bot's reply. Turns on the same session
// are serialised.
func (s *Service) Send(ctx context.Context, id, text string) (Turn, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return Turn{}, err
	}

	session, userMsg := session.Append(SenderUser, text, nil, s.now())
	resp := s.responder.ClassifyAndRespond(ctx, text, session.Context)
	session.Context = resp.Context
	session, botMsg := session.Append(SenderBot, resp.Reply, resp.Products, s.now())

	if err := s.store.Save(ctx, session); err != nil {
		return Turn{}, fmt.Errorf("chat: save turn: %w", err)
	}

	if s.observer != nil {
		s.observer.ObserveReply(string(resp.Category), resp.Nudged)
	}
	s.logger.Info("chat turn",
		"session_id", id,
		"category", resp.Category,
		"message_count", resp.Context.MessageCount,
		"nudged", resp.Nudged,
	)

	return Turn{Session: session, UserMessage: userMsg, BotMessage: botMsg, Response: resp}, nil
}

// End discards a session once any in-flight turn on it has finished.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

// lock serialises work on one session id and returns the release func.
func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
