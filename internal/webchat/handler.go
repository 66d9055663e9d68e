// Package webchat serves the live chat widget over a WebSocket. Replies are
// held behind a typing indicator for a short delay before delivery.
package webchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/hairloss-doctor/internal/chat"
	"github.com/wolfman30/hairloss-doctor/internal/schedule"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// Frame types.
const (
	TypeSession = "session"
	TypeHistory = "history"
	TypeTyping  = "typing"
	TypeMessage = "message"
	TypeError   = "error"
	TypePing    = "ping"
	TypePong    = "pong"
)

const maxMessageRunes = 2000

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives.
type OutboundMessage struct {
	Type                 string             `json:"type"`
	SessionID            string             `json:"session_id,omitempty"`
	Text                 string             `json:"text,omitempty"`
	Message              *chat.MessageView  `json:"message,omitempty"`
	Messages             []chat.MessageView `json:"messages,omitempty"`
	Category             chat.Category      `json:"category,omitempty"`
	AppointmentSuggested bool               `json:"appointment_suggested,omitempty"`
	BookingURL           string             `json:"booking_url,omitempty"`
}

// Config wires a Handler.
type Config struct {
	Service        *chat.Service
	Scheduler      schedule.Scheduler
	TypingDelay    time.Duration
	BookingURL     string
	AllowedOrigins []string
	Logger         *logging.Logger
}

// Handler manages live chat connections.
type Handler struct {
	service     *chat.Service
	scheduler   schedule.Scheduler
	typingDelay time.Duration
	bookingURL  string
	origins     originPolicy
	logger      *logging.Logger

	mu    sync.Mutex
	conns map[string]*wsConn // session id -> active connection
}

type wsConn struct {
	conn *websocket.Conn

	mu      sync.Mutex
	closed  bool
	nextID  int
	pending map[int]schedule.Timer // undelivered replies
}

// NewHandler creates a web chat handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	return &Handler{
		service:     cfg.Service,
		scheduler:   scheduler,
		typingDelay: cfg.TypingDelay,
		bookingURL:  cfg.BookingURL,
		origins:     newOriginPolicy(cfg.AllowedOrigins),
		logger:      logger,
		conns:       make(map[string]*wsConn),
	}
}

// HandleWebSocket handles GET /api/chat/ws. Pass ?session=<id> to resume.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: func(_ *websocket.Config, req *http.Request) error {
			return h.origins.check(req.Header.Get("Origin"))
		},
		Handler: func(conn *websocket.Conn) {
			h.serveWS(r.Context(), conn, r.URL.Query().Get("session"))
		},
	}
	server.ServeHTTP(w, r)
}

// ActiveConnections reports how many sockets are registered.
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, resumeID string) {
	session, err := h.openSession(ctx, strings.TrimSpace(resumeID))
	if err != nil {
		h.logger.Error("webchat: failed to open session", "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: TypeError, Text: "Sorry, chat is unavailable right now."})
		return
	}

	wsc := &wsConn{conn: conn}
	h.register(session.ID, wsc)
	defer h.unregister(session.ID, wsc)

	_ = wsc.send(OutboundMessage{Type: TypeSession, SessionID: session.ID})
	_ = wsc.send(OutboundMessage{
		Type:      TypeHistory,
		SessionID: session.ID,
		Messages:  chat.ViewAll(session.Messages, h.bookingURL),
	})
	h.logger.Info("webchat: connection opened", "session_id", session.ID, "resumed", session.ID == resumeID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", session.ID, "error", err)
			return
		}

		switch msg.Type {
		case TypePing:
			_ = wsc.send(OutboundMessage{Type: TypePong})
		case TypeMessage:
			h.processMessage(ctx, session.ID, wsc, msg.Text)
		}
	}
}

func (h *Handler) openSession(ctx context.Context, resumeID string) (chat.Session, error) {
	if resumeID != "" {
		s, err := h.service.Get(ctx, resumeID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, chat.ErrSessionNotFound) {
			return chat.Session{}, err
		}
	}
	return h.service.Start(ctx)
}

func (h *Handler) processMessage(ctx context.Context, sessionID string, wsc *wsConn, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		_ = wsc.send(OutboundMessage{Type: TypeError, Text: "That message is too long."})
		return
	}

	turn, err := h.service.Send(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "error", err, "session_id", sessionID)
		_ = wsc.send(OutboundMessage{Type: TypeError, Text: "Sorry, something went wrong. Please try again."})
		return
	}

	bot := chat.View(turn.BotMessage, h.bookingURL)
	reply := OutboundMessage{
		Type:                 TypeMessage,
		SessionID:            sessionID,
		Message:              &bot,
		Category:             turn.Response.Category,
		AppointmentSuggested: turn.Response.Nudged,
	}
	if turn.Response.Nudged {
		reply.BookingURL = h.bookingURL
	}

	wsc.typeThenDeliver(h.scheduler, h.typingDelay, OutboundMessage{Type: TypeTyping, SessionID: sessionID}, func() {
		if err := wsc.send(reply); err != nil {
			h.logger.Debug("webchat: reply dropped", "session_id", sessionID, "error", err)
		}
	})
}

func (h *Handler) register(sessionID string, wsc *wsConn) {
	h.mu.Lock()
	prev := h.conns[sessionID]
	h.conns[sessionID] = wsc
	h.mu.Unlock()
	if prev != nil {
		// A second tab took over the session.
		prev.close()
	}
}

func (h *Handler) unregister(sessionID string, wsc *wsConn) {
	h.mu.Lock()
	if h.conns[sessionID] == wsc {
		delete(h.conns, sessionID)
	}
	h.mu.Unlock()
	wsc.close()
}

var errConnClosed = errors.New("webchat: connection closed")

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	return websocket.JSON.Send(c.conn, msg)
}

// typeThenDeliver schedules deliver and sends the typing frame while holding
// the connection lock, so the reply can never overtake the indicator.
func (c *wsConn) typeThenDeliver(s schedule.Scheduler, d time.Duration, typing OutboundMessage, deliver func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.pending == nil {
		c.pending = make(map[int]schedule.Timer)
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = s.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		deliver()
	})
	_ = websocket.JSON.Send(c.conn, typing)
}

func (c *wsConn) pendingReplies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// close stops pending deliveries. Any that already fired find the connection
// closed and do nothing.
func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
	_ = c.conn.Close()
}

type originPolicy struct {
	any     bool
	allowed map[string]bool
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: map[string]bool{}}
	if len(origins) == 0 {
		p.any = true
	}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.any = true
		} else if o != "" {
			p.allowed[o] = true
		}
	}
	return p
}

func (p originPolicy) check(origin string) error {
	if p.any || p.allowed[origin] {
		return nil
	}
	return fmt.Errorf("webchat: origin %q not allowed", origin)
}
