package handlers

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hairloss-doctor/internal/chat"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// MaxChatMessageRunes caps a single user message.
const MaxChatMessageRunes = 2000

// ChatHandler exposes chat sessions over plain HTTP. The WebSocket transport
// in internal/webchat shares the same service.
type ChatHandler struct {
	service    *chat.Service
	bookingURL string
	logger     *logging.Logger
}

// NewChatHandler creates the handler. bookingURL replaces the booking marker.
func NewChatHandler(service *chat.Service, bookingURL string, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{service: service, bookingURL: bookingURL, logger: logger}
}

type sessionResponse struct {
	ID       string             `json:"id"`
	Messages []chat.MessageView `json:"messages"`
	Context  chat.Context       `json:"context"`
}

func (h *ChatHandler) viewSession(s chat.Session) sessionResponse {
	return sessionResponse{ID: s.ID, Messages: chat.ViewAll(s.Messages, h.bookingURL), Context: s.Context}
}

// StartSession handles POST /api/chat/sessions.
func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Start(r.Context())
	if err != nil {
		h.logger.Error("failed to start chat session", "error", err)
		jsonError(w, "failed to start chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, h.viewSession(s))
}

// GetSession handles GET /api/chat/sessions/{sessionID}.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.viewSession(s))
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	SessionID            string           `json:"session_id"`
	UserMessage          chat.MessageView `json:"user_message"`
	BotMessage           chat.MessageView `json:"bot_message"`
	Category             chat.Category    `json:"category"`
	Products             []string         `json:"products"`
	AppointmentSuggested bool             `json:"appointment_suggested"`
	BookingURL           string           `json:"booking_url,omitempty"`
	Context              chat.Context     `json:"context"`
}

// SendMessage handles POST /api/chat/sessions/{sessionID}/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(req.Message) > MaxChatMessageRunes {
		jsonError(w, "message too long", http.StatusRequestEntityTooLarge)
		return
	}

	turn, err := h.service.Send(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		h.sessionError(w, err)
		return
	}

	resp := turnResponse{
		SessionID:            turn.Session.ID,
		UserMessage:          chat.View(turn.UserMessage, h.bookingURL),
		BotMessage:           chat.View(turn.BotMessage, h.bookingURL),
		Category:             turn.Response.Category,
		Products:             turn.Response.Products,
		AppointmentSuggested: turn.Response.Nudged,
		Context:              turn.Response.Context,
	}
	if turn.Response.Nudged {
		resp.BookingURL = h.bookingURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// EndSession handles DELETE /api/chat/sessions/{sessionID}.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.End(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrSessionNotFound) {
		jsonError(w, "chat session not found", http.StatusNotFound)
		return
	}
	h.logger.Error("chat session error", "error", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}
