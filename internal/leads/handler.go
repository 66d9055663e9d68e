package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// Notifier is told about every lead after it is stored.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *Lead) error
}

// Observer counts created leads.
type Observer interface {
	ObserveLead(source string)
}

const (
	notifyTimeout = 10 * time.Second

	// MaxLeadBodyBytes caps a consultation request body.
	MaxLeadBodyBytes = 64 << 10
)

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	notifier Notifier
	observer Observer
	logger   *logging.Logger
}

// NewHandler creates a new leads handler. notifier and observer may be nil.
func NewHandler(repo Repository, notifier Notifier, observer Observer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		notifier: notifier,
		observer: observer,
		logger:   logger,
	}
}

// CreateLead handles POST /api/leads requests
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxLeadBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Warn("failed to decode lead request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	h.logger.Info("lead created", "id", lead.ID, "source", lead.Source, "hair_loss_type", lead.HairLossType)
	if h.observer != nil {
		h.observer.ObserveLead(string(lead.Source))
	}

	// Delivery is bounded by notifyTimeout and survives client disconnects;
	// failures are logged only.
	if h.notifier != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), notifyTimeout)
		if err := h.notifier.NotifyNewLead(ctx, lead); err != nil {
			h.logger.Error("lead notification failed", "error", err, "lead_id", lead.ID)
		}
		cancel()
	}

	writeJSON(w, http.StatusCreated, lead)
}

// GetLead handles GET /admin/leads/{leadID} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "leadID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing lead id")
		return
	}
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if source := r.URL.Query().Get("source"); source != "" {
		filter.Source = Source(source)
		if !filter.Source.valid() {
			writeError(w, http.StatusBadRequest, ErrInvalidSource.Error())
			return
		}
	}

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidSource)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
