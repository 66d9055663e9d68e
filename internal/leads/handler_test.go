package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

type recordingNotifier struct {
	leads []*Lead
	err   error
}

func (n *recordingNotifier) NotifyNewLead(_ context.Context, lead *Lead) error {
	n.leads = append(n.leads, lead)
	return n.err
}

type countingObserver struct {
	sources []string
}

func (o *countingObserver) ObserveLead(source string) {
	o.sources = append(o.sources, source)
}

func postLead(t *testing.T, handler *Handler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/leads", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.CreateLead(w, req)
	return w
}

func TestCreateLead_Success(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &recordingNotifier{}
	observer := &countingObserver{}
	handler := NewHandler(repo, notifier, observer, logging.Default())

	reqBody := CreateLeadRequest{
		Name:          "John Doe",
		Email:         "John@Example.com",
		Phone:         "+1234567890",
		Message:       "My hairline keeps moving back",
		Source:        SourceQuestionnaire,
		HairLossType:  "Early Stage Hair Loss",
		PreferredTime: "weekday mornings",
	}

	w := postLead(t, handler, reqBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var lead Lead
	if err := json.NewDecoder(w.Body).Decode(&lead); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if lead.ID == "" {
		t.Error("expected lead ID to be set")
	}
	if lead.Email != "john@example.com" {
		t.Errorf("expected normalized email, got %s", lead.Email)
	}
	if lead.HairLossType != reqBody.HairLossType {
		t.Errorf("expected hair loss type %q, got %q", reqBody.HairLossType, lead.HairLossType)
	}
	if len(notifier.leads) != 1 || notifier.leads[0].ID != lead.ID {
		t.Errorf("expected notifier to receive the lead, got %+v", notifier.leads)
	}
	if len(observer.sources) != 1 || observer.sources[0] != "questionnaire" {
		t.Errorf("expected one questionnaire observation, got %v", observer.sources)
	}
}

func TestCreateLead_DefaultsSourceToWeb(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	w := postLead(t, handler, CreateLeadRequest{Name: "Sam", Phone: "555-0100"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var lead Lead
	_ = json.NewDecoder(w.Body).Decode(&lead)
	if lead.Source != SourceWeb {
		t.Errorf("expected source web, got %s", lead.Source)
	}
}

func TestCreateLead_NotifierFailureStillCreates(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	handler := NewHandler(repo, notifier, nil, logging.Default())

	w := postLead(t, handler, CreateLeadRequest{Name: "Pat", Email: "pat@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	leads, _ := repo.List(context.Background(), ListFilter{})
	if len(leads) != 1 {
		t.Fatalf("expected lead to be stored, got %d", len(leads))
	}
}

func TestCreateLead_ValidationErrors(t *testing.T) {
	cases := map[string]CreateLeadRequest{
		"missing name":    {Email: "a@example.com"},
		"missing contact": {Name: "John Doe"},
		"bad email":       {Name: "John Doe", Email: "not-an-email"},
		"bad source":      {Name: "John Doe", Phone: "555", Source: "billboard"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			handler := NewHandler(NewInMemoryRepository(), notifier, nil, logging.Default())
			w := postLead(t, handler, payload)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if len(notifier.leads) != 0 {
				t.Errorf("notifier should not be called on invalid input")
			}
		})
	}
}

func TestCreateLead_InvalidJSON(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader("{"))
	w := httptest.NewRecorder()

	handler.CreateLead(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateLead_BodyTooLarge(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &recordingNotifier{}
	handler := NewHandler(repo, notifier, nil, logging.Default())

	w := postLead(t, handler, CreateLeadRequest{
		Name:    "Big Body",
		Email:   "big@example.com",
		Message: strings.Repeat("x", MaxLeadBodyBytes+1),
	})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected %d, got %d", http.StatusRequestEntityTooLarge, w.Code)
	}

	stored, err := repo.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 || len(notifier.leads) != 0 {
		t.Fatalf("expected nothing stored or notified, got %d leads, %d notifications", len(stored), len(notifier.leads))
	}
}

type failingRepository struct{}

func (f failingRepository) Create(context.Context, *CreateLeadRequest) (*Lead, error) {
	return nil, errors.New("boom")
}

func (f failingRepository) GetByID(context.Context, string) (*Lead, error) {
	return nil, ErrLeadNotFound
}

func (f failingRepository) List(context.Context, ListFilter) ([]*Lead, error) {
	return nil, errors.New("boom")
}

func TestCreateLead_RepositoryError(t *testing.T) {
	handler := NewHandler(failingRepository{}, nil, nil, logging.Default())

	w := postLead(t, handler, CreateLeadRequest{Name: "Failing Repo", Email: "fail@example.com"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestListLeads(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		if _, err := repo.Create(ctx, &CreateLeadRequest{Name: name, Phone: "555", Source: SourceChat}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.Create(ctx, &CreateLeadRequest{Name: "photo", Phone: "555", Source: SourcePhoto}); err != nil {
		t.Fatalf("create: %v", err)
	}

	handler := NewHandler(repo, nil, nil, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?source=chat&limit=2", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Limit != 2 {
		t.Fatalf("unexpected page %+v", resp)
	}
	if resp.Leads[0].Name != "third" || resp.Leads[1].Name != "second" {
		t.Errorf("expected newest first, got %s, %s", resp.Leads[0].Name, resp.Leads[1].Name)
	}
}

func TestListLeads_InvalidSource(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), nil, nil, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?source=fax", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestGetLead(t *testing.T) {
	repo := NewInMemoryRepository()
	created, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "Lee", Email: "lee@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	handler := NewHandler(repo, nil, nil, logging.Default())

	r := chi.NewRouter()
	r.Get("/admin/leads/{leadID}", handler.GetLead)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/leads/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/leads/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestRepository_ListOffsetPastEnd(t *testing.T) {
	repo := NewInMemoryRepository()
	_, _ = repo.Create(context.Background(), &CreateLeadRequest{Name: "One", Phone: "1"})

	leads, err := repo.List(context.Background(), ListFilter{Offset: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("expected empty page, got %d", len(leads))
	}
}
