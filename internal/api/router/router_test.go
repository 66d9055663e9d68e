package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hairloss-doctor/internal/analysis"
	"github.com/wolfman30/hairloss-doctor/internal/chat"
	"github.com/wolfman30/hairloss-doctor/internal/flow"
	"github.com/wolfman30/hairloss-doctor/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/hairloss-doctor/internal/http/middleware"
	"github.com/wolfman30/hairloss-doctor/internal/leads"
	"github.com/wolfman30/hairloss-doctor/internal/observability/metrics"
	"github.com/wolfman30/hairloss-doctor/internal/schedule"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

const adminSecret = "test-secret"

func newTestRouter(t *testing.T, rps float64, burst int) http.Handler {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clock := schedule.NewManual(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	driver := flow.NewDriver(analysis.NewAnalyzer(m, logger), clock, time.Second, logger)
	service := chat.NewService(chat.NewMemoryStore(time.Hour), chat.NewResponder(logger), m, logger)

	return New(&Config{
		Logger:          logger,
		HealthHandler:   handlers.NewHealthHandler(logger),
		AnalysisHandler: handlers.NewAnalysisHandler(driver, 0, logger),
		ChatHandler:     handlers.NewChatHandler(service, "https://book.example", logger),
		LeadsHandler:    leads.NewHandler(leads.NewInMemoryRepository(), nil, m, logger),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret: adminSecret,
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
	})
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 0, 0)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterPublicAPI(t *testing.T) {
	router := newTestRouter(t, 0, 0)

	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/api/questions", nil)).Code)
	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/api/analysis/catalog", nil)).Code)
	assert.Equal(t, http.StatusCreated, do(router, httptest.NewRequest(http.MethodPost, "/api/chat/sessions", nil)).Code)
	assert.Equal(t, http.StatusCreated, do(router, httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire", nil)).Code)
}

func TestRouterLeadsAndAdmin(t *testing.T) {
	router := newTestRouter(t, 0, 0)

	body, _ := json.Marshal(leads.CreateLeadRequest{Name: "Robin", Email: "robin@example.com", Source: leads.SourceChat})
	rec := do(router, httptest.NewRequest(http.MethodPost, "/api/leads", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := httpmiddleware.IssueAdminToken(adminSecret, "ops", time.Minute, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = do(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list leads.ListLeadsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	metricsRec := do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `hairloss_leads_created_total{source="chat"} 1`)
}

func TestRouterRateLimitsAPI(t *testing.T) {
	router := newTestRouter(t, 0.001, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		codes = append(codes, do(router, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	assert.Equal(t, http.StatusOK, do(router, req).Code, "health is not rate limited")
}

func TestRouterAdminHiddenWithoutSecret(t *testing.T) {
	router := New(&Config{
		Logger:       logging.New("error"),
		LeadsHandler: leads.NewHandler(leads.NewInMemoryRepository(), nil, nil, nil),
	})
	rec := do(router, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
