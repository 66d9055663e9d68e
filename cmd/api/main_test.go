package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hairloss-doctor/internal/chat"
	appconfig "github.com/wolfman30/hairloss-doctor/internal/config"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		SessionStore:    "memory",
		SessionTTL:      30 * time.Minute,
		ClinicTimezone:  "America/New_York",
		AppointmentHour: 10,
		AnalysisDelay:   time.Second,
		TypingDelay:     time.Second,
		BookingURL:      "https://book.example",
		EmailProvider:   "none",
		AdminJWTSecret:  "secret",
	}
}

func TestSetupMetricsExposesRuntimeMetrics(t *testing.T) {
	_, handler := setupMetrics()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, connectPostgresPool(context.Background(), "", logging.New("error")))
}

func TestBuildSessionStore(t *testing.T) {
	logger := logging.New("error")
	ctx := context.Background()

	cfg := testConfig()
	store, client, err := buildSessionStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.IsType(t, &chat.MemoryStore{}, store)

	mr := miniredis.RunT(t)
	cfg.SessionStore = "redis"
	cfg.RedisAddr = mr.Addr()
	store, client, err = buildSessionStore(ctx, cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.IsType(t, &chat.RedisStore{}, store)

	cfg.SessionStore = "floppy"
	_, _, err = buildSessionStore(ctx, cfg, logger)
	assert.Error(t, err)
}

func TestBuildSessionStore_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStore = "redis"
	cfg.RedisAddr = "127.0.0.1:1"

	_, _, err := buildSessionStore(context.Background(), cfg, logging.New("error"))
	assert.Error(t, err)
}

func TestBuildApp_ServesEndToEnd(t *testing.T) {
	application, err := buildApp(context.Background(), testConfig(), logging.New("error"))
	require.NoError(t, err)
	defer application.Close()

	rr := httptest.NewRecorder()
	application.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, _ := json.Marshal(map[string]string{"name": "Casey", "phone": "555-0101", "source": "questionnaire"})
	rr = httptest.NewRecorder()
	application.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/leads", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	application.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `hairloss_leads_created_total{source="questionnaire"} 1`)
}

func TestBuildApp_BadEmailProvider(t *testing.T) {
	cfg := testConfig()
	cfg.EmailProvider = "carrier-pigeon"

	_, err := buildApp(context.Background(), cfg, logging.New("error"))
	assert.Error(t, err)
}
