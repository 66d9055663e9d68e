package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hairloss-doctor/cmd/mainconfig"
	"github.com/wolfman30/hairloss-doctor/internal/analysis"
	"github.com/wolfman30/hairloss-doctor/internal/api/router"
	"github.com/wolfman30/hairloss-doctor/internal/chat"
	appconfig "github.com/wolfman30/hairloss-doctor/internal/config"
	"github.com/wolfman30/hairloss-doctor/internal/flow"
	"github.com/wolfman30/hairloss-doctor/internal/http/handlers"
	"github.com/wolfman30/hairloss-doctor/internal/leads"
	"github.com/wolfman30/hairloss-doctor/internal/notify"
	"github.com/wolfman30/hairloss-doctor/internal/observability/metrics"
	"github.com/wolfman30/hairloss-doctor/internal/schedule"
	"github.com/wolfman30/hairloss-doctor/internal/webchat"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// app is the fully wired HTTP service.
type app struct {
	Handler http.Handler
	closers []func()
}

// Close releases pooled connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	reg, metricsHandler := setupMetrics()
	m := metrics.New(reg)
	health := handlers.NewHealthHandler(logger)
	scheduler := schedule.Real{}

	store, redisClient, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		health.Register("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	var leadsRepo leads.Repository = leads.NewInMemoryRepository()
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		health.Register("postgres", pool.Ping)
		leadsRepo = leads.NewPostgresRepository(pool)
	}

	emailSender, err := mainconfig.NewEmailSender(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	notifier := notify.NewLeadNotifier(emailSender, cfg.LeadNotifyEmail, logger)

	responder := chat.NewResponder(logger,
		chat.WithLocation(cfg.Location()),
		chat.WithAppointmentHour(cfg.AppointmentHour),
	)
	chatService := chat.NewService(store, responder, m, logger)
	driver := flow.NewDriver(analysis.NewAnalyzer(m, logger), scheduler, cfg.AnalysisDelay, logger, flow.WithRetention(cfg.SessionTTL))

	a.Handler = router.New(&router.Config{
		Logger:          logger,
		HealthHandler:   health,
		AnalysisHandler: handlers.NewAnalysisHandler(driver, cfg.MaxUploadBytes, logger),
		ChatHandler:     handlers.NewChatHandler(chatService, cfg.BookingURL, logger),
		WebChat: webchat.NewHandler(webchat.Config{
			Service:        chatService,
			Scheduler:      scheduler,
			TypingDelay:    cfg.TypingDelay,
			BookingURL:     cfg.BookingURL,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:         logger,
		}),
		LeadsHandler:       leads.NewHandler(leadsRepo, notifier, m, logger),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
	return a, nil
}

// setupMetrics returns a private registry carrying the Go runtime collectors
// and the handler that serves it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// buildSessionStore returns the chat store named by SESSION_STORE. The Redis
// client is returned so the caller can close it.
func buildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (chat.Store, *redis.Client, error) {
	switch cfg.SessionStore {
	case "", "memory":
		return chat.NewMemoryStore(cfg.SessionTTL), nil, nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, nil, fmt.Errorf("api: SESSION_STORE=redis requires REDIS_ADDR")
		}
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("api: redis ping: %w", err)
		}
		logger.Info("chat sessions stored in redis", "addr", cfg.RedisAddr)
		return chat.NewRedisStore(client, cfg.SessionTTL), client, nil
	default:
		return nil, nil, fmt.Errorf("api: unknown SESSION_STORE %q", cfg.SessionStore)
	}
}

// connectPostgresPool returns nil when no database is configured or reachable;
// leads then fall back to memory.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable, leads kept in memory", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("leads stored in postgres")
	return pool
}
