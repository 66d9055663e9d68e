package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/hairloss-doctor/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/hairloss-doctor/internal/http/middleware"
	"github.com/wolfman30/hairloss-doctor/internal/leads"
	"github.com/wolfman30/hairloss-doctor/internal/webchat"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	HealthHandler   *handlers.HealthHandler
	AnalysisHandler *handlers.AnalysisHandler
	ChatHandler     *handlers.ChatHandler
	WebChat         *webchat.Handler
	LeadsHandler    *leads.Handler
	MetricsHandler  http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Check)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		if h := cfg.AnalysisHandler; h != nil {
			api.Get("/questions", h.Questions)
			api.Route("/analysis", func(r chi.Router) {
				r.Get("/catalog", h.Catalog)
				r.Post("/photo", h.SubmitPhoto)
				r.Get("/photo/{flowID}", h.GetPhoto)
				r.Delete("/photo/{flowID}", h.DeletePhoto)
				r.Post("/questionnaire", h.StartQuestionnaire)
				r.Get("/questionnaire/{flowID}", h.GetQuestionnaire)
				r.Post("/questionnaire/{flowID}/answers", h.AnswerQuestion)
				r.Delete("/questionnaire/{flowID}", h.DeleteQuestionnaire)
			})
		}

		api.Route("/chat", func(r chi.Router) {
			if h := cfg.ChatHandler; h != nil {
				r.Post("/sessions", h.StartSession)
				r.Get("/sessions/{sessionID}", h.GetSession)
				r.Post("/sessions/{sessionID}/messages", h.SendMessage)
				r.Delete("/sessions/{sessionID}", h.EndSession)
			}
			if cfg.WebChat != nil {
				r.Get("/ws", cfg.WebChat.HandleWebSocket)
			}
		})

		if cfg.LeadsHandler != nil {
			api.Post("/leads", cfg.LeadsHandler.CreateLead)
		}
	})

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.AdminAuthSecret != "" && cfg.LeadsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}
