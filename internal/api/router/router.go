package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/lawfirm-intake/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lawfirm-intake/internal/http/middleware"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Intake             *handlers.IntakeHandler
	AdminRecords       *handlers.AdminRecordsHandler
	AdminSession       *handlers.AdminSessionHandler
	IntakeLimiter      *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Intake != nil {
		r.Group(func(public chi.Router) {
			if cfg.IntakeLimiter != nil {
				public.Use(httpmiddleware.RateLimit(cfg.IntakeLimiter, cfg.Logger))
			}
			public.Post("/api/leads", cfg.Intake.Submit)
		})
	}

	if cfg.AdminSession != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Post("/session", cfg.AdminSession.Login)
			admin.Delete("/session", cfg.AdminSession.Logout)

			if cfg.AdminRecords == nil {
				return
			}
			admin.Group(func(protected chi.Router) {
				protected.Use(httpmiddleware.AdminSession(cfg.AdminSession.SigningKey()))
				protected.Get("/records", cfg.AdminRecords.ListRecords)
				protected.Get("/records/{id}", cfg.AdminRecords.GetRecord)
				protected.Patch("/records/by-phone/{phone}", cfg.AdminRecords.UpdateRecordByPhone)
				protected.Patch("/records/{id}", cfg.AdminRecords.UpdateRecord)
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
