package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/praxisfinder/therapy-platform/internal/http/handlers"
	httpmiddleware "github.com/praxisfinder/therapy-platform/internal/http/middleware"
	"github.com/praxisfinder/therapy-platform/internal/intake"
	"github.com/praxisfinder/therapy-platform/internal/matching"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	TherapistsHandler *therapists.Handler
	PatientsHandler   *patients.Handler
	IntakeHandler     *intake.Handler
	MatchHandler      *matching.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	StatsHandler       http.Handler
	CORSAllowedOrigins []string

	// IntakeRateLimit throttles the public intake endpoint per IP.
	// Zero disables the limiter.
	IntakeRateLimit float64
	IntakeRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/api/v1", func(api chi.Router) {
			if cfg.TherapistsHandler != nil {
				api.Get("/therapists", cfg.TherapistsHandler.ListDirectory)
			}
			if cfg.IntakeHandler != nil {
				intakeRoute := chi.Router(api)
				if cfg.IntakeRateLimit > 0 {
					intakeRoute = api.With(httpmiddleware.RateLimit(cfg.IntakeRateLimit, cfg.IntakeRateBurst))
				}
				intakeRoute.Post("/intake", cfg.IntakeHandler.Submit)
			}
			if cfg.MatchHandler != nil {
				api.Route("/matches/{token}", func(m chi.Router) {
					m.Get("/", cfg.MatchHandler.GetByToken)
					m.Post("/select", cfg.MatchHandler.Select)
					m.Post("/contact", cfg.MatchHandler.Contact)
				})
			}
		})
	})

	// Admin routes, JWT-protected
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

			if cfg.TherapistsHandler != nil {
				admin.Route("/therapists", func(t chi.Router) {
					t.Post("/", cfg.TherapistsHandler.Create)
					t.Get("/", cfg.TherapistsHandler.ListAdmin)
					t.Route("/{id}", func(one chi.Router) {
						one.Get("/", cfg.TherapistsHandler.Get)
						one.Patch("/", cfg.TherapistsHandler.Update)
						one.Post("/verify", cfg.TherapistsHandler.Verify)
						one.Post("/hide", cfg.TherapistsHandler.Hide)
						one.Post("/slots", cfg.TherapistsHandler.CreateSlot)
						one.Get("/slots", cfg.TherapistsHandler.ListSlots)
						one.Delete("/slots/{slotID}", cfg.TherapistsHandler.DeleteSlot)
					})
				})
			}
			if cfg.PatientsHandler != nil {
				admin.Get("/patients", cfg.PatientsHandler.List)
				admin.Get("/patients/{id}", cfg.PatientsHandler.Get)
			}
			if cfg.MatchHandler != nil {
				admin.Patch("/matches/{id}/status", cfg.MatchHandler.UpdateStatus)
			}
			if cfg.StatsHandler != nil {
				admin.Handle("/stats", cfg.StatsHandler)
			}
		})
	}

	return r
}
