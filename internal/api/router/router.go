// Package router wires the HTTP surface: the public booking endpoints and
// the JWT-gated admin panel.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dentalespejo/clinic-platform/internal/appointments"
	"github.com/dentalespejo/clinic-platform/internal/audit"
	"github.com/dentalespejo/clinic-platform/internal/auth"
	"github.com/dentalespejo/clinic-platform/internal/clinic"
	httpmiddleware "github.com/dentalespejo/clinic-platform/internal/http/middleware"
	"github.com/dentalespejo/clinic-platform/internal/users"
	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	ClinicHandler       *clinic.Handler
	AuditHandler        *audit.Handler
	AdminJWTSecret      string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// BookingRateLimit guards the public booking form; requests/sec per IP.
	BookingRateLimit float64
	BookingRateBurst int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	// Public surface: health, metrics, the booking form and login.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/appointments", func(r chi.Router) {
			booking := r
			if cfg.BookingRateLimit > 0 {
				booking = r.With(httpmiddleware.RateLimit(cfg.BookingRateLimit, cfg.BookingRateBurst))
			}
			booking.Post("/", cfg.AppointmentsHandler.Book)
			r.Get("/availability", cfg.AppointmentsHandler.Availability)
		})

		public.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			r.With(auth.RequireAdmin(cfg.AdminJWTSecret)).Post("/logout", cfg.AuthHandler.Logout)
		})
	})

	// Admin panel, all behind the access token.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(auth.RequireAdmin(cfg.AdminJWTSecret))

		admin.Route("/appointments", func(r chi.Router) {
			r.Get("/", cfg.AppointmentsHandler.List)
			r.Get("/calendar", cfg.AppointmentsHandler.Calendar)
			r.Get("/{id}", cfg.AppointmentsHandler.Get)
			r.Patch("/{id}", cfg.AppointmentsHandler.Update)
			r.Patch("/{id}/status", cfg.AppointmentsHandler.UpdateStatus)
			r.Delete("/{id}", cfg.AppointmentsHandler.Delete)
		})

		// Staff accounts are admin-role only.
		admin.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireRole(string(users.RoleAdmin)))
			r.Get("/", cfg.UsersHandler.List)
			r.Post("/", cfg.UsersHandler.Create)
			r.Get("/{id}", cfg.UsersHandler.Get)
			r.Patch("/{id}", cfg.UsersHandler.Update)
			r.Delete("/{id}", cfg.UsersHandler.Delete)
		})

		if cfg.AuditHandler != nil {
			admin.With(auth.RequireRole(string(users.RoleAdmin))).Get("/audit", cfg.AuditHandler.List)
		}

		if cfg.ClinicHandler != nil {
			admin.Get("/dashboard", cfg.ClinicHandler.Dashboard)
			admin.Route("/clinic/config", func(r chi.Router) {
				r.Get("/", cfg.ClinicHandler.GetSettings)
				r.With(auth.RequireRole(string(users.RoleAdmin))).Put("/", cfg.ClinicHandler.PutSettings)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
