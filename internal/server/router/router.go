// Package router wires HTTP routes to handlers. Every route declares its
// access policy explicitly and is wrapped by the authorization gate.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/handlers"
	"github.com/iudanet/edulearn/internal/server/middleware"
)

// HealthPath is excluded from request logging
const HealthPath = "/api/v1/health"

// Deps holds everything the router needs
type Deps struct {
	Logger         *slog.Logger
	Gate           *middleware.Gate
	Auth           *handlers.AuthHandler
	Users          *handlers.UserHandler
	Health         *handlers.HealthHandler
	LoginLimiter   *middleware.RateLimiter
	AllowedOrigins []string
}

// New builds the HTTP handler
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// порядок важен: recovery должен видеть панику из всех остальных слоев
	r.Use(middleware.RecoveryMiddleware(d.Logger))
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.LoggingMiddleware(d.Logger, HealthPath))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	public := d.Gate.Protect(middleware.Public())
	protected := d.Gate.Protect(middleware.Authenticated())
	staff := d.Gate.Protect(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(public).Get("/health", d.Health.Health)

		r.Route("/auth", func(r chi.Router) {
			login := r.With(public)
			if d.LoginLimiter != nil {
				login = login.With(d.LoginLimiter.Middleware())
			}
			login.Post("/login", d.Auth.Login)

			r.With(protected).Post("/refresh", d.Auth.Refresh)
			r.With(protected).Post("/logout", d.Auth.Logout)
			r.With(protected).Post("/logout-all", d.Auth.LogoutAll)
			r.With(protected).Get("/profile", d.Auth.Profile)
		})

		r.With(staff).Get("/users/{id}", d.Users.Get)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found","message":"route not found"}`))
	})

	return r
}
