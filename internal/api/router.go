package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/printwatch/internal/api/middleware"
	"github.com/kiranshivaraju/printwatch/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler           http.HandlerFunc
	StatusHandler           http.HandlerFunc
	ListJobsHandler         http.HandlerFunc
	GetJobHandler           http.HandlerFunc
	JobMetricsHandler       http.HandlerFunc
	JobNotificationsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)
		r.Use(deps.Auth.RequireScope(mw.ScopeRead))

		r.Get("/api/v1/status", orNotImplemented(deps.StatusHandler))

		r.Route("/api/v1/jobs", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListJobsHandler))
			r.Get("/{jobUUID}", orNotImplemented(deps.GetJobHandler))
			r.Get("/{jobUUID}/metrics", orNotImplemented(deps.JobMetricsHandler))
			r.Get("/{jobUUID}/notifications", orNotImplemented(deps.JobNotificationsHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
