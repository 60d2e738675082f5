package server

import (
	"net/http"
	"time"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	apihttp "github.com/wolfeidau/admindash/internal/http"
	"github.com/wolfeidau/admindash/internal/logger"
	"github.com/wolfeidau/admindash/internal/login"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/store"
	"github.com/wolfeidau/admindash/internal/telemetry"
)

// Server is the admin backend: session endpoints plus one REST collection
// per managed resource.
type Server struct {
	docs      store.DocumentStore
	admins    store.AdminStore
	login     *login.Handlers
	resources []models.Descriptor
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// NewServer creates a server over the given stores.
func NewServer(docs store.DocumentStore, admins store.AdminStore, handlers *login.Handlers) *Server {
	return &Server{
		docs:      docs,
		admins:    admins,
		login:     handlers,
		resources: models.Resources(),
		metrics:   telemetry.GetMetrics(),
		now:       time.Now,
	}
}

// Options tune the HTTP surface.
type Options struct {
	// CORSOrigins lists browser origins allowed to call the API with
	// credentials. Empty disables CORS handling. The same origins are
	// trusted by the cross-origin request protection.
	CORSOrigins []string
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(telemetry.Middleware)
	r.Use(middleware.RealIP)
	r.Use(logger.Requests(log))
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancer
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apihttp.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/admin/login", s.login.LoginHandler)
	r.Get("/admin/validate", s.login.ValidateHandler)
	r.Post("/admin/logout", s.login.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.login.RequireAuth)

		r.Get("/admin/profile", s.getProfile)
		r.Put("/admin/profile", s.updateProfile)
		r.Get("/admin/stats", s.getStats)

		for _, d := range s.resources {
			s.mount(r, d)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apihttp.WriteError(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apihttp.WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	handler := withCSRF(log, opts.CORSOrigins, r)
	if len(opts.CORSOrigins) > 0 {
		handler = withCORS(opts.CORSOrigins, handler)
	}

	return gzhttp.GzipHandler(handler)
}

// withCORS lets browser dashboards on other origins call the API with
// the session cookie.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "Traceparent", "Tracestate"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}

// withCSRF rejects state changing browser requests that come from an
// origin other than the API's own or one of the trusted dashboards.
// Requests without Sec-Fetch-Site or Origin headers, such as the CLI's,
// pass through.
func withCSRF(log zerolog.Logger, trustedOrigins []string, h http.Handler) http.Handler {
	protection := csrf.New()
	for _, origin := range trustedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			log.Warn().Err(err).Str("origin", origin).Msg("ignoring invalid trusted origin")
		}
	}
	return protection.Handler(h)
}
