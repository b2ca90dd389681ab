package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// RouterOptions carries the cross-cutting settings the router needs.
type RouterOptions struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	AdminKey        string
}

// NewRouter assembles the public API surface.
func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/uploads", app.UploadsCreate)

	r.Route("/v1/tryon", func(r chi.Router) {
		r.Post("/", app.TryonStart)
		r.Get("/{job_id}", app.TryonStatus)
		r.Delete("/{job_id}", app.TryonCancel)
		r.Get("/{job_id}/result", app.TryonResult)
	})

	r.Get("/v1/recents", app.Recents)

	r.Route("/v1/catalog", func(r chi.Router) {
		r.Get("/", app.CatalogList)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminKey(opts.AdminKey))
			r.Post("/", app.CatalogCreate)
			r.Delete("/{id}", app.CatalogDelete)
		})
	})

	return r
}
