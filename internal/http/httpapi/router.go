package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"avatar-server/internal/http/handlers"
	"avatar-server/internal/infra"
	"avatar-server/internal/middleware"
)

type Options struct {
	Logger          *infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Get("/v1/catalog/{kind}", app.CatalogList)
	r.Get("/v1/photos", app.PhotosList)
	r.With(middleware.RateLimit(opts.RateLimitPerMin)).Post("/v1/photos", app.PhotosCreate)

	r.With(middleware.RateLimit(opts.RateLimitPerMin)).Post("/v1/generations", app.GenerationsCreate)

	return r
}
