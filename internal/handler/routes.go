package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/visitrack/visitrack/internal/middleware"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Visits  *VisitHandler
	Notify  *NotifyHandler
	Health  *HealthHandler
	Metrics http.Handler // nil leaves /metrics unrouted

	AllowedOrigin      string
	TrustProxyHeaders  bool
	IsDevelopment      bool
	MaxRequestBodySize int64
	Logger             *slog.Logger
}

// NewRouter configures the chi router with all routes and middleware.
// CORS is the outermost layer so that every response carries its headers,
// including 404/405, body-size rejections and recovered panics.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.AllowedOrigin))
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.IsDevelopment))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/track-visit", cfg.Visits.TrackVisit)
		r.Get("/monthly-visitors", cfg.Visits.MonthlyVisitors)
		r.Post("/notify-click", cfg.Notify.NotifyClick)
	})

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}
