package rest

import (
	"net/http"
	"time"

	"github.com/baechuer/property-recs/internal/metrics"
	"github.com/baechuer/property-recs/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Handler *Handler
	// Verifier is optional; nil keeps every view anonymous.
	Verifier  security.Verifier
	Logger    zerolog.Logger
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(HTTPLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/healthz", d.Handler.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if d.RLEnabled && d.RLLimit > 0 {
			r.Use(httprate.LimitByIP(d.RLLimit, d.RLWindow))
		}
		r.Get("/listings/{id}/similar", d.Handler.Similar)

		r.Group(func(r chi.Router) {
			r.Use(OptionalAuth(d.Verifier))
			r.Post("/views", d.Handler.TrackView)
		})
	})

	return r
}
