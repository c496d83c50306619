package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinebook/seat-reservation/internal/observability"
	"github.com/cinebook/seat-reservation/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if rl != nil {
				r.Use(RateLimitMiddleware(rl, 30, time.Minute))
			}
			r.Post("/reservations", h.CreateReservation)
		})
		r.Get("/reservations/{id}", h.GetReservation)
		r.Get("/reservations/user/{userId}", h.ListUserReservations)

		r.Post("/payments/confirm/{reservationId}", h.ConfirmPayment)

		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/sessions/{id}/seats", h.ListSessionSeats)

		r.Get("/sales/user/{userId}", h.ListUserSales)

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
