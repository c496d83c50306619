package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebook_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_reservations_created_total",
			Help: "Reservations successfully created",
		},
	)

	LockConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_lock_conflicts_total",
			Help: "Reservation attempts refused because the seat lock was held",
		},
	)

	ReservationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_reservations_expired_total",
			Help: "Reservations expired by the watcher",
		},
	)

	ExpirationsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_expirations_skipped_total",
			Help: "Expiration checks that found a terminal reservation and no-oped",
		},
	)

	SalesConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_sales_confirmed_total",
			Help: "Reservations settled into sales",
		},
	)

	SettlementTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinebook_settlement_tx_seconds",
			Help:    "Duration of the settlement transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
