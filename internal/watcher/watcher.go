// Package watcher expires stale reservations. It consumes
// reservation.created events, waits out each reservation's remaining
// time-to-live and reverts the seat if nothing settled it first.
package watcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type Store interface {
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	ExpireReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ReleaseSeatTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type Publisher interface {
	Publish(ctx context.Context, queue string, payload interface{}) error
}

type Watcher struct {
	store  Store
	bus    Publisher
	logger observability.Logger
}

func NewWatcher(store Store, bus Publisher, logger observability.Logger) *Watcher {
	return &Watcher{store: store, bus: bus, logger: logger}
}

// Run drains the delivery stream. Every delivery is handed to its own
// goroutine so that one reservation's pending wait never delays the deadline
// of another; the channel prefetch bounds how many waits are in flight.
func (w *Watcher) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			go w.handle(ctx, d)
		}
	}
}

// handle acks on success and rejects without requeue on failure, routing the
// message to the dead-letter path instead of retry-storming a broken
// dependency.
func (w *Watcher) handle(ctx context.Context, d amqp.Delivery) {
	var ev events.ReservationCreated
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		w.logger.WithError(err).Error("failed to decode reservation.created")
		_ = d.Nack(false, false)
		return
	}

	if err := w.ExpireWhenDue(ctx, ev); err != nil {
		// A wait cut short by shutdown is not a failure: requeue so another
		// worker picks the deadline up. The dead-letter path is for
		// deliveries that genuinely cannot be processed.
		if errors.Is(err, context.Canceled) {
			_ = d.Nack(false, true)
			return
		}
		w.logger.WithError(err).WithField("reservation_id", ev.ReservationID).
			Error("expiration check failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// ExpireWhenDue waits until the reservation's deadline, then re-reads it and
// expires it only if it is still PENDING. The deadline is wall-clock based:
// a message delivered late waits zero time.
func (w *Watcher) ExpireWhenDue(ctx context.Context, ev events.ReservationCreated) error {
	delay := time.Until(ev.ExpiresAt)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	res, err := w.store.GetReservation(ctx, ev.ReservationID)
	if errors.Is(err, domain.ErrNotFound) {
		// The record may have been deleted out of band; nothing to revert.
		w.logger.WithField("reservation_id", ev.ReservationID).
			Warn("reservation missing at expiry, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	if res.Status != domain.ReservationPending {
		observability.ExpirationsSkipped.Inc()
		w.logger.WithFields(observability.Fields{
			"reservation_id": res.ID,
			"status":         res.Status,
		}).Debug("reservation already settled, skipping expiry")
		return nil
	}

	err = w.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := w.store.ExpireReservationTx(ctx, tx, res.ID); err != nil {
			return err
		}
		return w.store.ReleaseSeatTx(ctx, tx, res.SeatID)
	})
	if errors.Is(err, domain.ErrConflict) {
		// Settlement won the race between our re-read and the update.
		observability.ExpirationsSkipped.Inc()
		return nil
	}
	if err != nil {
		return err
	}

	expired := events.ReservationExpired{
		Event:         events.TypeReservationExpired,
		ReservationID: res.ID,
		SeatID:        res.SeatID,
		UserID:        res.UserID,
	}
	if err := w.bus.Publish(ctx, events.QueueExpirations, expired); err != nil {
		w.logger.WithError(err).WithField("reservation_id", res.ID).
			Warn("failed to publish reservation.expired")
	}

	observability.ReservationsExpired.Inc()
	w.logger.WithFields(observability.Fields{
		"reservation_id": res.ID,
		"seat_id":        res.SeatID,
	}).Info("reservation expired")
	return nil
}
