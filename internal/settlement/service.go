// Package settlement converts a still-valid reservation into a permanent
// sale. The three mutations (reservation CONFIRMED, seat SOLD, sale row)
// commit atomically or not at all.
package settlement

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type Store interface {
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error)
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	ConfirmReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	MarkSeatSoldTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	InsertSaleTx(ctx context.Context, tx pgx.Tx, sale domain.Sale) error
}

type Locker interface {
	Release(ctx context.Context, seatID uuid.UUID) error
}

type Publisher interface {
	Publish(ctx context.Context, queue string, payload interface{}) error
}

type Service struct {
	store  Store
	lock   Locker
	bus    Publisher
	logger observability.Logger
}

func NewService(store Store, lock Locker, bus Publisher, logger observability.Logger) *Service {
	return &Service{store: store, lock: lock, bus: bus, logger: logger}
}

// Confirm settles a reservation. Wall-clock expiry is authoritative: a
// reservation past its deadline is Gone even if the watcher has not run yet.
func (s *Service) Confirm(ctx context.Context, reservationID uuid.UUID) (*domain.Sale, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.ReservationConfirmed {
		return nil, errors.Wrap(domain.ErrConflict, "reservation already confirmed")
	}
	if res.ExpiredAt(time.Now().UTC()) {
		s.logger.WithField("reservation_id", reservationID).
			Warn("confirm attempted on expired reservation")
		return nil, errors.Wrap(domain.ErrGone, "reservation expired")
	}

	// Defense in depth: another path may have sold the seat.
	seat, err := s.store.GetSeat(ctx, res.SeatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrap(domain.ErrConflict, "seat already sold")
		}
		return nil, err
	}
	if seat.Status == domain.SeatSold {
		return nil, errors.Wrap(domain.ErrConflict, "seat already sold")
	}

	sale := domain.Sale{
		ID:            uuid.New(),
		ReservationID: res.ID,
		SeatID:        res.SeatID,
		UserID:        res.UserID,
		PaidAt:        time.Now().UTC(),
	}

	timer := prometheus.NewTimer(observability.SettlementTxDuration)
	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.ConfirmReservationTx(ctx, tx, res.ID); err != nil {
			return err
		}
		if err := s.store.MarkSeatSoldTx(ctx, tx, res.SeatID); err != nil {
			return err
		}
		return s.store.InsertSaleTx(ctx, tx, sale)
	})
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	// Past this point the sale is committed and authoritative. Lock release
	// and event emission are best effort and never unwind the transaction.
	if err := s.lock.Release(ctx, res.SeatID); err != nil {
		s.logger.WithError(err).WithField("seat_id", res.SeatID).
			Warn("failed to release seat lock, it will lapse on its TTL")
	}

	ev := events.PaymentConfirmed{
		Event:         events.TypePaymentConfirmed,
		SaleID:        sale.ID,
		SeatID:        sale.SeatID,
		UserID:        sale.UserID,
		ReservationID: sale.ReservationID,
	}
	if err := s.bus.Publish(ctx, events.QueuePayments, ev); err != nil {
		s.logger.WithError(err).WithField("sale_id", sale.ID).
			Warn("failed to publish payment.confirmed, sale row remains source of truth")
	}

	observability.SalesConfirmed.Inc()
	s.logger.WithFields(observability.Fields{
		"sale_id":        sale.ID,
		"reservation_id": sale.ReservationID,
		"seat_id":        sale.SeatID,
		"user_id":        sale.UserID,
	}).Info("payment confirmed")

	return &sale, nil
}
