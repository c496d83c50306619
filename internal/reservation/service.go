// Package reservation owns the reservation lifecycle: taking the seat lock,
// persisting the PENDING claim and announcing it on the bus.
package reservation

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type SeatStore interface {
	GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error)
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error)
}

// Locker is the external mutual-exclusion capability. Acquire must be a
// single atomic test-and-set with expiry; it is the only mechanism that is
// safe across horizontally scaled instances.
type Locker interface {
	Acquire(ctx context.Context, seatID uuid.UUID, ttl time.Duration) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, queue string, payload interface{}) error
}

// Auditor records the creation on the audit trail. Best effort.
type Auditor interface {
	LogReservationCreated(ctx context.Context, res domain.Reservation) error
}

type Service struct {
	seats        SeatStore
	reservations ReservationStore
	lock         Locker
	bus          Publisher
	audit        Auditor
	ttl          time.Duration
	logger       observability.Logger
}

func NewService(seats SeatStore, reservations ReservationStore, lock Locker, bus Publisher, audit Auditor, ttl time.Duration, logger observability.Logger) *Service {
	return &Service{
		seats:        seats,
		reservations: reservations,
		lock:         lock,
		bus:          bus,
		audit:        audit,
		ttl:          ttl,
		logger:       logger,
	}
}

// Create claims a seat for a user. The seat lock decides the winner among
// concurrent claimants; on refusal nothing is persisted and nothing is
// emitted. The lock TTL equals the reservation TTL so the lock self-releases
// even if explicit release later fails.
func (s *Service) Create(ctx context.Context, seatID, userID uuid.UUID) (*domain.Reservation, error) {
	seat, err := s.seats.GetSeat(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if seat.Status == domain.SeatSold {
		return nil, errors.Wrap(domain.ErrConflict, "seat already sold")
	}

	acquired, err := s.lock.Acquire(ctx, seatID, s.ttl)
	if err != nil {
		return nil, errors.Wrap(err, "acquire seat lock")
	}
	if !acquired {
		observability.LockConflicts.Inc()
		return nil, errors.Wrap(domain.ErrConflict, "seat currently claimed")
	}

	res := domain.NewReservation(seatID, userID, s.ttl)
	if err := s.reservations.CreateReservation(ctx, res); err != nil {
		// The lock is left to lapse on its own TTL; no reservation
		// references the seat so nothing can settle meanwhile.
		return nil, err
	}

	ev := events.ReservationCreated{
		Event:         events.TypeReservationCreated,
		ReservationID: res.ID,
		SeatID:        res.SeatID,
		UserID:        res.UserID,
		ExpiresAt:     res.ExpiresAt,
	}
	if err := s.bus.Publish(ctx, events.QueueReservations, ev); err != nil {
		// The reservation row is authoritative; a missed event only means
		// the watcher never fires and wall-clock expiry takes over.
		s.logger.WithError(err).WithField("reservation_id", res.ID).
			Warn("failed to publish reservation.created")
	}

	if s.audit != nil {
		if err := s.audit.LogReservationCreated(ctx, res); err != nil {
			s.logger.WithError(err).WithField("reservation_id", res.ID).
				Warn("failed to write reservation audit record")
		}
	}

	observability.ReservationsCreated.Inc()
	s.logger.WithFields(observability.Fields{
		"reservation_id": res.ID,
		"seat_id":        res.SeatID,
		"user_id":        res.UserID,
		"expires_at":     res.ExpiresAt,
	}).Info("reservation created")

	return &res, nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return s.reservations.GetReservation(ctx, id)
}

// FindByUserID returns the user's reservations, newest first. A user with no
// reservations yields an empty slice, never an error.
func (s *Service) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	return s.reservations.ListReservationsByUser(ctx, userID)
}
