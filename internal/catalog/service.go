// Package catalog manages sessions and their seat maps. It is a collaborator
// of the reservation core, not part of it: seat status here is only read, the
// lock overlay is display-only.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type Store interface {
	CreateSession(ctx context.Context, session domain.Session, seatNumbers []string) (*domain.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	ListSeatsBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Seat, error)
}

// LockReader exposes the non-authoritative lock visibility check.
type LockReader interface {
	IsLocked(ctx context.Context, seatID uuid.UUID) (bool, error)
}

// SeatView is a seat with its live lock state for display.
type SeatView struct {
	domain.Seat
	IsLocked bool
}

type Service struct {
	store  Store
	locks  LockReader
	logger observability.Logger
}

func NewService(store Store, locks LockReader, logger observability.Logger) *Service {
	return &Service{store: store, locks: locks, logger: logger}
}

func (s *Service) CreateSession(ctx context.Context, movie, room string, startsAt time.Time, ticketPrice float64, totalSeats int) (*domain.Session, error) {
	if strings.TrimSpace(movie) == "" || strings.TrimSpace(room) == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "movie and room are required")
	}
	if ticketPrice < 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "ticket price must not be negative")
	}
	if totalSeats < 1 || totalSeats > domain.MaxSeatsPerSession {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "total seats must be between 1 and %d", domain.MaxSeatsPerSession)
	}

	session := domain.Session{
		ID:          uuid.New(),
		Movie:       movie,
		Room:        room,
		StartsAt:    startsAt,
		TicketPrice: ticketPrice,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.store.CreateSession(ctx, session, domain.GenerateSeatNumbers(totalSeats))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(observability.Fields{
		"session_id": created.ID,
		"movie":      created.Movie,
		"seats":      len(created.Seats),
	}).Info("session created")
	return created, nil
}

func (s *Service) FindAll(ctx context.Context) ([]domain.Session, error) {
	return s.store.ListSessions(ctx)
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.store.GetSession(ctx, id)
}

// ListSeats returns the session's seats overlaid with live lock state. Lock
// store errors degrade to unlocked rather than failing the listing: the
// overlay is never used for correctness decisions.
func (s *Service) ListSeats(ctx context.Context, sessionID uuid.UUID) ([]SeatView, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	seats, err := s.store.ListSeatsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]SeatView, len(seats))
	g, gctx := errgroup.WithContext(ctx)
	for i, seat := range seats {
		i, seat := i, seat
		g.Go(func() error {
			locked, err := s.locks.IsLocked(gctx, seat.ID)
			if err != nil {
				s.logger.WithError(err).WithField("seat_id", seat.ID).
					Debug("lock overlay unavailable")
				locked = false
			}
			views[i] = SeatView{Seat: seat, IsLocked: locked}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
