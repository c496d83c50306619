package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation is a time-boxed claim on a single seat. PENDING is the only
// non-terminal status; CONFIRMED and EXPIRED are terminal and mutually
// exclusive.
type Reservation struct {
	ID        uuid.UUID
	SeatID    uuid.UUID
	UserID    uuid.UUID
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewReservation(seatID, userID uuid.UUID, ttl time.Duration) Reservation {
	now := time.Now().UTC()
	return Reservation{
		ID:        uuid.New(),
		SeatID:    seatID,
		UserID:    userID,
		Status:    ReservationPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// ExpiredAt reports whether the reservation's deadline has passed at the
// given instant. Wall-clock expiry is authoritative regardless of whether
// the expiration watcher has run yet.
func (r Reservation) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
