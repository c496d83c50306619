package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sale is the permanent record of a settled reservation. It is created
// exactly once, inside the settlement transaction, and never mutated.
type Sale struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	SeatID        uuid.UUID
	UserID        uuid.UUID
	PaidAt        time.Time
}

// SaleDetail is a sale joined with its seat and session for history listings.
type SaleDetail struct {
	Sale
	SeatNumber  string
	Movie       string
	Room        string
	StartsAt    time.Time
	TicketPrice float64
}
