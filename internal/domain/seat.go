package domain

import "github.com/google/uuid"

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatSold      SeatStatus = "SOLD"
)

type Seat struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	SeatNumber string
	Status     SeatStatus
}
