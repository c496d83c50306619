package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID          uuid.UUID
	Movie       string
	Room        string
	StartsAt    time.Time
	TicketPrice float64
	CreatedAt   time.Time
	Seats       []Seat
}

const seatsPerRow = 8

var seatRows = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxSeatsPerSession bounds seat generation to the available row letters.
const MaxSeatsPerSession = seatsPerRow * 26

// GenerateSeatNumbers lays out total seats in rows of eight: A1..A8, B1..B8
// and so on.
func GenerateSeatNumbers(total int) []string {
	numbers := make([]string, 0, total)
	for i := 0; i < total; i++ {
		row := seatRows[i/seatsPerRow]
		numbers = append(numbers, fmt.Sprintf("%c%d", row, i%seatsPerRow+1))
	}
	return numbers
}
