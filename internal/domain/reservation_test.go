package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/cinebook/seat-reservation/internal/domain"
)

func TestNewReservation(t *testing.T) {
	seatID, userID := uuid.New(), uuid.New()
	res := domain.NewReservation(seatID, userID, 30*time.Second)

	assert.Equal(t, domain.ReservationPending, res.Status)
	assert.Equal(t, seatID, res.SeatID)
	assert.Equal(t, userID, res.UserID)
	assert.Equal(t, res.CreatedAt.Add(30*time.Second), res.ExpiresAt)
	assert.Equal(t, time.UTC, res.CreatedAt.Location())
}

func TestExpiredAt(t *testing.T) {
	res := domain.NewReservation(uuid.New(), uuid.New(), 30*time.Second)

	assert.False(t, res.ExpiredAt(res.CreatedAt))
	assert.False(t, res.ExpiredAt(res.ExpiresAt), "deadline itself is still valid")
	assert.True(t, res.ExpiredAt(res.ExpiresAt.Add(time.Nanosecond)))
}

func TestGenerateSeatNumbers(t *testing.T) {
	numbers := domain.GenerateSeatNumbers(17)

	assert.Len(t, numbers, 17)
	assert.Equal(t, "A1", numbers[0])
	assert.Equal(t, "A8", numbers[7])
	assert.Equal(t, "B1", numbers[8])
	assert.Equal(t, "C1", numbers[16])
}

func TestGenerateSeatNumbers_Empty(t *testing.T) {
	assert.Empty(t, domain.GenerateSeatNumbers(0))
}
