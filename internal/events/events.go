// Package events defines the durable queues and message payloads exchanged
// over the broker. Payloads carry enough state for downstream consumers to
// act without querying the primary database.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Queue names. Each queue is durable and has a matching dead-letter
// destination (<queue>.dlq) for messages rejected without requeue.
const (
	QueueReservations = "reservations"
	QueuePayments     = "payments"
	QueueExpirations  = "expirations"
)

// Event type discriminators carried in each payload.
const (
	TypeReservationCreated = "reservation.created"
	TypeReservationExpired = "reservation.expired"
	TypePaymentConfirmed   = "payment.confirmed"
)

type ReservationCreated struct {
	Event         string    `json:"event"`
	ReservationID uuid.UUID `json:"reservationId"`
	SeatID        uuid.UUID `json:"seatId"`
	UserID        uuid.UUID `json:"userId"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

type ReservationExpired struct {
	Event         string    `json:"event"`
	ReservationID uuid.UUID `json:"reservationId"`
	SeatID        uuid.UUID `json:"seatId"`
	UserID        uuid.UUID `json:"userId"`
}

type PaymentConfirmed struct {
	Event         string    `json:"event"`
	SaleID        uuid.UUID `json:"saleId"`
	SeatID        uuid.UUID `json:"seatId"`
	UserID        uuid.UUID `json:"userId"`
	ReservationID uuid.UUID `json:"reservationId"`
}
