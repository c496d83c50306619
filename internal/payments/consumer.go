// Package payments consumes settled-sale and expiration events for the audit
// trail and operational logging. Downstream fan-out (receipts, notifications,
// dashboards) hangs off this consumer; the sale row in the database remains
// the source of truth either way.
package payments

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type Auditor interface {
	LogPaymentConfirmed(ctx context.Context, ev events.PaymentConfirmed) error
	LogReservationExpired(ctx context.Context, ev events.ReservationExpired) error
}

type Consumer struct {
	audit  Auditor
	logger observability.Logger
}

func NewConsumer(audit Auditor, logger observability.Logger) *Consumer {
	return &Consumer{audit: audit, logger: logger}
}

// RunPayments processes payment.confirmed deliveries, acking on success and
// rejecting to the dead-letter path on failure.
func (c *Consumer) RunPayments(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.ackOrReject(d, c.handlePayment(ctx, d.Body))
		}
	}
}

// RunExpirations processes reservation.expired deliveries.
func (c *Consumer) RunExpirations(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.ackOrReject(d, c.handleExpiration(ctx, d.Body))
		}
	}
}

func (c *Consumer) ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		c.logger.WithError(err).Error("failed to process message")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handlePayment(ctx context.Context, body []byte) error {
	var ev events.PaymentConfirmed
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	c.logger.WithFields(observability.Fields{
		"sale_id":        ev.SaleID,
		"reservation_id": ev.ReservationID,
		"seat_id":        ev.SeatID,
		"user_id":        ev.UserID,
	}).Info("sale confirmed")
	return c.audit.LogPaymentConfirmed(ctx, ev)
}

func (c *Consumer) handleExpiration(ctx context.Context, body []byte) error {
	var ev events.ReservationExpired
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	c.logger.WithFields(observability.Fields{
		"reservation_id": ev.ReservationID,
		"seat_id":        ev.SeatID,
	}).Info("reservation expiry recorded")
	return c.audit.LogReservationExpired(ctx, ev)
}
