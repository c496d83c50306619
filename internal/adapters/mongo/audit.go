// Package mongo keeps an append-only audit trail of reservation and payment
// events. The trail is for reconciliation and support, never for correctness
// decisions.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogReservationCreated(ctx context.Context, res domain.Reservation) error {
	data := map[string]interface{}{
		"reservation_id": res.ID,
		"seat_id":        res.SeatID,
		"expires_at":     res.ExpiresAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, events.TypeReservationCreated, res.UserID, data)
}

func (a *AuditLogger) LogReservationExpired(ctx context.Context, ev events.ReservationExpired) error {
	data := map[string]interface{}{
		"reservation_id": ev.ReservationID,
		"seat_id":        ev.SeatID,
	}
	return a.LogEvent(ctx, events.TypeReservationExpired, ev.UserID, data)
}

func (a *AuditLogger) LogPaymentConfirmed(ctx context.Context, ev events.PaymentConfirmed) error {
	data := map[string]interface{}{
		"sale_id":        ev.SaleID,
		"reservation_id": ev.ReservationID,
		"seat_id":        ev.SeatID,
	}
	return a.LogEvent(ctx, events.TypePaymentConfirmed, ev.UserID, data)
}
