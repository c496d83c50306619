// Package rabbit is the event bus adapter. Queues are durable and each has a
// dead-letter exchange for messages rejected without requeue.
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinebook/seat-reservation/internal/events"
)

// declareQueue declares the durable queue together with its dead-letter
// destination, so a reject without requeue always lands somewhere inspectable.
func declareQueue(ch *amqp.Channel, queue string) error {
	dlx := queue + ".dlq"
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	dlq, err := ch.QueueDeclare(dlx, true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(dlq.Name, "", dlx, false, nil); err != nil {
		return err
	}
	_, err = ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlx,
	})
	return err
}

type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher opens a channel and declares the three domain queues so a
// publish never races queue creation.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	for _, queue := range []string{events.QueueReservations, events.QueuePayments, events.QueueExpirations} {
		if err := declareQueue(ch, queue); err != nil {
			return nil, err
		}
	}
	return &Publisher{ch: ch}, nil
}

// Publish marshals the payload and sends it to the named queue with
// persistent delivery mode.
func (p *Publisher) Publish(ctx context.Context, queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		MessageId:    uuid.New().String(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	return p.ch.PublishWithContext(ctx, "", queue, false, false, msg)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
