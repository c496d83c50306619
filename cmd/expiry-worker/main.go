package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinebook/seat-reservation/internal/adapters/postgres"
	"github.com/cinebook/seat-reservation/internal/adapters/rabbit"
	"github.com/cinebook/seat-reservation/internal/config"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
	"github.com/cinebook/seat-reservation/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint, "seat-reservation-expiry-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	// Prefetch bounds how many deadline waits sit in flight at once; each
	// delivery gets its own goroutine so waits never queue behind one another.
	consumer, err := rabbit.NewConsumer(conn, events.QueueReservations, cfg.WatcherPrefetch)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume()
	if err != nil {
		log.Fatalf("failed to consume %s: %v", events.QueueReservations, err)
	}

	w := watcher.NewWatcher(repo, pub, logger)
	go w.Run(ctx, deliveries)
	logger.WithField("queue", events.QueueReservations).Info("expiry worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down expiry worker")
	cancel()
}
