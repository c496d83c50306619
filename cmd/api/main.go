package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/cinebook/seat-reservation/internal/adapters/mongo"
	"github.com/cinebook/seat-reservation/internal/adapters/postgres"
	"github.com/cinebook/seat-reservation/internal/adapters/rabbit"
	redisadapter "github.com/cinebook/seat-reservation/internal/adapters/redis"
	"github.com/cinebook/seat-reservation/internal/catalog"
	"github.com/cinebook/seat-reservation/internal/config"
	"github.com/cinebook/seat-reservation/internal/events"
	httphandler "github.com/cinebook/seat-reservation/internal/http"
	"github.com/cinebook/seat-reservation/internal/observability"
	"github.com/cinebook/seat-reservation/internal/payments"
	"github.com/cinebook/seat-reservation/internal/ratelimit"
	"github.com/cinebook/seat-reservation/internal/reservation"
	"github.com/cinebook/seat-reservation/internal/sale"
	"github.com/cinebook/seat-reservation/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint, "seat-reservation-api")
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

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	seatLock := redisadapter.NewSeatLock(redisClient)
	rl := ratelimit.NewRateLimiter(redisClient)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	pub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The audit trail is optional wiring; without Mongo the API runs fine and
	// the sale rows remain the source of truth.
	var auditor reservation.Auditor
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		audit := mongoadapter.NewAuditLogger(mongoClient.Database("cinebook"), logger)
		auditor = audit

		auditConsumer := payments.NewConsumer(audit, logger)
		startConsumer(ctx, rabbitConn, events.QueuePayments, logger, auditConsumer.RunPayments)
		startConsumer(ctx, rabbitConn, events.QueueExpirations, logger, auditConsumer.RunExpirations)
	}

	reservations := reservation.NewService(repo, repo, seatLock, pub, auditor, cfg.ReservationTTL, logger)
	settlements := settlement.NewService(repo, seatLock, pub, logger)
	sessions := catalog.NewService(repo, seatLock, logger)
	sales := sale.NewService(repo, logger)

	handlers := httphandler.NewHandlers(reservations, settlements, sessions, sales, func(ctx context.Context) error {
		if err := repo.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	router := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down api")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	logger.Info("api exiting")
}

func startConsumer(ctx context.Context, conn *amqp.Connection, queue string, logger observability.Logger, run func(context.Context, <-chan amqp.Delivery)) {
	consumer, err := rabbit.NewConsumer(conn, queue, 10)
	if err != nil {
		log.Fatalf("failed to create %s consumer: %v", queue, err)
	}
	deliveries, err := consumer.Consume()
	if err != nil {
		log.Fatalf("failed to consume %s: %v", queue, err)
	}
	go func() {
		defer consumer.Close()
		run(ctx, deliveries)
	}()
	logger.WithField("queue", queue).Info("consumer started")
}
