package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN     string
	MongoURI        string
	RedisAddr       string
	RabbitURL       string
	HTTPAddr        string
	ReservationTTL  time.Duration
	WatcherPrefetch int
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, _ := time.ParseDuration(os.Getenv("RESERVATION_TTL"))
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	prefetch, _ := strconv.Atoi(os.Getenv("WATCHER_PREFETCH"))
	if prefetch <= 0 {
		prefetch = 100
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		PostgresDSN:     os.Getenv("PG_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		HTTPAddr:        addr,
		ReservationTTL:  ttl,
		WatcherPrefetch: prefetch,
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
