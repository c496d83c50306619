// Package redis holds the seat lock store. The lock is advisory: it
// serializes concurrent claim attempts for a seat but is never the source of
// truth for seat status.
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SeatLock struct {
	client *redis.Client
}

func NewSeatLock(client *redis.Client) *SeatLock {
	return &SeatLock{client: client}
}

func (l *SeatLock) Client() *redis.Client {
	return l.client
}

func key(seatID uuid.UUID) string {
	return "seat:" + seatID.String()
}

// Acquire performs a single atomic SET NX EX. It returns true iff the caller
// now owns the key; there is no read-then-write window.
func (l *SeatLock) Acquire(ctx context.Context, seatID uuid.UUID, ttl time.Duration) (bool, error) {
	res := l.client.SetNX(ctx, key(seatID), "1", ttl)
	return res.Val(), res.Err()
}

// Release deletes the key. Releasing an unheld or already-expired key is not
// an error; the TTL guarantees the lock lapses on its own anyway.
func (l *SeatLock) Release(ctx context.Context, seatID uuid.UUID) error {
	return l.client.Del(ctx, key(seatID)).Err()
}

// IsLocked is a non-authoritative visibility check for read-side display.
// Correctness decisions must never depend on it.
func (l *SeatLock) IsLocked(ctx context.Context, seatID uuid.UUID) (bool, error) {
	n, err := l.client.Exists(ctx, key(seatID)).Result()
	return n == 1, err
}
