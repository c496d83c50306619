package watcher_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
	"github.com/cinebook/seat-reservation/internal/watcher"
)

type fakeStore struct {
	mu          sync.Mutex
	reservation domain.Reservation
	seatStatus  domain.SeatStatus
	expireErr   error
}

func (f *fakeStore) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reservation.ID != id {
		return nil, domain.ErrNotFound
	}
	res := f.reservation
	return &res, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) ExpireReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return f.expireErr
	}
	if f.reservation.ID != id || f.reservation.Status != domain.ReservationPending {
		return domain.ErrConflict
	}
	f.reservation.Status = domain.ReservationExpired
	return nil
}

// ReleaseSeatTx mirrors the repository's guard: SOLD is terminal and is
// never reverted.
func (f *fakeStore) ReleaseSeatTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seatStatus != domain.SeatSold {
		f.seatStatus = domain.SeatAvailable
	}
	return nil
}

func (f *fakeStore) status() domain.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservation.Status
}

type fakeBus struct {
	mu        sync.Mutex
	published []interface{}
}

func (f *fakeBus) Publish(ctx context.Context, queue string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func pendingStore(expiresAt time.Time) *fakeStore {
	return &fakeStore{
		reservation: domain.Reservation{
			ID:        uuid.New(),
			SeatID:    uuid.New(),
			UserID:    uuid.New(),
			Status:    domain.ReservationPending,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now().UTC(),
		},
		seatStatus: domain.SeatAvailable,
	}
}

func createdEvent(res domain.Reservation) events.ReservationCreated {
	return events.ReservationCreated{
		Event:         events.TypeReservationCreated,
		ReservationID: res.ID,
		SeatID:        res.SeatID,
		UserID:        res.UserID,
		ExpiresAt:     res.ExpiresAt,
	}
}

func TestExpireWhenDue_PastDeadline(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(-time.Minute))
	bus := &fakeBus{}
	w := watcher.NewWatcher(store, bus, observability.NewLogger())

	err := w.ExpireWhenDue(context.Background(), createdEvent(store.reservation))
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationExpired, store.status())
	assert.Equal(t, domain.SeatAvailable, store.seatStatus)
	require.Equal(t, 1, bus.count())
	ev, ok := bus.published[0].(events.ReservationExpired)
	require.True(t, ok)
	assert.Equal(t, events.TypeReservationExpired, ev.Event)
	assert.Equal(t, store.reservation.ID, ev.ReservationID)
}

func TestExpireWhenDue_WaitsForDeadline(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(80 * time.Millisecond))
	bus := &fakeBus{}
	w := watcher.NewWatcher(store, bus, observability.NewLogger())

	start := time.Now()
	err := w.ExpireWhenDue(context.Background(), createdEvent(store.reservation))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Equal(t, domain.ReservationExpired, store.status())
}

func TestExpireWhenDue_AlreadyConfirmed(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(-time.Second))
	store.reservation.Status = domain.ReservationConfirmed
	bus := &fakeBus{}
	w := watcher.NewWatcher(store, bus, observability.NewLogger())

	err := w.ExpireWhenDue(context.Background(), createdEvent(store.reservation))
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationConfirmed, store.status())
	assert.Zero(t, bus.count(), "no expiry event for a settled reservation")
}

func TestExpireWhenDue_ReservationMissing(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(-time.Second))
	bus := &fakeBus{}
	w := watcher.NewWatcher(store, bus, observability.NewLogger())

	ev := createdEvent(store.reservation)
	ev.ReservationID = uuid.New()
	err := w.ExpireWhenDue(context.Background(), ev)
	assert.NoError(t, err, "a missing reservation is not an error")
	assert.Zero(t, bus.count())
}

func TestExpireWhenDue_SettlementWinsBetweenReadAndUpdate(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(-time.Second))
	store.expireErr = domain.ErrConflict
	bus := &fakeBus{}
	w := watcher.NewWatcher(store, bus, observability.NewLogger())

	err := w.ExpireWhenDue(context.Background(), createdEvent(store.reservation))
	assert.NoError(t, err, "losing the race is a no-op, not a failure")
	assert.Zero(t, bus.count())
}

func TestExpireWhenDue_SoldSeatStaysSold(t *testing.T) {
	// A stray PENDING reservation on a sold seat must expire without
	// flipping the seat back to AVAILABLE; the sale is permanent.
	store := pendingStore(time.Now().UTC().Add(-time.Second))
	store.seatStatus = domain.SeatSold
	w := watcher.NewWatcher(store, &fakeBus{}, observability.NewLogger())

	err := w.ExpireWhenDue(context.Background(), createdEvent(store.reservation))
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationExpired, store.status())
	assert.Equal(t, domain.SeatSold, store.seatStatus)
}

func TestExpireWhenDue_CancelledDuringWait(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(time.Hour))
	w := watcher.NewWatcher(store, &fakeBus{}, observability.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.ExpireWhenDue(ctx, createdEvent(store.reservation))
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not observe cancellation")
	}
	assert.Equal(t, domain.ReservationPending, store.status())
}

func TestRun_DeliveriesDoNotBlockEachOther(t *testing.T) {
	// Two reservations, the first with the later deadline. If deliveries were
	// processed serially in arrival order, the second would miss its deadline
	// by the full length of the first wait.
	late := pendingStore(time.Now().UTC().Add(300 * time.Millisecond))
	soon := pendingStore(time.Now().UTC().Add(50 * time.Millisecond))

	stores := &multiStore{stores: []*fakeStore{late, soon}}
	bus := &fakeBus{}
	w := watcher.NewWatcher(stores, bus, observability.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- delivery(t, createdEvent(late.reservation))
	deliveries <- delivery(t, createdEvent(soon.reservation))
	go w.Run(ctx, deliveries)

	assert.Eventually(t, func() bool {
		return soon.status() == domain.ReservationExpired
	}, 200*time.Millisecond, 10*time.Millisecond,
		"short deadline must not queue behind the long one")
	assert.Equal(t, domain.ReservationPending, late.status())

	assert.Eventually(t, func() bool {
		return late.status() == domain.ReservationExpired
	}, time.Second, 10*time.Millisecond)
}

func TestRun_MalformedDeliveryIsRejected(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(-time.Second))
	w := watcher.NewWatcher(store, &fakeBus{}, observability.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ack := &fakeAck{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Body: []byte("{not json"), Acknowledger: ack, DeliveryTag: 1}
	deliveries <- delivery(t, createdEvent(store.reservation))
	go w.Run(ctx, deliveries)

	assert.Eventually(t, func() bool {
		return store.status() == domain.ReservationExpired
	}, time.Second, 10*time.Millisecond,
		"a malformed delivery must not stall the stream")
	assert.True(t, ack.wasNacked())
	assert.False(t, ack.lastRequeue(), "undecodable deliveries go to the dead-letter path")
}

func TestRun_ShutdownRequeuesInFlightWaits(t *testing.T) {
	store := pendingStore(time.Now().UTC().Add(time.Hour))
	w := watcher.NewWatcher(store, &fakeBus{}, observability.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ack := &fakeAck{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: mustBody(t, createdEvent(store.reservation)), Acknowledger: ack, DeliveryTag: 1}
	go w.Run(ctx, deliveries)

	// Let the handler reach its deadline wait, then shut down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool {
		return ack.wasNacked()
	}, time.Second, 10*time.Millisecond)
	assert.True(t, ack.lastRequeue(), "an interrupted wait goes back on the queue, not to the dead-letter path")
	assert.Equal(t, domain.ReservationPending, store.status())
}

// fakeAck records the acknowledgement decision for a delivery.
type fakeAck struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAck) wasNacked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nacked
}

func (f *fakeAck) lastRequeue() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requeue
}

// multiStore routes calls by reservation and seat id across several fakes.
type multiStore struct {
	stores []*fakeStore
}

func (m *multiStore) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	for _, s := range m.stores {
		if res, err := s.GetReservation(ctx, id); err == nil {
			return res, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *multiStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (m *multiStore) ExpireReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	for _, s := range m.stores {
		if s.reservation.ID == id {
			return s.ExpireReservationTx(ctx, tx, id)
		}
	}
	return domain.ErrConflict
}

func (m *multiStore) ReleaseSeatTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	for _, s := range m.stores {
		if s.reservation.SeatID == id {
			return s.ReleaseSeatTx(ctx, tx, id)
		}
	}
	return nil
}

func delivery(t *testing.T, ev events.ReservationCreated) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Body: mustBody(t, ev)}
}

func mustBody(t *testing.T, ev events.ReservationCreated) []byte {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body
}
