package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebook/seat-reservation/internal/domain"
	"github.com/cinebook/seat-reservation/internal/events"
	"github.com/cinebook/seat-reservation/internal/observability"
	"github.com/cinebook/seat-reservation/internal/settlement"
)

// fakeStore mimics the repository's transactional semantics: Tx methods
// write to a staged copy that only replaces the committed state when the
// transaction function returns nil.
type fakeStore struct {
	reservation domain.Reservation
	seat        domain.Seat
	sales       []domain.Sale

	staged struct {
		reservation domain.Reservation
		seat        domain.Seat
		sales       []domain.Sale
	}

	insertSaleErr error

	// staleRead, when set, is served once in place of the committed
	// reservation to simulate a read that raced a concurrent writer.
	staleRead *domain.Reservation
}

func (f *fakeStore) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	if f.staleRead != nil && f.staleRead.ID == id {
		res := *f.staleRead
		f.staleRead = nil
		return &res, nil
	}
	if f.reservation.ID != id {
		return nil, domain.ErrNotFound
	}
	res := f.reservation
	return &res, nil
}

func (f *fakeStore) GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error) {
	if f.seat.ID != id {
		return nil, domain.ErrNotFound
	}
	seat := f.seat
	return &seat, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.staged.reservation = f.reservation
	f.staged.seat = f.seat
	f.staged.sales = append([]domain.Sale(nil), f.sales...)
	if err := fn(nil); err != nil {
		return err
	}
	f.reservation = f.staged.reservation
	f.seat = f.staged.seat
	f.sales = f.staged.sales
	return nil
}

func (f *fakeStore) ConfirmReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if f.staged.reservation.ID != id || f.staged.reservation.Status != domain.ReservationPending {
		return domain.ErrConflict
	}
	f.staged.reservation.Status = domain.ReservationConfirmed
	return nil
}

func (f *fakeStore) MarkSeatSoldTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if f.staged.seat.ID != id || f.staged.seat.Status != domain.SeatAvailable {
		return domain.ErrConflict
	}
	f.staged.seat.Status = domain.SeatSold
	return nil
}

func (f *fakeStore) InsertSaleTx(ctx context.Context, tx pgx.Tx, sale domain.Sale) error {
	if f.insertSaleErr != nil {
		return f.insertSaleErr
	}
	f.staged.sales = append(f.staged.sales, sale)
	return nil
}

type fakeLocker struct {
	released []uuid.UUID
	err      error
}

func (f *fakeLocker) Release(ctx context.Context, seatID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.released = append(f.released, seatID)
	return nil
}

type fakeBus struct {
	published []struct {
		queue   string
		payload interface{}
	}
	err error
}

func (f *fakeBus) Publish(ctx context.Context, queue string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, struct {
		queue   string
		payload interface{}
	}{queue, payload})
	return nil
}

func pendingFixture() *fakeStore {
	seatID := uuid.New()
	return &fakeStore{
		reservation: domain.Reservation{
			ID:        uuid.New(),
			SeatID:    seatID,
			UserID:    uuid.New(),
			Status:    domain.ReservationPending,
			ExpiresAt: time.Now().UTC().Add(20 * time.Second),
			CreatedAt: time.Now().UTC(),
		},
		seat: domain.Seat{ID: seatID, SeatNumber: "A1", Status: domain.SeatAvailable},
	}
}

func TestConfirm(t *testing.T) {
	store := pendingFixture()
	lock := &fakeLocker{}
	bus := &fakeBus{}
	svc := settlement.NewService(store, lock, bus, observability.NewLogger())

	sale, err := svc.Confirm(context.Background(), store.reservation.ID)
	require.NoError(t, err)

	assert.Equal(t, store.reservation.ID, sale.ReservationID)
	assert.Equal(t, store.seat.ID, sale.SeatID)
	assert.Equal(t, domain.ReservationConfirmed, store.reservation.Status)
	assert.Equal(t, domain.SeatSold, store.seat.Status)
	require.Len(t, store.sales, 1)

	assert.Equal(t, []uuid.UUID{store.seat.ID}, lock.released)
	require.Len(t, bus.published, 1)
	assert.Equal(t, events.QueuePayments, bus.published[0].queue)
	ev, ok := bus.published[0].payload.(events.PaymentConfirmed)
	require.True(t, ok)
	assert.Equal(t, sale.ID, ev.SaleID)
}

func TestConfirm_NotFound(t *testing.T) {
	store := pendingFixture()
	svc := settlement.NewService(store, &fakeLocker{}, &fakeBus{}, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirm_AlreadyConfirmed(t *testing.T) {
	store := pendingFixture()
	store.reservation.Status = domain.ReservationConfirmed
	svc := settlement.NewService(store, &fakeLocker{}, &fakeBus{}, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), store.reservation.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConfirm_ExpiredByWallClock(t *testing.T) {
	store := pendingFixture()
	store.reservation.ExpiresAt = time.Now().UTC().Add(-time.Second)
	bus := &fakeBus{}
	svc := settlement.NewService(store, &fakeLocker{}, bus, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), store.reservation.ID)
	assert.ErrorIs(t, err, domain.ErrGone)
	assert.Equal(t, domain.ReservationPending, store.reservation.Status, "settlement never expires, only refuses")
	assert.Empty(t, store.sales)
	assert.Empty(t, bus.published)
}

func TestConfirm_SeatAlreadySold(t *testing.T) {
	store := pendingFixture()
	store.seat.Status = domain.SeatSold
	svc := settlement.NewService(store, &fakeLocker{}, &fakeBus{}, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), store.reservation.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConfirm_ExpiryWonTheRace(t *testing.T) {
	// The watcher flipped the reservation between our read and the update.
	store := pendingFixture()
	id := store.GetReservationRace(t)
	svc := settlement.NewService(store, &fakeLocker{}, &fakeBus{}, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.ReservationExpired, store.reservation.Status)
	assert.Empty(t, store.sales)
}

// GetReservationRace rigs the store so the first read still sees PENDING but
// the transaction finds the reservation already EXPIRED.
func (f *fakeStore) GetReservationRace(t *testing.T) uuid.UUID {
	t.Helper()
	f.reservation.Status = domain.ReservationExpired
	id := f.reservation.ID
	// Present a stale PENDING copy on the next read only.
	stale := f.reservation
	stale.Status = domain.ReservationPending
	f.staleRead = &stale
	return id
}

func TestConfirm_InsertFailureRollsBackEverything(t *testing.T) {
	store := pendingFixture()
	store.insertSaleErr = errors.New("disk full")
	bus := &fakeBus{}
	svc := settlement.NewService(store, &fakeLocker{}, bus, observability.NewLogger())

	_, err := svc.Confirm(context.Background(), store.reservation.ID)
	require.Error(t, err)
	assert.Equal(t, domain.ReservationPending, store.reservation.Status)
	assert.Equal(t, domain.SeatAvailable, store.seat.Status)
	assert.Empty(t, store.sales)
	assert.Empty(t, bus.published)
}

func TestConfirm_LockReleaseFailureDoesNotUnwind(t *testing.T) {
	store := pendingFixture()
	lock := &fakeLocker{err: errors.New("redis down")}
	svc := settlement.NewService(store, lock, &fakeBus{}, observability.NewLogger())

	sale, err := svc.Confirm(context.Background(), store.reservation.ID)
	require.NoError(t, err)
	assert.NotNil(t, sale)
	assert.Equal(t, domain.ReservationConfirmed, store.reservation.Status)
}
