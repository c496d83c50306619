package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cinebook/seat-reservation/internal/domain"
)

func (r *Repository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (id, seat_id, user_id, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, res.ID, res.SeatID, res.UserID, res.Status, res.ExpiresAt, res.CreatedAt)
	return errors.Wrap(err, "insert reservation")
}

func (r *Repository) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.pool.QueryRow(ctx, `
		SELECT id, seat_id, user_id, status, expires_at, created_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.SeatID, &res.UserID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Repository) ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, seat_id, user_id, status, expires_at, created_at
		FROM reservations WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := []domain.Reservation{}
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.SeatID, &res.UserID, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// ConfirmReservationTx moves a reservation from PENDING to CONFIRMED. The
// guard on the current status makes the transition race-safe: zero rows
// affected means another writer reached a terminal state first.
func (r *Repository) ConfirmReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE reservations SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.ReservationConfirmed, domain.ReservationPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ExpireReservationTx moves a reservation from PENDING to EXPIRED under the
// same guard. Zero rows affected is reported as ErrConflict so the watcher
// can treat an already-terminal reservation as a no-op.
func (r *Repository) ExpireReservationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE reservations SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.ReservationExpired, domain.ReservationPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}
