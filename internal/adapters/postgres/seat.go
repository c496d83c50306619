package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cinebook/seat-reservation/internal/domain"
)

func (r *Repository) GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error) {
	var seat domain.Seat
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, seat_number, status FROM seats WHERE id = $1
	`, id).Scan(&seat.ID, &seat.SessionID, &seat.SeatNumber, &seat.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func (r *Repository) ListSeatsBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Seat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, seat_number, status
		FROM seats WHERE session_id = $1 ORDER BY seat_number ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []domain.Seat{}
	for rows.Next() {
		var seat domain.Seat
		if err := rows.Scan(&seat.ID, &seat.SessionID, &seat.SeatNumber, &seat.Status); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (r *Repository) UpdateSeatStatus(ctx context.Context, id uuid.UUID, status domain.SeatStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE seats SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSeatSoldTx transitions a seat AVAILABLE -> SOLD inside the settlement
// transaction. Zero rows affected means the seat was sold by another path.
func (r *Repository) MarkSeatSoldTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE seats SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.SeatSold, domain.SeatAvailable)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ReleaseSeatTx sets a seat back to AVAILABLE inside the expiration
// transaction. SOLD is terminal for a seat: a sold seat is never reverted,
// even if a stray reservation on it expires.
func (r *Repository) ReleaseSeatTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE seats SET status = $2 WHERE id = $1 AND status <> $3
	`, id, domain.SeatAvailable, domain.SeatSold)
	return err
}
