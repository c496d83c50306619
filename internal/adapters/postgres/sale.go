package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cinebook/seat-reservation/internal/domain"
)

// InsertSaleTx writes the permanent sale record. It only ever runs inside
// the settlement transaction, together with the reservation and seat
// transitions.
func (r *Repository) InsertSaleTx(ctx context.Context, tx pgx.Tx, sale domain.Sale) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sales (id, reservation_id, seat_id, user_id, paid_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sale.ID, sale.ReservationID, sale.SeatID, sale.UserID, sale.PaidAt)
	return errors.Wrap(err, "insert sale")
}

func (r *Repository) ListSalesByUser(ctx context.Context, userID uuid.UUID) ([]domain.SaleDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sa.id, sa.reservation_id, sa.seat_id, sa.user_id, sa.paid_at,
		       se.seat_number, ss.movie, ss.room, ss.starts_at, ss.ticket_price
		FROM sales sa
		JOIN seats se ON se.id = sa.seat_id
		JOIN sessions ss ON ss.id = se.session_id
		WHERE sa.user_id = $1
		ORDER BY sa.paid_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []domain.SaleDetail{}
	for rows.Next() {
		var s domain.SaleDetail
		if err := rows.Scan(&s.ID, &s.ReservationID, &s.SeatID, &s.UserID, &s.PaidAt,
			&s.SeatNumber, &s.Movie, &s.Room, &s.StartsAt, &s.TicketPrice); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
