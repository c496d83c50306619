package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cinebook/seat-reservation/internal/domain"
)

// CreateSession inserts the session and its generated seats in one
// transaction, so a session is never observable without its seat map.
func (r *Repository) CreateSession(ctx context.Context, session domain.Session, seatNumbers []string) (*domain.Session, error) {
	created := session
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, movie, room, starts_at, ticket_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, session.ID, session.Movie, session.Room, session.StartsAt, session.TicketPrice, session.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert session")
		}

		rows := make([][]interface{}, 0, len(seatNumbers))
		for _, number := range seatNumbers {
			rows = append(rows, []interface{}{uuid.New(), session.ID, number, domain.SeatAvailable})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"seats"},
			[]string{"id", "session_id", "seat_number", "status"},
			pgx.CopyFromRows(rows),
		)
		return errors.Wrap(err, "insert seats")
	})
	if err != nil {
		return nil, err
	}

	seats, err := r.ListSeatsBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	created.Seats = seats
	return &created, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, movie, room, starts_at, ticket_price, created_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.Movie, &s.Room, &s.StartsAt, &s.TicketPrice, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	seats, err := r.ListSeatsBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Seats = seats
	return &s, nil
}

func (r *Repository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, movie, room, starts_at, ticket_price, created_at
		FROM sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Movie, &s.Room, &s.StartsAt, &s.TicketPrice, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
