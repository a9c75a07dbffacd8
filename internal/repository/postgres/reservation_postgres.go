package postgres

import (
	"context"
	"database/sql"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// ReservationPostgres is a PostgreSQL implementation of repository.ReservationRepository.
type ReservationPostgres struct {
	q Querier
}

var _ repository.ReservationRepository = (*ReservationPostgres)(nil)

const reservationColumns = `id, user_id, document_id, document_kind, priority_order, status, expiry_date, created_at`

// Create inserts a new reservation row and returns the stored record.
func (r *ReservationPostgres) Create(ctx context.Context, res *model.Reservation) (*model.Reservation, error) {
	const q = `
		INSERT INTO reservations (id, user_id, document_id, document_kind, priority_order, status, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + reservationColumns + `
	`
	row := r.q.QueryRowContext(ctx, q,
		res.ID,
		res.UserID,
		res.DocumentID,
		string(res.DocumentKind),
		res.PriorityOrder,
		string(res.Status),
		res.ExpiryDate,
		res.CreatedAt,
	)
	return scanReservation(row)
}

// FindByID fetches a single reservation by its ID.
func (r *ReservationPostgres) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1
	`
	return scanReservation(r.q.QueryRowContext(ctx, q, id))
}

// ActiveQueue returns the document's active reservations ordered by priority.
func (r *ReservationPostgres) ActiveQueue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error) {
	const q = `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active'
		ORDER BY priority_order ASC
	`
	rows, err := r.q.QueryContext(ctx, q, documentID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queue := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.UserID,
			&res.DocumentID,
			&res.DocumentKind,
			&res.PriorityOrder,
			&res.Status,
			&res.ExpiryDate,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		queue = append(queue, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return queue, nil
}

// CountActive counts active reservations for a document.
func (r *ReservationPostgres) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM reservations
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, documentID, string(kind)).Scan(&n)
	return n, err
}

// CountActiveByUser counts active reservations held by a user.
func (r *ReservationPostgres) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM reservations
		WHERE user_id = $1 AND status = 'active'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

// HasActive reports whether the user already holds an active reservation for the document.
func (r *ReservationPostgres) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND document_id = $2 AND document_kind = $3 AND status = 'active'
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, q, userID, documentID, string(kind)).Scan(&exists)
	return exists, err
}

// MaxPriority returns the highest active priority_order for a document, 0 when the queue is empty.
func (r *ReservationPostgres) MaxPriority(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	const q = `
		SELECT COALESCE(MAX(priority_order), 0)
		FROM reservations
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, documentID, string(kind)).Scan(&n)
	return n, err
}

// Close sets a terminal status on a reservation.
func (r *ReservationPostgres) Close(ctx context.Context, id string, to model.ReservationStatus) error {
	const q = `
		UPDATE reservations
		SET status = $2
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, q, id, string(to))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ShiftQueueAfter closes the gap left by a removed reservation, keeping the
// active queue contiguous 1..N. The decrement runs in two passes: the partial
// unique index on (document, kind, priority_order) is checked per row in heap
// order, so a single `priority_order - 1` update can collide with a trailing
// neighbor that has not shifted yet. Parking the affected rows on negative
// priorities first makes both passes collision-free; the caller's document
// row lock keeps other writers out in between.
func (r *ReservationPostgres) ShiftQueueAfter(ctx context.Context, documentID string, kind model.DocumentKind, removedPriority int) error {
	const park = `
		UPDATE reservations
		SET priority_order = -priority_order
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active' AND priority_order > $3
	`
	const settle = `
		UPDATE reservations
		SET priority_order = -priority_order - 1
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active' AND priority_order < 0
	`
	if _, err := r.q.ExecContext(ctx, park, documentID, string(kind), removedPriority); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, settle, documentID, string(kind))
	return err
}

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	var res model.Reservation
	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.DocumentID,
		&res.DocumentKind,
		&res.PriorityOrder,
		&res.Status,
		&res.ExpiryDate,
		&res.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &res, nil
}
