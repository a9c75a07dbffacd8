package postgres

import (
	"context"
	"database/sql"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// PenaltyPostgres is a PostgreSQL implementation of repository.PenaltyRepository.
type PenaltyPostgres struct {
	q Querier
}

var _ repository.PenaltyRepository = (*PenaltyPostgres)(nil)

const penaltyColumns = `id, user_id, loan_id, amount_cents, status, penalty_date`

// Create inserts a new penalty row and returns the stored record.
func (r *PenaltyPostgres) Create(ctx context.Context, p *model.Penalty) (*model.Penalty, error) {
	const q = `
		INSERT INTO penalties (id, user_id, loan_id, amount_cents, status, penalty_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + penaltyColumns + `
	`
	var loanID sql.NullString
	if p.LoanID != nil {
		loanID = sql.NullString{String: *p.LoanID, Valid: true}
	}
	row := r.q.QueryRowContext(ctx, q,
		p.ID,
		p.UserID,
		loanID,
		p.AmountCents,
		string(p.Status),
		p.PenaltyDate,
	)
	return scanPenalty(row)
}

// FindByID fetches a single penalty by its ID.
func (r *PenaltyPostgres) FindByID(ctx context.Context, id string) (*model.Penalty, error) {
	const q = `
		SELECT ` + penaltyColumns + `
		FROM penalties
		WHERE id = $1
	`
	return scanPenalty(r.q.QueryRowContext(ctx, q, id))
}

// CountUnpaidByLoan counts unpaid penalties attached to one loan.
func (r *PenaltyPostgres) CountUnpaidByLoan(ctx context.Context, loanID string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM penalties
		WHERE loan_id = $1 AND status = 'unpaid'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, loanID).Scan(&n)
	return n, err
}

// CountUnpaidByUser counts unpaid penalties across all of a user's loans.
func (r *PenaltyPostgres) CountUnpaidByUser(ctx context.Context, userID string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM penalties
		WHERE user_id = $1 AND status = 'unpaid'
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

// ListByUser returns the user's penalties, newest first.
func (r *PenaltyPostgres) ListByUser(ctx context.Context, userID string) ([]model.Penalty, error) {
	const q = `
		SELECT ` + penaltyColumns + `
		FROM penalties
		WHERE user_id = $1
		ORDER BY penalty_date DESC, id DESC
	`
	rows, err := r.q.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Penalty, 0)
	for rows.Next() {
		var p model.Penalty
		var loanID sql.NullString
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&loanID,
			&p.AmountCents,
			&p.Status,
			&p.PenaltyDate,
		); err != nil {
			return nil, err
		}
		if loanID.Valid {
			p.LoanID = &loanID.String
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkPaid settles an unpaid penalty.
func (r *PenaltyPostgres) MarkPaid(ctx context.Context, id string) error {
	const q = `
		UPDATE penalties
		SET status = 'paid'
		WHERE id = $1 AND status = 'unpaid'
	`
	res, err := r.q.ExecContext(ctx, q, id)
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

func scanPenalty(row *sql.Row) (*model.Penalty, error) {
	var p model.Penalty
	var loanID sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&loanID,
		&p.AmountCents,
		&p.Status,
		&p.PenaltyDate,
	); err != nil {
		return nil, err
	}
	if loanID.Valid {
		p.LoanID = &loanID.String
	}
	return &p, nil
}
