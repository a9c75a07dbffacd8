package postgres

import (
	"context"
	"database/sql"
	"time"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// LoanPostgres is a PostgreSQL implementation of repository.LoanRepository.
type LoanPostgres struct {
	q Querier
}

var _ repository.LoanRepository = (*LoanPostgres)(nil)

const loanColumns = `id, user_id, document_id, document_kind, loan_date, due_date, return_date, status`

// Create inserts a new loan row and returns the stored record.
func (r *LoanPostgres) Create(ctx context.Context, loan *model.Loan) (*model.Loan, error) {
	const q = `
		INSERT INTO loans (id, user_id, document_id, document_kind, loan_date, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + loanColumns + `
	`
	row := r.q.QueryRowContext(ctx, q,
		loan.ID,
		loan.UserID,
		loan.DocumentID,
		string(loan.DocumentKind),
		loan.LoanDate,
		loan.DueDate,
		string(loan.Status),
	)
	return scanLoan(row)
}

// FindByID fetches a single loan by its ID.
func (r *LoanPostgres) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	const q = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1
	`
	return scanLoan(r.q.QueryRowContext(ctx, q, id))
}

// CountOpen counts active and overdue loans for a document. Overdue loans
// still hold a copy, so both statuses feed the availability computation.
func (r *LoanPostgres) CountOpen(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM loans
		WHERE document_id = $1 AND document_kind = $2 AND status IN ('active','overdue')
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, documentID, string(kind)).Scan(&n)
	return n, err
}

// CountOpenByUser counts active and overdue loans held by a user.
func (r *LoanPostgres) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM loans
		WHERE user_id = $1 AND status IN ('active','overdue')
	`
	var n int
	err := r.q.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

// HasOpen reports whether the user already holds an open loan for the document.
func (r *LoanPostgres) HasOpen(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE user_id = $1 AND document_id = $2 AND document_kind = $3
			  AND status IN ('active','overdue')
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, q, userID, documentID, string(kind)).Scan(&exists)
	return exists, err
}

// EarliestDueDate returns the soonest due date across open loans for the
// document, or nil when no loan is open.
func (r *LoanPostgres) EarliestDueDate(ctx context.Context, documentID string, kind model.DocumentKind) (*time.Time, error) {
	const q = `
		SELECT MIN(due_date)
		FROM loans
		WHERE document_id = $1 AND document_kind = $2 AND status IN ('active','overdue')
	`
	var due sql.NullTime
	if err := r.q.QueryRowContext(ctx, q, documentID, string(kind)).Scan(&due); err != nil {
		return nil, err
	}
	if !due.Valid {
		return nil, nil
	}
	return &due.Time, nil
}

// MarkOverdue flips the document's past-due active loans to overdue. Idempotent.
func (r *LoanPostgres) MarkOverdue(ctx context.Context, documentID string, kind model.DocumentKind, asOf time.Time) (int64, error) {
	const q = `
		UPDATE loans
		SET status = 'overdue'
		WHERE document_id = $1 AND document_kind = $2 AND status = 'active' AND due_date < $3
	`
	res, err := r.q.ExecContext(ctx, q, documentID, string(kind), asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkOverdueByUser flips the user's past-due active loans to overdue. Idempotent.
func (r *LoanPostgres) MarkOverdueByUser(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	const q = `
		UPDATE loans
		SET status = 'overdue'
		WHERE user_id = $1 AND status = 'active' AND due_date < $2
	`
	res, err := r.q.ExecContext(ctx, q, userID, asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkReturned sets the terminal returned status and records the return date.
func (r *LoanPostgres) MarkReturned(ctx context.Context, id string, returnedAt time.Time) error {
	const q = `
		UPDATE loans
		SET status = 'returned', return_date = $2
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, q, id, returnedAt)
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

// ListByUser returns the user's loans using LIMIT/OFFSET pagination, newest first.
func (r *LoanPostgres) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error) {
	const qCount = `SELECT COUNT(*) FROM loans WHERE user_id = $1`
	var total int
	if err := r.q.QueryRowContext(ctx, qCount, userID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1
		ORDER BY loan_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.QueryContext(ctx, qList, userID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Loan, 0)
	for rows.Next() {
		loan, err := scanLoanRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Loan]{Items: items, Total: total, Limit: pq.Limit, Offset: pq.Offset}, nil
}

func scanLoan(row *sql.Row) (*model.Loan, error) {
	var l model.Loan
	var ret sql.NullTime
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.DocumentID,
		&l.DocumentKind,
		&l.LoanDate,
		&l.DueDate,
		&ret,
		&l.Status,
	); err != nil {
		return nil, err
	}
	if ret.Valid {
		l.ReturnDate = &ret.Time
	}
	return &l, nil
}

func scanLoanRows(rows *sql.Rows) (*model.Loan, error) {
	var l model.Loan
	var ret sql.NullTime
	if err := rows.Scan(
		&l.ID,
		&l.UserID,
		&l.DocumentID,
		&l.DocumentKind,
		&l.LoanDate,
		&l.DueDate,
		&ret,
		&l.Status,
	); err != nil {
		return nil, err
	}
	if ret.Valid {
		l.ReturnDate = &ret.Time
	}
	return &l, nil
}
