package repository

import (
	"context"
	"time"

	"circapi/internal/model"
)

// LoanRepository defines data access for loans using SQL queries only.
// No business logic here — strictly persistence operations.
type LoanRepository interface {
	// Create inserts a new loan row and returns the stored record.
	Create(ctx context.Context, loan *model.Loan) (*model.Loan, error)

	// FindByID returns a loan by its ID, sql.ErrNoRows when absent.
	FindByID(ctx context.Context, id string) (*model.Loan, error)

	// CountOpen returns the number of active or overdue loans for a document.
	CountOpen(ctx context.Context, documentID string, kind model.DocumentKind) (int, error)

	// CountOpenByUser returns the number of active or overdue loans held by a user.
	CountOpenByUser(ctx context.Context, userID string) (int, error)

	// HasOpen reports whether the user holds an active or overdue loan for the document.
	HasOpen(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error)

	// EarliestDueDate returns the MIN(due_date) across open loans for the
	// document, or nil when there are none.
	EarliestDueDate(ctx context.Context, documentID string, kind model.DocumentKind) (*time.Time, error)

	// MarkOverdue flips the document's active loans whose due date has passed
	// to overdue and returns the number of rows touched. Idempotent; scoped to
	// one document so a sweep under the document row lock never touches rows
	// another transaction may hold.
	MarkOverdue(ctx context.Context, documentID string, kind model.DocumentKind, asOf time.Time) (int64, error)

	// MarkOverdueByUser is the same sweep scoped to one user's loans, run
	// before listing them so the statuses read current.
	MarkOverdueByUser(ctx context.Context, userID string, asOf time.Time) (int64, error)

	// MarkReturned sets the terminal returned status and the return date.
	MarkReturned(ctx context.Context, id string, returnedAt time.Time) error

	// ListByUser returns the user's loans, newest first.
	ListByUser(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Loan], error)
}

// ReservationRepository defines data access for the per-document reservation queue.
type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) (*model.Reservation, error)

	FindByID(ctx context.Context, id string) (*model.Reservation, error)

	// ActiveQueue returns the active reservations for a document ordered by
	// priority_order ascending.
	ActiveQueue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error)

	// CountActive returns the number of active reservations for a document.
	CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error)

	// CountActiveByUser returns the number of active reservations held by a user.
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// HasActive reports whether the user holds an active reservation for the document.
	HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error)

	// MaxPriority returns the highest active priority_order for a document, 0 when empty.
	MaxPriority(ctx context.Context, documentID string, kind model.DocumentKind) (int, error)

	// Close sets a terminal status on a reservation.
	Close(ctx context.Context, id string, to model.ReservationStatus) error

	// ShiftQueueAfter decrements priority_order for every active reservation
	// of the document ordered behind the removed slot, keeping the queue
	// contiguous 1..N.
	ShiftQueueAfter(ctx context.Context, documentID string, kind model.DocumentKind, removedPriority int) error
}

// ConsultationRepository defines data access for reading-room holds.
type ConsultationRepository interface {
	Create(ctx context.Context, cons *model.Consultation) (*model.Consultation, error)

	FindByID(ctx context.Context, id string) (*model.Consultation, error)

	// CountActive returns the number of active consultations for a document.
	CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error)

	// HasActive reports whether the user holds an active consultation for the document.
	HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error)

	// Close sets a terminal status; endTime is recorded for completions and
	// left null for cancellations.
	Close(ctx context.Context, id string, to model.ConsultationStatus, endTime *time.Time) error
}

// PenaltyRepository defines data access for late-return penalties.
type PenaltyRepository interface {
	Create(ctx context.Context, p *model.Penalty) (*model.Penalty, error)

	FindByID(ctx context.Context, id string) (*model.Penalty, error)

	// CountUnpaidByLoan returns the number of unpaid penalties attached to one loan.
	CountUnpaidByLoan(ctx context.Context, loanID string) (int, error)

	// CountUnpaidByUser returns the number of unpaid penalties across all of a user's loans.
	CountUnpaidByUser(ctx context.Context, userID string) (int, error)

	// ListByUser returns the user's penalties, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Penalty, error)

	// MarkPaid settles a penalty.
	MarkPaid(ctx context.Context, id string) error
}
