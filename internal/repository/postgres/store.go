package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"circapi/internal/repository"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repository code serves both pooled and transaction-bound access.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB // nil when bound to a transaction
	q  Querier
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a Store backed by the connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() repository.UserRepository                 { return &UserPostgres{q: s.q} }
func (s *Store) Documents() repository.DocumentRepository         { return &DocumentPostgres{q: s.q} }
func (s *Store) Loans() repository.LoanRepository                 { return &LoanPostgres{q: s.q} }
func (s *Store) Reservations() repository.ReservationRepository   { return &ReservationPostgres{q: s.q} }
func (s *Store) Consultations() repository.ConsultationRepository { return &ConsultationPostgres{q: s.q} }
func (s *Store) Penalties() repository.PenaltyRepository          { return &PenaltyPostgres{q: s.q} }

// InTx runs fn against a transaction-bound Store. Read-committed isolation is
// sufficient: callers lock the document row with FindForUpdate before
// re-validating counts, which serializes mutations per document.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.db == nil {
		// Already inside a transaction; reuse it.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
