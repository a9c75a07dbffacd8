package postgres

import (
	"context"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	q Querier
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// FindByID fetches a single user by ID.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT id, name, is_active, max_loans, max_reservations
		FROM users
		WHERE id = $1
	`
	var u model.User
	if err := r.q.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Name,
		&u.IsActive,
		&u.MaxLoans,
		&u.MaxReservations,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
