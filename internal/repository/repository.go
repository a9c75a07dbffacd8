package repository

import "context"

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

// Store aggregates the per-table repositories and the transaction boundary.
// Every mutating engine operation runs inside InTx so that preconditions are
// re-validated against live counts in the same transaction that mutates.
type Store interface {
	Users() UserRepository
	Documents() DocumentRepository
	Loans() LoanRepository
	Reservations() ReservationRepository
	Consultations() ConsultationRepository
	Penalties() PenaltyRepository

	// InTx runs fn against transaction-bound repositories. The transaction
	// commits when fn returns nil and rolls back otherwise. A Store that is
	// already transaction-bound reuses its transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
