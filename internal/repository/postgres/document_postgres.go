package postgres

import (
	"context"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses parameterized queries and contains no business logic.
type DocumentPostgres struct {
	q Querier
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, kind, title, author, total_copies, available_copies`

// FindByID fetches a document by its (id, kind) composite key.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND kind = $2
	`
	return r.scanOne(r.q.QueryRowContext(ctx, q, id, string(kind)))
}

// FindForUpdate locks the document row for the lifetime of the surrounding
// transaction. Two concurrent mutations for the same document queue behind
// this lock, so the second one re-reads counts that include the first's writes.
func (r *DocumentPostgres) FindForUpdate(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND kind = $2
		FOR UPDATE
	`
	return r.scanOne(r.q.QueryRowContext(ctx, q, id, string(kind)))
}

// RefreshAvailableCache overwrites the denormalized available_copies column
// with the live-computed value. The column is a display cache only.
func (r *DocumentPostgres) RefreshAvailableCache(ctx context.Context, id string, kind model.DocumentKind, available int) error {
	const q = `
		UPDATE documents
		SET available_copies = $3
		WHERE id = $1 AND kind = $2
	`
	_, err := r.q.ExecContext(ctx, q, id, string(kind), available)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DocumentPostgres) scanOne(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Kind,
		&d.Title,
		&d.Author,
		&d.TotalCopies,
		&d.AvailableCopies,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
