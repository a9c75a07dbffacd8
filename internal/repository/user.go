package repository

import (
	"context"

	"circapi/internal/model"
)

// UserRepository is the read-only account lookup consumed by the engine.
// Account management belongs to another system; this engine never writes users.
type UserRepository interface {
	// FindByID returns a user by ID, sql.ErrNoRows when absent.
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// DocumentRepository reads catalog records. The engine writes nothing to
// documents except the legacy available_copies cache, which is derived and
// never authoritative.
type DocumentRepository interface {
	// FindByID returns a document by its (id, kind) composite key.
	FindByID(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error)

	// FindForUpdate locks the document row for the current transaction,
	// serializing concurrent circulation mutations against the same document.
	FindForUpdate(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error)

	// RefreshAvailableCache writes the live-computed availability into the
	// denormalized available_copies column.
	RefreshAvailableCache(ctx context.Context, id string, kind model.DocumentKind, available int) error
}
