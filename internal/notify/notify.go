package notify

import (
	"context"

	"circapi/internal/model"
)

// DocumentAvailable is the event published when a returned copy frees a
// document that has a waiting queue. One event per queued user.
type DocumentAvailable struct {
	UserID        string             `json:"user_id"`
	DocumentID    string             `json:"document_id"`
	DocumentKind  model.DocumentKind `json:"document_kind"`
	Title         string             `json:"title"`
	QueuePosition int                `json:"queue_position"`
}

// Dispatcher is the boundary to the external notification system. Calls are
// fire-and-forget: a dispatch failure must never roll back the circulation
// transaction that triggered it.
type Dispatcher interface {
	NotifyDocumentAvailable(ctx context.Context, ev DocumentAvailable) error
}
