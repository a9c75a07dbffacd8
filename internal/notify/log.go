package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// LogDispatcher writes availability events to stdout as JSON lines. Used when
// no broker is configured.
type LogDispatcher struct{}

var _ Dispatcher = (*LogDispatcher)(nil)

func (LogDispatcher) NotifyDocumentAvailable(_ context.Context, ev DocumentAvailable) error {
	entry := map[string]any{
		"ts":             time.Now().UTC().Format(time.RFC3339Nano),
		"level":          "info",
		"component":      "notify",
		"event":          RKDocumentAvailable,
		"user_id":        ev.UserID,
		"document_id":    ev.DocumentID,
		"document_kind":  ev.DocumentKind,
		"queue_position": ev.QueuePosition,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	log.SetFlags(0)
	log.Println(string(b))
	return nil
}
