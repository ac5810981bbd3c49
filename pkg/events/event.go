package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g., "book.status").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const TypeBookStatus = "book.status"

// BookStatusChanged is published after every ingestion run.
func BookStatusChanged(bookId uuid.UUID, status string, processed, total int, errs []string) Event {
	return BaseEvent{
		Type: TypeBookStatus,
		Data: map[string]interface{}{
			"book_id":          bookId.String(),
			"status":           status,
			"processed_chunks": processed,
			"total_chunks":     total,
			"errors":           errs,
		},
		OccurredAt: time.Now().UTC(),
	}
}
