package nats

import (
	"encoding/json"
	"testing"
	"time"

	"textbook-qa-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectAndEnvelope(t *testing.T) {
	id := uuid.New()
	ev := events.BookStatusChanged(id, "analyzed", 10, 10, nil)

	assert.Equal(t, "textbook.book.status", Subject(ev))

	raw, err := json.Marshal(envelope{Type: ev.EventType(), Data: ev.Payload(), OccurredAt: ev.Timestamp()})
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	back := env.toEvent()
	assert.Equal(t, events.TypeBookStatus, back.EventType())
	assert.Equal(t, id.String(), back.Payload()["book_id"])
	assert.Equal(t, float64(10), back.Payload()["processed_chunks"])
	assert.WithinDuration(t, ev.Timestamp(), back.Timestamp(), time.Millisecond)
}
