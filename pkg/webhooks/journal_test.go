package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ioevents/pkg/journal"
)

func TestJournalConsumer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	handler := &recordingHandler{}
	consume := JournalConsumer(context.Background(), handler, clock, quietLogger())

	consume(journal.Event{Position: "pos-1", Event: json.RawMessage(`{"id":"1"}`)})
	clock.Advance(time.Minute)
	consume(journal.Event{Position: "pos-2", Event: json.RawMessage(`{"id":"2"}`)})

	require.Equal(t, 2, handler.count())
	assert.Equal(t, "pos-1", handler.deliveries[0].ID)
	assert.JSONEq(t, `{"id":"1"}`, string(handler.deliveries[0].Event))
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), handler.deliveries[0].ReceivedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), handler.deliveries[1].ReceivedAt)

	t.Run("handler failure is not fatal", func(t *testing.T) {
		failing := &recordingHandler{err: errors.New("downstream unavailable")}
		consume := JournalConsumer(context.Background(), failing, clock, quietLogger())

		assert.NotPanics(t, func() {
			consume(journal.Event{Position: "pos-3"})
			consume(journal.Event{Position: "pos-4"})
		})
		assert.Equal(t, 2, failing.count())
	})
}
