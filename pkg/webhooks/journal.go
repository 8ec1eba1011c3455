package webhooks

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/journal"
	"github.com/platinummonkey/ioevents/pkg/observability"
)

// JournalConsumer returns a journal subscriber that hands each event to
// handler as a Delivery keyed by its journal position and stamped with clock.
// Handler failures are logged; the journal keeps moving.
func JournalConsumer(ctx context.Context, handler Handler, clock clockwork.Clock, logger *logrus.Logger) func(journal.Event) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = observability.OrDefault(logger)

	return func(event journal.Event) {
		delivery := Delivery{ID: event.Position, Event: event.Event, ReceivedAt: clock.Now()}
		if err := handler.HandleEvent(ctx, delivery); err != nil {
			logger.WithError(err).WithField("position", event.Position).Warn("Journal event handler failed")
		}
	}
}
