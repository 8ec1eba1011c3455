// Package journal consumes a cursor based event journal as a push stream.
//
// # Overview
//
// A journal is read with repeated GET requests. Each response carries zero or
// more events, a Link header whose "next" relation is the URL for the
// following fetch, and optionally a Retry-After header. Poller drives that
// loop and fans events out to subscribers through a stream.Subject.
//
// # Polling Rules
//
//   - No subscribers: nothing is fetched; the count is rechecked every
//     IdleInterval (2s by default).
//   - Events returned: the cursor moves to the next link, events are delivered
//     in server order, and the next fetch starts immediately.
//   - No events: the cursor moves the same way, then the poller waits for
//     Options.Interval if set, else Retry-After, else IdleInterval.
//   - Fetch failure: the error goes to every subscriber's OnError and polling
//     resumes after IdleInterval. Errors never end the stream.
//
// A response without a next link leaves the cursor where it was.
//
// # Usage
//
//	poller := journal.NewPoller(client, journalURL, journal.Options{
//		Logger:   logger,
//		Store:    cursorStore,
//		StoreKey: registrationID,
//	})
//	sub := poller.SubscribeFunc(func(e journal.Event) {
//		fmt.Println(e.Position)
//	}, func(err error) {
//		logger.WithError(err).Warn("journal error")
//	})
//	poller.Start(ctx)
//	defer poller.Stop()
//
// Delivery is at least once: a crash between delivery and the cursor save
// replays events on restart.
//
// # Related Packages
//
//   - pkg/events: Client implements Fetcher against the events API
//   - pkg/storage: CursorStore implementations
//   - pkg/stream: Subscriber fan-out
package journal
