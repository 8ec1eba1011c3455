// Package stream provides a small multicast primitive used to push journal events to
// any number of listeners.
//
// # Usage
//
//	subject := stream.NewSubject[journal.Event]()
//	sub := subject.SubscribeFunc(
//		func(e journal.Event) { fmt.Println(e.Position) },
//		func(err error) { log.Println(err) },
//	)
//	defer sub.Unsubscribe()
//
//	subject.Next(event)
//
// Errors pushed with Error are delivered to every observer without closing the
// stream; only Complete detaches observers.
//
// # Related Packages
//
//   - pkg/journal: the poller that drives a Subject
package stream
