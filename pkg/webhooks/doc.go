// Package webhooks receives events pushed by the events service.
//
// A Receiver serves one endpoint. GET requests answer the registration
// challenge. POST requests are authenticated with the digital signature
// headers and then handed to a Handler, either inline or on an
// async.WorkerPool.
//
// # Usage Example
//
//	receiver, err := webhooks.NewReceiver(webhooks.Options{
//		ClientID: cfg.Credentials.ClientID,
//		Verifier: client,
//		Handler: webhooks.HandlerFunc(func(ctx context.Context, d webhooks.Delivery) error {
//			log.Printf("event %s: %s", d.ID, d.Event)
//			return nil
//		}),
//		Pool: async.NewWorkerPool(ctx, async.PoolConfig{Name: "webhook", Workers: 4}),
//	})
//	receiver.RegisterRoutes(router)
//	receiver.RegisterAdminRoutes(router.PathPrefix("/admin").Subrouter())
//
// The admin routes list recent deliveries (/deliveries, /deliveries/{id}),
// count them by status (/deliveries/stats) and report the worker pool
// counters (/workers).
//
// # Responses
//
//	200  delivery accepted (or handled, when running inline)
//	400  body is not JSON or base64 JSON
//	401  wrong recipient or invalid signature
//	413  body larger than MaxBodyBytes
//	503  worker queue full; the sender retries
package webhooks
