// Package async runs background work with panic recovery and logging.
//
// SafeGo starts a single goroutine and returns a channel closed on exit. The
// journal poller and the config watcher run their loops this way:
//
//	done := async.SafeGo(ctx, logger, 0, "journal poller", loop)
//	cancel()
//	<-done
//
// WorkerPool runs tasks on a fixed number of goroutines. The webhook receiver
// hands verified events to one so handlers do not hold the HTTP response:
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{
//		Name:        "webhook-dispatch",
//		Workers:     4,
//		QueueSize:   64,
//		TaskTimeout: 30 * time.Second,
//		Logger:      logger,
//	})
//	if !pool.TrySubmit(func(ctx context.Context) error { return handle(ctx, event) }) {
//		// queue full
//	}
//	err := pool.Shutdown(shutdownCtx)
//
// Stats reports submitted, rejected, completed, failed and panicked counts.
package async
