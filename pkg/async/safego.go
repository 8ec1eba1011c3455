package async

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo runs fn on its own goroutine and returns a channel closed once fn
// has returned. A panic in fn is logged, never propagated. Errors other than
// context.Canceled are logged as warnings. With a zero timeout fn runs until
// parentCtx is done.
func SafeGo(parentCtx context.Context, logger *logrus.Logger, timeout time.Duration, name string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("task", name)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ctx, cancel := taskContext(parentCtx, timeout)
		defer cancel()
		defer recoverInto(log, nil)

		err := fn(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		log.WithError(err).Warn("Background task failed")
	}()

	return done
}

// recoverInto logs a recovered panic and hands it to onPanic when set.
// It must be deferred directly.
func recoverInto(log *logrus.Entry, onPanic func(any)) {
	r := recover()
	if r == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"panic": r,
		"stack": string(debug.Stack()),
	}).Error("PANIC recovered in background task")
	if onPanic != nil {
		onPanic(r)
	}
}

func taskContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
