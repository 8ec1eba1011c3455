package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultShutdownTimeout applies when NewShutdownManager gets zero
const DefaultShutdownTimeout = 30 * time.Second

// ShutdownFunc releases one resource
type ShutdownFunc func(context.Context) error

type shutdownStage struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager stops the HTTP server, then runs the registered stages one
// at a time in registration order. Producers are registered before the
// resources they use, e.g. the journal poller before the cursor store.
type ShutdownManager struct {
	logger  *logrus.Logger
	server  *http.Server
	timeout time.Duration

	mu     sync.Mutex
	stages []shutdownStage
	once   sync.Once
	err    error
}

// NewShutdownManager creates a manager. server may be nil.
func NewShutdownManager(logger *logrus.Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &ShutdownManager{
		logger:  OrDefault(logger),
		server:  server,
		timeout: timeout,
	}
}

// Register appends a named stage
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stages = append(sm.stages, shutdownStage{name: name, fn: fn})
}

// WaitForShutdown blocks until SIGINT, SIGTERM or ctx cancellation, then
// shuts down within the configured timeout
func (sm *ShutdownManager) WaitForShutdown(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	sm.logger.Info("Shutdown requested, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	return sm.Shutdown(shutdownCtx)
}

// Shutdown runs once; later calls return the first result. Every stage runs
// even after a failure, and all failures are joined into the result.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.once.Do(func() {
		sm.err = sm.shutdown(ctx)
	})
	return sm.err
}

func (sm *ShutdownManager) shutdown(ctx context.Context) error {
	var errs []error

	if sm.server != nil {
		sm.logger.Info("Shutting down HTTP server")
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown error")
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	sm.mu.Lock()
	stages := append([]shutdownStage(nil), sm.stages...)
	sm.mu.Unlock()

	for _, stage := range stages {
		if ctx.Err() != nil {
			sm.logger.WithField("stage", stage.name).Warn("Shutdown timeout reached, skipping remaining stages")
			errs = append(errs, fmt.Errorf("%s: %w", stage.name, ctx.Err()))
			break
		}
		start := time.Now()
		err := stage.fn(ctx)
		entry := sm.logger.WithFields(logrus.Fields{"stage": stage.name, "duration": time.Since(start).String()})
		if err != nil {
			entry.WithError(err).Error("Shutdown stage failed")
			errs = append(errs, fmt.Errorf("%s: %w", stage.name, err))
			continue
		}
		entry.Debug("Shutdown stage complete")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}
