package async

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	return logger
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestSafeGo(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		fn       func(ctx context.Context) error
		contains []string
	}{
		{
			name:    "success logs nothing",
			timeout: time.Second,
			fn:      func(ctx context.Context) error { return nil },
		},
		{
			name:     "error is logged with task name",
			timeout:  time.Second,
			fn:       func(ctx context.Context) error { return errors.New("test error") },
			contains: []string{"test error", "cursor sync"},
		},
		{
			name:    "timeout cancels the task",
			timeout: 50 * time.Millisecond,
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		},
		{
			name:     "panic is recovered",
			timeout:  time.Second,
			fn:       func(ctx context.Context) error { panic("test panic") },
			contains: []string{"PANIC recovered", "test panic", "cursor sync"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			waitDone(t, SafeGo(context.Background(), testLogger(&buf), tt.timeout, "cursor sync", tt.fn))

			if len(tt.contains) == 0 {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestSafeGo_NilLogger(t *testing.T) {
	var ran atomic.Bool
	waitDone(t, SafeGo(context.Background(), nil, 0, "task", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	assert.True(t, ran.Load())
}

func TestSafeGo_NoTimeoutRunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer

	done := SafeGo(ctx, testLogger(&buf), 0, "poller", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-done:
		t.Fatal("task finished before cancel")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	waitDone(t, done)
	assert.Empty(t, buf.String(), "cancellation is not logged as a failure")
}
