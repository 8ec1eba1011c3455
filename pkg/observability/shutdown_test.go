package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"custom timeout", 10 * time.Second, 10 * time.Second},
		{"zero timeout uses default", 0, DefaultShutdownTimeout},
		{"negative timeout uses default", -time.Second, DefaultShutdownTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewShutdownManager(nil, nil, tt.timeout)
			require.NotNil(t, sm)
			assert.NotNil(t, sm.logger)
			assert.Equal(t, tt.expectedTimeout, sm.timeout)
		})
	}
}

func TestShutdownManager_RegisterIgnoresNil(t *testing.T) {
	sm := NewShutdownManager(nil, nil, time.Second)
	sm.Register("nil", nil)
	sm.Register("noop", func(context.Context) error { return nil })
	assert.Len(t, sm.stages, 1)
}

func quietShutdownManager(server *http.Server) *ShutdownManager {
	return NewShutdownManager(NewLogger("info", FormatText, &bytes.Buffer{}), server, time.Second)
}

func TestShutdownManager_Shutdown(t *testing.T) {
	t.Run("runs stages in order", func(t *testing.T) {
		sm := quietShutdownManager(nil)

		var order []string
		for _, name := range []string{"poller", "workers", "store"} {
			name := name
			sm.Register(name, func(context.Context) error {
				order = append(order, name)
				return nil
			})
		}

		require.NoError(t, sm.Shutdown(context.Background()))
		assert.Equal(t, []string{"poller", "workers", "store"}, order)
	})

	t.Run("continues after failures and joins errors", func(t *testing.T) {
		sm := quietShutdownManager(nil)
		errA := errors.New("a")
		errB := errors.New("b")
		ran := false
		sm.Register("first", func(context.Context) error { return errA })
		sm.Register("second", func(context.Context) error { ran = true; return nil })
		sm.Register("third", func(context.Context) error { return errB })

		err := sm.Shutdown(context.Background())
		require.Error(t, err)
		assert.True(t, ran)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Contains(t, err.Error(), "first: a")
	})

	t.Run("timeout skips remaining stages", func(t *testing.T) {
		sm := quietShutdownManager(nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		sm.Register("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		skipped := true
		sm.Register("after", func(context.Context) error { skipped = false; return nil })

		err := sm.Shutdown(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, skipped)
	})

	t.Run("runs once", func(t *testing.T) {
		sm := quietShutdownManager(nil)
		calls := 0
		sm.Register("count", func(context.Context) error { calls++; return nil })

		require.NoError(t, sm.Shutdown(context.Background()))
		require.NoError(t, sm.Shutdown(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("stops http server", func(t *testing.T) {
		ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		ts.Start()
		defer ts.Close()

		sm := quietShutdownManager(ts.Config)
		require.NoError(t, sm.Shutdown(context.Background()))

		_, err := http.Get(ts.URL)
		assert.Error(t, err)
	})
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	sm := NewShutdownManager(nil, nil, time.Second)

	called := false
	sm.Register("flag", func(context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.True(t, called)
}
