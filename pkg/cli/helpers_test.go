package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ioevents/pkg/bootstrap"
	"github.com/platinummonkey/ioevents/pkg/config"
	"github.com/platinummonkey/ioevents/pkg/events"
	"github.com/platinummonkey/ioevents/pkg/httpclient"
	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/storage"
)

// fakeAPI records requests and answers them with handler
type fakeAPI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newFakeAPI(t *testing.T, tls bool, handler http.HandlerFunc) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.requests = append(api.requests, r.Clone(context.Background()))
		api.bodies = append(api.bodies, string(body))
		api.mu.Unlock()
		handler(w, r)
	})
	if tls {
		api.Server = httptest.NewTLSServer(h)
	} else {
		api.Server = httptest.NewServer(h)
	}
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAPI) last(t *testing.T) (*http.Request, string) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.requests)
	i := len(a.requests) - 1
	return a.requests[i], a.bodies[i]
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	*Env
	out   *syncBuffer
	store *storage.MemoryCursorStore
	cfg   *config.Config
}

// newTestEnv wires an Env whose client talks to api
func newTestEnv(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Default()
	cfg.Credentials = config.CredentialsConfig{
		OrganizationID: "org-1",
		APIKey:         "api-key",
		AccessToken:    "token",
		ClientID:       "client-1",
	}

	te := &testEnv{
		out:   &syncBuffer{},
		store: storage.NewMemoryCursorStore(),
		cfg:   cfg,
	}
	te.Env = &Env{
		Out:        te.out,
		Err:        io.Discard,
		In:         bytes.NewReader(nil),
		Logger:     logger,
		LoadConfig: func() (*config.Config, error) { return te.cfg, nil },
		Build: func(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*bootstrap.Components, error) {
			cache := keycache.NewMemoryCache(10, time.Minute)
			client, err := events.New(events.Config{
				OrganizationID: cfg.Credentials.OrganizationID,
				APIKey:         cfg.Credentials.APIKey,
				AccessToken:    cfg.Credentials.AccessToken,
				BaseURL:        api.URL,
				IngressURL:     api.URL + "/ingress",
				HTTPClient:     api.Client(),
				Retry:          httpclient.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
				SecurityDomain: api.URL,
				KeyCache:       cache,
				CursorStore:    te.store,
				Logger:         logger,
			})
			if err != nil {
				return nil, err
			}
			return &bootstrap.Components{Client: client, KeyCache: cache, Store: te.store}, nil
		},
	}
	return te
}

func (te *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	return NewRootCommandWithEnv(te.Env).ExecuteArgs(context.Background(), args)
}
