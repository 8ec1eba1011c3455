package signature

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/observability"
)

// maxKeySize bounds a PEM download
const maxKeySize = 64 << 10

// Doer sends an HTTP request; *http.Client and *httpclient.Client both satisfy it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// KeyFetcher resolves public key URLs to PEM text, going through a cache
type KeyFetcher struct {
	client  Doer
	cache   keycache.Cache
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// NewKeyFetcher creates a fetcher. A nil cache disables caching.
func NewKeyFetcher(client Doer, cache keycache.Cache, logger *logrus.Logger, metrics *observability.Metrics) *KeyFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &KeyFetcher{
		client:  client,
		cache:   cache,
		logger:  observability.OrDefault(logger),
		metrics: metrics,
	}
}

// KeyFileName returns the cache key for a key URL: its last path segment
func KeyFileName(keyURL string) string {
	if u, err := url.Parse(keyURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return keyURL[strings.LastIndex(keyURL, "/")+1:]
}

// Resolve returns the PEM text for keyURL. Cache failures are logged and
// treated as misses; download failures are returned.
func (f *KeyFetcher) Resolve(ctx context.Context, keyURL string) (string, error) {
	name := KeyFileName(keyURL)
	log := f.logger.WithField("key", name)

	if pem, ok := f.lookup(ctx, name, log); ok {
		return pem, nil
	}

	log.Info("Public key not cached, fetching from the security domain")
	pem, err := f.download(ctx, keyURL)
	if err != nil {
		return "", err
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, name, pem); err != nil {
			log.WithError(err).Warn("Failed to cache public key")
		}
	}

	return pem, nil
}

func (f *KeyFetcher) lookup(ctx context.Context, name string, log *logrus.Entry) (string, bool) {
	if f.cache == nil {
		return "", false
	}

	pem, err := f.cache.Get(ctx, name)
	switch {
	case err == nil && pem != "":
		f.metrics.ObserveKeyLookup("hit")
		return pem, true
	case err == nil, errors.Is(err, keycache.ErrCacheMiss):
		f.metrics.ObserveKeyLookup("miss")
	default:
		f.metrics.ObserveKeyLookup("error")
		log.WithError(err).Warn("Key cache lookup failed, treating as miss")
	}
	return "", false
}

func (f *KeyFetcher) download(ctx context.Context, keyURL string) (string, error) {
	start := time.Now()
	defer func() { f.metrics.ObserveKeyFetch(time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return "", fmt.Errorf("build public key request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch public key %s: %w", KeyFileName(keyURL), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch public key %s: %w", KeyFileName(keyURL), httpclient.NewStatusError(resp))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySize))
	if err != nil {
		return "", fmt.Errorf("read public key %s: %w", KeyFileName(keyURL), err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("fetch public key %s: %w", KeyFileName(keyURL), ErrEmptyKey)
	}

	return string(body), nil
}
