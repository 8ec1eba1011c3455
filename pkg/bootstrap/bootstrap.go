// Package bootstrap turns a loaded configuration into the shared runtime
// pieces used by the ioevents binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/config"
	"github.com/platinummonkey/ioevents/pkg/events"
	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/storage"
)

// Components holds the configured client and the backends it owns
type Components struct {
	Client   *events.Client
	KeyCache keycache.Cache
	Store    storage.CursorStore
}

// NewLogger builds the process logger from the observability settings
func NewLogger(cfg *config.Config) *logrus.Logger {
	return observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, nil)
}

// Build opens the key cache and cursor store and creates the events client.
// Backends opened before a failure are closed again.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, metrics *observability.Metrics) (*Components, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	logger = observability.OrDefault(logger)

	cache, err := keycache.New(ctx, cfg.KeyCache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open key cache: %w", err)
	}

	store, err := storage.NewCursorStore(ctx, cfg.Storage, logger)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to open cursor store: %w", err)
	}
	if storeMetrics, err := observability.NewOTelMetrics(nil); err != nil {
		logger.WithError(err).Warn("Cursor store metrics disabled")
	} else {
		store = storage.Instrument(store, cfg.Storage.Type, storeMetrics)
	}

	client, err := events.New(events.Config{
		OrganizationID:  cfg.Credentials.OrganizationID,
		APIKey:          cfg.Credentials.APIKey,
		AccessToken:     cfg.Credentials.AccessToken,
		BaseURL:         cfg.HTTP.BaseURL,
		IngressURL:      cfg.HTTP.IngressURL,
		Timeout:         cfg.HTTP.Timeout,
		Retry:           cfg.HTTP.Retry,
		SecurityDomain:  cfg.Signature.SecurityDomain,
		TrustedKeyHosts: cfg.Signature.TrustedKeyHosts,
		KeyCache:        cache,
		CursorStore:     store,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		store.Close()
		cache.Close()
		return nil, err
	}

	return &Components{Client: client, KeyCache: cache, Store: store}, nil
}

// healthKey is read by the probes and never written
const healthKey = "ioevents-health-probe"

// HealthProbes checks the cursor store and key cache through their own
// interfaces, so every backend type is covered. The store is critical since
// journal progress depends on it; the key cache only degrades the service
// because verification falls back to fetching keys.
func (c *Components) HealthProbes() []observability.Probe {
	var probes []observability.Probe
	if c.Store != nil {
		probes = append(probes, observability.Probe{
			Name:     "cursor_store",
			Critical: true,
			Check: func(ctx context.Context) error {
				_, err := c.Store.Load(ctx, healthKey)
				if err == nil || errors.Is(err, storage.ErrCursorNotFound) {
					return nil
				}
				return err
			},
		})
	}
	if c.KeyCache != nil {
		probes = append(probes, observability.Probe{
			Name: "key_cache",
			Check: func(ctx context.Context) error {
				_, err := c.KeyCache.Get(ctx, healthKey)
				if err == nil || errors.Is(err, keycache.ErrCacheMiss) {
					return nil
				}
				return err
			},
		})
	}
	return probes
}

// Close releases the cursor store and key cache
func (c *Components) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.KeyCache != nil {
		errs = append(errs, c.KeyCache.Close())
	}
	return errors.Join(errs...)
}
