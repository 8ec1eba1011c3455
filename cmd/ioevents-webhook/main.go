package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/async"
	"github.com/platinummonkey/ioevents/pkg/bootstrap"
	"github.com/platinummonkey/ioevents/pkg/config"
	"github.com/platinummonkey/ioevents/pkg/events"
	"github.com/platinummonkey/ioevents/pkg/httputil"
	"github.com/platinummonkey/ioevents/pkg/journal"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/webhooks"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := bootstrap.NewLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OpenTelemetry")
	}

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	components, err := bootstrap.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize events client")
	}

	pool := async.NewWorkerPool(ctx, async.PoolConfig{
		Name:        "webhook-dispatch",
		Workers:     cfg.Server.Workers,
		QueueSize:   cfg.Server.QueueSize,
		TaskTimeout: cfg.HTTP.Timeout,
		Logger:      logger,
	})
	go func() {
		for err := range pool.Errors() {
			logger.WithError(err).Warn("Event handler failed")
		}
	}()

	handler := logEvents(logger)
	clock := clockwork.NewRealClock()
	receiver, err := webhooks.NewReceiver(webhooks.Options{
		Path:     cfg.Server.WebhookPath,
		ClientID: cfg.Credentials.ClientID,
		Verifier: components.Client,
		Handler:  handler,
		Pool:     pool,
		Clock:    clock,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create webhook receiver")
	}

	router := mux.NewRouter()
	receiver.RegisterRoutes(router)
	receiver.RegisterAdminRoutes(router.PathPrefix("/admin").Subrouter())

	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(version, components.HealthProbes()...))
	if registry != nil {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}

	router.Use(
		httputil.RequestID(logger),
		httputil.Recover(logger),
		httputil.AccessLog(logger),
		observability.HTTPMetricsMiddleware(metrics),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)

	if cfg.Journal.URL != "" {
		poller := startJournal(ctx, cfg, components.Client, handler, clock, logger)
		shutdown.Register("journal poller", func(context.Context) error {
			poller.Stop()
			return nil
		})
	}

	if path := os.Getenv(config.EnvConfigFile); path != "" {
		if _, err := config.WatchFile(ctx, path, logger, func(updated *config.Config) {
			logger.SetLevel(observability.ParseLevel(updated.Observability.LogLevel))
		}); err != nil {
			logger.WithError(err).Warn("Config file will not be reloaded")
		}
	}

	shutdown.Register("dispatch workers", pool.Shutdown)
	shutdown.Register("backends", func(context.Context) error {
		return components.Close()
	})
	shutdown.Register("telemetry", func(ctx context.Context) error {
		return otelProviders.Shutdown(ctx)
	})

	go func() {
		logger.WithFields(logrus.Fields{
			"addr": server.Addr,
			"path": cfg.Server.WebhookPath,
		}).Info("Starting webhook receiver")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Webhook server failed")
			cancel()
		}
	}()

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("Webhook receiver stopped")
}

// logEvents is the default event handler
func logEvents(logger *logrus.Logger) webhooks.HandlerFunc {
	return func(ctx context.Context, delivery webhooks.Delivery) error {
		observability.EntryFromContext(ctx, logger).WithFields(logrus.Fields{
			"delivery_id": delivery.ID,
			"event":       string(delivery.Event),
		}).Info("Event received")
		return nil
	}
}

// startJournal polls the configured journal and hands each event to handler
func startJournal(ctx context.Context, cfg *config.Config, client *events.Client, handler webhooks.Handler, clock clockwork.Clock, logger *logrus.Logger) *journal.Poller {
	poller := client.EventsObservableFromJournal(ctx, cfg.Journal.URL, events.JournalOptions{
		Latest: cfg.Journal.Latest,
		Since:  cfg.Journal.Since,
		Limit:  cfg.Journal.Limit,
	}, events.PollingOptions{
		Interval: cfg.Journal.PollInterval,
		StoreKey: cfg.Journal.ConsumerKey,
	})

	poller.SubscribeFunc(
		webhooks.JournalConsumer(ctx, handler, clock, logger),
		func(err error) {
			logger.WithError(err).Warn("Journal fetch failed, retrying")
		},
	)

	logger.WithField("journal", cfg.Journal.URL).Info("Journal polling started")
	return poller
}
