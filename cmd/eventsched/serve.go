package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/api"
	"github.com/fenwick-io/eventsched/config"
	"github.com/fenwick-io/eventsched/delivery"
	"github.com/fenwick-io/eventsched/ingest"
	"github.com/fenwick-io/eventsched/metrics"
	"github.com/fenwick-io/eventsched/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout  = 30 * time.Second
	statsRefreshRate = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator: ingestion consumer, poller, recovery and retention loops, and the REST/metrics HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	return cmd
}

// runServe wires every component together and blocks until an
// interrupt or terminate signal arrives, then shuts down in dependency
// order: stop accepting new claims, drain in-flight deliveries, stop
// the ingestion consumer, close the store last.
func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := store.InitDB(ctx, db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if err := store.EnsurePartitions(ctx, db, time.Now(), 14); err != nil {
		return fmt.Errorf("bootstrap partitions: %w", err)
	}

	s := store.NewStore(db)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	partitionMaintainer := store.NewPartitionMaintainer(db, 24*time.Hour, log)
	if err := partitionMaintainer.Start(ctx); err != nil {
		return fmt.Errorf("start partition maintainer: %w", err)
	}

	buffer, err := ingest.NewBuffer(&ingest.BufferConfig{
		Brokers:          cfg.BrokerAddrs,
		Topic:            cfg.IngestTopic,
		DLQTopic:         cfg.IngestDLQ,
		GroupID:          cfg.ConsumerGroup,
		Partitions:       cfg.IngestionPartitions,
		LingerTime:       50 * time.Millisecond,
		ReconnectBackoff: defaultBrokerBackoff,
	}, m, log)
	if err != nil {
		return fmt.Errorf("connect ingestion buffer: %w", err)
	}
	defer buffer.Close()

	dedup, err := ingest.NewDeduplicator(s, cfg.DedupLRUSize)
	if err != nil {
		return fmt.Errorf("init deduplicator: %w", err)
	}

	persister := ingest.NewPersister(buffer, dedup, s, m, &ingest.PersisterConfig{
		Concurrency:       cfg.ConsumerConcurrency,
		DefaultMaxRetries: cfg.MaxRetriesDefault,
	}, log)
	go persister.Run(ctx)

	httpDeliverer := delivery.NewHTTPDeliverer(&delivery.HTTPConfig{
		ConnectTimeout: cfg.HTTPConnectTimeout(),
		ReadTimeout:    cfg.HTTPReadTimeout(),
		Breaker:        defaultBreakerConfig,
	}, log)

	var brokerDeliverer *delivery.BrokerDeliverer
	if len(cfg.BrokerAddrs) > 0 {
		brokerDeliverer, err = delivery.NewBrokerDeliverer(&delivery.BrokerConfig{
			Brokers:        cfg.BrokerAddrs,
			ProduceTimeout: 10 * time.Second,
			Breaker:        defaultBreakerConfig,
		}, log)
		if err != nil {
			return fmt.Errorf("connect broker deliverer: %w", err)
		}
		defer brokerDeliverer.Close()
	}
	router := delivery.NewRouter(httpDeliverer, brokerDeliverer)

	outcome := eventsched.NewOutcomeWriter(s, m, log)
	poller := eventsched.NewPoller(s, router, outcome, m, &eventsched.PollerConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval(),
		LeaseDuration: cfg.LeaseDuration(),
	}, log)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	recoveryLoop := eventsched.NewRecoveryLoop(s, &eventsched.RecoveryConfig{Interval: cfg.LeaseDuration() / 2}, log)
	if err := recoveryLoop.Start(ctx); err != nil {
		return fmt.Errorf("start recovery loop: %w", err)
	}

	retentionLoop, err := eventsched.NewRetentionLoop(s, &eventsched.RetentionConfig{
		Schedule:  cfg.CleanupCron,
		MaxAge:    cfg.RetentionDuration(),
		BatchSize: cfg.CleanupBatchSize,
	}, log)
	if err != nil {
		return fmt.Errorf("build retention loop: %w", err)
	}
	if err := retentionLoop.Start(ctx); err != nil {
		return fmt.Errorf("start retention loop: %w", err)
	}

	refresher := metrics.NewRefresher(s, m, statsRefreshRate, log)
	refresher.Start(ctx)

	handlers := api.NewHandlers(buffer, s, s, s)
	ginRouter := api.NewRouter(handlers, cfg.AdminToken)
	ginRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: ginRouter}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		log.Error("http server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := poller.Stop(shutdownTimeout); err != nil {
		log.Error("poller shutdown", "err", err)
	}
	_ = recoveryLoop.Stop(shutdownTimeout)
	_ = retentionLoop.Stop(shutdownTimeout)
	<-refresher.Stop()
	partitionMaintainer.Stop()

	return nil
}
