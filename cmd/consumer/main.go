package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/tripplanner/internal/config"
	"example.com/tripplanner/internal/consumer"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/observability"
	persistence "example.com/tripplanner/internal/persistence/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger("tripplanner-consumer", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	service := domain.NewService(persistence.NewRepository(pool),
		domain.WithGeocoder(geo.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocodeInterval)),
		domain.WithGeocodeRetryAfter(cfg.GeocodeRetryAfter),
		domain.WithLocation(cfg.DisplayLocation),
		domain.WithLogger(logger),
	)
	handler := consumer.Chain(
		consumer.NewGeocodeHandler(service),
		consumer.NewEventLogHandler(pool),
	)

	if cfg.GeocodeBackfillCron != "" {
		if _, err := consumer.NewBackfill(service, logger).Schedule(ctx, cfg.GeocodeBackfillCron); err != nil {
			logger.Error("failed to schedule geocode backfill", "error", err)
			os.Exit(1)
		}
		logger.Info("geocode backfill scheduled", "spec", cfg.GeocodeBackfillCron)
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("consumer metrics listening", "address", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger.With("topic", topic)))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()

			logger.Info("consumer started", "topic", topic, "group", cfg.ConsumerGroupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped with error", "topic", topic, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("consumer shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	wg.Wait()
}
