package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/tripplanner/internal/api"
	"example.com/tripplanner/internal/attachments"
	"example.com/tripplanner/internal/auth"
	"example.com/tripplanner/internal/config"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/observability"
	"example.com/tripplanner/internal/outbox"
	"example.com/tripplanner/internal/persistence/memory"
	persistence "example.com/tripplanner/internal/persistence/postgres"
	httptransport "example.com/tripplanner/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger("tripplanner-api", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	geocoder := geo.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocodeInterval)
	opts := []domain.Option{
		domain.WithGeocoder(geocoder),
		domain.WithGeocodeRetryAfter(cfg.GeocodeRetryAfter),
		domain.WithLocation(cfg.DisplayLocation),
		domain.WithLogger(logger),
	}

	if cfg.AttachmentsEnabled() {
		store, err := attachments.NewStore(ctx, attachments.Config{
			Endpoint:         cfg.MinioEndpoint,
			ExternalEndpoint: cfg.MinioExternalEndpoint,
			AccessKey:        cfg.MinioAccessKey,
			SecretKey:        cfg.MinioSecretKey,
			Bucket:           cfg.MinioBucket,
			UseSSL:           cfg.MinioUseSSL,
			URLExpiry:        cfg.PresignedURLExpiry,
		})
		if err != nil {
			logger.Error("failed to initialise object storage", "error", err)
			os.Exit(1)
		}
		opts = append(opts, domain.WithObjectStore(store))
	} else {
		logger.Warn("MINIO_ENDPOINT not set, attachments disabled")
	}

	var dispatcher *outbox.Dispatcher
	var repo domain.Repository
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		repo = memory.NewRepository()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo = persistence.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger))
		go dispatcher.Start(ctx)
	}

	service := domain.NewService(repo, opts...)

	handlerOpts := []api.Option{
		api.WithPlaceSearcher(geocoder),
		api.WithDisplayLocation(cfg.DisplayLocation),
		api.WithLogger(logger),
		api.WithUploadPolicy(uploadPolicy(cfg)),
	}
	if cfg.WeatherEnabled() {
		handlerOpts = append(handlerOpts, api.WithForecaster(geo.NewWeatherClient(geo.WeatherConfig{
			BaseURL:  cfg.WeatherURL,
			APIKey:   cfg.WeatherAPIKey,
			Units:    cfg.WeatherUnits,
			Lang:     cfg.WeatherLang,
			CacheTTL: cfg.WeatherCacheTTL,
			Location: cfg.DisplayLocation,
		})))
	}

	mux := http.NewServeMux()
	api.NewHandler(service, handlerOpts...).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	limiter := httptransport.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := httptransport.Chain(mux,
		httptransport.RequestID(),
		httptransport.AccessLog(logger),
		httptransport.CORS([]string{cfg.CORSOrigin}),
		auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}).Wrap,
		limiter.Middleware(),
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:           cfg.HTTPAddress,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, handler)

	go func() {
		logger.Info("api listening", "address", cfg.HTTPAddress, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}

func uploadPolicy(cfg config.Config) attachments.Policy {
	policy := attachments.DefaultPolicy()
	if cfg.AttachmentMaxBytes > 0 {
		policy.MaxBytes = cfg.AttachmentMaxBytes
	}
	return policy
}
