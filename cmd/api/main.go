package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agendapro/internal/api"
	"agendapro/internal/config"
	"agendapro/internal/database"
	"agendapro/internal/events"
	"agendapro/internal/export"
	"agendapro/internal/logging"
	"agendapro/internal/metrics"
	"agendapro/internal/models"
	"agendapro/internal/notify"
	"agendapro/internal/repository"
	"agendapro/internal/service"
	"agendapro/internal/subscription"
	"agendapro/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, cache := initSettingsCache(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(e *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", e.Type).Str("event_id", e.ID).Msg("event handler failed")
	})

	notifier, err := initNotifier(cfg, &logger)
	if err != nil {
		return err
	}
	notifier.Attach(eventBus)
	defer notifier.Wait()

	svc := buildServices(cfg, db, cache, eventBus, &logger)
	svc.Settings.Subscribe(func(s models.AdminSettings) {
		logger.Info().
			Int("commission_percent", s.Affiliate.CommissionPercent).
			Int("plans", len(s.Plans)).
			Msg("admin settings changed")
	})
	svc.Settings.Subscribe(notifier.SettingsChanged)

	scheduler := worker.NewScheduler(
		svc.Subscription,
		database.NewBackupService(db, cfg.Backup, &logger),
		cfg.Worker,
		cfg.Backup,
		&logger,
	)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, cfg.Location(), &logger)
	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, *logging.Component(baseLogger, "api-main"), closer, nil
}

// initSettingsCache puts Redis in front of the in-memory cache. Without Redis the
// failover cache serves from memory only.
func initSettingsCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverSettingsCache) {
	ttl := time.Duration(cfg.Settings.CacheTTL) * time.Second

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, settings cache falls back to memory")
		} else {
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		}
	}

	primary := repository.NewRedisSettingsCache(redisClient, ttl)
	fallback := repository.NewMemorySettingsCache(ttl)
	return redisClient, repository.NewFailoverSettingsCache(primary, fallback, logger)
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) (*notify.TelegramNotifier, error) {
	sender, err := notify.NewBotSender(cfg.Telegram)
	if err != nil {
		logger.Error().Err(err).Msg("init telegram bot")
		return nil, err
	}
	n := notify.NewTelegramNotifier(sender, cfg.Telegram.ChatID, notify.DefaultRetry, logger)
	if !n.Enabled() {
		logger.Info().Msg("telegram notifications disabled")
	}
	return n, nil
}

func buildServices(
	cfg *config.Config,
	db *database.DB,
	cache *repository.FailoverSettingsCache,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) api.Services {
	loc := cfg.Location()
	policy := subscription.Policy{TrialGrantsAccess: cfg.Subscription.TrialGrantsAccess}

	settings := service.NewSettingsService(db, cache, eventBus, cfg.Settings.Defaults, logger)
	booking := service.NewBookingService(db, eventBus, cache, service.BookingOptions{
		MaxBookingDays: cfg.Booking.MaxBookingDays,
		RateLimit:      cfg.Booking.BookingRateLimit,
		RateWindow:     time.Duration(cfg.Booking.BookingRateWindow) * time.Second,
		Location:       loc,
		Policy:         policy,
	}, logger)

	return api.Services{
		Booking:      booking,
		Catalog:      service.NewCatalogService(db, logger),
		Finance:      service.NewFinanceService(db, loc, logger),
		Subscription: service.NewSubscriptionService(db, settings, eventBus, policy, logger),
		Settings:     settings,
		Admin:        service.NewAdminService(db, logger),
		Exporter:     export.NewExporter(db, loc, logger),
		Health:       db.PingContext,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	if !cfg.API.Enabled || !cfg.API.HTTP.Enabled {
		logger.Warn().Msg("HTTP API is disabled in config; running background jobs only")
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
