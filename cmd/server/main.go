package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"hail/internal/app"
	"hail/internal/config"
	"hail/internal/events"
	"hail/internal/handler"
	"hail/internal/logging"
	"hail/internal/maps"
	internalRedis "hail/internal/redis"
	"hail/internal/repository/postgres"
	"hail/internal/service"
	"hail/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Geocoding is a synchronous dependency of fare estimation; there is no
	// degraded mode without it.
	if cfg.Maps.APIKey == "" {
		log.Fatal("MAPS_API_KEY is required")
	}
	geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("failed to initialize geocoder: %v", err)
	}

	// Optional Kafka ride event stream.
	var producer *events.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		log.Printf("Kafka event stream enabled: topic=%s", cfg.Kafka.Topic)
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, geocoder, producer, logger, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	geocoder *maps.Geocoder,
	producer *events.Producer,
	logger *slog.Logger,
	cfg *config.Config,
) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	riderRepo := postgres.NewRiderRepository(db)
	captainRepo := postgres.NewCaptainRepository(db)
	rideRepo := postgres.NewRideRepository(db)

	// Websocket hub doubles as the notification channel.
	hub := ws.NewHub()

	// Initialize services. Surge stays out of the fare path unless enabled,
	// so quotes and stored fares agree by default.
	var surgeService *service.SurgeService
	if cfg.Fare.SurgeEnabled {
		surgeService = service.NewSurgeService(locationStore, rideRepo)
	}
	fareService := service.NewFareService(geocoder, surgeService)
	otpGenerator := service.NewOTPGenerator(cfg.OTP.Length)
	dispatchService := service.NewDispatchService(
		geocoder, locationStore, captainRepo, riderRepo, hub, logger, cfg.Dispatch.RadiusKm,
	)
	rideDeps := service.RideServiceDeps{
		Rides:           rideRepo,
		Captains:        captainRepo,
		Fare:            fareService,
		OTP:             otpGenerator,
		Dispatcher:      dispatchService,
		Notifier:        hub,
		Locks:           lockStore,
		Cache:           cacheStore,
		Logger:          logger,
		NotifyLosers:    cfg.Dispatch.NotifyLosers,
		NotifyRideEnded: cfg.Notify.RideEnded,
	}
	// A typed nil producer must not reach the interface field.
	if producer != nil {
		rideDeps.Events = producer
	}
	rideService := service.NewRideService(rideDeps)
	captainService := service.NewCaptainService(locationStore, captainRepo, logger)

	// Initialize handlers.
	riderHandler := handler.NewRiderHandler(riderRepo)
	rideHandler := handler.NewRideHandler(rideService, rideRepo)
	captainHandler := handler.NewCaptainHandler(captainService, captainRepo)
	sessionHandler := handler.NewSessionHandler(hub, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		CaptainHandler: captainHandler,
		RiderHandler:   riderHandler,
		SessionHandler: sessionHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
