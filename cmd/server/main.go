package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/astrogoddess/storefront/internal/application/cart"
	"github.com/astrogoddess/storefront/internal/infrastructure/cache"
	"github.com/astrogoddess/storefront/internal/infrastructure/config"
	"github.com/astrogoddess/storefront/internal/infrastructure/event"
	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/astrogoddess/storefront/internal/infrastructure/messaging"
	"github.com/astrogoddess/storefront/internal/infrastructure/persistence"
	"github.com/astrogoddess/storefront/internal/infrastructure/telemetry"
	"github.com/astrogoddess/storefront/internal/interfaces/http/handler"
	"github.com/astrogoddess/storefront/internal/interfaces/http/middleware"
	"github.com/astrogoddess/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront cart",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("booking_sink", cfg.Booking.Sink),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	cartMetrics, err := telemetry.NewCartMetrics(mp.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to create cart metrics", zap.Error(err))
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = lp.Bridge(log, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	storage, stopStorage, err := openStorage(ctx, cfg, tp, log)
	if err != nil {
		log.Fatal("Failed to open cart storage", zap.Error(err))
	}

	// Bookings are delivered off the request path so a slow or broken sink
	// never delays or fails the visitor's submission.
	bus := event.NewInMemoryEventBus(log, event.WithAsyncDelivery())
	bus.Subscribe(cartapp.NewCartActivityHandler(log, cartapp.WithActivityRecorder(cartMetrics)))
	sink, err := subscribeBookingSink(bus, cfg, log)
	if err != nil {
		log.Fatal("Failed to set up booking sink", zap.Error(err))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	service := cartapp.NewService(storage,
		cartapp.WithEventPublisher(bus),
		cartapp.WithLogger(log),
	)

	engine := newEngine(cfg, tp, log)
	router.NewRouter(engine).Register(
		handler.NewCartHandler(service),
		handler.NewBookingHandler(service),
		handler.NewHealthHandler(storage, cfg.Storage.Driver),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// drain pending booking deliveries before the sink goes away
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Error("Error closing booking sink", zap.Error(err))
		}
	}
	stopStorage()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log export", zap.Error(err))
	}
}

// newEngine builds the gin engine with the global middleware chain.
// Tracing runs first so the request logger sees the span.
func newEngine(cfg *config.Config, tp *telemetry.TracerProvider, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
			Provider:    tp.Provider(),
		}),
		middleware.RequestID(),
		middleware.Session(middleware.SessionConfig{
			CookieName: cfg.Cookie.Name,
			Domain:     cfg.Cookie.Domain,
			Path:       cfg.Cookie.Path,
			MaxAge:     cfg.Cookie.MaxAge,
			Secure:     cfg.Cookie.Secure,
			SameSite:   middleware.ParseSameSite(cfg.Cookie.SameSite),
		}),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	return engine
}

// openStorage opens the configured cart storage. The returned func stops
// background work and closes the storage.
func openStorage(ctx context.Context, cfg *config.Config, tp *telemetry.TracerProvider, log *zap.Logger) (cache.CartStorage, func(), error) {
	factory := cache.NewStorageFactory(cache.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	}, cfg.Storage.TTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Storage.Fallback),
		cache.WithSweepInterval(cfg.Storage.SweepInterval),
	)

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		storage, err := factory.CreateRedisStorage(ctx)
		if err != nil {
			return nil, nil, err
		}
		return storage, closeFunc(storage, log), nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := openDatabase(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:    cfg.Telemetry.DBTraceEnabled && tp.IsEnabled(),
			DBSystem:   dbSystem(cfg.Storage.Driver),
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		}, tp.Provider()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		storage := persistence.NewGormCartStorage(db, cfg.Storage.TTL)

		purgeCtx, stopPurge := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			purgeLoop(purgeCtx, storage, cfg.Storage.SweepInterval, log)
		}()
		return storage, func() {
			stopPurge()
			<-done
			closeFunc(storage, log)()
		}, nil

	default:
		storage := factory.CreateInMemoryStorage()
		log.Info("using in-memory cart storage")
		return storage, closeFunc(storage, log), nil
	}
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	if cfg.Storage.Driver == config.DriverSQLite {
		return persistence.NewSQLiteDatabase(&cfg.Database, log)
	}
	return persistence.NewDatabase(&cfg.Database, log)
}

func dbSystem(driver string) string {
	if driver == config.DriverPostgres {
		return "postgresql"
	}
	return driver
}

// purgeLoop deletes expired cart rows. SQL storage filters expired rows on
// read, so this only reclaims space.
func purgeLoop(ctx context.Context, storage *persistence.GormCartStorage, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := storage.PurgeExpired(ctx)
			if err != nil {
				log.Warn("failed to purge expired carts", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired carts", zap.Int64("count", n))
			}
		}
	}
}

// subscribeBookingSink subscribes the configured booking sink to the bus.
// The returned closer is nil when the sink holds no resources.
func subscribeBookingSink(bus *event.InMemoryEventBus, cfg *config.Config, log *zap.Logger) (io.Closer, error) {
	if cfg.Booking.Sink != config.SinkAMQP {
		bus.Subscribe(cartapp.NewBookingLogHandler(log))
		return nil, nil
	}

	publisher, err := messaging.DialAMQPPublisher(messaging.Config{
		URL:            cfg.Booking.AMQPURL,
		Exchange:       cfg.Booking.Exchange,
		RoutingKey:     cfg.Booking.RoutingKey,
		PublishTimeout: cfg.Booking.PublishTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	bus.Subscribe(publisher)
	return publisher, nil
}

func closeFunc(c io.Closer, log *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("Error closing cart storage", zap.Error(err))
		}
	}
}
