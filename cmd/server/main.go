package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/application/crosslist"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/automation"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/config"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/dispatch"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/event"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/logger"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/marketplace"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/persistence"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/sessions"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/storage"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/telemetry"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/vault"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/handler"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/middleware"
	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/CarsonReik/Compr-sub000/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Compr Crosslisting Engine API
//	@version		1.0
//	@description	Job based crosslisting engine that republishes seller listings onto Poshmark, Mercari and Depop through browser automation.

//	@contact.name	API Support
//	@contact.url	https://github.com/CarsonReik/Compr-sub000

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	UserID
//	@in							header
//	@name						X-User-ID
//	@description				Identity of the calling seller, injected by the gateway after authentication.

func main() {
	// .env is a development convenience; real deployments use the environment
	_ = godotenv.Load()

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
		_ = logger.Sync(log)
	}()

	log.Info("Starting crosslisting engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: traces, metrics and logs all ship to the same collector
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	if loggerProvider.IsEnabled() {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          level,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
		log.Info("Log bridge to OTEL Collector enabled")
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingEndpoint,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Database
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.DB.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database.DBName))); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Redis backs sessions and rate limits across instances. Without it
	// both fall back to process-local state, which only a single-instance
	// deployment can afford.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Credential vault. An unset key gets an ephemeral one so development
	// works out of the box; sealed blobs then die with the process.
	vaultKey := cfg.Vault.Key
	if vaultKey == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			log.Fatal("Failed to generate ephemeral vault key", zap.Error(err))
		}
		vaultKey = hex.EncodeToString(raw)
		log.Warn("No vault key configured, using an ephemeral key")
	}
	credentialVault, err := vault.NewFromHex(vaultKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Browser engine
	engineMode := automation.Mode(cfg.Automation.Mode)
	browser, err := automation.NewEngine(&automation.Config{
		DefaultTimeout: cfg.Automation.DefaultTimeout,
		RemoteURL:      cfg.Automation.RemoteURL,
		Headless:       cfg.Automation.Headless,
		DisableGPU:     cfg.Automation.DisableGPU,
		NoSandbox:      cfg.Automation.NoSandbox,
		UserAgent:      cfg.Automation.UserAgent,
		WindowWidth:    cfg.Automation.WindowWidth,
		WindowHeight:   cfg.Automation.WindowHeight,
	})
	if err != nil {
		log.Fatal("Failed to initialize browser engine", zap.Error(err))
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Error("Error closing browser engine", zap.Error(err))
		}
	}()

	// Listing images come from object storage; the stub keeps development
	// environments off S3
	var images platform.ImageSource
	if cfg.Storage.Bucket != "" {
		images, err = storage.NewS3ImageSource(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		log.Info("Image storage ready", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		images = storage.NewStubImageSource()
		log.Warn("No storage bucket configured, using stub image source")
	}

	// Platform adapters
	mercariAdapter, err := marketplace.NewMercariAdapter(marketplace.NewMercariConfig(), images, log)
	if err != nil {
		log.Fatal("Failed to initialize Mercari adapter", zap.Error(err))
	}
	registry := marketplace.NewRegistry(
		marketplace.NewPoshmarkAdapter(images, log),
		mercariAdapter,
		marketplace.NewDepopAdapter(images, log),
	)
	log.Info("Platform adapters registered", zap.Int("count", len(registry.List())))

	// Sessions
	var sessionStore platform.SessionStore
	if redisClient != nil {
		sessionStore = sessions.NewRedisSessionStore(redisClient, cfg.Sessions.KeyPrefix, cfg.Sessions.TTL)
	} else {
		sessionStore = sessions.NewInMemorySessionStore(cfg.Sessions.TTL)
	}
	sessionManager := sessions.NewManager(sessionStore, credentialVault, log)

	// Repositories
	jobQueue := persistence.NewGormJobQueue(db.DB)
	listingRepo := persistence.NewGormPlatformListingRepository(db.DB)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	jobMetrics, err := telemetry.NewJobMetrics(meterProvider.Meter("crosslist"))
	if err != nil {
		log.Fatal("Failed to initialize job metrics", zap.Error(err))
	}
	eventBus.Subscribe(jobMetrics)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	crosslistService := crosslist.NewService(jobQueue, listingRepo, registry, eventBus, log)
	reporter := crosslist.NewReporter(listingRepo, eventBus, log)

	// Dispatcher worker pool
	var rateLimiter dispatch.RateLimiter
	if redisClient != nil {
		rateLimiter = dispatch.NewRedisRateLimiter(redisClient, "dispatch:rate:starts", cfg.Dispatch.RateLimit, cfg.Dispatch.RateWindow)
	} else {
		rateLimiter = dispatch.NewMemoryRateLimiter(cfg.Dispatch.RateLimit, cfg.Dispatch.RateWindow)
	}

	dispatcher, err := dispatch.NewDispatcher(
		dispatch.Config{
			Workers:            cfg.Dispatch.Workers,
			RateLimit:          cfg.Dispatch.RateLimit,
			RateWindow:         cfg.Dispatch.RateWindow,
			ClaimInterval:      cfg.Dispatch.ClaimInterval,
			JobTimeout:         cfg.Dispatch.JobTimeout,
			ElementRetryLimit:  cfg.Dispatch.ElementRetryLimit,
			RetryBaseDelay:     cfg.Dispatch.RetryBaseDelay,
			RetryMaxDelay:      cfg.Dispatch.RetryMaxDelay,
			StaleAfter:         cfg.Dispatch.StaleAfter,
			StaleSweepInterval: cfg.Dispatch.StaleSweepInterval,
		},
		jobQueue,
		registry,
		dispatch.EnginePages{Engine: browser, Mode: engineMode},
		sessionManager,
		reporter,
		rateLimiter,
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize dispatcher", zap.Error(err))
	}
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatal("Failed to start dispatcher", zap.Error(err))
	}
	log.Info("Dispatcher started",
		zap.Int("workers", cfg.Dispatch.Workers),
		zap.Int("rate_limit", cfg.Dispatch.RateLimit),
		zap.Duration("rate_window", cfg.Dispatch.RateWindow),
	)

	// HTTP handlers
	jobHandler := handler.NewJobHandler(crosslistService, log)
	listingHandler := handler.NewListingHandler(crosslistService)
	eventStreamHandler := handler.NewEventStreamHandler(eventBus, log)
	systemHandler := handler.NewSystemHandler(db, redisClient)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if tracerProvider.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Probes stay outside API versioning
	engine.GET("/healthz", systemHandler.Healthz)
	engine.GET("/readyz", systemHandler.Readyz)

	if cfg.Swagger.Enabled {
		swaggerGroup := engine.Group("/swagger")
		swaggerGroup.Use(middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}))
		swaggerGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(&router.JobRoutes{Jobs: jobHandler, Events: eventStreamHandler}).
		Register(&router.ListingRoutes{Listings: listingHandler})
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop taking new requests first, then drain the workers so in-flight
	// browser attempts can settle their jobs
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping dispatcher", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
