package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	catalogapp "github.com/artisanmarket/backend/internal/application/catalog"
	identityapp "github.com/artisanmarket/backend/internal/application/identity"
	orderapp "github.com/artisanmarket/backend/internal/application/order"
	paymentapp "github.com/artisanmarket/backend/internal/application/payment"
	uploadapp "github.com/artisanmarket/backend/internal/application/upload"
	vendorapp "github.com/artisanmarket/backend/internal/application/vendor"
	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/auth"
	"github.com/artisanmarket/backend/internal/infrastructure/banking"
	"github.com/artisanmarket/backend/internal/infrastructure/cache"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/artisanmarket/backend/internal/infrastructure/event"
	"github.com/artisanmarket/backend/internal/infrastructure/logger"
	paymentinfra "github.com/artisanmarket/backend/internal/infrastructure/payment"
	"github.com/artisanmarket/backend/internal/infrastructure/persistence"
	"github.com/artisanmarket/backend/internal/infrastructure/realtime"
	"github.com/artisanmarket/backend/internal/infrastructure/scheduler"
	"github.com/artisanmarket/backend/internal/infrastructure/storage"
	"github.com/artisanmarket/backend/internal/infrastructure/telemetry"
	"github.com/artisanmarket/backend/internal/interfaces/http/handler"
	"github.com/artisanmarket/backend/internal/interfaces/http/middleware"
	"github.com/artisanmarket/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/artisanmarket/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			ArtisanMarket API
//	@version		1.0
//	@description	Multi-vendor marketplace for handmade goods: catalog, checkout, fulfilment and vendor storefronts.

//	@contact.name	ArtisanMarket Engineering
//	@contact.email	engineering@artisanmarket.example.com

//	@host		localhost:8080
//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
		Sample:     cfg.IsProduction(),
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ArtisanMarket backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	metricsCfg := otelCfg
	metricsCfg.Enabled = cfg.Telemetry.MetricsEnabled
	meterProvider, err := telemetry.NewMeterProvider(ctx, metricsCfg, 0, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter("artisanmarket")

	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithHiddenParams(cfg.IsProduction()))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		plugin, err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, meter, log)
		if err != nil {
			log.Fatal("Failed to create database tracing plugin", zap.Error(err))
		}
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing plugin", zap.Error(err))
		}
	}

	// Redis-backed cache, idempotency keys and token blacklist
	stores, err := cache.NewStores(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize Redis stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing Redis stores", zap.Error(err))
		}
	}()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if stores.Client != nil {
		blacklist = auth.NewRedisTokenBlacklist(stores.Client)
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log, event.WithHandlerTimeout(cfg.Events.HandlerTimeout))

	hub := realtime.NewHub(cfg.HTTP.CORSAllowOrigins, log)
	defer hub.Close()
	notifier := realtime.NewNotifier(hub)
	eventBus.Subscribe(notifier)
	eventBus.Subscribe(businessMetrics)

	if cfg.Events.AMQPEnabled {
		publisher, err := event.DialAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange, []string{
			identity.EventTypeUserRegistered,
			vendor.EventTypeVendorRegistered,
			catalog.EventTypeProductCreated,
			catalog.EventTypeProductUpdated,
			catalog.EventTypeProductDeleted,
			catalog.EventTypeProductStockChanged,
			catalog.EventTypeLowStockDigest,
			order.EventTypeOrderPlaced,
			order.EventTypeOrderStatusChanged,
			order.EventTypeOrderCancelled,
			order.EventTypeOrderDelivered,
			order.EventTypeDeliveryProofUploaded,
		}, log)
		if err != nil {
			log.Fatal("Failed to connect event publisher", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("Error closing event publisher", zap.Error(err))
			}
		}()
		eventBus.Subscribe(publisher)
		log.Info("Publishing domain events to RabbitMQ", zap.String("exchange", cfg.Events.AMQPExchange))
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// External providers
	var gateway paymentapp.Gateway
	if cfg.Stripe.Enabled() {
		stripeGateway, err := paymentinfra.NewStripeGateway(cfg.Stripe, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe", zap.Error(err))
		}
		gateway = stripeGateway
	} else {
		log.Warn("Stripe is not configured; card payments use the sandbox gateway")
		gateway = paymentinfra.NewSandboxGateway(cfg.Stripe.DefaultCurrency)
	}

	var objects uploadapp.ObjectStorage
	if cfg.Storage.Enabled() {
		s3Storage, err := storage.NewS3ObjectStorage(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objects = s3Storage
	} else {
		log.Warn("Object storage is not configured; uploads are issued against a local stub")
		objects = storage.NewStubObjectStorage("http://localhost:" + cfg.App.Port + "/media")
	}

	bankProvider := banking.NewSandboxProvider(decimal.NewFromFloat(cfg.Banking.SandboxBalance), log)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, vendorRepo, jwtService, blacklist,
		identityapp.DefaultAuthServiceConfig(), log)
	bankService := identityapp.NewBankService(userRepo, bankProvider, log)

	queryOpts := []catalogapp.QueryServiceOption{catalogapp.WithLookupRecorder(businessMetrics)}
	if cfg.Cache.Enabled {
		invalidator := catalogapp.NewCacheInvalidator(stores.Responses, log)
		eventBus.Subscribe(invalidator)
		queryOpts = append(queryOpts,
			catalogapp.WithCache(stores.Responses, catalogapp.CacheTTLs{
				List:       cfg.Cache.ProductListTTL,
				Featured:   cfg.Cache.FeaturedTTL,
				Categories: cfg.Cache.CategoriesTTL,
			}),
			catalogapp.WithCacheGeneration(invalidator.Generation()),
		)
	}
	queryService := catalogapp.NewQueryService(productRepo, vendorRepo, log, queryOpts...)
	productService := catalogapp.NewProductService(productRepo, vendorRepo, eventBus, log)

	paymentService := paymentapp.NewService(gateway, cfg.Stripe.DefaultCurrency, log)
	checkoutService := orderapp.NewCheckoutService(txScope, paymentService, orderapp.CheckoutConfig{
		IdempotencyTTL:      cfg.Checkout.IdempotencyTTL,
		TotalTolerance:      decimal.NewFromFloat(cfg.Checkout.TotalTolerance),
		OrderNumberAttempts: cfg.Checkout.OrderNumberRetry,
	}, log,
		orderapp.WithIdempotencyStore(stores.Idempotency),
		orderapp.WithEventPublisher(eventBus),
		orderapp.WithRejectionRecorder(businessMetrics),
	)
	orderService := orderapp.NewOrderService(orderRepo, txScope, eventBus, log)
	proofService := orderapp.NewDeliveryProofService(orderRepo, objects, eventBus, log)
	vendorService := vendorapp.NewVendorService(vendorRepo, productRepo, orderRepo, txScope, eventBus, log)
	uploadService := uploadapp.NewService(objects, cfg.JWT.Secret, cfg.Storage.PresignExpiration, log)

	// Daily low-stock digest
	var digestScheduler *scheduler.Scheduler
	var digestTrigger *scheduler.CronTrigger
	if cfg.Scheduler.Enabled {
		digestService := catalogapp.NewStockDigestService(productRepo, eventBus, cfg.Scheduler.DigestLimit, log)
		digestScheduler = scheduler.NewScheduler(scheduler.Config{
			Workers:       cfg.Scheduler.Workers,
			JobTimeout:    cfg.Scheduler.JobTimeout,
			RetryAttempts: cfg.Scheduler.RetryAttempts,
			RetryDelay:    cfg.Scheduler.RetryDelay,
		}, digestService, log)
		digestTrigger = scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			DigestHour:    cfg.Scheduler.DigestHour,
			DigestMinute:  cfg.Scheduler.DigestMinute,
			CheckInterval: cfg.Scheduler.CheckInterval,
		}, digestScheduler, digestService, log)

		if err := digestScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start digest scheduler", zap.Error(err))
		}
		if err := digestTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start digest trigger", zap.Error(err))
		}
	}

	// HTTP handlers
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if stores.Client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return stores.Client.Ping(ctx).Err()
		}
	}

	vendorHandler := handler.NewVendorHandler(vendorService, orderService, proofService, hub)
	productHandler := handler.NewProductHandler(queryService, productService, vendorHandler).
		WithImportLimits(cfg.Import.MaxFileSize, cfg.Import.MaxRows)
	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Bank:    handler.NewBankHandler(bankService),
		Product: productHandler,
		Order:   handler.NewOrderHandler(checkoutService, orderService, vendorHandler),
		Vendor:  vendorHandler,
		Upload:  handler.NewUploadHandler(uploadService),
		Payment: handler.NewPaymentHandler(paymentService),
		System:  handler.NewSystemHandler(cfg.App.Name, version, checks),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - One span per route, then copy request IDs onto it
	// 5. Metrics - Request count and latency per route
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths("/health", "/ready", "/api/health", "/api/system/ping")))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	if meterProvider.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meter, log))
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, middleware.WithMultipartLimit(cfg.Import.MaxFileSize)))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	routeOpts := router.Options{
		JWT: middleware.JWTMiddlewareConfig{
			JWTService:      jwtService,
			TokenBlacklist:  blacklist,
			QueryTokenPaths: []string{"/api/vendors/ws"},
			Logger:          log,
		},
		Swagger: middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled && !cfg.IsProduction(),
			AllowedIPs: cfg.Swagger.AllowedIPs,
		},
		SwaggerHandler: ginSwagger.WrapHandler(swaggerFiles.Handler),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Close()
		routeOpts.AuthLimiter = authLimiter
	}
	router.Setup(engine, handlers, routeOpts)

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if digestTrigger != nil {
		if err := digestTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping digest trigger", zap.Error(err))
		}
		if err := digestScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping digest scheduler", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
