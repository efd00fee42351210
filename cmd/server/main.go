package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	floatapp "github.com/fxoffice/backend/internal/application/float"
	identityapp "github.com/fxoffice/backend/internal/application/identity"
	partnerapp "github.com/fxoffice/backend/internal/application/partner"
	tradeapp "github.com/fxoffice/backend/internal/application/trade"
	vaultapp "github.com/fxoffice/backend/internal/application/vault"
	"github.com/fxoffice/backend/internal/infrastructure/auth"
	"github.com/fxoffice/backend/internal/infrastructure/cache"
	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/fxoffice/backend/internal/infrastructure/crypto"
	"github.com/fxoffice/backend/internal/infrastructure/event"
	"github.com/fxoffice/backend/internal/infrastructure/fxrates"
	"github.com/fxoffice/backend/internal/infrastructure/identityprovider"
	"github.com/fxoffice/backend/internal/infrastructure/logger"
	"github.com/fxoffice/backend/internal/infrastructure/persistence"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/fxoffice/backend/internal/infrastructure/printing"
	"github.com/fxoffice/backend/internal/infrastructure/realtime"
	"github.com/fxoffice/backend/internal/infrastructure/scheduler"
	"github.com/fxoffice/backend/internal/infrastructure/storage"
	"github.com/fxoffice/backend/internal/infrastructure/telemetry"
	"github.com/fxoffice/backend/internal/infrastructure/webhook"
	"github.com/fxoffice/backend/internal/interfaces/http/handler"
	"github.com/fxoffice/backend/internal/interfaces/http/middleware"
	"github.com/fxoffice/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/fxoffice/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			FX Office Back-Office API
//	@version		1.0
//	@description	Multi-tenant back-office for foreign exchange counters: vaults, float sessions, quotes and KYC.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/fxoffice/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token issued by the identity provider. Format: "Bearer {token}"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName

	// OTLP log export: rebuild the logger with the bridge core teed in
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled {
		if log, err = logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FX back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	meter := meterProvider.Meter(serviceName)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   serviceName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter", zap.Error(err))
		}
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log exporter", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tenant.RegisterGuard(db.DB); err != nil {
		log.Fatal("Failed to install tenant guard", zap.Error(err))
	}
	if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Warn("Failed to instrument database", zap.Error(err))
	}
	if err := telemetry.RegisterDBPoolMetrics(meter, db.DB); err != nil {
		log.Warn("Failed to register pool metrics", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis-backed stores fall back to memory when redis is not configured
	stores := cache.NewStores(cfg.Redis, log)
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()
	var revocations auth.SessionRevocations = auth.NewInMemorySessionRevocations()
	if stores.Client != nil {
		revocations = auth.NewRedisSessionRevocations(stores.Client)
	}

	cipher := buildCipher(cfg, log)

	// Repositories
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	memberRepo := persistence.NewGormMembershipRepository(db.DB)
	repoRepo := persistence.NewGormVaultRepository(db.DB)
	currencyRepo := persistence.NewGormCurrencyRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB, cipher)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	noteRepo := persistence.NewGormNoteRepository(db.DB)
	transactor := persistence.NewTransactor(db.DB)

	// External clients
	identityClient := identityprovider.NewClient(cfg.Identity, log)
	rateFeed := cache.NewCachingRateProvider(fxrates.NewClient(cfg.Rates, log), stores.Rates, cfg.Rates.CacheTTL, log)

	eventBus := event.NewInMemoryEventBus(log)

	// Application services
	currencyService := vaultapp.NewCurrencyService(currencyRepo)
	orgService := identityapp.NewOrganizationService(
		orgRepo, userRepo, memberRepo, identityClient, currencyService, stores.Idempotency,
		identityapp.WithEventPublisher(eventBus),
		identityapp.WithSessionRevoker(revocations),
		identityapp.WithTransactor(transactor),
		identityapp.WithLogger(log),
	)
	rateService := vaultapp.NewRateService(orgRepo, currencyRepo, rateFeed, log)
	sessionService := floatapp.NewSessionService(sessionRepo, repoRepo, currencyRepo)
	repositoryService := vaultapp.NewRepositoryService(repoRepo, memberRepo, userRepo, sessionService)
	customerService := partnerapp.NewCustomerService(customerRepo)
	customerService.SetLogger(log)
	orderService := tradeapp.NewOrderService(orderRepo, sessionRepo, currencyRepo, customerRepo, repoRepo, orgRepo,
		tradeapp.OrderServiceConfig{
			QuoteTTL:     cfg.Trade.QuoteTTL,
			KYCThreshold: cfg.Trade.KYCThreshold,
		})
	orderService.SetLogger(log)
	orderService.SetTransactor(transactor)
	noteService := tradeapp.NewNoteService(noteRepo)

	currencyService.SetEventPublisher(eventBus)
	rateService.SetEventPublisher(eventBus)
	repositoryService.SetEventPublisher(eventBus)
	customerService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)

	// KYC document storage
	if cfg.Storage.Enabled() {
		docStore, err := storage.NewS3DocumentStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize document storage", zap.Error(err))
		}
		if err := docStore.EnsureBucket(ctx); err != nil {
			log.Warn("Document bucket is not ready", zap.String("bucket", docStore.Bucket()), zap.Error(err))
		}
		customerService.SetDocumentStorage(docStore, cfg.Storage.PresignExpiration)
		log.Info("Document storage enabled", zap.String("bucket", docStore.Bucket()))
	} else {
		log.Info("Document storage disabled; KYC document URLs are unavailable")
	}

	// Receipts: HTML always, PDF when a browser is available
	var pdf printing.PDFRenderer
	if cfg.Receipt.PDFEnabled {
		chrome, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
			DefaultTimeout: cfg.Receipt.Timeout,
			ExecPath:       cfg.Receipt.ChromePath,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Warn("PDF receipts disabled", zap.Error(err))
		} else {
			pdf = chrome
		}
	}
	receipts, err := printing.NewReceiptRenderer(printing.ReceiptRendererConfig{
		Locale:  cfg.Receipt.Locale,
		Timeout: cfg.Receipt.Timeout,
		Logger:  log,
	}, pdf)
	if err != nil {
		log.Fatal("Failed to initialize receipt renderer", zap.Error(err))
	}
	defer func() {
		if err := receipts.Close(); err != nil {
			log.Error("Error closing receipt renderer", zap.Error(err))
		}
	}()
	orderService.SetReceiptRenderer(receipts)

	// Event subscribers
	rateHub := realtime.NewRateHub(log, originChecker(cfg.HTTP.CORSAllowOrigins))
	defer rateHub.Close()
	auditHandler := event.NewAuditLogHandler(log)
	eventBus.Subscribe(auditHandler)
	eventBus.Subscribe(rateHub, rateHub.EventTypes()...)
	if fxMetrics, err := telemetry.NewFXMetrics(meter); err != nil {
		log.Warn("Failed to register FX metrics", zap.Error(err))
	} else {
		eventBus.Subscribe(fxMetrics, fxMetrics.EventTypes()...)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Background jobs: feed rate refresh per tenant and the quote expiry sweep
	schedCfg := scheduler.DefaultConfig()
	jobs := scheduler.NewScheduler(schedCfg, scheduler.NewExecutor(rateService, orderService, cfg.Trade.ExpirySweepBatch), log)
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start job scheduler", zap.Error(err))
	}
	defer func() {
		if err := jobs.Stop(context.Background()); err != nil {
			log.Error("Error stopping job scheduler", zap.Error(err))
		}
	}()

	trigger := scheduler.NewCronTrigger(jobs, orgService, log)
	if cfg.Rates.RefreshEnabled {
		if err := trigger.EveryTenant(cfg.Rates.RefreshCron, scheduler.JobKindRateRefresh); err != nil {
			log.Fatal("Invalid rate refresh schedule", zap.String("cron", cfg.Rates.RefreshCron), zap.Error(err))
		}
	}
	if err := trigger.Every("@every "+cfg.Trade.ExpirySweepInterval.String(), scheduler.JobKindQuoteExpiry); err != nil {
		log.Fatal("Invalid quote expiry interval", zap.Error(err))
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start cron trigger", zap.Error(err))
	}
	defer func() {
		if err := trigger.Stop(context.Background()); err != nil {
			log.Error("Error stopping cron trigger", zap.Error(err))
		}
	}()
	log.Info("Job scheduler started",
		zap.Int("workers", schedCfg.Workers),
		zap.Bool("rate_refresh", cfg.Rates.RefreshEnabled),
		zap.Duration("quote_expiry_interval", cfg.Trade.ExpirySweepInterval),
	)

	// HTTP handlers
	var rateRefresher *vaultapp.RateService
	if cfg.Rates.BaseURL != "" {
		rateRefresher = rateService
	}
	handlers := router.Handlers{
		Organization: handler.NewOrganizationHandler(orgService),
		Repository:   handler.NewRepositoryHandler(repositoryService),
		Currency:     handler.NewCurrencyHandler(currencyService, rateRefresher),
		Customer:     handler.NewCustomerHandler(customerService),
		Session:      handler.NewSessionHandler(sessionService),
		Order:        handler.NewOrderHandler(orderService),
		Note:         handler.NewNoteHandler(noteService),
	}

	verifier, err := auth.NewTokenVerifier(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to initialize token verifier", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	secCfg := middleware.DefaultSecurityConfig()
	secCfg.HSTSEnabled = cfg.IsProduction()

	probePaths := []string{"/health"}

	// Order matters: request id first so every log line and span carries it
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SecureWithConfig(secCfg),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   probePaths,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
	)

	health := handler.NewHealthHandler(version, map[string]handler.HealthCheck{
		"database": db.Ping,
		"redis": func(ctx context.Context) error {
			if stores.Client == nil {
				return nil
			}
			return stores.Client.Ping(ctx).Err()
		},
	})
	engine.GET("/health", health.Health)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	basePath := r.BasePath()

	// The webhook authenticates by signature, not by session token
	if cfg.Webhook.Secret != "" {
		whVerifier, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
		if err != nil {
			log.Fatal("Invalid webhook secret", zap.Error(err))
		}
		engine.POST(basePath+"/webhooks/identity", handler.NewWebhookHandler(whVerifier, orgService).IdentityWebhook)
	} else {
		log.Warn("Webhook secret not set; identity provider sync is disabled")
	}

	jwtCfg := middleware.JWTMiddlewareConfig{
		Verifier:    verifier,
		Principals:  orgService,
		Revocations: revocations,
		Logger:      log,
	}

	// Browsers cannot set headers on websocket upgrades
	wsAuth := jwtCfg
	wsAuth.AllowQueryToken = true
	engine.GET(basePath+"/ws/rates",
		middleware.JWTAuthMiddlewareWithConfig(wsAuth),
		middleware.RequireTenant(),
		handler.NewRateStreamHandler(rateHub).Stream,
	)

	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   cfg.Profiling.Enabled,
			SkipPaths: probePaths,
		}),
	}

	rateCtx, stopRateLimiter := context.WithCancel(ctx)
	defer stopRateLimiter()
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		go limiter.Run(rateCtx)
		apiMiddleware = append(apiMiddleware, limiter.Middleware())
	}

	r.Use(apiMiddleware...)
	for _, group := range router.APIGroups(handlers, middleware.RequireTenant()) {
		r.Register(group)
	}
	r.Setup()
	log.Debug("API routes mounted", zap.String("base", basePath), zap.Int("count", len(r.Routes())))

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildCipher returns the identification cipher. Outside production a missing key
// falls back to a per-process key, which makes stored numbers unreadable after restart.
func buildCipher(cfg *config.Config, log *zap.Logger) *crypto.SecretboxCipher {
	key, err := cfg.Crypto.Key()
	if err != nil {
		if cfg.IsProduction() || cfg.Crypto.IdentificationKey != "" {
			log.Fatal("Invalid identification key", zap.Error(err))
		}
		log.Warn("FXO_CRYPTO_IDENTIFICATION_KEY not set; using an ephemeral key")
		key = crypto.EphemeralKey()
	}
	cipher, err := crypto.NewSecretboxCipher(key)
	if err != nil {
		log.Fatal("Failed to initialize identification cipher", zap.Error(err))
	}
	return cipher
}

// originChecker accepts websocket upgrades from the configured CORS origins
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
