package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/gridpos/backend/internal/application/billing"
	apptenancy "github.com/gridpos/backend/internal/application/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/auth"
	"github.com/gridpos/backend/internal/infrastructure/cache"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"github.com/gridpos/backend/internal/infrastructure/event"
	"github.com/gridpos/backend/internal/infrastructure/logger"
	"github.com/gridpos/backend/internal/infrastructure/migration"
	"github.com/gridpos/backend/internal/infrastructure/persistence"
	"github.com/gridpos/backend/internal/infrastructure/persistence/schemascope"
	"github.com/gridpos/backend/internal/infrastructure/scheduler"
	"github.com/gridpos/backend/internal/interfaces/http/handler"
	"github.com/gridpos/backend/internal/interfaces/http/middleware"
	"github.com/gridpos/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags
var version = "dev"

const tenantMigrationsPath = "migrations/tenant"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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

	log.Info("Starting GridPOS platform",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Shared-partition database connection
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}

	// Repositories (all shared-partition)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	schemaRegistry := persistence.NewGormSchemaRegistry(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentEventRepo := persistence.NewGormPaymentEventRepository(db.DB)
	usageCounterRepo := persistence.NewGormUsageCounterRepository(db.DB)

	// Seed the plan catalog; no-op when plans already exist.
	if err := planRepo.SeedDefaults(context.Background()); err != nil {
		log.Fatal("Failed to seed plan catalog", zap.Error(err))
	}

	// Idempotency store for payment callback dedup. Redis is the fast
	// path; the in-memory fallback is safe because the payment_events
	// unique index stays authoritative.
	idempotencyStore, err := cache.OpenIdempotencyStore(cfg.Redis, true, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Schema-scoped execution primitives
	scopedExecutor := schemascope.NewExecutor(sqlDB, gormLog, log)
	schemaDDL := schemascope.NewDDL(sqlDB)
	tenantMigrator := migration.NewTenantMigrator(cfg.Database.DSN(), tenantMigrationsPath, log)

	// Application services
	provisioningService := apptenancy.NewProvisioningService(
		tenantRepo, schemaRegistry, schemaDDL, tenantMigrator, scopedExecutor,
		eventBus, cfg.Provisioning, cfg.Tenancy.BaseDomain, log,
	)
	tenantService := apptenancy.NewTenantService(
		tenantRepo, schemaRegistry, planRepo, subscriptionRepo,
		provisioningService, eventBus, cfg.Billing, cfg.Tenancy, log,
	)
	resolverService := apptenancy.NewResolverService(schemaRegistry, tenantRepo, cfg.Tenancy)

	entitlementService := appbilling.NewEntitlementService(
		tenantRepo, subscriptionRepo, planRepo, usageCounterRepo, cfg.Billing,
	)
	lifecycleService := appbilling.NewLifecycleService(
		subscriptionRepo, planRepo, invoiceRepo, tenantRepo, eventBus, cfg.Billing, log,
	)
	paymentIngestService := appbilling.NewPaymentIngestService(
		paymentEventRepo, invoiceRepo, subscriptionRepo, tenantRepo,
		idempotencyStore, eventBus, cfg.Billing, log,
	)
	planService := appbilling.NewPlanService(planRepo, subscriptionRepo, invoiceRepo)

	// Lifecycle sweeper: subscription evaluation, provisioning retries,
	// schema retention reaper.
	sweeper := scheduler.NewSweeper(
		lifecycleService, provisioningService, tenantRepo,
		cfg.Scheduler, cfg.Provisioning, log,
	)
	if cfg.Scheduler.Enabled {
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start lifecycle sweeper", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sweeper.Stop(stopCtx); err != nil {
				log.Error("Error stopping lifecycle sweeper", zap.Error(err))
			}
		}()
	}

	// Platform operator auth
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	handlers := router.Handlers{
		System:          handler.NewSystemHandler(db, version),
		Tenant:          handler.NewTenantHandler(tenantService),
		Billing:         handler.NewBillingHandler(planService, lifecycleService, entitlementService),
		PaymentCallback: handler.NewPaymentCallbackHandler(paymentIngestService),
	}

	// Set Gin mode based on environment
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
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	router.Setup(engine, handlers, router.Config{
		JWTService:     jwtService,
		TenantResolver: middleware.TenantResolver(resolverService),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Logger:         log,
	})

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
