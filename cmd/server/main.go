package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/condo/backend/internal/application/billing"
	notificationapp "github.com/condo/backend/internal/application/notification"
	paymentapp "github.com/condo/backend/internal/application/payment"
	"github.com/condo/backend/internal/domain/payment"
	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/cache"
	"github.com/condo/backend/internal/infrastructure/config"
	"github.com/condo/backend/internal/infrastructure/event"
	"github.com/condo/backend/internal/infrastructure/gateway"
	"github.com/condo/backend/internal/infrastructure/logger"
	"github.com/condo/backend/internal/infrastructure/persistence"
	"github.com/condo/backend/internal/infrastructure/scheduler"
	"github.com/condo/backend/internal/infrastructure/telemetry"
	"github.com/condo/backend/internal/interfaces/http/handler"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/condo/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting condo billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowQuery))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	dbTracing.DBName = cfg.Database.DBName
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	apartmentRepo := persistence.NewGormApartmentRepository(db.DB)
	residentRepo := persistence.NewGormResidentRepository(db.DB)
	readingRepo := persistence.NewGormMeterReadingRepository(db.DB)
	feeRepo := persistence.NewGormServiceFeeRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus: notifications are deduplicated across redeliveries
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	notifications := event.NewIdempotentHandler("resident-notifications",
		notificationapp.NewNotificationHandler(residentRepo, notificationRepo, log),
		idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Idempotency.TTL, Enabled: true}),
	)
	eventBus.Subscribe(notifications)

	paymentMetrics, err := telemetry.NewPaymentMetrics(meterProvider.Meter("condo/payments"))
	if err != nil {
		log.Fatal("Failed to initialize payment metrics", zap.Error(err))
	}
	eventBus.Subscribe(paymentMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	billingService := billingapp.NewBillingService(billingapp.BillingServiceConfig{
		ApartmentRepo:  apartmentRepo,
		ReadingRepo:    readingRepo,
		FeeRepo:        feeRepo,
		BillRepo:       billRepo,
		TxScope:        txScope,
		EventPublisher: eventBus,
		Logger:         log,
	})
	paymentService := paymentapp.NewPaymentService(paymentapp.PaymentServiceConfig{
		BillRepo:          billRepo,
		TxRepo:            txRepo,
		ResidentRepo:      residentRepo,
		TxScope:           txScope,
		EventPublisher:    eventBus,
		CorrelationPrefix: cfg.Payment.CorrelationPrefix,
		QRTemplate: payment.QRTemplate{
			BankID:      cfg.Payment.BankID,
			AccountNo:   cfg.Payment.AccountNo,
			AccountName: cfg.Payment.AccountName,
			Template:    cfg.Payment.QRTemplate,
			BaseURL:     cfg.Payment.QRBaseURL,
		},
		PendingTimeout: cfg.Payment.PendingTimeout,
		SweepBatchSize: cfg.Payment.SweepBatchSize,
		Logger:         log,
	})

	// Expiry sweeper
	sweeper, err := scheduler.NewIntervalScheduler(
		scheduler.NewExpirySweepJob(paymentService, log),
		scheduler.IntervalSchedulerConfig{
			Enabled:    cfg.Payment.SweeperEnabled,
			Interval:   cfg.Payment.SweepInterval,
			RunOnStart: true,
		},
		log,
	)
	if err != nil {
		log.Fatal("Failed to create expiry sweeper", zap.Error(err))
	}
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}

	// HTTP
	webhooks := make(map[string]*handler.WebhookHandler)
	sepay, err := gateway.NewSePayParser(cfg.Payment.WebhookAPIKey)
	switch {
	case errors.Is(err, gateway.ErrSePayMissingAPIKey):
		log.Warn("SePay webhook disabled: payment.webhook_api_key is not set")
	case err != nil:
		log.Fatal("Failed to create SePay parser", zap.Error(err))
	default:
		webhooks[sepay.Gateway()] = handler.NewWebhookHandler(paymentService, sepay, paymentMetrics)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter: meterProvider.Meter("condo/http"),
	}, router.Handlers{
		Billing:  handler.NewBillingHandler(billingService, cfg.Billing.DefaultDeadlineDay),
		Payment:  handler.NewPaymentHandler(paymentService),
		System:   handler.NewSystemHandler(db, version),
		Webhooks: webhooks,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	// Graceful shutdown: stop intake, then the sweeper, then flush telemetry
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Error("Expiry sweeper did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
