package router

import (
	"github.com/condo/backend/internal/infrastructure/logger"
	"github.com/condo/backend/internal/interfaces/http/handler"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the API handlers mounted by NewEngine
type Handlers struct {
	Billing *handler.BillingHandler
	Payment *handler.PaymentHandler
	System  *handler.SystemHandler
	// Webhooks maps a gateway name to its callback handler (e.g. "sepay")
	Webhooks map[string]*handler.WebhookHandler
}

// EngineConfig holds the HTTP settings of the engine
type EngineConfig struct {
	Logger         *zap.Logger
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        middleware.TracingConfig
	// Meter enables HTTP metrics when non-nil
	Meter metric.Meter
}

// NewEngine builds the gin engine with the middleware chain and all routes.
// Middleware order: recovery, request ID, access log, actor, tracing, metrics, body limit.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(log), middleware.RequestID(), logger.GinMiddleware(log), middleware.Actor())
	engine.Use(middleware.Tracing(cfg.Tracing)...)
	engine.Use(middleware.HTTPMetrics(cfg.Meter))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/system/info", h.System.GetSystemInfo)

	routes := NewAPI("v1", billingRoutes(h.Billing), paymentRoutes(h.Payment, h.Webhooks)).Mount(engine)
	for _, r := range routes {
		log.Debug("Route mounted", zap.String("group", r.Group), zap.String("method", r.Method), zap.String("path", r.Path))
	}
	log.Info("HTTP routes mounted", zap.Int("count", len(routes)))
	return engine, nil
}

func billingRoutes(h *handler.BillingHandler) *DomainGroup {
	return NewDomainGroup("billing", "/billing").
		POST("/bills/generate", h.GenerateBills).
		POST("/bills", h.CreateManualBill).
		GET("/bills", h.ListBills).
		POST("/meter-readings", h.RecordMeterReading).
		PUT("/service-fees", h.UpsertServiceFee)
}

func paymentRoutes(h *handler.PaymentHandler, webhooks map[string]*handler.WebhookHandler) *DomainGroup {
	group := NewDomainGroup("payments", "/payments").
		POST("/qr", h.CreateQr).
		POST("/offline", h.CollectOffline).
		POST("/expiry/sweep", h.TriggerSweep)
	for gateway, wh := range webhooks {
		group.POST("/webhook/"+gateway, wh.Receive)
	}
	return group
}
