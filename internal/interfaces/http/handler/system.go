package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/condo/backend/internal/infrastructure/logger"
	"github.com/condo/backend/internal/infrastructure/persistence"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// healthTimeout bounds the store ping so a stuck pool fails the health check
const healthTimeout = 2 * time.Second

// Store is the view of the database the system endpoints need
type Store interface {
	Ping(ctx context.Context) error
	PoolStats() (persistence.PoolStats, error)
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	store     Store
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(store Store, version string) *SystemHandler {
	return &SystemHandler{
		store:     store,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health pings the store and answers 503 when it is unreachable
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "down"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Database: "up"})
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`

	Database *persistence.PoolStats `json:"database,omitempty"`
}

// GetSystemInfo returns version, uptime and connection pool counters
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Condo Billing API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if stats, err := h.store.PoolStats(); err == nil {
		info.Database = &stats
	} else {
		logger.L(c.Request.Context()).Warn("Pool stats unavailable", zap.Error(err))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
