package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/astrogoddess/storefront/internal/interfaces/http/dto"
	"github.com/astrogoddess/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthHandler reports service and storage health
type HealthHandler struct {
	BaseHandler
	storage   Pinger
	driver    string
	timeout   time.Duration
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler for the named storage driver
func NewHealthHandler(storage Pinger, driver string) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		driver:    driver,
		timeout:   2 * time.Second,
		startTime: time.Now(),
	}
}

// RegisterRoutes mounts the health endpoint
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health pings the cart storage; an unreachable store answers 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Storage:   h.driver,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if err := h.storage.Ping(ctx); err != nil {
		logger.Enrich(ctx, logger.GetGinLogger(c)).Warn("storage health check failed",
			zap.String("driver", h.driver),
			zap.Error(err),
		)
		resp.Status = "degraded"
		errResp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "Cart storage is unreachable", middleware.GetRequestID(c))
		errResp.Data = resp
		c.JSON(http.StatusServiceUnavailable, errResp)
		return
	}

	h.Success(c, resp)
}
