package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// ServiceName is reported by the health endpoint
const ServiceName = "medireminder"

// StorageProbe is the part of the key-value store the health check touches
type StorageProbe interface {
	Keys(ctx context.Context) ([]string, error)
}

// HealthHandler implements the liveness endpoint
type HealthHandler struct {
	storage   StorageProbe
	assistant interface{ Available() bool }
	version   string
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(storage StorageProbe, assistant interface{ Available() bool }, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		assistant: assistant,
		version:   version,
		logger:    logger,
	}
}

// GetHealth reports whether the ledger store answers. An unconfigured
// assistant is reported but does not make the service unhealthy.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	assistant := "unavailable"
	if h.assistant != nil && h.assistant.Available() {
		assistant = "configured"
	}

	if _, err := h.storage.Keys(c.Request.Context()); err != nil {
		h.logger.Error("health check failed: storage unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, api.HealthResponse{
			Status:    "unhealthy",
			Storage:   stringPtr("disconnected"),
			Assistant: stringPtr(assistant),
			Error:     stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Storage:   stringPtr("connected"),
		Assistant: stringPtr(assistant),
		Service:   stringPtr(ServiceName),
		Version:   stringPtr(h.version),
	})
}
