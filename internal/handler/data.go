package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"go.uber.org/zap"
)

// DataHandler implements the data export and reset endpoints
type DataHandler struct {
	service *service.DataService
	logger  *zap.Logger
}

// NewDataHandler creates a new DataHandler
func NewDataHandler(service *service.DataService, logger *zap.Logger) *DataHandler {
	return &DataHandler{
		service: service,
		logger:  logger,
	}
}

// ExportData returns every ledger as a JSON download
func (h *DataHandler) ExportData(c *gin.Context) {
	h.logger.Info("processing data export request", zap.String("ip", c.ClientIP()))

	jsonData, err := h.service.ExportData(c.Request.Context())
	if err != nil {
		serviceError(c, h.logger, "Failed to export data", err)
		return
	}

	h.logger.Info("data exported successfully", zap.Int("data_size_bytes", len(jsonData)))

	// Return JSON file as download
	filename := fmt.Sprintf("medireminder_%s.json", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", jsonData)
}

// ClearData resets every ledger to its empty default
func (h *DataHandler) ClearData(c *gin.Context) {
	h.logger.Info("processing data clear request",
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
	)

	if err := h.service.ClearData(c.Request.Context()); err != nil {
		serviceError(c, h.logger, "Failed to clear data", err)
		return
	}

	h.logger.Info("data cleared successfully")
	c.Status(http.StatusNoContent)
}
