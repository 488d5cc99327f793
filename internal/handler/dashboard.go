package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// DashboardHandler implements dashboard API endpoints
type DashboardHandler struct {
	service *service.DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger,
	}
}

// GetDashboardSummary retrieves the adherence summary
func (h *DashboardHandler) GetDashboardSummary(c *gin.Context, params api.GetDashboardSummaryParams) {
	// Default to 7 days if not specified
	days := 7
	if params.Days != nil {
		days = *params.Days
	}

	summary := h.service.GetSummary(c.Request.Context(), days)

	h.logger.Info("dashboard summary retrieved",
		zap.String("period", summary.Period),
		zap.Int("taken", summary.Taken),
		zap.Int("skipped", summary.Skipped),
	)

	c.JSON(http.StatusOK, summary)
}
