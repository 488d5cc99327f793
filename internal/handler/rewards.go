package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// RewardHandler implements profile and theme endpoints
type RewardHandler struct {
	service *service.RewardService
	logger  *zap.Logger
}

// NewRewardHandler creates a new RewardHandler
func NewRewardHandler(service *service.RewardService, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{
		service: service,
		logger:  logger,
	}
}

// GetProfile returns stats, level progress and theme state
func (h *RewardHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Profile(c.Request.Context()))
}

// ListThemes returns the theme catalogue
func (h *RewardHandler) ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Themes(c.Request.Context()))
}

// UnlockTheme spends points on a theme
func (h *RewardHandler) UnlockTheme(c *gin.Context, themeId api.ThemeID) {
	stats, err := h.service.UnlockTheme(c.Request.Context(), themeId)
	if err != nil {
		serviceError(c, h.logger, "Failed to unlock theme", err, zap.String("theme", themeId))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SelectTheme activates an unlocked theme
func (h *RewardHandler) SelectTheme(c *gin.Context) {
	var req api.SelectThemeJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, err)
		return
	}

	if err := h.service.SelectTheme(c.Request.Context(), req.ThemeId); err != nil {
		serviceError(c, h.logger, "Failed to select theme", err, zap.String("theme", req.ThemeId))
		return
	}
	c.Status(http.StatusNoContent)
}
