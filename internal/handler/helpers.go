package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// Helper functions for type conversions between API types and service inputs

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// optionalString returns nil for an empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString safely dereferences a string pointer, returning empty string if nil
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

// datePtrToTime converts an optional date to the start of that day in loc
func datePtrToTime(d *types.Date, loc *time.Location) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return &t
}

// toMedicationInput maps a create or edit request onto the service input
func toMedicationInput(req api.MedicationRequest) service.MedicationInput {
	in := service.MedicationInput{
		Name:           req.Name,
		Dosage:         derefString(req.Dosage),
		Description:    derefString(req.Description),
		FrequencyValue: derefInt(req.FrequencyValue),
		Notes:          derefString(req.Notes),
		Inventory:      req.Inventory,
		LookupDetails:  derefBool(req.LookupDetails),
	}
	if req.FrequencyType != nil {
		in.FrequencyType = string(*req.FrequencyType)
	}
	return in
}

// validationError writes a 400 for a request the handler could not decode
func validationError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Error("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Code:    api.VALIDATIONERROR,
		Message: "Invalid request body",
		Details: stringPtr(err.Error()),
	})
}

// serviceError maps a service error onto the standard error response.
// Server-side failures are logged at Error, client mistakes at Warn.
func serviceError(c *gin.Context, logger *zap.Logger, message string, err error, fields ...zap.Field) {
	status, code := classify(err)

	resp := api.ErrorResponse{
		Code:    code,
		Message: message,
		Details: stringPtr(err.Error()),
	}
	if rej, ok := service.IsRejection(err); ok {
		resp.Message = rej.Reason
		resp.Details = nil
	}

	fields = append(fields, zap.Error(err), zap.String("code", string(code)))
	if status >= http.StatusInternalServerError {
		logger.Error(message, fields...)
		_ = c.Error(err)
	} else {
		logger.Warn(message, fields...)
	}

	c.JSON(status, resp)
}

func classify(err error) (int, api.ErrorResponseCode) {
	if _, ok := service.IsRejection(err); ok {
		return http.StatusUnprocessableEntity, api.REJECTED
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, api.VALIDATIONERROR
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrThemeUnknown):
		return http.StatusNotFound, api.NOTFOUND
	case errors.Is(err, service.ErrAssistantUnavailable), errors.Is(err, service.ErrShareUnavailable):
		return http.StatusServiceUnavailable, api.ASSISTANTUNAVAILABLE
	case errors.Is(err, service.ErrAssistantQuota):
		return http.StatusTooManyRequests, api.ASSISTANTQUOTA
	case errors.Is(err, service.ErrAssistantFailed):
		return http.StatusBadGateway, api.ASSISTANTFAILED
	case errors.Is(err, service.ErrFlowCancelled),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrThemeLocked):
		return http.StatusConflict, api.CONFLICT
	default:
		return http.StatusInternalServerError, api.INTERNALERROR
	}
}

// ParameterErrorHandler reports path, header and query binding failures with
// the standard error body
func ParameterErrorHandler(logger *zap.Logger) func(*gin.Context, error, int) {
	return func(c *gin.Context, err error, status int) {
		logger.Warn("invalid request parameter",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(status, api.ErrorResponse{
			Code:    api.VALIDATIONERROR,
			Message: "Invalid request parameter",
			Details: stringPtr(err.Error()),
		})
	}
}
