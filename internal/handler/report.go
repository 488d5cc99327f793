package handler

import (
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// ReportHandler implements report API endpoints
type ReportHandler struct {
	service  *service.ReportService
	location *time.Location
	logger   *zap.Logger
}

// NewReportHandler creates a new ReportHandler. Report dates are read as
// whole days in loc.
func NewReportHandler(service *service.ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{
		service:  service,
		location: loc,
		logger:   logger,
	}
}

// GetHistorySummary returns the assistant's summary of recent history
func (h *ReportHandler) GetHistorySummary(c *gin.Context) {
	outcome := h.service.Summary(c.Request.Context())
	c.JSON(http.StatusOK, api.SummaryResponse{
		Summary:  outcome.Summary,
		Fallback: outcome.Fallback,
		Notice:   optionalString(outcome.Notice),
	})
}

// GetTextReport returns the plain-text report
func (h *ReportHandler) GetTextReport(c *gin.Context) {
	c.JSON(http.StatusOK, api.TextReport{Text: h.service.Text(c.Request.Context())})
}

// GetPDFReport renders the report as a PDF download
func (h *ReportHandler) GetPDFReport(c *gin.Context, params api.GetPDFReportParams) {
	r, ok := h.dateRange(c, params.From, params.To)
	if !ok {
		return
	}

	pdfBytes, err := h.service.PDF(c.Request.Context(), r, derefBool(params.Summary))
	if err != nil {
		serviceError(c, h.logger, "Failed to generate report", err)
		return
	}

	filename := fmt.Sprintf("reporte_medicamentos_%s.pdf", time.Now().In(h.location).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)

	h.logger.Info("report generated", zap.Int("size_bytes", len(pdfBytes)))
}

// ShareReport uploads the PDF report and returns where it can be fetched
func (h *ReportHandler) ShareReport(c *gin.Context) {
	var req api.ShareReportJSONRequestBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			validationError(c, h.logger, err)
			return
		}
	}

	r, ok := h.dateRange(c, req.From, req.To)
	if !ok {
		return
	}

	shared, err := h.service.Share(c.Request.Context(), r, derefBool(req.IncludeSummary))
	if err != nil {
		serviceError(c, h.logger, "Failed to share report", err)
		return
	}
	c.JSON(http.StatusCreated, shared)
}

// DownloadSharedReport fetches a previously shared report
func (h *ReportHandler) DownloadSharedReport(c *gin.Context, params api.DownloadSharedReportParams) {
	pdfBytes, err := h.service.Download(c.Request.Context(), params.Name)
	if err != nil {
		serviceError(c, h.logger, "Failed to retrieve report", err, zap.String("blob_path", params.Name))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", path.Base(params.Name)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// dateRange converts optional dates and rejects a start after the end
func (h *ReportHandler) dateRange(c *gin.Context, from, to *types.Date) (service.DateRange, bool) {
	r := service.DateRange{
		From: datePtrToTime(from, h.location),
		To:   datePtrToTime(to, h.location),
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    api.VALIDATIONERROR,
			Message: "Start date must be before or equal to end date",
		})
		return service.DateRange{}, false
	}
	return r, true
}
