package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Liveness and storage check
	// (GET /health)
	GetHealth(c *gin.Context)
	// List medications in stored order
	// (GET /api/v1/medications)
	ListMedications(c *gin.Context)
	// Add a medication from a manual entry
	// (POST /api/v1/medications)
	CreateMedication(c *gin.Context, params CreateMedicationParams)
	// Medications that may be logged now
	// (GET /api/v1/medications/due)
	ListDueMedications(c *gin.Context)
	// Add a medication from a free-text instruction
	// (POST /api/v1/medications/assist)
	AssistCreateMedication(c *gin.Context, params AssistCreateMedicationParams)
	// Add a medication from a spoken instruction
	// (POST /api/v1/medications/voice)
	VoiceCreateMedication(c *gin.Context, params VoiceCreateMedicationParams)

	// (GET /api/v1/medications/{id})
	GetMedication(c *gin.Context, id MedicationID)
	// Edit a medication, keeping its identity, advice and schedule
	// (PUT /api/v1/medications/{id})
	UpdateMedication(c *gin.Context, id MedicationID)
	// Remove a medication; its history is kept
	// (DELETE /api/v1/medications/{id})
	DeleteMedication(c *gin.Context, id MedicationID)

	// (POST /api/v1/medications/{id}/take)
	TakeMedication(c *gin.Context, id MedicationID)

	// (POST /api/v1/medications/{id}/skip)
	SkipMedication(c *gin.Context, id MedicationID)

	// (POST /api/v1/medications/{id}/snooze)
	SnoozeMedication(c *gin.Context, id MedicationID)
	// Ask the assistant for corrected name, description and advice
	// (POST /api/v1/medications/{id}/refresh)
	RefreshMedicationDetails(c *gin.Context, id MedicationID)
	// Dismiss an add or edit flow; a late assistant result is discarded
	// (DELETE /api/v1/flows/{flowId})
	CancelFlow(c *gin.Context, flowId string)
	// Dose history, newest first
	// (GET /api/v1/history)
	ListHistory(c *gin.Context, params ListHistoryParams)

	// (GET /api/v1/dashboard/summary)
	GetDashboardSummary(c *gin.Context, params GetDashboardSummaryParams)

	// (GET /api/v1/profile)
	GetProfile(c *gin.Context)

	// (GET /api/v1/themes)
	ListThemes(c *gin.Context)

	// (POST /api/v1/themes/{themeId}/unlock)
	UnlockTheme(c *gin.Context, themeId ThemeID)

	// (PUT /api/v1/theme)
	SelectTheme(c *gin.Context)
	// Encouraging assistant summary of recent history
	// (GET /api/v1/summary)
	GetHistorySummary(c *gin.Context)

	// (GET /api/v1/reports/text)
	GetTextReport(c *gin.Context)

	// (GET /api/v1/reports/pdf)
	GetPDFReport(c *gin.Context, params GetPDFReportParams)

	// (POST /api/v1/reports/share)
	ShareReport(c *gin.Context)

	// (GET /api/v1/reports/shared)
	DownloadSharedReport(c *gin.Context, params DownloadSharedReportParams)

	// (GET /api/v1/data/export)
	ExportData(c *gin.Context)
	// Reset every ledger to its empty default
	// (DELETE /api/v1/data)
	ClearData(c *gin.Context)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

// bindFlowID reads the optional X-Flow-ID header
func (siw *ServerInterfaceWrapper) bindFlowID(c *gin.Context) (*FlowID, bool) {
	valueList, found := c.Request.Header[http.CanonicalHeaderKey("X-Flow-ID")]
	if !found {
		return nil, true
	}
	if n := len(valueList); n != 1 {
		siw.ErrorHandler(c, fmt.Errorf("Expected one value for X-Flow-ID, got %d", n), http.StatusBadRequest)
		return nil, false
	}

	var XFlowID FlowID
	err := runtime.BindStyledParameterWithOptions("simple", "X-Flow-ID", valueList[0], &XFlowID, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: false})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter X-Flow-ID: %w", err), http.StatusBadRequest)
		return nil, false
	}
	return &XFlowID, true
}

// bindPathString binds a required string path parameter
func (siw *ServerInterfaceWrapper) bindPathString(c *gin.Context, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &value, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", name, err), http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetHealth(c)
}

// ListMedications operation middleware
func (siw *ServerInterfaceWrapper) ListMedications(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListMedications(c)
}

// CreateMedication operation middleware
func (siw *ServerInterfaceWrapper) CreateMedication(c *gin.Context) {
	var params CreateMedicationParams

	flowID, ok := siw.bindFlowID(c)
	if !ok {
		return
	}
	params.XFlowID = flowID

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.CreateMedication(c, params)
}

// ListDueMedications operation middleware
func (siw *ServerInterfaceWrapper) ListDueMedications(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListDueMedications(c)
}

// AssistCreateMedication operation middleware
func (siw *ServerInterfaceWrapper) AssistCreateMedication(c *gin.Context) {
	var params AssistCreateMedicationParams

	flowID, ok := siw.bindFlowID(c)
	if !ok {
		return
	}
	params.XFlowID = flowID

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.AssistCreateMedication(c, params)
}

// VoiceCreateMedication operation middleware
func (siw *ServerInterfaceWrapper) VoiceCreateMedication(c *gin.Context) {
	var params VoiceCreateMedicationParams

	flowID, ok := siw.bindFlowID(c)
	if !ok {
		return
	}
	params.XFlowID = flowID

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.VoiceCreateMedication(c, params)
}

// GetMedication operation middleware
func (siw *ServerInterfaceWrapper) GetMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetMedication(c, id)
}

// UpdateMedication operation middleware
func (siw *ServerInterfaceWrapper) UpdateMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.UpdateMedication(c, id)
}

// DeleteMedication operation middleware
func (siw *ServerInterfaceWrapper) DeleteMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteMedication(c, id)
}

// TakeMedication operation middleware
func (siw *ServerInterfaceWrapper) TakeMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.TakeMedication(c, id)
}

// SkipMedication operation middleware
func (siw *ServerInterfaceWrapper) SkipMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SkipMedication(c, id)
}

// SnoozeMedication operation middleware
func (siw *ServerInterfaceWrapper) SnoozeMedication(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SnoozeMedication(c, id)
}

// RefreshMedicationDetails operation middleware
func (siw *ServerInterfaceWrapper) RefreshMedicationDetails(c *gin.Context) {
	id, ok := siw.bindPathString(c, "id")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.RefreshMedicationDetails(c, id)
}

// CancelFlow operation middleware
func (siw *ServerInterfaceWrapper) CancelFlow(c *gin.Context) {
	flowId, ok := siw.bindPathString(c, "flowId")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.CancelFlow(c, flowId)
}

// ListHistory operation middleware
func (siw *ServerInterfaceWrapper) ListHistory(c *gin.Context) {
	var params ListHistoryParams

	// ------------- Optional query parameter "limit" -------------
	err := runtime.BindQueryParameter("form", true, false, "limit", c.Request.URL.Query(), &params.Limit)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter limit: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListHistory(c, params)
}

// GetDashboardSummary operation middleware
func (siw *ServerInterfaceWrapper) GetDashboardSummary(c *gin.Context) {
	var params GetDashboardSummaryParams

	// ------------- Optional query parameter "days" -------------
	err := runtime.BindQueryParameter("form", true, false, "days", c.Request.URL.Query(), &params.Days)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter days: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetDashboardSummary(c, params)
}

// GetProfile operation middleware
func (siw *ServerInterfaceWrapper) GetProfile(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetProfile(c)
}

// ListThemes operation middleware
func (siw *ServerInterfaceWrapper) ListThemes(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ListThemes(c)
}

// UnlockTheme operation middleware
func (siw *ServerInterfaceWrapper) UnlockTheme(c *gin.Context) {
	themeId, ok := siw.bindPathString(c, "themeId")
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.UnlockTheme(c, themeId)
}

// SelectTheme operation middleware
func (siw *ServerInterfaceWrapper) SelectTheme(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.SelectTheme(c)
}

// GetHistorySummary operation middleware
func (siw *ServerInterfaceWrapper) GetHistorySummary(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetHistorySummary(c)
}

// GetTextReport operation middleware
func (siw *ServerInterfaceWrapper) GetTextReport(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetTextReport(c)
}

// GetPDFReport operation middleware
func (siw *ServerInterfaceWrapper) GetPDFReport(c *gin.Context) {
	var params GetPDFReportParams
	query := c.Request.URL.Query()

	// ------------- Optional query parameter "from" -------------
	if err := runtime.BindQueryParameter("form", true, false, "from", query, &params.From); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter from: %w", err), http.StatusBadRequest)
		return
	}

	// ------------- Optional query parameter "to" -------------
	if err := runtime.BindQueryParameter("form", true, false, "to", query, &params.To); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter to: %w", err), http.StatusBadRequest)
		return
	}

	// ------------- Optional query parameter "summary" -------------
	if err := runtime.BindQueryParameter("form", true, false, "summary", query, &params.Summary); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter summary: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetPDFReport(c, params)
}

// ShareReport operation middleware
func (siw *ServerInterfaceWrapper) ShareReport(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ShareReport(c)
}

// DownloadSharedReport operation middleware
func (siw *ServerInterfaceWrapper) DownloadSharedReport(c *gin.Context) {
	var params DownloadSharedReportParams

	// ------------- Required query parameter "name" -------------
	if paramValue := c.Query("name"); paramValue != "" {
	} else {
		siw.ErrorHandler(c, fmt.Errorf("Query argument name is required, but not found"), http.StatusBadRequest)
		return
	}

	err := runtime.BindQueryParameter("form", true, true, "name", c.Request.URL.Query(), &params.Name)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter name: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DownloadSharedReport(c, params)
}

// ExportData operation middleware
func (siw *ServerInterfaceWrapper) ExportData(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ExportData(c)
}

// ClearData operation middleware
func (siw *ServerInterfaceWrapper) ClearData(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.ClearData(c)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, gin.H{"msg": err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/v1/medications", wrapper.ListMedications)
	router.POST(options.BaseURL+"/api/v1/medications", wrapper.CreateMedication)
	router.GET(options.BaseURL+"/api/v1/medications/due", wrapper.ListDueMedications)
	router.POST(options.BaseURL+"/api/v1/medications/assist", wrapper.AssistCreateMedication)
	router.POST(options.BaseURL+"/api/v1/medications/voice", wrapper.VoiceCreateMedication)
	router.GET(options.BaseURL+"/api/v1/medications/:id", wrapper.GetMedication)
	router.PUT(options.BaseURL+"/api/v1/medications/:id", wrapper.UpdateMedication)
	router.DELETE(options.BaseURL+"/api/v1/medications/:id", wrapper.DeleteMedication)
	router.POST(options.BaseURL+"/api/v1/medications/:id/take", wrapper.TakeMedication)
	router.POST(options.BaseURL+"/api/v1/medications/:id/skip", wrapper.SkipMedication)
	router.POST(options.BaseURL+"/api/v1/medications/:id/snooze", wrapper.SnoozeMedication)
	router.POST(options.BaseURL+"/api/v1/medications/:id/refresh", wrapper.RefreshMedicationDetails)
	router.DELETE(options.BaseURL+"/api/v1/flows/:flowId", wrapper.CancelFlow)
	router.GET(options.BaseURL+"/api/v1/history", wrapper.ListHistory)
	router.GET(options.BaseURL+"/api/v1/dashboard/summary", wrapper.GetDashboardSummary)
	router.GET(options.BaseURL+"/api/v1/profile", wrapper.GetProfile)
	router.GET(options.BaseURL+"/api/v1/themes", wrapper.ListThemes)
	router.POST(options.BaseURL+"/api/v1/themes/:themeId/unlock", wrapper.UnlockTheme)
	router.PUT(options.BaseURL+"/api/v1/theme", wrapper.SelectTheme)
	router.GET(options.BaseURL+"/api/v1/summary", wrapper.GetHistorySummary)
	router.GET(options.BaseURL+"/api/v1/reports/text", wrapper.GetTextReport)
	router.GET(options.BaseURL+"/api/v1/reports/pdf", wrapper.GetPDFReport)
	router.POST(options.BaseURL+"/api/v1/reports/share", wrapper.ShareReport)
	router.GET(options.BaseURL+"/api/v1/reports/shared", wrapper.DownloadSharedReport)
	router.GET(options.BaseURL+"/api/v1/data/export", wrapper.ExportData)
	router.DELETE(options.BaseURL+"/api/v1/data", wrapper.ClearData)
}
