// Package api holds the HTTP contract: request and response types, the
// gin server interface and the embedded OpenAPI document. Types and
// wrappers follow the oapi-codegen gin-server layout.
package api

import (
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/model"
)

// Defines values for ErrorResponseCode.
const (
	ASSISTANTFAILED      ErrorResponseCode = "ASSISTANT_FAILED"
	ASSISTANTQUOTA       ErrorResponseCode = "ASSISTANT_QUOTA"
	ASSISTANTUNAVAILABLE ErrorResponseCode = "ASSISTANT_UNAVAILABLE"
	CONFLICT             ErrorResponseCode = "CONFLICT"
	INTERNALERROR        ErrorResponseCode = "INTERNAL_ERROR"
	NOTFOUND             ErrorResponseCode = "NOT_FOUND"
	REJECTED             ErrorResponseCode = "REJECTED"
	VALIDATIONERROR      ErrorResponseCode = "VALIDATION_ERROR"
)

// Defines values for FrequencyType.
const (
	ASNEEDED FrequencyType = "AS_NEEDED"
	DAILY    FrequencyType = "DAILY"
	HOURLY   FrequencyType = "HOURLY"
	WEEKLY   FrequencyType = "WEEKLY"
)

// AssistRequest defines model for AssistRequest.
type AssistRequest struct {
	Instruction string `json:"instruction"`
}

// CancelFlowResponse defines model for CancelFlowResponse.
type CancelFlowResponse struct {
	Cancelled bool `json:"cancelled"`
}

// CreateMedicationResponse defines model for CreateMedicationResponse.
type CreateMedicationResponse struct {
	// Fallback The assistant failed and defaults were used
	Fallback   bool       `json:"fallback"`
	Medication Medication `json:"medication"`
	Notice     *string    `json:"notice,omitempty"`
}

// DashboardSummary defines model for DashboardSummary.
type DashboardSummary = service.DashboardSummary

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Details *string           `json:"details,omitempty"`
	Message string            `json:"message"`
}

// ErrorResponseCode defines model for ErrorResponse.Code.
type ErrorResponseCode string

// FrequencyType defines model for FrequencyType.
type FrequencyType string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Assistant *string `json:"assistant,omitempty"`
	Error     *string `json:"error,omitempty"`
	Service   *string `json:"service,omitempty"`
	Status    string  `json:"status"`
	Storage   *string `json:"storage,omitempty"`
	Version   *string `json:"version,omitempty"`
}

// HistoryLog defines model for HistoryLog.
type HistoryLog = model.HistoryLog

// Medication defines model for Medication.
type Medication = model.Medication

// MedicationAdvice defines model for MedicationAdvice.
type MedicationAdvice = model.MedicationAdvice

// MedicationRequest defines model for MedicationRequest.
type MedicationRequest struct {
	Description    *string        `json:"description,omitempty"`
	Dosage         *string        `json:"dosage,omitempty"`
	FrequencyType  *FrequencyType `json:"frequencyType,omitempty"`
	FrequencyValue *int           `json:"frequencyValue,omitempty"`
	Inventory      *int           `json:"inventory"`

	// LookupDetails Ask the assistant to correct the name and supply advice
	LookupDetails *bool   `json:"lookupDetails,omitempty"`
	Name          string  `json:"name"`
	Notes         *string `json:"notes,omitempty"`
}

// Profile defines model for Profile.
type Profile = service.Profile

// ShareRequest defines model for ShareRequest.
type ShareRequest struct {
	From           *openapi_types.Date `json:"from,omitempty"`
	IncludeSummary *bool               `json:"includeSummary,omitempty"`
	To             *openapi_types.Date `json:"to,omitempty"`
}

// SharedReport defines model for SharedReport.
type SharedReport = service.SharedReport

// SkipResult defines model for SkipResult.
type SkipResult = scheduler.SkipResult

// SnoozeRequest defines model for SnoozeRequest.
type SnoozeRequest struct {
	Minutes int `json:"minutes"`
}

// SummaryResponse defines model for SummaryResponse.
type SummaryResponse struct {
	Fallback bool    `json:"fallback"`
	Notice   *string `json:"notice,omitempty"`
	Summary  string  `json:"summary"`
}

// TakeResult defines model for TakeResult.
type TakeResult = scheduler.TakeResult

// TextReport defines model for TextReport.
type TextReport struct {
	Text string `json:"text"`
}

// Theme defines model for Theme.
type Theme = model.Theme

// ThemeSelection defines model for ThemeSelection.
type ThemeSelection struct {
	ThemeId string `json:"themeId"`
}

// UserStats defines model for UserStats.
type UserStats = model.UserStats

// VoiceResponse defines model for VoiceResponse.
type VoiceResponse struct {
	Medication Medication `json:"medication"`
	Transcript string     `json:"transcript"`
}

// From defines model for From.
type From = openapi_types.Date

// To defines model for To.
type To = openapi_types.Date

// FlowID defines model for FlowID.
type FlowID = string

// MedicationID defines model for MedicationID.
type MedicationID = string

// ThemeID defines model for ThemeID.
type ThemeID = string

// Error defines model for Error.
type Error = ErrorResponse

// CreateMedicationParams defines parameters for CreateMedication.
type CreateMedicationParams struct {
	XFlowID *FlowID `json:"X-Flow-ID,omitempty"`
}

// AssistCreateMedicationParams defines parameters for AssistCreateMedication.
type AssistCreateMedicationParams struct {
	XFlowID *FlowID `json:"X-Flow-ID,omitempty"`
}

// VoiceCreateMedicationParams defines parameters for VoiceCreateMedication.
type VoiceCreateMedicationParams struct {
	XFlowID *FlowID `json:"X-Flow-ID,omitempty"`
}

// ListHistoryParams defines parameters for ListHistory.
type ListHistoryParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// GetDashboardSummaryParams defines parameters for GetDashboardSummary.
type GetDashboardSummaryParams struct {
	// Days 7, 30 or 90; other values fall back to 7
	Days *int `form:"days,omitempty" json:"days,omitempty"`
}

// GetPDFReportParams defines parameters for GetPDFReport.
type GetPDFReportParams struct {
	From    *From `form:"from,omitempty" json:"from,omitempty"`
	To      *To   `form:"to,omitempty" json:"to,omitempty"`
	Summary *bool `form:"summary,omitempty" json:"summary,omitempty"`
}

// DownloadSharedReportParams defines parameters for DownloadSharedReport.
type DownloadSharedReportParams struct {
	Name string `form:"name" json:"name"`
}

// CreateMedicationJSONRequestBody defines body for CreateMedication for application/json ContentType.
type CreateMedicationJSONRequestBody = MedicationRequest

// AssistCreateMedicationJSONRequestBody defines body for AssistCreateMedication for application/json ContentType.
type AssistCreateMedicationJSONRequestBody = AssistRequest

// UpdateMedicationJSONRequestBody defines body for UpdateMedication for application/json ContentType.
type UpdateMedicationJSONRequestBody = MedicationRequest

// SnoozeMedicationJSONRequestBody defines body for SnoozeMedication for application/json ContentType.
type SnoozeMedicationJSONRequestBody = SnoozeRequest

// ShareReportJSONRequestBody defines body for ShareReport for application/json ContentType.
type ShareReportJSONRequestBody = ShareRequest

// SelectThemeJSONRequestBody defines body for SelectTheme for application/json ContentType.
type SelectThemeJSONRequestBody = ThemeSelection
