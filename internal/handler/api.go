package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/pkg/api"
)

// APIHandler implements the ServerInterface by delegating to individual handlers
type APIHandler struct {
	Medication *MedicationHandler
	Dashboard  *DashboardHandler
	Reward     *RewardHandler
	Report     *ReportHandler
	Data       *DataHandler
	Health     *HealthHandler
}

// Ensure APIHandler implements ServerInterface
var _ api.ServerInterface = (*APIHandler)(nil)

func (h *APIHandler) GetHealth(c *gin.Context) {
	h.Health.GetHealth(c)
}

// Medication endpoints
func (h *APIHandler) ListMedications(c *gin.Context) {
	h.Medication.ListMedications(c)
}

func (h *APIHandler) CreateMedication(c *gin.Context, params api.CreateMedicationParams) {
	h.Medication.CreateMedication(c, params)
}

func (h *APIHandler) ListDueMedications(c *gin.Context) {
	h.Medication.ListDueMedications(c)
}

func (h *APIHandler) AssistCreateMedication(c *gin.Context, params api.AssistCreateMedicationParams) {
	h.Medication.AssistCreateMedication(c, params)
}

func (h *APIHandler) VoiceCreateMedication(c *gin.Context, params api.VoiceCreateMedicationParams) {
	h.Medication.VoiceCreateMedication(c, params)
}

func (h *APIHandler) GetMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.GetMedication(c, id)
}

func (h *APIHandler) UpdateMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.UpdateMedication(c, id)
}

func (h *APIHandler) DeleteMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.DeleteMedication(c, id)
}

func (h *APIHandler) TakeMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.TakeMedication(c, id)
}

func (h *APIHandler) SkipMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.SkipMedication(c, id)
}

func (h *APIHandler) SnoozeMedication(c *gin.Context, id api.MedicationID) {
	h.Medication.SnoozeMedication(c, id)
}

func (h *APIHandler) RefreshMedicationDetails(c *gin.Context, id api.MedicationID) {
	h.Medication.RefreshMedicationDetails(c, id)
}

func (h *APIHandler) CancelFlow(c *gin.Context, flowId string) {
	h.Medication.CancelFlow(c, flowId)
}

func (h *APIHandler) ListHistory(c *gin.Context, params api.ListHistoryParams) {
	h.Medication.ListHistory(c, params)
}

// Dashboard endpoints
func (h *APIHandler) GetDashboardSummary(c *gin.Context, params api.GetDashboardSummaryParams) {
	h.Dashboard.GetDashboardSummary(c, params)
}

// Reward endpoints
func (h *APIHandler) GetProfile(c *gin.Context) {
	h.Reward.GetProfile(c)
}

func (h *APIHandler) ListThemes(c *gin.Context) {
	h.Reward.ListThemes(c)
}

func (h *APIHandler) UnlockTheme(c *gin.Context, themeId api.ThemeID) {
	h.Reward.UnlockTheme(c, themeId)
}

func (h *APIHandler) SelectTheme(c *gin.Context) {
	h.Reward.SelectTheme(c)
}

// Report endpoints
func (h *APIHandler) GetHistorySummary(c *gin.Context) {
	h.Report.GetHistorySummary(c)
}

func (h *APIHandler) GetTextReport(c *gin.Context) {
	h.Report.GetTextReport(c)
}

func (h *APIHandler) GetPDFReport(c *gin.Context, params api.GetPDFReportParams) {
	h.Report.GetPDFReport(c, params)
}

func (h *APIHandler) ShareReport(c *gin.Context) {
	h.Report.ShareReport(c)
}

func (h *APIHandler) DownloadSharedReport(c *gin.Context, params api.DownloadSharedReportParams) {
	h.Report.DownloadSharedReport(c, params)
}

// Data endpoints
func (h *APIHandler) ExportData(c *gin.Context) {
	h.Data.ExportData(c)
}

func (h *APIHandler) ClearData(c *gin.Context) {
	h.Data.ClearData(c)
}
