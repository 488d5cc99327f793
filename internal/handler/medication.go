package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"go.uber.org/zap"
)

// maxVoiceUpload bounds the recorded instruction accepted by VoiceCreateMedication
const maxVoiceUpload = 10 << 20

// defaultHistoryLimit applies when ListHistory has no limit
const defaultHistoryLimit = 50

// MedicationHandler implements medication API endpoints
type MedicationHandler struct {
	service *service.MedicationService
	logger  *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(service *service.MedicationService, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: service,
		logger:  logger,
	}
}

// ListMedications lists all medications in stored order
func (h *MedicationHandler) ListMedications(c *gin.Context) {
	meds := h.service.List(c.Request.Context())
	c.JSON(http.StatusOK, meds)
}

// ListDueMedications lists the medications that may be logged now
func (h *MedicationHandler) ListDueMedications(c *gin.Context) {
	due := h.service.Due(c.Request.Context())
	h.logger.Debug("due medications listed", zap.Int("count", len(due)))
	c.JSON(http.StatusOK, due)
}

// GetMedication returns one medication
func (h *MedicationHandler) GetMedication(c *gin.Context, id api.MedicationID) {
	med, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, h.logger, "Medication not found", err, zap.String("medication_id", id))
		return
	}
	c.JSON(http.StatusOK, med)
}

// CreateMedication adds a medication from a manual entry
func (h *MedicationHandler) CreateMedication(c *gin.Context, params api.CreateMedicationParams) {
	var req api.CreateMedicationJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), derefString(params.XFlowID), toMedicationInput(req))
	if err != nil {
		serviceError(c, h.logger, "Failed to add medication", err)
		return
	}

	c.JSON(http.StatusCreated, api.CreateMedicationResponse{
		Medication: result.Medication,
		Fallback:   result.Fallback,
		Notice:     optionalString(result.Notice),
	})
}

// AssistCreateMedication adds a medication from a free-text instruction
func (h *MedicationHandler) AssistCreateMedication(c *gin.Context, params api.AssistCreateMedicationParams) {
	var req api.AssistCreateMedicationJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, err)
		return
	}

	med, err := h.service.AssistCreate(c.Request.Context(), derefString(params.XFlowID), req.Instruction)
	if err != nil {
		serviceError(c, h.logger, "Failed to interpret instruction", err)
		return
	}

	c.JSON(http.StatusCreated, med)
}

// VoiceCreateMedication adds a medication from a recorded instruction sent
// as the multipart field "audio"
func (h *MedicationHandler) VoiceCreateMedication(c *gin.Context, params api.VoiceCreateMedicationParams) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxVoiceUpload)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		validationError(c, h.logger, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		validationError(c, h.logger, err)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.service.VoiceCreate(c.Request.Context(), derefString(params.XFlowID), file, contentType)
	if err != nil {
		serviceError(c, h.logger, "Failed to interpret voice instruction", err,
			zap.Int64("audio_bytes", fileHeader.Size),
		)
		return
	}

	c.JSON(http.StatusCreated, api.VoiceResponse{
		Transcript: result.Transcript,
		Medication: result.Medication,
	})
}

// UpdateMedication edits a medication
func (h *MedicationHandler) UpdateMedication(c *gin.Context, id api.MedicationID) {
	var req api.UpdateMedicationJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, err)
		return
	}

	med, err := h.service.Update(c.Request.Context(), id, toMedicationInput(req))
	if err != nil {
		serviceError(c, h.logger, "Failed to update medication", err, zap.String("medication_id", id))
		return
	}
	c.JSON(http.StatusOK, med)
}

// DeleteMedication removes a medication; its history stays
func (h *MedicationHandler) DeleteMedication(c *gin.Context, id api.MedicationID) {
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		serviceError(c, h.logger, "Failed to delete medication", err, zap.String("medication_id", id))
		return
	}
	c.Status(http.StatusNoContent)
}

// TakeMedication logs a taken dose
func (h *MedicationHandler) TakeMedication(c *gin.Context, id api.MedicationID) {
	result, err := h.service.Take(c.Request.Context(), id)
	if err != nil {
		serviceError(c, h.logger, "Failed to log dose", err, zap.String("medication_id", id))
		return
	}
	c.JSON(http.StatusOK, result)
}

// SkipMedication logs a skipped dose
func (h *MedicationHandler) SkipMedication(c *gin.Context, id api.MedicationID) {
	result, err := h.service.Skip(c.Request.Context(), id)
	if err != nil {
		serviceError(c, h.logger, "Failed to skip dose", err, zap.String("medication_id", id))
		return
	}
	c.JSON(http.StatusOK, result)
}

// SnoozeMedication postpones the next dose
func (h *MedicationHandler) SnoozeMedication(c *gin.Context, id api.MedicationID) {
	var req api.SnoozeMedicationJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, h.logger, err)
		return
	}

	med, err := h.service.Snooze(c.Request.Context(), id, req.Minutes)
	if err != nil {
		serviceError(c, h.logger, "Failed to snooze medication", err, zap.String("medication_id", id))
		return
	}
	c.JSON(http.StatusOK, med)
}

// RefreshMedicationDetails asks the assistant for corrected details
func (h *MedicationHandler) RefreshMedicationDetails(c *gin.Context, id api.MedicationID) {
	result, err := h.service.RefreshDetails(c.Request.Context(), id)
	if err != nil {
		serviceError(c, h.logger, "Failed to refresh medication details", err, zap.String("medication_id", id))
		return
	}

	c.JSON(http.StatusOK, api.CreateMedicationResponse{
		Medication: result.Medication,
		Fallback:   result.Fallback,
		Notice:     optionalString(result.Notice),
	})
}

// CancelFlow dismisses an add or edit flow
func (h *MedicationHandler) CancelFlow(c *gin.Context, flowId string) {
	cancelled := h.service.CancelFlow(flowId)
	c.JSON(http.StatusOK, api.CancelFlowResponse{Cancelled: cancelled})
}

// ListHistory returns dose history, newest first
func (h *MedicationHandler) ListHistory(c *gin.Context, params api.ListHistoryParams) {
	limit := defaultHistoryLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	c.JSON(http.StatusOK, h.service.History(c.Request.Context(), limit))
}
