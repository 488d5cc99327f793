package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/vcscsvcscs/medireminder/internal/azure"
	"github.com/vcscsvcscs/medireminder/internal/metrics"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// Assistant defaults and fallbacks
const (
	DefaultDraftDosage    = "Standard"
	DefaultDraftInventory = 20
	FallbackSummary       = "Sigue así, mantén tu salud bajo control."
	maxDescriptionWords   = 6
	maxSummaryLogs        = 50
)

// User-facing notices for degraded assistant flows
const (
	NoticeUnavailable = "El asistente no está configurado. Puedes continuar de forma manual."
	NoticeQuota       = "El asistente alcanzó su límite de uso o sus credenciales no son válidas."
	NoticeFailed      = "El asistente no respondió. Se usaron valores por defecto."
)

// FallbackAdvice is used when the assistant gives no usable advice
func FallbackAdvice() *model.MedicationAdvice {
	return &model.MedicationAdvice{
		Food:         "Consulta a tu médico o farmacéutico.",
		SideEffects:  "Consulta el prospecto del medicamento.",
		Interactions: "Ninguna conocida",
	}
}

// DetailOutcome is the result of a detail lookup. When Fallback is set the
// result echoes the input name with default advice and Notice explains why.
type DetailOutcome struct {
	Result   model.DetailResult `json:"result"`
	Fallback bool               `json:"fallback"`
	Notice   string             `json:"notice,omitempty"`
}

// SummaryOutcome is the result of a history summary request
type SummaryOutcome struct {
	Summary  string `json:"summary"`
	Fallback bool   `json:"fallback"`
	Notice   string `json:"notice,omitempty"`
}

// AssistantService turns free text and medication names into structured
// medication data using Azure OpenAI. A nil completer means the assistant is
// unconfigured: calls short-circuit with ErrAssistantUnavailable.
type AssistantService struct {
	ai       azure.ChatCompleter
	speech   azure.Transcriber
	metrics  *metrics.Metrics
	language string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(ai azure.ChatCompleter, speech azure.Transcriber, m *metrics.Metrics, language string, timeout time.Duration, logger *zap.Logger) *AssistantService {
	if language == "" {
		language = "es"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistantService{
		ai:       ai,
		speech:   speech,
		metrics:  m,
		language: language,
		timeout:  timeout,
		logger:   logger,
	}
}

// Available reports whether assistant credentials are configured
func (s *AssistantService) Available() bool {
	return s.ai != nil
}

// VoiceAvailable reports whether speech transcription is configured
func (s *AssistantService) VoiceAvailable() bool {
	return s.speech != nil
}

// instructionResponse mirrors the JSON the model is asked to return.
// Numeric fields are loose because models sometimes quote numbers.
type instructionResponse struct {
	Valid          *bool                   `json:"valid"`
	Reason         string                  `json:"reason"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Dosage         string                  `json:"dosage"`
	FrequencyType  string                  `json:"frequencyType"`
	FrequencyValue looseInt                `json:"frequencyValue"`
	Info           string                  `json:"info"`
	Inventory      *looseInt               `json:"inventory"`
	Advice         *model.MedicationAdvice `json:"advice"`
}

type detailResponse struct {
	Valid         *bool                   `json:"valid"`
	Reason        string                  `json:"reason"`
	CorrectedName string                  `json:"correctedName"`
	Description   string                  `json:"description"`
	Advice        *model.MedicationAdvice `json:"advice"`
}

// ParseInstruction converts a free-text instruction such as
// "ibuprofeno 400mg cada 8 horas, tengo 30" into a sanitized draft.
// A RejectionError is returned when the text does not describe a medication.
func (s *AssistantService) ParseInstruction(ctx context.Context, text string, existing []string) (*model.MedicationDraft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: instruction is required", ErrInvalidInput)
	}
	if !s.Available() {
		s.metrics.ObserveAssistant("parse", "unavailable", 0)
		return nil, ErrAssistantUnavailable
	}

	s.logger.Info("parsing medication instruction",
		zap.Int("instruction_length", len(text)),
		zap.Int("existing_count", len(existing)),
	)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(s.buildInstructionPrompt(existing)),
		openai.UserMessage(fmt.Sprintf("Analiza: %q", text)),
	}

	response, err := s.complete(ctx, "parse", messages)
	if err != nil {
		return nil, err
	}

	var parsed instructionResponse
	if err := decodeModelJSON(response, &parsed); err != nil {
		s.logger.Error("failed to parse instruction response",
			zap.Error(err),
			zap.String("response", response),
		)
		return nil, fmt.Errorf("%w: malformed response: %v", ErrAssistantFailed, err)
	}

	draft, err := s.sanitizeDraft(parsed)
	if err != nil {
		s.metrics.ObserveAssistant("parse", "rejected", 0)
		s.logger.Info("instruction rejected", zap.Error(err))
		return nil, err
	}

	s.logger.Info("medication instruction parsed successfully",
		zap.String("name", draft.Name),
		zap.String("frequency_type", string(draft.FrequencyType)),
		zap.Int("frequency_value", draft.FrequencyValue),
	)

	return draft, nil
}

// DetailLookup corrects a medication name and fetches description and
// advice. It never fails: on any assistant problem it echoes the input name
// with default advice and reports why in the outcome.
func (s *AssistantService) DetailLookup(ctx context.Context, name string, existing []string) DetailOutcome {
	name = strings.TrimSpace(name)
	fallback := DetailOutcome{
		Result: model.DetailResult{
			CorrectedName: name,
			Advice:        FallbackAdvice(),
		},
		Fallback: true,
	}

	if !s.Available() {
		s.metrics.ObserveAssistant("details", "unavailable", 0)
		fallback.Notice = NoticeUnavailable
		return fallback
	}
	if name == "" {
		fallback.Notice = NoticeFailed
		return fallback
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(s.buildDetailPrompt(existing)),
		openai.UserMessage(fmt.Sprintf("El usuario quiere agregar el medicamento: %q", name)),
	}

	response, err := s.complete(ctx, "details", messages)
	if err != nil {
		fallback.Notice = noticeFor(err)
		return fallback
	}

	var parsed detailResponse
	if err := decodeModelJSON(response, &parsed); err != nil {
		s.logger.Warn("malformed detail response, using fallback",
			zap.Error(err),
			zap.String("name", name),
		)
		fallback.Notice = NoticeFailed
		return fallback
	}

	result := s.sanitizeDetails(name, parsed)
	s.logger.Info("medication details retrieved",
		zap.String("name", name),
		zap.String("corrected_name", result.CorrectedName),
	)
	return DetailOutcome{Result: result}
}

// SummarizeHistory returns a short motivational adherence narrative. It
// degrades to FallbackSummary on any failure.
func (s *AssistantService) SummarizeHistory(ctx context.Context, logs []model.HistoryLog) SummaryOutcome {
	if !s.Available() {
		s.metrics.ObserveAssistant("summary", "unavailable", 0)
		return SummaryOutcome{Summary: FallbackSummary, Fallback: true, Notice: NoticeUnavailable}
	}
	if len(logs) == 0 {
		return SummaryOutcome{Summary: FallbackSummary, Fallback: true}
	}
	if len(logs) > maxSummaryLogs {
		logs = logs[:maxSummaryLogs]
	}

	var logsText strings.Builder
	for _, l := range logs {
		verb := "tomado"
		if l.Status == model.HistoryStatusSkipped {
			verb = "omitido"
		}
		logsText.WriteString(fmt.Sprintf("%s %s el %s\n", l.MedicationName, verb, l.TakenAt.Format("2006-01-02 15:04")))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(`Eres un asistente de adherencia a la medicación.
Escribe un resumen breve (máximo 40 palabras) y motivacional para el usuario.
Responde solo con el texto del resumen, sin formato. Idioma: %s.`, s.language)),
		openai.UserMessage(fmt.Sprintf("Analiza historial:\n%s", logsText.String())),
	}

	response, err := s.complete(ctx, "summary", messages)
	if err != nil {
		return SummaryOutcome{Summary: FallbackSummary, Fallback: true, Notice: noticeFor(err)}
	}

	summary := strings.TrimSpace(stripCodeFence(response))
	if summary == "" {
		s.logger.Warn("empty history summary, using fallback")
		return SummaryOutcome{Summary: FallbackSummary, Fallback: true, Notice: NoticeFailed}
	}

	s.logger.Info("history summary generated", zap.Int("log_count", len(logs)))
	return SummaryOutcome{Summary: summary}
}

// Transcribe converts a recorded voice instruction to text
func (s *AssistantService) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	if s.speech == nil {
		s.metrics.ObserveAssistant("transcribe", "unavailable", 0)
		return "", ErrAssistantUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.speech.Transcribe(ctx, audio, contentType)
	if err != nil {
		s.metrics.ObserveAssistant("transcribe", "error", time.Since(start))
		s.logger.Error("voice transcription failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrAssistantFailed, err)
	}
	s.metrics.ObserveAssistant("transcribe", "ok", time.Since(start))

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &RejectionError{Reason: "No se entendió la grabación. Inténtalo de nuevo."}
	}
	return text, nil
}

// complete runs one model call under the configured timeout and maps
// failures onto the assistant sentinel errors
func (s *AssistantService) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	response, err := s.ai.Complete(ctx, messages)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveAssistant(operation, "error", elapsed)
		s.logger.Error("assistant call failed",
			zap.Error(err),
			zap.String("operation", operation),
		)
		if kind := azure.ClassifyError(err); kind == azure.FailureQuota || kind == azure.FailureAuth {
			return "", fmt.Errorf("%w: %v", ErrAssistantQuota, err)
		}
		return "", fmt.Errorf("%w: %v", ErrAssistantFailed, err)
	}
	s.metrics.ObserveAssistant(operation, "ok", elapsed)
	return response, nil
}

func (s *AssistantService) buildInstructionPrompt(existing []string) string {
	return fmt.Sprintf(`Eres un asistente farmacéutico. El paciente ya toma: [%s].
A partir de la instrucción del usuario:
1. Comprueba que menciona un medicamento real. Si no, responde {"valid": false, "reason": "explicación breve para el usuario"}.
2. Corrige el nombre del medicamento a su nombre genérico o comercial estándar más probable.
3. Extrae dosis y frecuencia.
4. Provee una descripción MUY breve (máx 6 palabras) de para qué sirve (ej: "Para el dolor de cabeza").

Devuelve SOLO JSON válido con esta forma:
{
  "valid": true,
  "name": "nombre corregido (ej: Acetaminofén)",
  "description": "uso principal en máx 6 palabras",
  "dosage": "dosis (ej: 500mg)",
  "frequencyType": "DAILY | HOURLY | WEEKLY | AS_NEEDED",
  "frequencyValue": número (cada N horas, días o semanas),
  "info": "nota breve",
  "inventory": cantidad total de pastillas si se menciona, si no %d,
  "advice": {
    "food": "¿con comida o en ayunas? (máx 10 palabras)",
    "sideEffects": "2-3 efectos secundarios principales",
    "interactions": "advertencia de interacciones con la lista del paciente o 'Ninguna conocida'"
  }
}
Idioma de los textos: %s.`, existingList(existing), DefaultDraftInventory, s.language)
}

func (s *AssistantService) buildDetailPrompt(existing []string) string {
	return fmt.Sprintf(`Eres un asistente farmacéutico.
1. Identifica el nombre oficial correcto del medicamento (ej: si escribe "doli", asume "Doliprane" o "Paracetamol").
2. Describe para qué sirve en máx 6 palabras.
3. Analiza riesgos con: [%s].

Devuelve SOLO JSON válido:
{
  "correctedName": "nombre oficial corregido",
  "description": "uso principal",
  "advice": {
    "food": "¿con comida o en ayunas? (máx 10 palabras)",
    "sideEffects": "2-3 efectos secundarios principales",
    "interactions": "interacciones con otros medicamentos o 'Ninguna'"
  }
}
Idioma de los textos: %s.`, existingList(existing), s.language)
}

// sanitizeDraft validates the loosely typed model output at the boundary
func (s *AssistantService) sanitizeDraft(r instructionResponse) (*model.MedicationDraft, error) {
	if r.Valid != nil && !*r.Valid {
		reason := strings.TrimSpace(r.Reason)
		if reason == "" {
			reason = "No se reconoce ningún medicamento en la instrucción."
		}
		return nil, &RejectionError{Reason: reason}
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, &RejectionError{Reason: "No se reconoce ningún medicamento en la instrucción."}
	}

	draft := &model.MedicationDraft{
		Name:           name,
		Description:    truncateWords(strings.TrimSpace(r.Description), maxDescriptionWords),
		Dosage:         strings.TrimSpace(r.Dosage),
		FrequencyValue: int(r.FrequencyValue),
		Notes:          strings.TrimSpace(r.Info),
		Inventory:      DefaultDraftInventory,
		Advice:         r.Advice,
	}

	if draft.Dosage == "" {
		draft.Dosage = DefaultDraftDosage
	}

	ft, ok := model.ParseFrequencyType(r.FrequencyType)
	if !ok {
		s.logger.Warn("invalid frequency type, defaulting to DAILY", zap.String("frequency_type", r.FrequencyType))
	}
	draft.FrequencyType = ft

	if clamped := model.ClampFrequencyValue(ft, draft.FrequencyValue); clamped != draft.FrequencyValue {
		s.logger.Warn("frequency value out of range, clamping",
			zap.Int("frequency_value", draft.FrequencyValue),
			zap.Int("clamped", clamped),
		)
		draft.FrequencyValue = clamped
	}

	if r.Inventory != nil {
		draft.Inventory = int(*r.Inventory)
		if draft.Inventory < 0 {
			s.logger.Warn("negative inventory, setting to 0", zap.Int("inventory", draft.Inventory))
			draft.Inventory = 0
		}
	}

	draft.Advice = sanitizeAdvice(draft.Advice)
	return draft, nil
}

func (s *AssistantService) sanitizeDetails(input string, r detailResponse) model.DetailResult {
	result := model.DetailResult{
		CorrectedName: strings.TrimSpace(r.CorrectedName),
		Description:   truncateWords(strings.TrimSpace(r.Description), maxDescriptionWords),
		Advice:        sanitizeAdvice(r.Advice),
	}
	if result.CorrectedName == "" {
		s.logger.Warn("empty corrected name, keeping input", zap.String("name", input))
		result.CorrectedName = input
	}
	return result
}

// sanitizeAdvice fills missing advice fields with the defaults
func sanitizeAdvice(a *model.MedicationAdvice) *model.MedicationAdvice {
	def := FallbackAdvice()
	if a == nil {
		return def
	}
	out := &model.MedicationAdvice{
		Food:         strings.TrimSpace(a.Food),
		SideEffects:  strings.TrimSpace(a.SideEffects),
		Interactions: strings.TrimSpace(a.Interactions),
	}
	if out.Food == "" {
		out.Food = def.Food
	}
	if out.SideEffects == "" {
		out.SideEffects = def.SideEffects
	}
	if out.Interactions == "" {
		out.Interactions = def.Interactions
	}
	return out
}

// noticeFor maps an assistant error to the user-facing notice
func noticeFor(err error) string {
	switch {
	case errors.Is(err, ErrAssistantUnavailable):
		return NoticeUnavailable
	case errors.Is(err, ErrAssistantQuota):
		return NoticeQuota
	}
	return NoticeFailed
}

func existingList(existing []string) string {
	names := make([]string, 0, len(existing))
	for _, n := range existing {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "Ninguno"
	}
	return strings.Join(names, ", ")
}

// stripCodeFence removes markdown code fences the model sometimes adds
func stripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```JSON")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func decodeModelJSON(response string, dst any) error {
	if err := json.Unmarshal([]byte(stripCodeFence(response)), dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}

// looseInt accepts a JSON number, a quoted number or null
type looseInt int

func (l *looseInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*l = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Unparseable values are treated as absent and normalized later
		*l = 0
		return nil
	}
	// Out of range floats have no defined int conversion
	switch {
	case math.IsNaN(f):
		*l = 0
	case f >= math.MaxInt32:
		*l = math.MaxInt32
	case f <= math.MinInt32:
		*l = math.MinInt32
	default:
		*l = looseInt(f)
	}
	return nil
}
