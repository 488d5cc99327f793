package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

func newAssistant(ai *MockOpenAIClient) *AssistantService {
	return NewAssistantService(ai, nil, nil, "es", time.Second, zap.NewNop())
}

func TestAssistant_ParseInstruction_Success(t *testing.T) {
	ai := new(MockOpenAIClient)
	ai.On("Complete", mock.Anything, mock.Anything).Return("```json\n"+`{
		"valid": true,
		"name": "Ibuprofeno",
		"description": "Para el dolor y la inflamación de articulaciones",
		"dosage": "400mg",
		"frequencyType": "hourly",
		"frequencyValue": "8",
		"info": "Tomar con agua",
		"inventory": 30,
		"advice": {"food": "Con comida", "sideEffects": "Acidez", "interactions": ""}
	}`+"\n```", nil)

	draft, err := newAssistant(ai).ParseInstruction(context.Background(), "ibuprofeno 400 cada 8 horas, tengo 30", []string{"Omeprazol"})

	require.NoError(t, err)
	assert.Equal(t, "Ibuprofeno", draft.Name)
	assert.Equal(t, "Para el dolor y la inflamación", draft.Description)
	assert.Equal(t, "400mg", draft.Dosage)
	assert.Equal(t, model.FrequencyHourly, draft.FrequencyType)
	assert.Equal(t, 8, draft.FrequencyValue)
	assert.Equal(t, "Tomar con agua", draft.Notes)
	assert.Equal(t, 30, draft.Inventory)
	require.NotNil(t, draft.Advice)
	assert.Equal(t, "Con comida", draft.Advice.Food)
	assert.Equal(t, FallbackAdvice().Interactions, draft.Advice.Interactions)
	ai.AssertExpectations(t)
}

func TestAssistant_ParseInstruction_Defaults(t *testing.T) {
	ai := new(MockOpenAIClient)
	ai.On("Complete", mock.Anything, mock.Anything).Return(`{"name": "Paracetamol", "frequencyType": "SOMETIMES", "frequencyValue": -2}`, nil)

	draft, err := newAssistant(ai).ParseInstruction(context.Background(), "paracetamol", nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultDraftDosage, draft.Dosage)
	assert.Equal(t, model.FrequencyDaily, draft.FrequencyType)
	assert.Equal(t, 1, draft.FrequencyValue)
	assert.Equal(t, DefaultDraftInventory, draft.Inventory)
	assert.Equal(t, FallbackAdvice(), draft.Advice)
}

func TestAssistant_ParseInstruction_ClampsFrequencyValue(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantType model.FrequencyType
		want     int
	}{
		{"hourly", `{"name": "Ibuprofeno", "frequencyType": "HOURLY", "frequencyValue": 3000000}`, model.FrequencyHourly, model.MaxHourlyFrequency},
		{"daily", `{"name": "Ibuprofeno", "frequencyType": "DAILY", "frequencyValue": "9999999"}`, model.FrequencyDaily, model.MaxDailyFrequency},
		{"weekly", `{"name": "Ibuprofeno", "frequencyType": "WEEKLY", "frequencyValue": 1e300}`, model.FrequencyWeekly, model.MaxWeeklyFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := new(MockOpenAIClient)
			ai.On("Complete", mock.Anything, mock.Anything).Return(tt.response, nil)

			draft, err := newAssistant(ai).ParseInstruction(context.Background(), "ibuprofeno", nil)

			require.NoError(t, err)
			assert.Equal(t, tt.wantType, draft.FrequencyType)
			assert.Equal(t, tt.want, draft.FrequencyValue)
		})
	}
}

func TestAssistant_ParseInstruction_Rejection(t *testing.T) {
	tests := []struct {
		name     string
		response string
		reason   string
	}{
		{
			name:     "model rejects",
			response: `{"valid": false, "reason": "\"Hola\" no es un medicamento."}`,
			reason:   `"Hola" no es un medicamento.`,
		},
		{
			name:     "empty name",
			response: `{"name": "  "}`,
			reason:   "No se reconoce ningún medicamento en la instrucción.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := new(MockOpenAIClient)
			ai.On("Complete", mock.Anything, mock.Anything).Return(tt.response, nil)

			draft, err := newAssistant(ai).ParseInstruction(context.Background(), "hola", nil)

			assert.Nil(t, draft)
			rej, ok := IsRejection(err)
			require.True(t, ok, "expected a rejection, got %v", err)
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestAssistant_ParseInstruction_Failures(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		callErr error
		wantErr error
	}{
		{name: "quota", callErr: errors.New("429 Too Many Requests: quota exceeded"), wantErr: ErrAssistantQuota},
		{name: "auth", callErr: errors.New("401 Unauthorized"), wantErr: ErrAssistantQuota},
		{name: "network", callErr: errors.New("connection reset by peer"), wantErr: ErrAssistantFailed},
		{name: "malformed", resp: "lo siento, no puedo", wantErr: ErrAssistantFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := new(MockOpenAIClient)
			ai.On("Complete", mock.Anything, mock.Anything).Return(tt.resp, tt.callErr)

			_, err := newAssistant(ai).ParseInstruction(context.Background(), "aspirina", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssistant_Unconfigured(t *testing.T) {
	s := NewAssistantService(nil, nil, nil, "", 0, zap.NewNop())
	ctx := context.Background()

	assert.False(t, s.Available())
	assert.False(t, s.VoiceAvailable())

	_, err := s.ParseInstruction(ctx, "aspirina", nil)
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	outcome := s.DetailLookup(ctx, "aspirina", nil)
	assert.True(t, outcome.Fallback)
	assert.Equal(t, "aspirina", outcome.Result.CorrectedName)
	assert.Equal(t, NoticeUnavailable, outcome.Notice)

	summary := s.SummarizeHistory(ctx, []model.HistoryLog{{MedicationName: "X"}})
	assert.Equal(t, FallbackSummary, summary.Summary)
	assert.Equal(t, NoticeUnavailable, summary.Notice)

	_, err = s.Transcribe(ctx, strings.NewReader("audio"), "")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}

func TestAssistant_ParseInstruction_EmptyText(t *testing.T) {
	ai := new(MockOpenAIClient)
	_, err := newAssistant(ai).ParseInstruction(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	ai.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAssistant_DetailLookup(t *testing.T) {
	ai := new(MockOpenAIClient)
	ai.On("Complete", mock.Anything, mock.Anything).Return(`{
		"correctedName": "Paracetamol",
		"description": "Analgésico para el dolor",
		"advice": {"food": "Indiferente", "sideEffects": "Raros", "interactions": "Ninguna"}
	}`, nil)

	outcome := newAssistant(ai).DetailLookup(context.Background(), "doli", []string{"Ibuprofeno"})

	assert.False(t, outcome.Fallback)
	assert.Empty(t, outcome.Notice)
	assert.Equal(t, "Paracetamol", outcome.Result.CorrectedName)
	assert.Equal(t, "Analgésico para el dolor", outcome.Result.Description)
	assert.Equal(t, "Ninguna", outcome.Result.Advice.Interactions)
}

func TestAssistant_DetailLookup_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		callErr error
		notice  string
	}{
		{name: "quota", callErr: errors.New("rate limit reached"), notice: NoticeQuota},
		{name: "generic", callErr: errors.New("timeout"), notice: NoticeFailed},
		{name: "malformed", resp: "{not json", notice: NoticeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := new(MockOpenAIClient)
			ai.On("Complete", mock.Anything, mock.Anything).Return(tt.resp, tt.callErr)

			outcome := newAssistant(ai).DetailLookup(context.Background(), "  doli ", nil)

			assert.True(t, outcome.Fallback)
			assert.Equal(t, tt.notice, outcome.Notice)
			assert.Equal(t, "doli", outcome.Result.CorrectedName)
			assert.Equal(t, FallbackAdvice(), outcome.Result.Advice)
		})
	}
}

func TestAssistant_SummarizeHistory(t *testing.T) {
	ai := new(MockOpenAIClient)
	ai.On("Complete", mock.Anything, mock.Anything).Return("  ¡Gran semana! Llevas 5 tomas a tiempo.  ", nil)

	logs := []model.HistoryLog{
		{MedicationName: "Ibuprofeno", TakenAt: time.Now(), Status: model.HistoryStatusTaken},
		{MedicationName: "Ibuprofeno", TakenAt: time.Now(), Status: model.HistoryStatusSkipped},
	}
	outcome := newAssistant(ai).SummarizeHistory(context.Background(), logs)

	assert.False(t, outcome.Fallback)
	assert.Equal(t, "¡Gran semana! Llevas 5 tomas a tiempo.", outcome.Summary)
}

func TestAssistant_SummarizeHistory_Failure(t *testing.T) {
	ai := new(MockOpenAIClient)
	ai.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	outcome := newAssistant(ai).SummarizeHistory(context.Background(), []model.HistoryLog{{MedicationName: "X"}})

	assert.True(t, outcome.Fallback)
	assert.Equal(t, FallbackSummary, outcome.Summary)
	assert.Equal(t, NoticeFailed, outcome.Notice)
}

func TestAssistant_SummarizeHistory_EmptySkipsCall(t *testing.T) {
	ai := new(MockOpenAIClient)
	outcome := newAssistant(ai).SummarizeHistory(context.Background(), nil)

	assert.Equal(t, FallbackSummary, outcome.Summary)
	ai.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAssistant_Transcribe(t *testing.T) {
	speech := new(MockTranscriber)
	speech.On("Transcribe", mock.Anything, mock.Anything, "audio/wav").Return(" aspirina cada día ", nil).Once()
	speech.On("Transcribe", mock.Anything, mock.Anything, "audio/ogg").Return("", nil).Once()
	speech.On("Transcribe", mock.Anything, mock.Anything, "audio/mp3").Return("", errors.New("bad audio")).Once()

	s := NewAssistantService(nil, speech, nil, "es", time.Second, zap.NewNop())

	text, err := s.Transcribe(context.Background(), strings.NewReader("x"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "aspirina cada día", text)

	_, err = s.Transcribe(context.Background(), strings.NewReader("x"), "audio/ogg")
	_, isRejection := IsRejection(err)
	assert.True(t, isRejection)

	_, err = s.Transcribe(context.Background(), strings.NewReader("x"), "audio/mp3")
	assert.ErrorIs(t, err, ErrAssistantFailed)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1}  `))
}

func TestExistingList(t *testing.T) {
	assert.Equal(t, "Ninguno", existingList(nil))
	assert.Equal(t, "Ninguno", existingList([]string{" "}))
	assert.Equal(t, "A, B", existingList([]string{"A", "", "B"}))
}
