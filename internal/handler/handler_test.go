package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/azure"
	"github.com/vcscsvcscs/medireminder/internal/middleware"
	"github.com/vcscsvcscs/medireminder/internal/pdf"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/internal/service"
	"github.com/vcscsvcscs/medireminder/pkg/api"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, audio, contentType)
	return args.String(0), args.Error(1)
}

type failingStorage struct{}

func (failingStorage) Keys(context.Context) ([]string, error) {
	return nil, errors.New("database is locked")
}

type testServer struct {
	router *gin.Engine
	ai     *MockChatCompleter
	speech *MockTranscriber
}

type serverOptions struct {
	withAI    bool
	withShare bool
	storage   StorageProbe
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	kv := repository.NewMemoryKV()
	repo := repository.NewLedgerRepository(kv, logger)
	state := service.NewState(ctx, repo, logger)
	auditLogger := audit.NewLogger(repo, logger)

	ts := &testServer{}
	var assistant *service.AssistantService
	if opts.withAI {
		ts.ai = new(MockChatCompleter)
		ts.speech = new(MockTranscriber)
		assistant = service.NewAssistantService(ts.ai, ts.speech, nil, "es", time.Second, logger)
	} else {
		assistant = service.NewAssistantService(nil, nil, nil, "es", time.Second, logger)
	}

	var blob azure.BlobStorage
	if opts.withShare {
		blob = azure.NewMockBlobStorageClient(logger)
	}

	storage := opts.storage
	if storage == nil {
		storage = kv
	}

	h := &APIHandler{
		Medication: NewMedicationHandler(service.NewMedicationService(state, assistant, auditLogger, nil, logger), logger),
		Dashboard:  NewDashboardHandler(service.NewDashboardService(state, time.UTC, logger), logger),
		Reward:     NewRewardHandler(service.NewRewardService(state, auditLogger, logger), logger),
		Report: NewReportHandler(
			service.NewReportService(state, assistant, blob, pdf.NewPDFGenerator(logger), auditLogger, time.UTC, logger),
			time.UTC, logger,
		),
		Data:   NewDataHandler(service.NewDataService(state, auditLogger, logger), logger),
		Health: NewHealthHandler(storage, assistant, "test", logger),
	}

	swagger, err := api.GetSwagger()
	require.NoError(t, err)
	validator, err := middleware.OpenAPIValidator(swagger, logger)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger), validator)
	api.RegisterHandlersWithOptions(router, h, api.GinServerOptions{
		ErrorHandler: ParameterErrorHandler(logger),
	})
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code api.ErrorResponseCode) api.ErrorResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := decode[api.ErrorResponse](t, w)
	assert.Equal(t, code, resp.Code)
	assert.NotEmpty(t, resp.Message)
	return resp
}

func (ts *testServer) createMedication(t *testing.T, req map[string]any) model.Medication {
	t.Helper()
	w := ts.do(t, "POST", "/api/v1/medications", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.CreateMedicationResponse](t, w).Medication
}

func TestMedicationCRUD(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	med := ts.createMedication(t, map[string]any{
		"name":           "Ibuprofeno",
		"dosage":         "400mg",
		"frequencyType":  "HOURLY",
		"frequencyValue": 8,
		"inventory":      12,
	})
	assert.Equal(t, "Ibuprofeno", med.Name)
	assert.Equal(t, model.FrequencyHourly, med.FrequencyType)
	assert.Equal(t, 12, med.Inventory)
	require.NotNil(t, med.NextDose)

	w := ts.do(t, "GET", "/api/v1/medications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Medication](t, w), 1)

	w = ts.do(t, "GET", "/api/v1/medications/"+med.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, med.ID, decode[model.Medication](t, w).ID)

	w = ts.do(t, "PUT", "/api/v1/medications/"+med.ID, map[string]any{"name": "Ibuprofeno 600", "inventory": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Medication](t, w)
	assert.Equal(t, med.ID, updated.ID)
	assert.Equal(t, "Ibuprofeno 600", updated.Name)
	assert.Equal(t, 5, updated.Inventory)
	assert.Equal(t, med.Color, updated.Color)

	w = ts.do(t, "DELETE", "/api/v1/medications/"+med.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assertError(t, ts.do(t, "DELETE", "/api/v1/medications/"+med.ID, nil), http.StatusNotFound, api.NOTFOUND)
	assertError(t, ts.do(t, "GET", "/api/v1/medications/missing", nil), http.StatusNotFound, api.NOTFOUND)
}

func TestCreateMedication_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	assertError(t, ts.do(t, "POST", "/api/v1/medications", map[string]any{"dosage": "1"}), http.StatusBadRequest, api.VALIDATIONERROR)
	assertError(t, ts.do(t, "POST", "/api/v1/medications", map[string]any{"name": "   "}), http.StatusBadRequest, api.VALIDATIONERROR)
	assertError(t, ts.do(t, "POST", "/api/v1/medications", map[string]any{"name": "A", "frequencyType": "YEARLY"}), http.StatusBadRequest, api.VALIDATIONERROR)
}

func TestCreateMedication_LookupWithoutAssistantFallsBack(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, "POST", "/api/v1/medications", map[string]any{"name": "aspirina", "lookupDetails": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[api.CreateMedicationResponse](t, w)
	assert.True(t, resp.Fallback)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, service.NoticeUnavailable, *resp.Notice)
	assert.Equal(t, "aspirina", resp.Medication.Name)
	assert.NotNil(t, resp.Medication.Advice)
}

func TestDoseActionsAndHistory(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	med := ts.createMedication(t, map[string]any{"name": "Aspirina", "inventory": 3})

	w := ts.do(t, "GET", "/api/v1/medications/due", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Medication](t, w), 1, "a new medication is due immediately")

	w = ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/take", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	take := decode[scheduler.TakeResult](t, w)
	assert.Equal(t, scheduler.PointsOnTime, take.PointsEarned)
	assert.Equal(t, 2, take.Medication.Inventory)
	assert.True(t, take.LowStock)

	w = ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/skip", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.HistoryStatusSkipped, decode[scheduler.SkipResult](t, w).Log.Status)

	w = ts.do(t, "GET", "/api/v1/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]model.HistoryLog](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, model.HistoryStatusSkipped, history[0].Status)

	w = ts.do(t, "GET", "/api/v1/history", nil)
	assert.Len(t, decode[[]model.HistoryLog](t, w), 2)

	w = ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/snooze", map[string]any{"minutes": 15})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode[model.Medication](t, w).NextDose)

	assertError(t, ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/snooze", map[string]any{"minutes": 0}), http.StatusBadRequest, api.VALIDATIONERROR)
	assertError(t, ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/snooze", map[string]any{"minutes": 20000}), http.StatusBadRequest, api.VALIDATIONERROR)
	assertError(t, ts.do(t, "POST", "/api/v1/medications/missing/take", nil), http.StatusNotFound, api.NOTFOUND)
}

func TestAssistCreateMedication(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		ts := newTestServer(t, serverOptions{})
		w := ts.do(t, "POST", "/api/v1/medications/assist", map[string]any{"instruction": "ibuprofeno cada 8 horas"})
		assertError(t, w, http.StatusServiceUnavailable, api.ASSISTANTUNAVAILABLE)
	})

	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t, serverOptions{withAI: true})
		ts.ai.On("Complete", mock.Anything, mock.Anything).
			Return(`{"valid":true,"name":"Ibuprofeno","dosage":"400mg","frequencyType":"HOURLY","frequencyValue":8,"inventory":30}`, nil)

		w := ts.do(t, "POST", "/api/v1/medications/assist", map[string]any{"instruction": "ibuprofeno 400 cada 8 horas, tengo 30"}, "X-Flow-ID", "flow-1")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		med := decode[model.Medication](t, w)
		assert.Equal(t, "Ibuprofeno", med.Name)
		assert.Equal(t, 8, med.FrequencyValue)
		assert.Equal(t, 30, med.Inventory)
	})

	t.Run("rejected", func(t *testing.T) {
		ts := newTestServer(t, serverOptions{withAI: true})
		ts.ai.On("Complete", mock.Anything, mock.Anything).
			Return(`{"valid":false,"reason":"No es un medicamento."}`, nil)

		w := ts.do(t, "POST", "/api/v1/medications/assist", map[string]any{"instruction": "comprar pan"})
		resp := assertError(t, w, http.StatusUnprocessableEntity, api.REJECTED)
		assert.Equal(t, "No es un medicamento.", resp.Message)
		assert.Nil(t, resp.Details)
	})

	t.Run("quota", func(t *testing.T) {
		ts := newTestServer(t, serverOptions{withAI: true})
		ts.ai.On("Complete", mock.Anything, mock.Anything).
			Return("", errors.New("429 Too Many Requests: quota exceeded"))

		w := ts.do(t, "POST", "/api/v1/medications/assist", map[string]any{"instruction": "ibuprofeno"})
		assertError(t, w, http.StatusTooManyRequests, api.ASSISTANTQUOTA)
	})

	t.Run("malformed", func(t *testing.T) {
		ts := newTestServer(t, serverOptions{withAI: true})
		ts.ai.On("Complete", mock.Anything, mock.Anything).Return("not json", nil)

		w := ts.do(t, "POST", "/api/v1/medications/assist", map[string]any{"instruction": "ibuprofeno"})
		assertError(t, w, http.StatusBadGateway, api.ASSISTANTFAILED)
	})
}

func TestVoiceCreateMedication(t *testing.T) {
	ts := newTestServer(t, serverOptions{withAI: true})
	ts.speech.On("Transcribe", mock.Anything, mock.Anything, "audio/wav").Return("paracetamol cada día", nil)
	ts.ai.On("Complete", mock.Anything, mock.Anything).
		Return(`{"valid":true,"name":"Paracetamol","dosage":"1g","frequencyType":"DAILY","frequencyValue":1}`, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="audio"; filename="note.wav"`}
	header["Content-Type"] = []string{"audio/wav"}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF....WAVE"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/medications/voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[api.VoiceResponse](t, w)
	assert.Equal(t, "paracetamol cada día", resp.Transcript)
	assert.Equal(t, "Paracetamol", resp.Medication.Name)
	ts.speech.AssertExpectations(t)
}

func TestCancelFlow(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, "DELETE", "/api/v1/flows/flow-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[api.CancelFlowResponse](t, w).Cancelled)
}

func TestThemesAndProfile(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, "GET", "/api/v1/themes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	themes := decode[[]model.Theme](t, w)
	require.Len(t, themes, len(service.ThemeCatalogue))
	assert.True(t, themes[0].Unlocked)

	assertError(t, ts.do(t, "POST", "/api/v1/themes/ocean/unlock", nil), http.StatusConflict, api.CONFLICT)
	assertError(t, ts.do(t, "POST", "/api/v1/themes/neon/unlock", nil), http.StatusNotFound, api.NOTFOUND)
	assertError(t, ts.do(t, "PUT", "/api/v1/theme", map[string]any{"themeId": "midnight"}), http.StatusConflict, api.CONFLICT)

	w = ts.do(t, "PUT", "/api/v1/theme", map[string]any{"themeId": repository.DefaultTheme})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, "GET", "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[service.Profile](t, w)
	assert.Equal(t, 1, profile.Stats.Level)
	assert.Equal(t, repository.DefaultTheme, profile.Theme)
}

func TestDashboardSummary(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	med := ts.createMedication(t, map[string]any{"name": "Aspirina"})
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/v1/medications/"+med.ID+"/take", nil).Code)

	w := ts.do(t, "GET", "/api/v1/dashboard/summary?days=30", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[service.DashboardSummary](t, w)
	assert.Equal(t, "30 days", summary.Period)
	assert.Equal(t, 1, summary.Taken)
	assert.Len(t, summary.TimeSeriesData, 30)

	assertError(t, ts.do(t, "GET", "/api/v1/dashboard/summary?days=many", nil), http.StatusBadRequest, api.VALIDATIONERROR)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, serverOptions{withShare: true})
	ts.createMedication(t, map[string]any{"name": "Ibuprofeno", "dosage": "400mg"})

	w := ts.do(t, "GET", "/api/v1/reports/text", nil)
	require.Equal(t, http.StatusOK, w.Code)
	text := decode[api.TextReport](t, w).Text
	assert.True(t, strings.HasPrefix(text, "📋 REPORTE DE MEDICAMENTOS"))
	assert.Contains(t, text, "Ibuprofeno (400mg)")

	w = ts.do(t, "GET", "/api/v1/reports/pdf?from=2025-01-01&to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	assertError(t, ts.do(t, "GET", "/api/v1/reports/pdf?from=2025-02-01&to=2025-01-01", nil), http.StatusBadRequest, api.VALIDATIONERROR)

	w = ts.do(t, "POST", "/api/v1/reports/share", map[string]any{"includeSummary": false})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	shared := decode[service.SharedReport](t, w)
	assert.True(t, strings.HasPrefix(shared.BlobName, "reports/"))

	w = ts.do(t, "GET", "/api/v1/reports/shared?name="+shared.BlobName, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	assertError(t, ts.do(t, "GET", "/api/v1/reports/shared?name=../secret.pdf", nil), http.StatusBadRequest, api.VALIDATIONERROR)
	assertError(t, ts.do(t, "GET", "/api/v1/reports/shared?name=reports/missing.pdf", nil), http.StatusNotFound, api.NOTFOUND)
}

func TestShareReport_Unavailable(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	assertError(t, ts.do(t, "POST", "/api/v1/reports/share", map[string]any{}), http.StatusServiceUnavailable, api.ASSISTANTUNAVAILABLE)
}

func TestHistorySummary_Fallback(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, "GET", "/api/v1/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.SummaryResponse](t, w)
	assert.True(t, resp.Fallback)
	assert.Equal(t, service.FallbackSummary, resp.Summary)
}

func TestExportAndClearData(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.createMedication(t, map[string]any{"name": "Aspirina"})

	w := ts.do(t, "GET", "/api/v1/data/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=medireminder_")
	export := decode[service.DataExport](t, w)
	assert.Len(t, export.Medications, 1)

	w = ts.do(t, "DELETE", "/api/v1/data", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, "GET", "/api/v1/medications", nil)
	assert.Empty(t, decode[[]model.Medication](t, w))
}

func TestGetHealth(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	w := ts.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "unavailable", *resp.Assistant)

	ts = newTestServer(t, serverOptions{storage: failingStorage{}})
	w = ts.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp = decode[api.HealthResponse](t, w)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "database is locked", *resp.Error)
}
