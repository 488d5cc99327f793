package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

func intPtr(i int) *int { return &i }

func TestPDFGenerator_Generate_Success(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)
	next := time.Now().Add(2 * time.Hour)

	reportData := &ReportData{
		GeneratedAt: time.Now(),
		Medications: []model.Medication{
			{
				ID:             "med-1",
				Name:           "Ibuprofeno",
				Dosage:         "400mg",
				FrequencyType:  model.FrequencyHourly,
				FrequencyValue: 8,
				StartDate:      time.Now().AddDate(0, -1, 0),
				NextDose:       &next,
				Inventory:      12,
				Advice: &model.MedicationAdvice{
					Food:         "Con comida",
					SideEffects:  "Acidez, náuseas",
					Interactions: "Ninguna conocida",
				},
			},
		},
		History: []model.HistoryLog{
			{ID: "log-1", MedicationName: "Ibuprofeno", TakenAt: time.Now().Add(-time.Hour), Status: model.HistoryStatusTaken, PointsEarned: intPtr(50)},
			{ID: "log-2", MedicationName: "Ibuprofeno", TakenAt: time.Now().Add(-9 * time.Hour), Status: model.HistoryStatusSkipped, PointsEarned: intPtr(0)},
		},
		Stats:   model.UserStats{Level: 2, CurrentPoints: 120, XP: 120, StreakDays: 3, LongestStreak: 4},
		Summary: "Sigue así, mantén tu salud bajo control.",
	}

	// Act
	pdfBytes, err := generator.Generate(reportData)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content")

	// PDF files start with %PDF
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_Generate_EmptyData(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	reportData := &ReportData{
		Medications: []model.Medication{},
		History:     []model.HistoryLog{},
		Stats:       model.NewUserStats(),
	}

	// Act
	pdfBytes, err := generator.Generate(reportData)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content even with empty data")
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_Generate_LongHistory(t *testing.T) {
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	history := make([]model.HistoryLog, 0, 120)
	for i := 0; i < 120; i++ {
		history = append(history, model.HistoryLog{
			ID:             "log",
			MedicationName: "Metformina",
			TakenAt:        time.Now().Add(-time.Duration(i) * time.Hour),
			Status:         model.HistoryStatusTaken,
		})
	}

	pdfBytes, err := generator.Generate(&ReportData{History: history, Location: time.UTC})

	assert.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestFrequencyLabel(t *testing.T) {
	tests := []struct {
		name string
		med  model.Medication
		want string
	}{
		{name: "hourly", med: model.Medication{FrequencyType: model.FrequencyHourly, FrequencyValue: 8}, want: "Cada 8 horas"},
		{name: "daily", med: model.Medication{FrequencyType: model.FrequencyDaily, FrequencyValue: 1}, want: "Diario"},
		{name: "every two days", med: model.Medication{FrequencyType: model.FrequencyDaily, FrequencyValue: 2}, want: "Cada 2 días"},
		{name: "weekly", med: model.Medication{FrequencyType: model.FrequencyWeekly, FrequencyValue: 1}, want: "Semanal"},
		{name: "as needed", med: model.Medication{FrequencyType: model.FrequencyAsNeeded}, want: "Según necesidad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FrequencyLabel(tt.med))
		})
	}
}
