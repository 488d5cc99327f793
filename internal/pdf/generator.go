package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// maxHistoryRows bounds the history table
const maxHistoryRows = 30

// PDFGenerator generates medication reports
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	Title       string
	GeneratedAt time.Time
	Location    *time.Location
	Medications []model.Medication
	History     []model.HistoryLog
	Stats       model.UserStats
	Summary     string
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	if data.Location == nil {
		data.Location = time.Local
	}
	if data.Title == "" {
		data.Title = "Reporte de medicamentos"
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	g.logger.Info("generating PDF report",
		zap.Int("medications", len(data.Medications)),
		zap.Int("history", len(data.History)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	// Core fonts are cp1252; accented Spanish text needs translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	g.addTitle(pdf, tr, data)
	g.addMedicationList(pdf, tr, data.Medications)
	g.addAdherence(pdf, tr, data.History)
	g.addHistory(pdf, tr, data.History, data.Location)
	g.addProgress(pdf, tr, data.Stats)
	if data.Summary != "" {
		g.addSectionHeader(pdf, tr, "Resumen")
		pdf.MultiCell(0, 5, tr(data.Summary), "", "L", false)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr func(string) string, data *ReportData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Fecha: %s", data.GeneratedAt.In(data.Location).Format("2006-01-02 15:04"))), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addMedicationList adds the active medication table
func (g *PDFGenerator) addMedicationList(pdf *gofpdf.Fpdf, tr func(string) string, medications []model.Medication) {
	g.addSectionHeader(pdf, tr, "Medicamentos activos")

	if len(medications) == 0 {
		pdf.CellFormat(0, 8, tr("No hay medicamentos registrados."), "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	widths := []float64{55, 30, 50, 35}
	headers := []string{"Nombre", "Dosis", "Frecuencia", "Stock"}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, med := range medications {
		pdf.CellFormat(widths[0], 6, tr(med.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(med.Dosage), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(FrequencyLabel(med)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", med.Inventory), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	for _, med := range medications {
		if med.Advice == nil {
			continue
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(med.Name), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Comida: %s", med.Advice.Food)), "", "L", false)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Efectos secundarios: %s", med.Advice.SideEffects)), "", "L", false)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Interacciones: %s", med.Advice.Interactions)), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(3)
}

// addAdherence adds taken versus skipped counts
func (g *PDFGenerator) addAdherence(pdf *gofpdf.Fpdf, tr func(string) string, history []model.HistoryLog) {
	g.addSectionHeader(pdf, tr, "Adherencia")

	if len(history) == 0 {
		pdf.CellFormat(0, 8, tr("No hay tomas registradas."), "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	taken, skipped := 0, 0
	for _, log := range history {
		switch log.Status {
		case model.HistoryStatusTaken:
			taken++
		case model.HistoryStatusSkipped:
			skipped++
		}
	}
	rate := float64(taken) / float64(taken+skipped) * 100

	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Tomadas: %d", taken)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Omitidas: %d", skipped)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Adherencia: %.0f%%", rate)), "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// addHistory lists the most recent history entries
func (g *PDFGenerator) addHistory(pdf *gofpdf.Fpdf, tr func(string) string, history []model.HistoryLog, loc *time.Location) {
	if len(history) == 0 {
		return
	}
	g.addSectionHeader(pdf, tr, "Historial reciente")

	rows := min(len(history), maxHistoryRows)
	for _, log := range history[:rows] {
		status := "Tomado"
		if log.Status == model.HistoryStatusSkipped {
			status = "Omitido"
		}
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s  %s - %s",
			log.TakenAt.In(loc).Format("2006-01-02 15:04"), log.MedicationName, status)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

// addProgress adds level, points and streak
func (g *PDFGenerator) addProgress(pdf *gofpdf.Fpdf, tr func(string) string, stats model.UserStats) {
	g.addSectionHeader(pdf, tr, "Progreso")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Nivel %d - %d puntos", stats.Level, stats.CurrentPoints)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Racha: %d días (máxima %d)", stats.StreakDays, stats.LongestStreak)), "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// FrequencyLabel renders a cadence for people
func FrequencyLabel(med model.Medication) string {
	n := med.FrequencyValue
	switch med.FrequencyType {
	case model.FrequencyHourly:
		return fmt.Sprintf("Cada %d horas", n)
	case model.FrequencyWeekly:
		if n == 1 {
			return "Semanal"
		}
		return fmt.Sprintf("Cada %d semanas", n)
	case model.FrequencyAsNeeded:
		return "Según necesidad"
	default:
		if n <= 1 {
			return "Diario"
		}
		return fmt.Sprintf("Cada %d días", n)
	}
}
