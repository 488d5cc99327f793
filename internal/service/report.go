package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/azure"
	"github.com/vcscsvcscs/medireminder/internal/pdf"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// textReportHistory is how many history entries the text report lists
const textReportHistory = 10

// DateRange optionally bounds the history included in a report
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range. Bounds are whole days.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(r.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// SharedReport describes an uploaded report
type SharedReport struct {
	ID        string    `json:"id"`
	BlobName  string    `json:"blobName"`
	URL       string    `json:"url"`
	SizeBytes int       `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportService builds text and PDF medication reports
type ReportService struct {
	state      *State
	assistant  *AssistantService
	blobClient azure.BlobStorage
	pdfGen     *pdf.PDFGenerator
	audit      *audit.Logger
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService. A nil blobClient disables sharing.
func NewReportService(
	state *State,
	assistant *AssistantService,
	blobClient azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	auditLogger *audit.Logger,
	loc *time.Location,
	logger *zap.Logger,
) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		state:      state,
		assistant:  assistant,
		blobClient: blobClient,
		pdfGen:     pdfGen,
		audit:      auditLogger,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
}

// ShareAvailable reports whether reports can be uploaded
func (s *ReportService) ShareAvailable() bool {
	return s.blobClient != nil
}

// Text renders the plain-text report of active medications and the most
// recent history entries, suitable for copying or sharing.
func (s *ReportService) Text(ctx context.Context) string {
	l := s.state.Snapshot()
	now := s.now().In(s.location)

	var b strings.Builder
	b.WriteString("📋 REPORTE DE MEDICAMENTOS - MediRecordatorio\n\n")
	b.WriteString(fmt.Sprintf("📅 Fecha: %s\n", now.Format("02/01/2006")))
	b.WriteString("💊 Medicamentos Activos:\n")
	for _, m := range l.Medications {
		b.WriteString(fmt.Sprintf("- %s (%s): %s (Stock: %d)\n", m.Name, m.Dosage, pdf.FrequencyLabel(m), m.Inventory))
	}

	b.WriteString(fmt.Sprintf("\n📈 Historial Reciente (Últimos %d registros):\n", textReportHistory))
	for _, h := range l.History[:min(len(l.History), textReportHistory)] {
		line := fmt.Sprintf("- %s: %s", h.MedicationName, h.TakenAt.In(s.location).Format("02/01/2006 15:04"))
		if h.Status == model.HistoryStatusSkipped {
			line += " (omitido)"
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nEste reporte fue generado automáticamente.")
	return b.String()
}

// Summary asks the assistant for an encouraging summary of the recent history
func (s *ReportService) Summary(ctx context.Context) SummaryOutcome {
	return s.assistant.SummarizeHistory(ctx, s.state.Snapshot().History)
}

// PDF renders the report as a PDF. History is limited to the range and the
// assistant summary is included when requested.
func (s *ReportService) PDF(ctx context.Context, r DateRange, withSummary bool) ([]byte, error) {
	l := s.state.Snapshot()

	history := make([]model.HistoryLog, 0, len(l.History))
	for _, h := range l.History {
		if r.Contains(h.TakenAt) {
			history = append(history, h)
		}
	}

	data := &pdf.ReportData{
		Title:       "Reporte de medicamentos",
		GeneratedAt: s.now(),
		Location:    s.location,
		Medications: l.Medications,
		History:     history,
		Stats:       l.Stats,
	}
	if withSummary {
		data.Summary = s.assistant.SummarizeHistory(ctx, history).Summary
	}

	pdfBytes, err := s.pdfGen.Generate(data)
	if err != nil {
		s.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	s.audit.Log(ctx, audit.OperationExport, audit.ResourceReport, "pdf", fmt.Sprintf("%d history entries", len(history)))
	return pdfBytes, nil
}

// Share uploads the PDF report to blob storage and returns its location
func (s *ReportService) Share(ctx context.Context, r DateRange, withSummary bool) (*SharedReport, error) {
	if s.blobClient == nil {
		return nil, ErrShareUnavailable
	}

	pdfBytes, err := s.PDF(ctx, r, withSummary)
	if err != nil {
		return nil, err
	}

	reportID := uuid.New().String()
	filename := fmt.Sprintf("%s_%s.pdf", reportID, s.now().Format("20060102"))
	blobName, err := s.blobClient.UploadReport(ctx, filename, pdfBytes, "application/pdf")
	if err != nil {
		s.logger.Error("failed to upload PDF to blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return nil, fmt.Errorf("failed to upload PDF: %w", err)
	}

	s.logger.Info("report shared successfully",
		zap.String("report_id", reportID),
		zap.String("blob_path", blobName),
	)

	return &SharedReport{
		ID:        reportID,
		BlobName:  blobName,
		URL:       s.blobClient.BlobURL(blobName),
		SizeBytes: len(pdfBytes),
		CreatedAt: s.now(),
	}, nil
}

// Download fetches a previously shared report
func (s *ReportService) Download(ctx context.Context, blobName string) ([]byte, error) {
	if s.blobClient == nil {
		return nil, ErrShareUnavailable
	}
	if !strings.HasPrefix(blobName, "reports/") || strings.Contains(blobName, "..") {
		return nil, fmt.Errorf("%w: invalid report name", ErrInvalidInput)
	}

	pdfBytes, err := s.blobClient.DownloadReport(ctx, blobName)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("blob_path", blobName),
		)
		return nil, fmt.Errorf("report %s: %w", blobName, ErrNotFound)
	}

	s.logger.Info("report retrieved successfully",
		zap.String("blob_path", blobName),
		zap.Int("size_bytes", len(pdfBytes)),
	)
	return pdfBytes, nil
}
