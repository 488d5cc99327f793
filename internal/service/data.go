package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// DataExport represents all stored data for export
type DataExport struct {
	Medications    []model.Medication `json:"medications"`
	History        []model.HistoryLog `json:"history"`
	UserStats      model.UserStats    `json:"userStats"`
	Theme          string             `json:"theme"`
	UnlockedThemes []string           `json:"unlockedThemes"`
	AuditLog       []model.AuditEntry `json:"auditLog"`
	ExportedAt     time.Time          `json:"exportedAt"`
}

// DataService handles export and removal of all stored data
type DataService struct {
	state       *State
	auditLogger *audit.Logger
	logger      *zap.Logger
}

// NewDataService creates a new DataService
func NewDataService(state *State, auditLogger *audit.Logger, logger *zap.Logger) *DataService {
	return &DataService{
		state:       state,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// ExportData exports every ledger as indented JSON
func (s *DataService) ExportData(ctx context.Context) ([]byte, error) {
	s.logger.Info("Starting data export")

	l := s.state.Snapshot()
	export := DataExport{
		Medications:    l.Medications,
		History:        l.History,
		UserStats:      l.Stats,
		Theme:          l.Theme,
		UnlockedThemes: l.UnlockedThemes,
		AuditLog:       s.auditLogger.Recent(ctx, 0),
		ExportedAt:     time.Now(),
	}

	jsonData, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export data: %w", err)
	}

	s.auditLogger.Log(ctx, audit.OperationExport, audit.ResourceLedgers, "all", "")
	s.logger.Info("Data export completed",
		zap.Int("medications", len(export.Medications)),
		zap.Int("history", len(export.History)),
		zap.Int("audit_entries", len(export.AuditLog)),
	)

	return jsonData, nil
}

// ClearData resets every ledger to its empty default. This is the only way
// history entries are removed.
func (s *DataService) ClearData(ctx context.Context) error {
	s.logger.Info("Starting data deletion")

	if err := s.state.reset(ctx); err != nil {
		s.logger.Error("Failed to clear data", zap.Error(err))
		return err
	}

	s.auditLogger.Log(ctx, audit.OperationClear, audit.ResourceLedgers, "all", "")
	s.logger.Info("Data deletion completed")
	return nil
}
