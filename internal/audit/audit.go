package audit

import (
	"context"
	"sync"
	"time"

	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationTake   OperationType = "TAKE"
	OperationSkip   OperationType = "SKIP"
	OperationSnooze OperationType = "SNOOZE"
	OperationUnlock OperationType = "UNLOCK"
	OperationSelect OperationType = "SELECT"
	OperationExport OperationType = "EXPORT"
	OperationClear  OperationType = "CLEAR"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceMedication ResourceType = "medication"
	ResourceHistory    ResourceType = "history"
	ResourceTheme      ResourceType = "theme"
	ResourceReport     ResourceType = "report"
	ResourceLedgers    ResourceType = "ledgers"
)

// DefaultCapacity bounds the persisted audit ledger
const DefaultCapacity = 200

// Store persists the audit ledger
type Store interface {
	LoadAudit(ctx context.Context) []model.AuditEntry
	SaveAudit(ctx context.Context, entries []model.AuditEntry) error
}

// Logger handles audit logging
type Logger struct {
	mu       sync.Mutex
	store    Store
	logger   *zap.Logger
	capacity int
}

// NewLogger creates a new audit logger
func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{
		store:    store,
		logger:   logger,
		capacity: DefaultCapacity,
	}
}

// Log records an audit entry. Failures to persist are logged, not returned:
// the audited mutation has already happened.
func (l *Logger) Log(ctx context.Context, op OperationType, resource ResourceType, resourceID, details string) {
	entry := model.AuditEntry{
		Operation:    string(op),
		ResourceType: string(resource),
		ResourceID:   resourceID,
		Timestamp:    time.Now(),
		Details:      details,
	}

	// Log to structured logger first
	l.logger.Info("Audit log entry",
		zap.String("operation", entry.Operation),
		zap.String("resource_type", entry.ResourceType),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.store.LoadAudit(ctx)
	entries = append([]model.AuditEntry{entry}, entries...)
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}

	if err := l.store.SaveAudit(ctx, entries); err != nil {
		l.logger.Error("Failed to persist audit log",
			zap.Error(err),
			zap.String("operation", entry.Operation),
			zap.String("resource_type", entry.ResourceType),
		)
	}
}

// Recent returns up to limit entries, newest first
func (l *Logger) Recent(ctx context.Context, limit int) []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.store.LoadAudit(ctx)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
