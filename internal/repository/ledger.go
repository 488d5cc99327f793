package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// Ledger keys in the key-value store
const (
	KeyMedications    = "medications"
	KeyHistory        = "history"
	KeyUserStats      = "userStats"
	KeyUserProfile    = "userProfile" // older name for userStats
	KeyTheme          = "theme"
	KeyUnlockedThemes = "unlockedThemes"
	KeyAuditLog       = "auditLog"
)

// DefaultTheme is always unlocked
const DefaultTheme = "default"

// Ledgers is a full snapshot of persisted state
type Ledgers struct {
	Medications    []model.Medication `json:"medications"`
	History        []model.HistoryLog `json:"history"`
	Stats          model.UserStats    `json:"userStats"`
	Theme          string             `json:"theme"`
	UnlockedThemes []string           `json:"unlockedThemes"`
}

// EmptyLedgers returns the defaults used for absent or unreadable data
func EmptyLedgers() Ledgers {
	return Ledgers{
		Medications:    []model.Medication{},
		History:        []model.HistoryLog{},
		Stats:          model.NewUserStats(),
		Theme:          DefaultTheme,
		UnlockedThemes: []string{DefaultTheme},
	}
}

// LedgerRepository reads and writes ledgers as JSON documents. Loading never
// fails: each ledger that is missing or corrupt falls back to its default on
// its own, leaving the others intact.
type LedgerRepository struct {
	store  KVStore
	logger *zap.Logger
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(store KVStore, logger *zap.Logger) *LedgerRepository {
	return &LedgerRepository{
		store:  store,
		logger: logger,
	}
}

// Load reads every ledger
func (r *LedgerRepository) Load(ctx context.Context) Ledgers {
	return Ledgers{
		Medications:    r.LoadMedications(ctx),
		History:        r.LoadHistory(ctx),
		Stats:          r.LoadStats(ctx),
		Theme:          r.LoadTheme(ctx),
		UnlockedThemes: r.LoadUnlockedThemes(ctx),
	}
}

// LoadMedications reads and normalizes the medication ledger
func (r *LedgerRepository) LoadMedications(ctx context.Context) []model.Medication {
	meds := []model.Medication{}
	if !r.readJSON(ctx, KeyMedications, &meds) {
		return []model.Medication{}
	}

	out := make([]model.Medication, 0, len(meds))
	for _, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			r.logger.Warn("dropping stored medication without a name", zap.String("medication_id", m.ID))
			continue
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
			r.logger.Warn("assigned id to stored medication", zap.String("medication_id", m.ID))
		}
		m.Normalize()
		out = append(out, m)
	}
	return out
}

// LoadHistory reads the history ledger, newest first
func (r *LedgerRepository) LoadHistory(ctx context.Context) []model.HistoryLog {
	history := []model.HistoryLog{}
	if !r.readJSON(ctx, KeyHistory, &history) {
		return []model.HistoryLog{}
	}
	if history == nil {
		history = []model.HistoryLog{}
	}
	return history
}

// LoadStats reads userStats, falling back to the older userProfile key
func (r *LedgerRepository) LoadStats(ctx context.Context) model.UserStats {
	stats := model.NewUserStats()
	if r.readJSON(ctx, KeyUserStats, &stats) {
		return stats
	}

	stats = model.NewUserStats()
	if r.readJSON(ctx, KeyUserProfile, &stats) {
		return stats
	}
	return model.NewUserStats()
}

// LoadTheme reads the selected theme id. Both a JSON string and a bare id
// are accepted.
func (r *LedgerRepository) LoadTheme(ctx context.Context) string {
	raw, ok := r.readRaw(ctx, KeyTheme)
	if !ok {
		return DefaultTheme
	}

	var theme string
	if err := json.Unmarshal(raw, &theme); err != nil {
		theme = strings.TrimSpace(string(raw))
	}
	if theme == "" || strings.ContainsAny(theme, "{}[]\"") {
		r.logger.Warn("stored theme unreadable, using default", zap.String("key", KeyTheme))
		return DefaultTheme
	}
	return theme
}

// LoadUnlockedThemes reads unlocked theme ids; the default theme is always included
func (r *LedgerRepository) LoadUnlockedThemes(ctx context.Context) []string {
	ids := []string{}
	if !r.readJSON(ctx, KeyUnlockedThemes, &ids) {
		ids = []string{}
	}

	seen := map[string]bool{DefaultTheme: true}
	out := []string{DefaultTheme}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// LoadAudit reads the audit ledger, newest first
func (r *LedgerRepository) LoadAudit(ctx context.Context) []model.AuditEntry {
	entries := []model.AuditEntry{}
	if !r.readJSON(ctx, KeyAuditLog, &entries) || entries == nil {
		return []model.AuditEntry{}
	}
	return entries
}

// SaveMedications replaces the medication ledger
func (r *LedgerRepository) SaveMedications(ctx context.Context, meds []model.Medication) error {
	return r.writeJSON(ctx, KeyMedications, meds)
}

// SaveHistory replaces the history ledger
func (r *LedgerRepository) SaveHistory(ctx context.Context, history []model.HistoryLog) error {
	return r.writeJSON(ctx, KeyHistory, history)
}

// SaveStats replaces the stats ledger
func (r *LedgerRepository) SaveStats(ctx context.Context, stats model.UserStats) error {
	return r.writeJSON(ctx, KeyUserStats, stats)
}

// SaveTheme stores the selected theme id
func (r *LedgerRepository) SaveTheme(ctx context.Context, theme string) error {
	return r.writeJSON(ctx, KeyTheme, theme)
}

// SaveUnlockedThemes replaces the unlocked theme list
func (r *LedgerRepository) SaveUnlockedThemes(ctx context.Context, ids []string) error {
	return r.writeJSON(ctx, KeyUnlockedThemes, ids)
}

// SaveAudit replaces the audit ledger
func (r *LedgerRepository) SaveAudit(ctx context.Context, entries []model.AuditEntry) error {
	return r.writeJSON(ctx, KeyAuditLog, entries)
}

// Clear removes every stored key
func (r *LedgerRepository) Clear(ctx context.Context) error {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ledgers: %w", err)
	}
	for _, k := range keys {
		if err := r.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("failed to clear %s: %w", k, err)
		}
	}
	r.logger.Info("ledgers cleared", zap.Int("keys", len(keys)))
	return nil
}

func (r *LedgerRepository) readRaw(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("failed to read ledger, using default", zap.Error(err), zap.String("key", key))
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// readJSON decodes key into dst and reports success. On failure dst may be
// partially written and callers must reset it.
func (r *LedgerRepository) readJSON(ctx context.Context, key string, dst any) bool {
	raw, ok := r.readRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.logger.Warn("corrupt ledger, using default", zap.Error(err), zap.String("key", key))
		return false
	}
	return true
}

func (r *LedgerRepository) writeJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		r.logger.Error("failed to save ledger", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
