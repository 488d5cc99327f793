package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// LedgerStore is the persistence the services depend on
type LedgerStore interface {
	Load(ctx context.Context) repository.Ledgers
	SaveMedications(ctx context.Context, meds []model.Medication) error
	SaveHistory(ctx context.Context, history []model.HistoryLog) error
	SaveStats(ctx context.Context, stats model.UserStats) error
	SaveTheme(ctx context.Context, theme string) error
	SaveUnlockedThemes(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
}

// Ensure LedgerRepository implements LedgerStore
var _ LedgerStore = (*repository.LedgerRepository)(nil)

type ledgerSet uint8

const (
	ledgerMedications ledgerSet = 1 << iota
	ledgerHistory
	ledgerStats
	ledgerTheme
	ledgerUnlockedThemes
)

// State holds the in-memory ledgers shared by the services. Every mutation
// builds new slices and swaps them in under the lock, so a Snapshot taken by
// the reminder poll is never torn. Elements are never modified in place.
type State struct {
	mu      sync.RWMutex
	store   LedgerStore
	ledgers repository.Ledgers
	logger  *zap.Logger
}

// NewState loads the ledgers from the store
func NewState(ctx context.Context, store LedgerStore, logger *zap.Logger) *State {
	ledgers := store.Load(ctx)
	logger.Info("ledgers loaded",
		zap.Int("medications", len(ledgers.Medications)),
		zap.Int("history", len(ledgers.History)),
		zap.Int("level", ledgers.Stats.Level),
	)
	return &State{
		store:   store,
		ledgers: ledgers,
		logger:  logger,
	}
}

// Snapshot returns a consistent copy of all ledgers
func (s *State) Snapshot() repository.Ledgers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLedgers(s.ledgers)
}

// Medications returns a copy of the medication ledger
func (s *State) Medications() []model.Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Medication{}, s.ledgers.Medications...)
}

// update applies fn to a copy of the ledgers and saves every ledger fn
// reports as changed. The copy replaces the current ledgers only once all
// saves succeed. If a save fails, the ledgers already written are restored
// from the previous state and memory is left untouched.
func (s *State) update(ctx context.Context, fn func(l *repository.Ledgers) (ledgerSet, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copyLedgers(s.ledgers)
	changed, err := fn(&next)
	if err != nil {
		return err
	}

	written, err := s.persist(ctx, next, changed)
	if err != nil {
		if written != 0 {
			if _, rbErr := s.persist(ctx, s.ledgers, written); rbErr != nil {
				s.logger.Error("failed to restore ledgers after save failure", zap.Error(rbErr))
			}
		}
		return err
	}

	s.ledgers = next
	return nil
}

// reset replaces every ledger with its empty default
func (s *State) reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear ledgers: %w", err)
	}
	s.ledgers = repository.EmptyLedgers()
	return nil
}

// persist saves the changed ledgers of l and reports which ones were written
func (s *State) persist(ctx context.Context, l repository.Ledgers, changed ledgerSet) (ledgerSet, error) {
	var (
		written ledgerSet
		errs    []error
	)
	save := func(name string, flag ledgerSet, fn func() error) {
		if changed&flag == 0 {
			return
		}
		if err := fn(); err != nil {
			s.logger.Error("failed to save ledger", zap.Error(err), zap.String("ledger", name))
			errs = append(errs, fmt.Errorf("failed to save %s: %w", name, err))
			return
		}
		written |= flag
	}

	save(repository.KeyMedications, ledgerMedications, func() error { return s.store.SaveMedications(ctx, l.Medications) })
	save(repository.KeyHistory, ledgerHistory, func() error { return s.store.SaveHistory(ctx, l.History) })
	save(repository.KeyUserStats, ledgerStats, func() error { return s.store.SaveStats(ctx, l.Stats) })
	save(repository.KeyTheme, ledgerTheme, func() error { return s.store.SaveTheme(ctx, l.Theme) })
	save(repository.KeyUnlockedThemes, ledgerUnlockedThemes, func() error { return s.store.SaveUnlockedThemes(ctx, l.UnlockedThemes) })

	return written, errors.Join(errs...)
}

func copyLedgers(l repository.Ledgers) repository.Ledgers {
	out := l
	out.Medications = append([]model.Medication{}, l.Medications...)
	out.History = append([]model.HistoryLog{}, l.History...)
	out.UnlockedThemes = append([]string{}, l.UnlockedThemes...)
	out.Stats.AchievementsUnlocked = append([]string{}, l.Stats.AchievementsUnlocked...)
	return out
}

// indexOf returns the position of the medication with id, or -1
func indexOf(meds []model.Medication, id string) int {
	for i := range meds {
		if meds[i].ID == id {
			return i
		}
	}
	return -1
}
