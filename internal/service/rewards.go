package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// ThemeCatalogue lists the purchasable themes and their point prices
var ThemeCatalogue = []model.Theme{
	{ID: repository.DefaultTheme, Name: "Clásico", Price: 0},
	{ID: "ocean", Name: "Océano", Price: 100},
	{ID: "forest", Name: "Bosque", Price: 200},
	{ID: "sunset", Name: "Atardecer", Price: 300},
	{ID: "midnight", Name: "Medianoche", Price: 500},
}

// Profile is the gamification view of the user
type Profile struct {
	Stats          model.UserStats `json:"stats"`
	NextLevelXP    int             `json:"nextLevelXp"`
	Theme          string          `json:"theme"`
	UnlockedThemes []string        `json:"unlockedThemes"`
}

// RewardService manages points spending and themes
type RewardService struct {
	state  *State
	audit  *audit.Logger
	logger *zap.Logger
}

// NewRewardService creates a new RewardService
func NewRewardService(state *State, auditLogger *audit.Logger, logger *zap.Logger) *RewardService {
	return &RewardService{
		state:  state,
		audit:  auditLogger,
		logger: logger,
	}
}

// Profile returns stats, level progress and theme state
func (s *RewardService) Profile(ctx context.Context) Profile {
	l := s.state.Snapshot()
	return Profile{
		Stats:          l.Stats,
		NextLevelXP:    l.Stats.Level * scheduler.XPPerLevel,
		Theme:          l.Theme,
		UnlockedThemes: l.UnlockedThemes,
	}
}

// Themes returns the catalogue with each theme's unlocked flag set
func (s *RewardService) Themes(ctx context.Context) []model.Theme {
	unlocked := s.state.Snapshot().UnlockedThemes
	themes := make([]model.Theme, len(ThemeCatalogue))
	for i, t := range ThemeCatalogue {
		t.Unlocked = t.ID == repository.DefaultTheme || slices.Contains(unlocked, t.ID)
		themes[i] = t
	}
	return themes
}

// UnlockTheme spends current points on a theme. XP is not spent, so the
// level never drops. Unlocking an owned theme is a no-op.
func (s *RewardService) UnlockTheme(ctx context.Context, id string) (model.UserStats, error) {
	theme, ok := findTheme(id)
	if !ok {
		return model.UserStats{}, fmt.Errorf("theme %q: %w", id, ErrThemeUnknown)
	}

	var stats model.UserStats
	spent := false
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		stats = l.Stats
		if slices.Contains(l.UnlockedThemes, id) {
			return 0, nil
		}
		if l.Stats.CurrentPoints < theme.Price {
			return 0, fmt.Errorf("theme %q costs %d, have %d: %w", id, theme.Price, l.Stats.CurrentPoints, ErrInsufficientPoints)
		}
		l.Stats.CurrentPoints -= theme.Price
		l.UnlockedThemes = append(l.UnlockedThemes, id)
		stats = l.Stats
		spent = true
		return ledgerStats | ledgerUnlockedThemes, nil
	})
	if err != nil {
		s.logger.Warn("theme unlock refused", zap.Error(err), zap.String("theme", id))
		return model.UserStats{}, err
	}

	if spent {
		s.audit.Log(ctx, audit.OperationUnlock, audit.ResourceTheme, id, fmt.Sprintf("%d points", theme.Price))
		s.logger.Info("theme unlocked",
			zap.String("theme", id),
			zap.Int("price", theme.Price),
			zap.Int("points_left", stats.CurrentPoints),
		)
	}
	return stats, nil
}

// SelectTheme makes an unlocked theme active
func (s *RewardService) SelectTheme(ctx context.Context, id string) error {
	if _, ok := findTheme(id); !ok {
		return fmt.Errorf("theme %q: %w", id, ErrThemeUnknown)
	}

	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		if id != repository.DefaultTheme && !slices.Contains(l.UnlockedThemes, id) {
			return 0, fmt.Errorf("theme %q: %w", id, ErrThemeLocked)
		}
		l.Theme = id
		return ledgerTheme, nil
	})
	if err != nil {
		s.logger.Warn("theme selection refused", zap.Error(err), zap.String("theme", id))
		return err
	}

	s.audit.Log(ctx, audit.OperationSelect, audit.ResourceTheme, id, "")
	s.logger.Info("theme selected", zap.String("theme", id))
	return nil
}

func findTheme(id string) (model.Theme, bool) {
	for _, t := range ThemeCatalogue {
		if t.ID == id {
			return t, true
		}
	}
	return model.Theme{}, false
}
