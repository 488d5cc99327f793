package scheduler

import (
	"time"

	"github.com/vcscsvcscs/medireminder/pkg/model"
)

// XPPerLevel is the width of one level on the linear level curve
const XPPerLevel = 100

// LowStockThreshold is the inventory at or below which a warning is raised
const LowStockThreshold = 5

// Achievement ids
const (
	AchievementFirstDose = "first_dose"
	AchievementStreak3   = "streak_3"
	AchievementStreak7   = "streak_7"
	AchievementStreak30  = "streak_30"
	AchievementLevel5    = "level_5"
)

// TakeResult is the outcome of logging a dose as taken
type TakeResult struct {
	Medication      model.Medication   `json:"medication"`
	Log             model.HistoryLog   `json:"log"`
	History         []model.HistoryLog `json:"-"`
	Stats           model.UserStats    `json:"stats"`
	PointsEarned    int                `json:"pointsEarned"`
	LeveledUp       bool               `json:"leveledUp"`
	NewAchievements []string           `json:"newAchievements"`
	LowStock        bool               `json:"lowStock"`
	OutOfStock      bool               `json:"outOfStock"`
}

// SkipResult is the outcome of logging a dose as skipped
type SkipResult struct {
	Medication model.Medication   `json:"medication"`
	Log        model.HistoryLog   `json:"log"`
	History    []model.HistoryLog `json:"-"`
}

// LevelFor maps cumulative xp onto a level: floor(xp/100) + 1
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// RecordTake composes the take action: it prepends a history entry,
// decrements inventory (floored at 0), schedules the next dose and updates
// points, streak, level and achievements. Inputs are not modified.
func RecordTake(med model.Medication, history []model.HistoryLog, stats model.UserStats, logID string, now time.Time) TakeResult {
	scheduled := med.NextDose
	if med.FrequencyType == model.FrequencyAsNeeded {
		scheduled = nil
	}
	points := Points(scheduled, now)

	log := model.HistoryLog{
		ID:             logID,
		MedicationName: med.Name,
		TakenAt:        now,
		Status:         model.HistoryStatusTaken,
		PointsEarned:   &points,
	}

	updated := med
	updated.Inventory = med.Inventory - 1
	if updated.Inventory < 0 {
		updated.Inventory = 0
	}
	next := NextDose(med, now)
	updated.NextDose = &next

	newStats, leveledUp := applyPoints(stats, points)
	newStats = ApplyStreak(newStats, now)
	newStats, unlocked := unlockAchievements(newStats)

	return TakeResult{
		Medication:      updated,
		Log:             log,
		History:         prepend(history, log),
		Stats:           newStats,
		PointsEarned:    points,
		LeveledUp:       leveledUp,
		NewAchievements: unlocked,
		LowStock:        updated.Inventory > 0 && updated.Inventory <= LowStockThreshold,
		OutOfStock:      updated.Inventory == 0,
	}
}

// RecordSkip logs a skipped dose and moves the schedule to the next slot.
// Inventory and stats are unaffected.
func RecordSkip(med model.Medication, history []model.HistoryLog, logID string, now time.Time) SkipResult {
	zero := 0
	log := model.HistoryLog{
		ID:             logID,
		MedicationName: med.Name,
		TakenAt:        now,
		Status:         model.HistoryStatusSkipped,
		PointsEarned:   &zero,
	}

	updated := med
	next := NextDose(med, now)
	updated.NextDose = &next

	return SkipResult{
		Medication: updated,
		Log:        log,
		History:    prepend(history, log),
	}
}

// ApplyStreak updates the streak for activity at now. Multiple doses on one
// calendar day count once; a gap of more than one day restarts at 1.
func ApplyStreak(stats model.UserStats, now time.Time) model.UserStats {
	today := calendarDay(now, now.Location())

	switch {
	case stats.LastActiveDate == nil:
		stats.StreakDays = 1
	default:
		last := calendarDay(*stats.LastActiveDate, now.Location())
		switch {
		case last.Equal(today):
			if stats.StreakDays < 1 {
				stats.StreakDays = 1
			}
		case last.AddDate(0, 0, 1).Equal(today):
			stats.StreakDays++
		default:
			stats.StreakDays = 1
		}
	}

	if stats.StreakDays > stats.LongestStreak {
		stats.LongestStreak = stats.StreakDays
	}
	active := now
	stats.LastActiveDate = &active
	return stats
}

// applyPoints credits both spendable points and xp. The level only moves up.
func applyPoints(stats model.UserStats, points int) (model.UserStats, bool) {
	stats.CurrentPoints += points
	stats.XP += points

	oldLevel := stats.Level
	if oldLevel < 1 {
		oldLevel = 1
	}
	newLevel := LevelFor(stats.XP)
	if newLevel < oldLevel {
		newLevel = oldLevel
	}
	stats.Level = newLevel
	return stats, newLevel > oldLevel
}

func unlockAchievements(stats model.UserStats) (model.UserStats, []string) {
	rules := []struct {
		id string
		ok bool
	}{
		{AchievementFirstDose, stats.XP > 0},
		{AchievementStreak3, stats.StreakDays >= 3},
		{AchievementStreak7, stats.StreakDays >= 7},
		{AchievementStreak30, stats.StreakDays >= 30},
		{AchievementLevel5, stats.Level >= 5},
	}

	unlocked := []string{}
	owned := append([]string{}, stats.AchievementsUnlocked...)
	for _, r := range rules {
		if r.ok && !stats.HasAchievement(r.id) {
			owned = append(owned, r.id)
			unlocked = append(unlocked, r.id)
		}
	}
	stats.AchievementsUnlocked = owned
	return stats, unlocked
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// prepend returns a new slice with log first, keeping history newest-first
func prepend(history []model.HistoryLog, log model.HistoryLog) []model.HistoryLog {
	out := make([]model.HistoryLog, 0, len(history)+1)
	out = append(out, log)
	return append(out, history...)
}
