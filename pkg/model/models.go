package model

import (
	"encoding/json"
	"strings"
	"time"
)

// FrequencyType is the cadence kind of a medication
type FrequencyType string

const (
	FrequencyHourly   FrequencyType = "HOURLY"
	FrequencyDaily    FrequencyType = "DAILY"
	FrequencyWeekly   FrequencyType = "WEEKLY"
	FrequencyAsNeeded FrequencyType = "AS_NEEDED"
)

// ParseFrequencyType maps free-form input onto a known cadence kind.
// The second return value is false when the input is not recognised.
func ParseFrequencyType(s string) (FrequencyType, bool) {
	switch FrequencyType(strings.ToUpper(strings.TrimSpace(s))) {
	case FrequencyHourly:
		return FrequencyHourly, true
	case FrequencyDaily:
		return FrequencyDaily, true
	case FrequencyWeekly:
		return FrequencyWeekly, true
	case FrequencyAsNeeded, "AS-NEEDED", "ASNEEDED":
		return FrequencyAsNeeded, true
	}
	return FrequencyDaily, false
}

// Upper bounds for FrequencyValue per cadence, roughly ten years. Larger
// steps overflow time.Duration or push dates past year 9999.
const (
	MaxHourlyFrequency = 8760
	MaxDailyFrequency  = 3650
	MaxWeeklyFrequency = 520
)

// MaxSnoozeMinutes caps how far a dose can be postponed (one week)
const MaxSnoozeMinutes = 7 * 24 * 60

// MaxFrequencyValue returns the largest step accepted for ft
func MaxFrequencyValue(ft FrequencyType) int {
	switch ft {
	case FrequencyHourly:
		return MaxHourlyFrequency
	case FrequencyWeekly:
		return MaxWeeklyFrequency
	default:
		return MaxDailyFrequency
	}
}

// ClampFrequencyValue bounds v to [1, MaxFrequencyValue(ft)]
func ClampFrequencyValue(ft FrequencyType, v int) int {
	if v < 1 {
		return 1
	}
	if limit := MaxFrequencyValue(ft); v > limit {
		return limit
	}
	return v
}

// MedicationAdvice holds assistant-provided guidance for a medication
type MedicationAdvice struct {
	Food         string `json:"food"`
	SideEffects  string `json:"sideEffects"`
	Interactions string `json:"interactions"`
}

// Medication represents a tracked medication.
// JSON field names follow the persisted key-value schema.
type Medication struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Dosage         string            `json:"dosage"`
	FrequencyType  FrequencyType     `json:"frequencyType"`
	FrequencyValue int               `json:"frequencyValue"`
	Notes          string            `json:"notes,omitempty"`
	StartDate      time.Time         `json:"startDate"`
	NextDose       *time.Time        `json:"nextDose,omitempty"`
	Inventory      int               `json:"inventory"`
	Color          string            `json:"color"`
	Icon           string            `json:"icon"`
	Advice         *MedicationAdvice `json:"advice,omitempty"`
}

// Normalize repairs fields that fail shape or range checks so that stored
// data of an older shape never reaches the scheduler in an invalid state.
func (m *Medication) Normalize() {
	if ft, ok := ParseFrequencyType(string(m.FrequencyType)); ok {
		m.FrequencyType = ft
	} else {
		m.FrequencyType = FrequencyDaily
	}
	m.FrequencyValue = ClampFrequencyValue(m.FrequencyType, m.FrequencyValue)
	if m.Inventory < 0 {
		m.Inventory = 0
	}
	if m.NextDose != nil && m.NextDose.IsZero() {
		m.NextDose = nil
	}
	if m.Icon == "" {
		m.Icon = "pill"
	}
}

// HistoryStatus is the outcome recorded in a history log
type HistoryStatus string

const (
	HistoryStatusTaken   HistoryStatus = "taken"
	HistoryStatusSkipped HistoryStatus = "skipped"
)

// HistoryLog is an immutable record of a take or skip action.
// MedicationName is a snapshot taken when the entry was created.
type HistoryLog struct {
	ID             string        `json:"id"`
	MedicationName string        `json:"medicationName"`
	TakenAt        time.Time     `json:"takenAt"`
	Status         HistoryStatus `json:"status"`
	PointsEarned   *int          `json:"pointsEarned,omitempty"`
}

// UserStats is the gamification ledger
type UserStats struct {
	Level                int        `json:"level"`
	CurrentPoints        int        `json:"currentPoints"`
	XP                   int        `json:"xp"`
	StreakDays           int        `json:"streakDays"`
	LongestStreak        int        `json:"longestStreak"`
	LastActiveDate       *time.Time `json:"lastActiveDate,omitempty"`
	AchievementsUnlocked []string   `json:"achievementsUnlocked"`
}

// NewUserStats returns the empty default stats ledger
func NewUserStats() UserStats {
	return UserStats{
		Level:                1,
		AchievementsUnlocked: []string{},
	}
}

// UnmarshalJSON accepts both the current shape and the older one that used
// lastTakenDate and had no separate xp counter.
func (s *UserStats) UnmarshalJSON(data []byte) error {
	type plain UserStats
	aux := struct {
		plain
		LastTakenDate *time.Time `json:"lastTakenDate,omitempty"`
		XP            *int       `json:"xp,omitempty"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = UserStats(aux.plain)
	if aux.XP != nil {
		s.XP = *aux.XP
	} else {
		s.XP = s.CurrentPoints
	}
	if s.LastActiveDate == nil {
		s.LastActiveDate = aux.LastTakenDate
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.AchievementsUnlocked == nil {
		s.AchievementsUnlocked = []string{}
	}
	return nil
}

// HasAchievement reports whether the achievement id is already unlocked
func (s UserStats) HasAchievement(id string) bool {
	for _, a := range s.AchievementsUnlocked {
		if a == id {
			return true
		}
	}
	return false
}

// Theme is a purchasable colour scheme
type Theme struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Unlocked bool   `json:"unlocked"`
}

// MedicationDraft is the sanitized result of parsing a free-text instruction
type MedicationDraft struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Dosage         string            `json:"dosage"`
	FrequencyType  FrequencyType     `json:"frequencyType"`
	FrequencyValue int               `json:"frequencyValue"`
	Notes          string            `json:"notes"`
	Inventory      int               `json:"inventory"`
	Advice         *MedicationAdvice `json:"advice,omitempty"`
}

// DetailResult is the enrichment returned for a medication name
type DetailResult struct {
	CorrectedName string            `json:"correctedName"`
	Description   string            `json:"description"`
	Advice        *MedicationAdvice `json:"advice,omitempty"`
}

// AuditEntry records a single mutation of the ledgers
type AuditEntry struct {
	Operation    string    `json:"operation"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	Timestamp    time.Time `json:"timestamp"`
	Details      string    `json:"details,omitempty"`
}
