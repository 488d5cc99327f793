package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// DailyAdherence is one day of the adherence time series
type DailyAdherence struct {
	Date    string `json:"date"`
	Taken   int    `json:"taken"`
	Skipped int    `json:"skipped"`
	Points  int    `json:"points"`
}

// DashboardSummary represents aggregated adherence data
type DashboardSummary struct {
	Period         string             `json:"period"`
	Taken          int                `json:"taken"`
	Skipped        int                `json:"skipped"`
	AdherenceRate  float64            `json:"adherenceRate"`
	PointsEarned   int                `json:"pointsEarned"`
	TimeSeriesData []DailyAdherence   `json:"timeSeriesData"`
	NextDue        *model.Medication  `json:"nextDue,omitempty"`
	DueNow         int                `json:"dueNow"`
	LowStock       []model.Medication `json:"lowStock"`
	Stats          model.UserStats    `json:"stats"`
}

// DashboardService aggregates adherence over the history ledger
type DashboardService struct {
	state    *State
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService. Days are bucketed in loc.
func NewDashboardService(state *State, loc *time.Location, logger *zap.Logger) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{
		state:    state,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// GetSummary retrieves the adherence summary for the last 7, 30 or 90 days
func (s *DashboardService) GetSummary(ctx context.Context, days int) *DashboardSummary {
	if days != 7 && days != 30 && days != 90 {
		s.logger.Warn("invalid days parameter, defaulting to 7",
			zap.Int("days", days),
		)
		days = 7
	}

	l := s.state.Snapshot()
	now := s.now().In(s.location)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	start := today.AddDate(0, 0, -(days - 1))

	series := make([]DailyAdherence, days)
	index := make(map[string]int, days)
	for i := range series {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		series[i] = DailyAdherence{Date: date}
		index[date] = i
	}

	summary := &DashboardSummary{
		Period:   fmt.Sprintf("%d days", days),
		LowStock: []model.Medication{},
		Stats:    l.Stats,
	}

	for _, log := range l.History {
		i, ok := index[log.TakenAt.In(s.location).Format(time.DateOnly)]
		if !ok {
			continue
		}
		points := 0
		if log.PointsEarned != nil {
			points = *log.PointsEarned
		}
		switch log.Status {
		case model.HistoryStatusTaken:
			series[i].Taken++
			summary.Taken++
		case model.HistoryStatusSkipped:
			series[i].Skipped++
			summary.Skipped++
		}
		series[i].Points += points
		summary.PointsEarned += points
	}
	summary.TimeSeriesData = series

	if total := summary.Taken + summary.Skipped; total > 0 {
		summary.AdherenceRate = float64(summary.Taken) / float64(total)
	}

	var nextAt time.Time
	for _, med := range l.Medications {
		if med.Inventory <= scheduler.LowStockThreshold {
			summary.LowStock = append(summary.LowStock, med)
		}
		if med.FrequencyType == model.FrequencyAsNeeded {
			continue
		}
		if scheduler.IsDue(med, now) {
			summary.DueNow++
		}
		at := now
		if med.NextDose != nil {
			at = *med.NextDose
		}
		if summary.NextDue == nil || at.Before(nextAt) {
			next := med
			summary.NextDue = &next
			nextAt = at
		}
	}

	s.logger.Info("dashboard summary retrieved successfully",
		zap.Int("days", days),
		zap.Int("taken", summary.Taken),
		zap.Int("skipped", summary.Skipped),
	)

	return summary
}
