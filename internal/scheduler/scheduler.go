// Package scheduler computes when medications are due, what the next dose
// slot is after a dose is logged, and how many reward points it earns.
// Every function is pure: callers pass "now" and receive new values.
package scheduler

import (
	"time"

	"github.com/vcscsvcscs/medireminder/pkg/model"
)

// Point tiers for a logged dose, ordered so that a dose closer to its
// scheduled time never earns less than a later one.
const (
	PointsOnTime   = 50
	PointsClose    = 30
	PointsBaseline = 10

	OnTimeWindow = 60 * time.Minute
	CloseWindow  = 120 * time.Minute
)

// IsDue reports whether a dose may be logged now. Medications without a
// next dose, and as-needed medications, are always due.
func IsDue(med model.Medication, now time.Time) bool {
	if med.FrequencyType == model.FrequencyAsNeeded {
		return true
	}
	if med.NextDose == nil {
		return true
	}
	return !med.NextDose.After(now)
}

// NextDose returns the next scheduled occurrence after a dose logged at now.
// For hourly, daily and weekly cadences the result is strictly after now.
func NextDose(med model.Medication, now time.Time) time.Time {
	n := stepCount(med.FrequencyType, med.FrequencyValue)

	switch med.FrequencyType {
	case model.FrequencyHourly:
		// Anchored to the actual intake moment, not the missed slot.
		return now.Add(time.Duration(n) * time.Hour)
	case model.FrequencyWeekly:
		return catchUp(reference(med, now), now, 7*n)
	case model.FrequencyAsNeeded:
		return now
	default:
		// DAILY, and any kind that slipped past Normalize.
		return catchUp(reference(med, now), now, n)
	}
}

// Points returns the reward for logging a dose at now against its scheduled
// time. A missing scheduled time earns the baseline.
func Points(scheduled *time.Time, now time.Time) int {
	if scheduled == nil || scheduled.IsZero() {
		return PointsBaseline
	}
	deviation := now.Sub(*scheduled)
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation <= OnTimeWindow:
		return PointsOnTime
	case deviation <= CloseWindow:
		return PointsClose
	default:
		return PointsBaseline
	}
}

// Snooze overrides the schedule so the medication becomes due again after
// the given number of minutes. Cadence, inventory and history are untouched.
func Snooze(med model.Medication, minutes int, now time.Time) model.Medication {
	if minutes > model.MaxSnoozeMinutes {
		minutes = model.MaxSnoozeMinutes
	}
	next := now.Add(time.Duration(minutes) * time.Minute)
	med.NextDose = &next
	return med
}

// stepCount treats non-positive frequency values as 1 and caps the step
// per cadence
func stepCount(ft model.FrequencyType, v int) int {
	return model.ClampFrequencyValue(ft, v)
}

// reference picks the slot a calendar cadence advances from:
// the previous scheduled slot, then the start date, then now.
func reference(med model.Medication, now time.Time) time.Time {
	if med.NextDose != nil && !med.NextDose.IsZero() {
		return *med.NextDose
	}
	if !med.StartDate.IsZero() {
		return med.StartDate
	}
	return now
}

// catchUp advances ref by days-sized steps, keeping the wall-clock time of
// day, until the result is strictly after now.
func catchUp(ref, now time.Time, days int) time.Time {
	next := ref.AddDate(0, 0, days)
	if !next.After(now) {
		// Jump over whole missed periods first so long gaps stay cheap.
		behind := int(now.Sub(next).Hours()/24) / days
		if behind > 1 {
			next = next.AddDate(0, 0, (behind-1)*days)
		}
	}
	for !next.After(now) {
		next = next.AddDate(0, 0, days)
	}
	return next
}
