package notifier

import (
	"fmt"
	"time"

	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/pkg/model"
)

// DefaultDebounce is the minimum gap between two reminders for one medication
const DefaultDebounce = 50 * time.Second

// ReminderTitle is the headline of every reminder
const ReminderTitle = "Hora de tu medicamento"

// Reminder is a single due-dose notification. Tag is the medication id, so a
// later reminder for the same medication supersedes the previous one.
type Reminder struct {
	Tag          string    `json:"tag"`
	MedicationID string    `json:"medicationId"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	DueAt        time.Time `json:"dueAt"`
	FiredAt      time.Time `json:"firedAt"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
}

// PollState remembers what has already been announced. The zero value is
// not usable; create one with NewPollState.
type PollState struct {
	// slot per medication id that was last announced
	announced map[string]time.Time
	// when the last reminder for a medication id fired
	lastFired map[string]time.Time
}

// NewPollState creates an empty PollState
func NewPollState() *PollState {
	return &PollState{
		announced: make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
	}
}

// Poll returns the reminders to fire for meds at now and records them in st.
// A medication is announced once per due slot (its nextDose), and at most
// once per debounce window. As-needed medications and medications without a
// scheduled dose are never announced. Entries for medications no longer in
// meds are dropped from st.
func Poll(meds []model.Medication, now time.Time, debounce time.Duration, st *PollState) []Reminder {
	reminders := []Reminder{}
	present := make(map[string]struct{}, len(meds))

	for _, med := range meds {
		present[med.ID] = struct{}{}

		if med.FrequencyType == model.FrequencyAsNeeded || med.NextDose == nil {
			continue
		}
		if !scheduler.IsDue(med, now) {
			continue
		}
		slot := *med.NextDose
		if last, ok := st.announced[med.ID]; ok && last.Equal(slot) {
			continue
		}
		if fired, ok := st.lastFired[med.ID]; ok && now.Sub(fired) < debounce {
			continue
		}

		st.announced[med.ID] = slot
		st.lastFired[med.ID] = now
		reminders = append(reminders, newReminder(med, slot, now))
	}

	for id := range st.announced {
		if _, ok := present[id]; !ok {
			delete(st.announced, id)
			delete(st.lastFired, id)
		}
	}
	return reminders
}

func newReminder(med model.Medication, due, now time.Time) Reminder {
	return Reminder{
		Tag:          med.ID,
		MedicationID: med.ID,
		Name:         med.Name,
		Dosage:       med.Dosage,
		DueAt:        due,
		FiredAt:      now,
		Title:        ReminderTitle,
		Body:         fmt.Sprintf("Es hora de tomar: %s (%s)", med.Name, med.Dosage),
	}
}
