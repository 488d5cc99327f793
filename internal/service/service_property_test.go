package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/medireminder/pkg/model"
)

var assistantFailures = []error{
	errors.New("429 Too Many Requests"),
	errors.New("401 Unauthorized"),
	errors.New("context deadline exceeded"),
	nil, // malformed response
}

// Feature: medireminder, Property: Assistant Failure Fallback
func TestProperty_DetailLookupNeverFails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Failed lookups echo the entered name with default advice", prop.ForAll(
		func(name string, failureIdx int, pad int) bool {
			ai := new(MockOpenAIClient)
			ai.On("Complete", mock.Anything, mock.Anything).Return("no es json", assistantFailures[failureIdx])

			entered := strings.Repeat(" ", pad) + name + strings.Repeat(" ", pad)
			outcome := newAssistant(ai).DetailLookup(context.Background(), entered, nil)

			if !outcome.Fallback || outcome.Notice == "" {
				t.Logf("expected fallback with notice for failure %d", failureIdx)
				return false
			}
			if outcome.Result.CorrectedName != name {
				t.Logf("corrected name %q, want %q", outcome.Result.CorrectedName, name)
				return false
			}
			return *outcome.Result.Advice == *FallbackAdvice()
		},
		gen.Identifier(),
		gen.IntRange(0, len(assistantFailures)-1),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

// Feature: medireminder, Property: Ledger Consistency
func TestProperty_DoseActionsKeepLedgersConsistent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("History, inventory and points agree after any take/skip sequence", prop.ForAll(
		func(actions []bool, stock int) bool {
			env := newTestEnv(t, false)
			ctx := context.Background()
			created, err := env.medications.Create(ctx, "", MedicationInput{Name: "Aspirina", Inventory: &stock})
			if err != nil {
				return false
			}
			id := created.Medication.ID

			takes := 0
			for _, take := range actions {
				if take {
					takes++
					_, err = env.medications.Take(ctx, id)
				} else {
					_, err = env.medications.Skip(ctx, id)
				}
				if err != nil {
					t.Logf("action failed: %v", err)
					return false
				}
			}

			l := env.state.Snapshot()
			if len(l.History) != len(actions) || len(env.repo.LoadHistory(ctx)) != len(actions) {
				t.Logf("history has %d entries for %d actions", len(l.History), len(actions))
				return false
			}
			if l.Medications[0].Inventory != max(stock-takes, 0) {
				t.Logf("inventory %d, stock %d, takes %d", l.Medications[0].Inventory, stock, takes)
				return false
			}

			points := 0
			for _, h := range l.History {
				if h.PointsEarned != nil {
					points += *h.PointsEarned
				}
			}
			stats := env.repo.LoadStats(ctx)
			return stats.XP == points && stats.CurrentPoints == points && l.Stats.XP == points
		},
		gen.SliceOfN(12, gen.Bool()),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

// Feature: medireminder, Property: Stale Results Discarded
func TestProperty_FlowGuardOnlyLatestGenerationIsCurrent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Only the last Begin is current and Cancel invalidates it", prop.ForAll(
		func(begins int, cancel bool) bool {
			g := NewFlowGuard()
			gens := make([]uint64, 0, begins)
			for range begins {
				gens = append(gens, g.Begin("flow:x"))
			}
			if cancel {
				g.Cancel("flow:x")
			}
			for i, generation := range gens {
				want := i == len(gens)-1 && !cancel
				if g.Current("flow:x", generation) != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Feature: medireminder, Property: Concurrent Mutations Are Serialized
func TestProperty_ConcurrentTakesLoseNoUpdates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("Parallel takes each leave one history entry", prop.ForAll(
		func(workers int) bool {
			env := newTestEnv(t, false)
			env.medications.newID = func() string { return uuid.New().String() }
			ctx := context.Background()
			stock := 100
			created, err := env.medications.Create(ctx, "", MedicationInput{Name: "Aspirina", Inventory: &stock})
			if err != nil {
				return false
			}

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = env.medications.Take(ctx, created.Medication.ID)
				}()
			}
			wg.Wait()

			l := env.state.Snapshot()
			taken := 0
			for _, h := range l.History {
				if h.Status == model.HistoryStatusTaken {
					taken++
				}
			}
			return taken == workers && l.Medications[0].Inventory == stock-workers
		},
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}
