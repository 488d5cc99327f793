package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medireminder/internal/metrics"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

type staticSource struct {
	mu   sync.Mutex
	meds []model.Medication
}

func (s *staticSource) List(context.Context) []model.Medication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Medication(nil), s.meds...)
}

type recordingSink struct {
	name string
	err  error

	mu       sync.Mutex
	received []Reminder
	closed   bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Notify(_ context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, r)
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestRunner_TickFansOutToSinks(t *testing.T) {
	source := &staticSource{meds: []model.Medication{
		med("a", model.FrequencyDaily, at(-time.Minute)),
		med("b", model.FrequencyDaily, at(time.Hour)),
	}}
	ok := &recordingSink{name: "log"}
	failing := &recordingSink{name: "telegram", err: errors.New("unreachable")}
	m := metrics.New()

	r := NewRunner(source, []Sink{ok, failing}, time.Minute, 0, m, zap.NewNop())
	r.now = func() time.Time { return pollBase }

	assert.Equal(t, 1, r.Tick(context.Background()))
	assert.Equal(t, 0, r.Tick(context.Background()), "the same slot is not announced twice")

	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count(), "a failing sink does not stop the others")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("log", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("telegram", "error")))
}

func TestRunner_StartAndStop(t *testing.T) {
	source := &staticSource{meds: []model.Medication{med("a", model.FrequencyDaily, at(-time.Minute))}}
	sink := &recordingSink{name: "log"}

	r := NewRunner(source, []Sink{sink}, time.Second, time.Second, nil, zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "starting twice is rejected")

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	assert.True(t, sink.closed)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(&staticSource{}, nil, 0, 0, nil, zap.NewNop())
	assert.Equal(t, time.Minute, r.interval)
	assert.Equal(t, DefaultDebounce, r.debounce)
}
