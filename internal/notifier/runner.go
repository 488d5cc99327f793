package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vcscsvcscs/medireminder/internal/metrics"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// deliveryTimeout bounds a single sink delivery
const deliveryTimeout = 10 * time.Second

// MedicationSource provides a consistent snapshot of the medication list
type MedicationSource interface {
	List(ctx context.Context) []model.Medication
}

// Runner polls the medication list on a fixed cadence and fans reminders out
// to every sink. Ticks never overlap.
type Runner struct {
	source   MedicationSource
	sinks    []Sink
	interval time.Duration
	debounce time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	state  *PollState
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewRunner creates a Runner. Zero interval or debounce take the defaults.
func NewRunner(source MedicationSource, sinks []Sink, interval, debounce time.Duration, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Runner{
		source:   source,
		sinks:    sinks,
		interval: interval,
		debounce: debounce,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		state:    NewPollState(),
	}
}

// Start schedules the poll. It returns immediately.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return fmt.Errorf("notifier already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc("@every "+r.interval.String(), func() { r.Tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule reminder poll: %w", err)
	}
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.logger.Info("reminder notifier started",
		zap.Duration("interval", r.interval),
		zap.Duration("debounce", r.debounce),
		zap.Int("sinks", len(r.sinks)),
	)
	return nil
}

// Stop cancels the schedule, waits for a running tick up to ctx, and closes
// the sinks.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()

	if c != nil {
		cancel()
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			r.logger.Warn("timed out waiting for reminder poll to finish")
		}
	}

	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	r.logger.Info("reminder notifier stopped")
	return errors.Join(errs...)
}

// Tick runs one poll and returns how many reminders fired
func (r *Runner) Tick(ctx context.Context) int {
	meds := r.source.List(ctx)
	now := r.now()

	r.mu.Lock()
	reminders := Poll(meds, now, r.debounce, r.state)
	r.mu.Unlock()

	for _, rem := range reminders {
		r.deliver(ctx, rem)
	}
	if len(reminders) > 0 {
		r.logger.Info("reminders sent", zap.Int("count", len(reminders)))
	}
	return len(reminders)
}

func (r *Runner) deliver(ctx context.Context, rem Reminder) {
	for _, s := range r.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := s.Notify(sendCtx, rem)
		cancel()

		r.metrics.ObserveReminder(s.Name(), err)
		if err != nil {
			r.logger.Error("failed to deliver reminder",
				zap.Error(err),
				zap.String("sink", s.Name()),
				zap.String("tag", rem.Tag),
			)
		}
	}
}
