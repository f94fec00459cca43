package session

import (
	"context"
	"sync"
	"time"

	"github.com/wudi/pdfmark/observability"
)

// DefaultAutosaveDelay is the quiet period before a triggered save runs.
const DefaultAutosaveDelay = 500 * time.Millisecond

// Autosaver coalesces bursts of Trigger calls into one save that runs once
// no trigger has arrived for the delay. Save errors are logged and dropped.
type Autosaver struct {
	delay time.Duration
	save  func(context.Context) error
	log   observability.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	// saving serialises the save function.
	saving sync.Mutex
}

func NewAutosaver(delay time.Duration, save func(context.Context) error, log observability.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Autosaver{delay: delay, save: save, log: log}
}

// Trigger schedules a save, restarting the quiet period.
func (a *Autosaver) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = true
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || !a.pending || a.stopped {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.mu.Unlock()
	a.run(context.Background())
}

func (a *Autosaver) run(ctx context.Context) error {
	a.saving.Lock()
	defer a.saving.Unlock()
	start := time.Now()
	if err := a.save(ctx); err != nil {
		a.log.Warn("autosave failed", observability.Error("error", err))
		return err
	}
	a.log.Debug("autosaved", observability.Duration(observability.MetricAutosaveTime, time.Since(start)))
	return nil
}

// Pending reports whether a save is scheduled.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Flush runs a scheduled save now and waits for it.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	pending := a.pending
	a.pending = false
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	if !pending {
		// Wait for a save the timer already started.
		a.saving.Lock()
		a.saving.Unlock()
		return nil
	}
	return a.run(ctx)
}

// Stop cancels any scheduled save; later triggers are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.pending = false
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
	}
}
