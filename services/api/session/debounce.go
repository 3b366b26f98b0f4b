package session

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one execution on the
// trailing edge of the window. Only the most recent function runs.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
}

// NewDebouncer builds a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn after the window, replacing any pending execution.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels any pending execution.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
