// Package watchdog detects a main loop that stopped feeding it.
//
// The daemon feeds the watchdog once per loop iteration and checks it from
// a separate goroutine. A stall is reported once; the next Feed rearms it.
// On the board the hardware watchdog resets the chip instead.
package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Feeder is anything that can be kicked: this package's Watchdog or the
// RP2040 hardware watchdog.
type Feeder interface {
	Feed()
}

// Watchdog reports when Feed has not been called within the timeout.
type Watchdog struct {
	timeout time.Duration
	onStall func(idle time.Duration)
	now     func() time.Time

	mu      sync.Mutex
	last    time.Time
	stalled bool
	stalls  uint64
}

// New creates a Watchdog fed at creation time. now may be nil to use time.Now.
func New(timeout time.Duration, onStall func(idle time.Duration), now func() time.Time) (*Watchdog, error) {
	if timeout <= 0 {
		return nil, errors.New("watchdog: timeout must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Watchdog{
		timeout: timeout,
		onStall: onStall,
		now:     now,
		last:    now(),
	}, nil
}

// Feed records that the loop is alive.
func (w *Watchdog) Feed() {
	w.mu.Lock()
	w.last = w.now()
	w.stalled = false
	w.mu.Unlock()
}

// Check reports a stall once per starvation period and returns whether the
// loop is currently stalled.
func (w *Watchdog) Check() bool {
	w.mu.Lock()
	idle := w.now().Sub(w.last)
	if idle <= w.timeout {
		w.mu.Unlock()
		return false
	}
	fire := !w.stalled
	if fire {
		w.stalled = true
		w.stalls++
	}
	w.mu.Unlock()

	if fire && w.onStall != nil {
		w.onStall(idle)
	}
	return true
}

// Stalls returns how many stalls have been reported.
func (w *Watchdog) Stalls() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stalls
}

// Run calls Check on every tick until ctx is done.
func (w *Watchdog) Run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			w.Check()
		}
	}
}
