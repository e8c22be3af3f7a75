// Package timerbank fires the periodic timers that arm pipeline stages.
//
// Each registration owns one ticker. Its callback performs a single atomic
// flag set and reports whether the timer should keep running; it never
// blocks and never touches a driver.
package timerbank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/tempcycle/internal/sched"
)

// Policy decides which stages get their own timer.
type Policy string

const (
	// PolicyRearm registers all five timers. The four secondary timers re-arm
	// their stage idempotently; a trigger that meets an armed flag coalesces.
	PolicyRearm Policy = "rearm"
	// PolicyCascade registers only the ReadTemperature timer. Every other stage
	// runs solely through the hand-off chain.
	PolicyCascade Policy = "cascade"
)

// ParsePolicy validates a policy name. The empty string selects PolicyRearm.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyRearm:
		return PolicyRearm, nil
	case PolicyCascade:
		return PolicyCascade, nil
	}
	return "", fmt.Errorf("unknown timer policy %q (want %q or %q)", s, PolicyRearm, PolicyCascade)
}

// DefaultPeriods are the timer periods per stage, in stage order.
var DefaultPeriods = [sched.NumStages]time.Duration{
	1000 * time.Millisecond,
	1200 * time.Millisecond,
	1250 * time.Millisecond,
	1300 * time.Millisecond,
	1350 * time.Millisecond,
}

// Registration binds a period to the stage its timer arms.
type Registration struct {
	Period time.Duration
	Stage  sched.Stage
}

// Registrations returns the timers to register under policy.
func Registrations(policy Policy, periods [sched.NumStages]time.Duration) []Registration {
	var regs []Registration
	for _, s := range sched.Stages {
		if policy == PolicyCascade && s != sched.ReadTemperature {
			continue
		}
		regs = append(regs, Registration{Period: periods[s], Stage: s})
	}
	return regs
}

// Armer is the flag store the timers write to.
type Armer interface {
	Arm(s sched.Stage) bool
}

// TickerFunc creates a ticker and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Option configures a Bank.
type Option func(*Bank)

// WithTicker replaces time.NewTicker, e.g. with channels driven by a test.
func WithTicker(f TickerFunc) Option {
	return func(b *Bank) { b.newTicker = f }
}

// Bank runs a fixed set of registrations until stopped.
type Bank struct {
	armer     Armer
	regs      []Registration
	newTicker TickerFunc

	fired    [sched.NumStages]atomic.Uint64
	coalesce [sched.NumStages]atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New validates the registrations. At most one timer may target a stage.
func New(armer Armer, regs []Registration, opts ...Option) (*Bank, error) {
	if armer == nil {
		return nil, errors.New("nil armer")
	}
	if len(regs) == 0 {
		return nil, errors.New("no timer registrations")
	}
	var seen [sched.NumStages]bool
	for _, r := range regs {
		if !r.Stage.Valid() {
			return nil, fmt.Errorf("invalid stage %s", r.Stage)
		}
		if r.Period <= 0 {
			return nil, fmt.Errorf("%s: period must be positive, got %v", r.Stage, r.Period)
		}
		if seen[r.Stage] {
			return nil, fmt.Errorf("%s: registered twice", r.Stage)
		}
		seen[r.Stage] = true
	}

	b := &Bank{
		armer:     armer,
		regs:      append([]Registration(nil), regs...),
		newTicker: realTicker,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Registrations returns a copy of the bank's registrations.
func (b *Bank) Registrations() []Registration {
	return append([]Registration(nil), b.regs...)
}

// Start launches one goroutine per registration. The timers run until ctx is
// cancelled or Stop is called. Start may only be called once.
func (b *Bank) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.New("timer bank already started")
	}
	b.started = true

	ctx, b.cancel = context.WithCancel(ctx)
	for _, r := range b.regs {
		c, stop := b.newTicker(r.Period)
		b.wg.Add(1)
		go b.loop(ctx, r, c, stop)
	}
	return nil
}

func (b *Bank) loop(ctx context.Context, r Registration, c <-chan time.Time, stop func()) {
	defer b.wg.Done()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c:
			if !b.callback(r.Stage) {
				return
			}
		}
	}
}

// callback is the timer body: one flag write, then reschedule.
func (b *Bank) callback(s sched.Stage) bool {
	b.fired[s].Add(1)
	if !b.armer.Arm(s) {
		b.coalesce[s].Add(1)
	}
	return true
}

// Fire runs the callback of the timer registered for s synchronously, as if
// that timer had expired. It returns false if no timer targets s.
func (b *Bank) Fire(s sched.Stage) bool {
	for _, r := range b.regs {
		if r.Stage == s {
			return b.callback(s)
		}
	}
	return false
}

// Stop cancels every timer and waits for their goroutines to exit.
func (b *Bank) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// Fired returns how many times the timer for s has expired.
func (b *Bank) Fired(s sched.Stage) uint64 {
	if !s.Valid() {
		return 0
	}
	return b.fired[s].Load()
}

// Coalesced returns how many expiries of the timer for s found its flag
// already armed.
func (b *Bank) Coalesced(s sched.Stage) uint64 {
	if !s.Valid() {
		return 0
	}
	return b.coalesce[s].Load()
}
