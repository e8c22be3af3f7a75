package sched

import "sync/atomic"

// Flags holds one armed bit per stage in a single atomic word.
// Safe for concurrent use from timer goroutines and the main loop.
//
// Flags coalesce: arming an already armed stage does not queue a second run.
// Such a duplicate trigger is an overrun and is counted per stage.
type Flags struct {
	word     atomic.Uint32
	overruns [NumStages]atomic.Uint64
}

func bit(s Stage) uint32 {
	return 1 << uint(s)
}

// Arm sets the flag for s. It returns false, and counts an overrun, when the
// flag was already set. Arm never blocks and is safe to call from timer context.
func (f *Flags) Arm(s Stage) bool {
	if !s.Valid() {
		return false
	}
	b := bit(s)
	for {
		old := f.word.Load()
		if old&b != 0 {
			f.overruns[s].Add(1)
			return false
		}
		if f.word.CompareAndSwap(old, old|b) {
			return true
		}
	}
}

// claim clears the flag for s and reports whether it was set.
func (f *Flags) claim(s Stage) bool {
	b := bit(s)
	for {
		old := f.word.Load()
		if old&b == 0 {
			return false
		}
		if f.word.CompareAndSwap(old, old&^b) {
			return true
		}
	}
}

// Armed reports whether the flag for s is set.
func (f *Flags) Armed(s Stage) bool {
	if !s.Valid() {
		return false
	}
	return f.word.Load()&bit(s) != 0
}

// Pending returns the armed stages in priority order.
func (f *Flags) Pending() []Stage {
	w := f.word.Load()
	var out []Stage
	for _, s := range Stages {
		if w&bit(s) != 0 {
			out = append(out, s)
		}
	}
	return out
}

// Overruns returns the number of coalesced triggers for s.
func (f *Flags) Overruns(s Stage) uint64 {
	if !s.Valid() {
		return 0
	}
	return f.overruns[s].Load()
}

// Reset clears every flag. Overrun counters are kept.
func (f *Flags) Reset() {
	f.word.Store(0)
}
