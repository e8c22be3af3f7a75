package sched

import (
	"errors"
	"fmt"
	"log"
	"sort"
)

// ErrSkip is wrapped by task errors that abandon the current pass without
// counting as a failure (e.g. no valid measurement yet).
var ErrSkip = errors.New("pass skipped")

// Entry binds a stage to its task and to the stage it arms on success.
// Next is StageNone for the terminal stage.
type Entry struct {
	Stage Stage
	Run   func() error
	Next  Stage
}

// Stats counts scheduler activity since start.
type Stats struct {
	Runs     [NumStages]uint64
	Failed   [NumStages]uint64
	Overruns [NumStages]uint64
	Skipped  uint64
	Passes   uint64
}

// TotalOverruns sums overruns over all stages.
func (s Stats) TotalOverruns() uint64 {
	var n uint64
	for _, v := range s.Overruns {
		n += v
	}
	return n
}

// hooks let tests inject timer activity between the steps of a Tick.
type hooks struct {
	afterClaim    func(Stage)
	beforeHandoff func(Stage)
}

// Scheduler runs armed stages one per Tick.
// Tick and Stats must be called from a single goroutine (the main loop);
// Flags may be armed from anywhere.
type Scheduler struct {
	flags  *Flags
	table  []Entry
	onPass func()
	stats  Stats
	hooks  hooks
}

// New builds a Scheduler from one entry per stage. Entries may be given in any
// order; they are executed in stage priority order. onPass is called once after
// the terminal stage succeeds and may be nil.
func New(flags *Flags, entries []Entry, onPass func()) (*Scheduler, error) {
	if flags == nil {
		return nil, errors.New("nil flags")
	}
	if len(entries) != NumStages {
		return nil, fmt.Errorf("need %d entries, got %d", NumStages, len(entries))
	}

	var seen [NumStages]bool
	terminal := 0
	for _, e := range entries {
		if !e.Stage.Valid() {
			return nil, fmt.Errorf("invalid stage %s", e.Stage)
		}
		if seen[e.Stage] {
			return nil, fmt.Errorf("duplicate entry for %s", e.Stage)
		}
		seen[e.Stage] = true
		if e.Run == nil {
			return nil, fmt.Errorf("%s: nil task", e.Stage)
		}
		switch {
		case e.Next == StageNone:
			terminal++
		case !e.Next.Valid():
			return nil, fmt.Errorf("%s: invalid next stage %s", e.Stage, e.Next)
		case e.Next == e.Stage:
			return nil, fmt.Errorf("%s: hands off to itself", e.Stage)
		}
	}
	if terminal != 1 {
		return nil, fmt.Errorf("need exactly one terminal stage, got %d", terminal)
	}

	table := make([]Entry, len(entries))
	copy(table, entries)
	sort.Slice(table, func(i, j int) bool { return table[i].Stage < table[j].Stage })

	return &Scheduler{
		flags:  flags,
		table:  table,
		onPass: onPass,
	}, nil
}

// Flags returns the flag word the scheduler consumes.
func (s *Scheduler) Flags() *Flags {
	return s.flags
}

// Tick runs the highest-priority armed stage, if any, and returns it.
// The stage's flag is claimed (test-and-clear) before its task runs, so a timer
// that fires while the task is running arms exactly one further run.
func (s *Scheduler) Tick() (Stage, bool) {
	for i := range s.table {
		e := &s.table[i]
		if !s.flags.claim(e.Stage) {
			continue
		}
		s.run(e)
		return e.Stage, true
	}
	return StageNone, false
}

func (s *Scheduler) run(e *Entry) {
	if s.hooks.afterClaim != nil {
		s.hooks.afterClaim(e.Stage)
	}

	s.stats.Runs[e.Stage]++
	err := e.Run()

	if s.hooks.beforeHandoff != nil {
		s.hooks.beforeHandoff(e.Stage)
	}

	if err != nil {
		if errors.Is(err, ErrSkip) {
			s.stats.Skipped++
			log.Printf("sched: %s skipped: %v", e.Stage, err)
		} else {
			s.stats.Failed[e.Stage]++
			log.Printf("sched: %s failed: %v", e.Stage, err)
		}
		return
	}

	if e.Next == StageNone {
		s.stats.Passes++
		if s.onPass != nil {
			s.onPass()
		}
		return
	}

	if !s.flags.Arm(e.Next) {
		log.Printf("sched: %s already armed, hand-off from %s coalesced", e.Next, e.Stage)
	}
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	for _, stage := range Stages {
		st.Overruns[stage] = s.flags.Overruns(stage)
	}
	return st
}

// Drain calls Tick until no stage is armed or limit ticks have run.
// It returns the number of stages executed.
func (s *Scheduler) Drain(limit int) int {
	n := 0
	for n < limit {
		if _, ok := s.Tick(); !ok {
			break
		}
		n++
	}
	return n
}
