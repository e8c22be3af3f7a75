// Package status provides a thread-safe status tracker for the tempcycle daemon.
// It is written by the main loop and read by HTTP handlers and MQTT events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/sched"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Source         string // "local" or the serial port being monitored
	Policy         string
	LoopMs         int64
	TimerPeriodsMs [sched.NumStages]int64
	HeartbeatMs    int64
	WatchdogMs     int64 // 0 = disabled
	Broker         string
	HTTPAddr       string
}

// Counters are the scheduler and timer totals since start.
type Counters struct {
	Passes   uint64
	Skipped  uint64
	Runs     [sched.NumStages]uint64
	Failed   [sched.NumStages]uint64
	Overruns [sched.NumStages]uint64
	Fired    [sched.NumStages]uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Last          *report.Pass
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// RecordPass stores the latest pass report.
func (t *Tracker) RecordPass(p report.Pass) {
	t.mu.Lock()
	t.snap.Last = &p
	t.mu.Unlock()
}

// CountPass increments the pass counter. Used by the serial monitor, which
// has no local scheduler to feed UpdateStats.
func (t *Tracker) CountPass() {
	t.mu.Lock()
	t.snap.Counters.Passes++
	t.mu.Unlock()
}

// UpdateStats copies scheduler counters and timer expiry counts.
// Called from the main loop on every iteration.
func (t *Tracker) UpdateStats(st sched.Stats, fired [sched.NumStages]uint64) {
	t.mu.Lock()
	t.snap.Counters = Counters{
		Passes:   st.Passes,
		Skipped:  st.Skipped,
		Runs:     st.Runs,
		Failed:   st.Failed,
		Overruns: st.Overruns,
		Fired:    fired,
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
