package internal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/tempcycle/internal/display"
	"github.com/sweeney/tempcycle/internal/matrix"
	"github.com/sweeney/tempcycle/internal/mqtt"
	"github.com/sweeney/tempcycle/internal/pipeline"
	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/sensor"
	"github.com/sweeney/tempcycle/internal/status"
	"github.com/sweeney/tempcycle/internal/timerbank"
	"github.com/sweeney/tempcycle/internal/trend"
)

// rig wires the timer bank, scheduler and pipeline to fakes, the same way
// the daemon does, with timers fired by hand instead of by tickers.
type rig struct {
	flags   *sched.Flags
	bank    *timerbank.Bank
	sched   *sched.Scheduler
	src     *sensor.FakeSource
	disp    *display.Fake
	leds    *matrix.FakeWriter
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	lines   []string
}

func newRig(t *testing.T, policy timerbank.Policy, values ...float64) *rig {
	t.Helper()
	r := &rig{
		flags:   &sched.Flags{},
		src:     sensor.NewFakeSource(values...),
		disp:    &display.Fake{},
		leds:    &matrix.FakeWriter{},
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Policy: string(policy)}),
	}

	var err error
	r.bank, err = timerbank.New(r.flags, timerbank.Registrations(policy, timerbank.DefaultPeriods))
	if err != nil {
		t.Fatalf("timer bank: %v", err)
	}

	mat, err := matrix.New(r.leds, 4)
	if err != nil {
		t.Fatal(err)
	}
	pl, err := pipeline.New(sensor.NewAverager(r.src, 1), trend.NewClassifier(trend.DefaultDeadband), r.disp, mat, pipeline.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	r.sched, err = pl.Scheduler(r.flags, func(p report.Pass) {
		r.lines = append(r.lines, p.String())
		r.tracker.RecordPass(p)
		if err := r.pub.PublishPass(p); err != nil {
			t.Errorf("publish: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// fire expires the given timers, then runs the loop until nothing is armed.
func (r *rig) fire(t *testing.T, stages ...sched.Stage) int {
	t.Helper()
	for _, s := range stages {
		if !r.bank.Fire(s) {
			t.Fatalf("no timer registered for %s", s)
		}
	}
	return r.sched.Drain(100)
}

func (r *rig) syncStatus() {
	var fired [sched.NumStages]uint64
	for _, s := range sched.Stages {
		fired[s] = r.bank.Fired(s)
	}
	r.tracker.UpdateStats(r.sched.Stats(), fired)
}

// TestIntegrationFullPass tests one read timer expiry cascading through all
// five stages into a single report.
func TestIntegrationFullPass(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22)

	if n := r.fire(t, sched.ReadTemperature); n != sched.NumStages {
		t.Fatalf("expected %d stage runs, got %d", sched.NumStages, n)
	}

	if len(r.lines) != 1 {
		t.Fatalf("expected 1 report line, got %d", len(r.lines))
	}
	if !strings.HasPrefix(r.lines[0], "Temperatura: 22.00 °C | T1: ") || !strings.HasSuffix(r.lines[0], "Tendência: estável") {
		t.Errorf("unexpected line: %q", r.lines[0])
	}
	if len(r.disp.Frames) != 1 || r.disp.Frames[0].Value != 22 {
		t.Errorf("unexpected display frames: %+v", r.disp.Frames)
	}
	if last := r.leds.Last(); len(last) != 4 || last[0] != trend.ColorStable {
		t.Errorf("expected stable colour on matrix, got %v", last)
	}

	var payload mqtt.PassPayload
	if err := json.Unmarshal(r.pub.Payloads[0], &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload.Pass.Line != r.lines[0] {
		t.Errorf("payload line: got %q, want %q", payload.Pass.Line, r.lines[0])
	}
}

// TestIntegrationTrendSequence tests rising, falling and stable readings
// across successive passes.
func TestIntegrationTrendSequence(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 20, 21, 19, 19.02)

	for i := 0; i < 4; i++ {
		r.fire(t, sched.ReadTemperature)
	}

	want := []string{"estável", "subindo", "caindo", "estável"}
	if len(r.pub.Passes) != len(want) {
		t.Fatalf("expected %d passes, got %d", len(want), len(r.pub.Passes))
	}
	for i, p := range r.pub.Passes {
		if p.Trend.String() != want[i] {
			t.Errorf("pass %d: got %s, want %s", i, p.Trend, want[i])
		}
	}
	if last := r.leds.Last(); last[0] != trend.ColorStable {
		t.Errorf("expected matrix to follow last trend, got %v", last[0])
	}
}

// TestIntegrationSecondaryTimersBeforeFirstRead tests that stages armed by
// their own timers skip while no measurement exists.
func TestIntegrationSecondaryTimersBeforeFirstRead(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22)

	n := r.fire(t, sched.AlertMatrix, sched.AnalyzeTrend, sched.ShowDisplay, sched.UpdateMatrix)
	if n != 4 {
		t.Fatalf("expected 4 stage runs, got %d", n)
	}

	st := r.sched.Stats()
	if st.Skipped != 4 || st.Passes != 0 {
		t.Errorf("Skipped/Passes: got %d/%d, want 4/0", st.Skipped, st.Passes)
	}
	if len(r.lines) != 0 || len(r.disp.Frames) != 0 || r.leds.Last() != nil {
		t.Error("nothing should be reported, drawn or lit before the first read")
	}
}

// TestIntegrationSecondaryTimerRefreshesLastMeasurement tests that a display
// timer after a valid read re-renders and completes another pass.
func TestIntegrationSecondaryTimerRefreshesLastMeasurement(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22)
	r.fire(t, sched.ReadTemperature)

	if n := r.fire(t, sched.ShowDisplay); n != 2 {
		t.Fatalf("expected ShowDisplay then UpdateMatrix, got %d runs", n)
	}
	if len(r.disp.Frames) != 2 {
		t.Errorf("expected 2 display frames, got %d", len(r.disp.Frames))
	}
	if len(r.lines) != 2 {
		t.Errorf("expected 2 reports, got %d", len(r.lines))
	}
	if r.src.Reads != 1 {
		t.Errorf("secondary timer must not read the sensor, got %d reads", r.src.Reads)
	}
}

// TestIntegrationTrendTimerKeepsTrend tests that the AnalyzeTrend timer
// firing between reads keeps the trend of the last reading.
func TestIntegrationTrendTimerKeepsTrend(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 20, 21, 22)
	r.fire(t, sched.ReadTemperature)
	r.fire(t, sched.ReadTemperature)

	if n := r.fire(t, sched.AnalyzeTrend); n != 3 {
		t.Fatalf("expected AnalyzeTrend, ShowDisplay, UpdateMatrix, got %d runs", n)
	}

	if len(r.pub.Passes) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(r.pub.Passes))
	}
	last := r.pub.Passes[2]
	if last.Temperature != 21 || last.Trend != trend.Rising {
		t.Errorf("last pass: got %.2f %s, want 21.00 subindo", last.Temperature, last.Trend)
	}
	if got := r.leds.Last(); got[0] != trend.ColorRising {
		t.Errorf("matrix: got %v, want rising colour", got[0])
	}
	if r.src.Reads != 2 {
		t.Errorf("trend timer must not read the sensor, got %d reads", r.src.Reads)
	}
}

// TestIntegrationCascadePolicy tests that only the read timer exists.
func TestIntegrationCascadePolicy(t *testing.T) {
	r := newRig(t, timerbank.PolicyCascade, 22)

	for _, s := range sched.Stages[1:] {
		if r.bank.Fire(s) {
			t.Errorf("cascade policy should not register a timer for %s", s)
		}
	}
	if n := r.fire(t, sched.ReadTemperature); n != sched.NumStages {
		t.Errorf("expected full cascade, got %d runs", n)
	}
	if len(r.lines) != 1 {
		t.Errorf("expected 1 report, got %d", len(r.lines))
	}
}

// TestIntegrationOverrunCoalesces tests two expiries of the read timer
// between ticks producing one pass and one overrun.
func TestIntegrationOverrunCoalesces(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22)

	r.fire(t, sched.ReadTemperature, sched.ReadTemperature)

	if len(r.lines) != 1 {
		t.Errorf("expected 1 report, got %d", len(r.lines))
	}
	if got := r.bank.Coalesced(sched.ReadTemperature); got != 1 {
		t.Errorf("Coalesced: got %d, want 1", got)
	}
	if got := r.sched.Stats().Overruns[sched.ReadTemperature]; got != 1 {
		t.Errorf("Overruns: got %d, want 1", got)
	}
}

// TestIntegrationInvalidReadingSkipsPass tests that an out-of-range reading
// abandons the pass and the next valid one recovers.
func TestIntegrationInvalidReadingSkipsPass(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 200, 22)

	if n := r.fire(t, sched.ReadTemperature); n != 1 {
		t.Errorf("expected only the read to run, got %d", n)
	}
	if len(r.lines) != 0 {
		t.Fatalf("expected no report, got %v", r.lines)
	}
	st := r.sched.Stats()
	if st.Skipped != 1 || st.Failed[sched.ReadTemperature] != 0 {
		t.Errorf("Skipped/Failed: got %d/%d, want 1/0", st.Skipped, st.Failed[sched.ReadTemperature])
	}

	r.fire(t, sched.ReadTemperature)
	if len(r.lines) != 1 || !strings.HasPrefix(r.lines[0], "Temperatura: 22.00 °C") {
		t.Errorf("expected recovery pass, got %v", r.lines)
	}
}

// TestIntegrationSensorErrorSkipsPass tests that a sensor failure is a skip.
func TestIntegrationSensorErrorSkipsPass(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22)
	r.src.ReadError = errors.New("i2c timeout")

	r.fire(t, sched.ReadTemperature)

	if len(r.lines) != 0 {
		t.Errorf("expected no report, got %v", r.lines)
	}
	if got := r.sched.Stats().Skipped; got != 1 {
		t.Errorf("Skipped: got %d, want 1", got)
	}
}

// TestIntegrationStatusJSON tests that the status document reflects passes
// and timer activity.
func TestIntegrationStatusJSON(t *testing.T) {
	r := newRig(t, timerbank.PolicyRearm, 22, 23)
	r.fire(t, sched.ReadTemperature)
	r.fire(t, sched.ReadTemperature)
	r.fire(t, sched.AlertMatrix)
	r.syncStatus()

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(r.tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if sj.Status.Passes != 3 {
		t.Errorf("Passes: got %d, want 3", sj.Status.Passes)
	}
	read := sj.Status.Stages["read_temperature"]
	if read.Runs != 2 || read.Fired != 2 {
		t.Errorf("read_temperature runs/fired: got %d/%d, want 2/2", read.Runs, read.Fired)
	}
	if got := sj.Status.Stages["alert_matrix"].Fired; got != 1 {
		t.Errorf("alert_matrix fired: got %d, want 1", got)
	}
	if sj.Status.Last == nil || sj.Status.Last.Line != r.lines[len(r.lines)-1] {
		t.Errorf("last_pass: got %+v", sj.Status.Last)
	}
	// The alert timer's pass keeps the trend of the 22 -> 23 reading.
	if sj.Status.Last.Trend != "subindo" {
		t.Errorf("trend: got %q, want subindo", sj.Status.Last.Trend)
	}
}
