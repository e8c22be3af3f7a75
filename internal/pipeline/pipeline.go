// Package pipeline holds the task handlers of the monitoring pass and the
// state they share: the latest measurement, the latest trend and the
// start/end timestamps of every stage.
//
// Each handler stamps its start time, makes exactly one collaborator call,
// and stamps its end time. Hand-off between stages is the scheduler's job.
package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/trend"
)

// ErrMeasurementUnavailable means the sampler failed or returned a value
// outside the valid range. The pass is skipped rather than run on a bad value.
var ErrMeasurementUnavailable = fmt.Errorf("measurement unavailable: %w", sched.ErrSkip)

// Sampler returns the averaged temperature in °C.
type Sampler interface {
	Average() (float64, error)
}

// Classifier turns a measurement into a trend.
type Classifier interface {
	Classify(value float64) trend.Trend
}

// Display renders the measurement and trend.
type Display interface {
	Render(value float64, t trend.Trend) error
}

// Matrix is the RGB LED matrix. Drawing calls only touch a frame buffer;
// Commit pushes it to the LEDs.
type Matrix interface {
	SetAll(c color.RGBA)
	Clear()
	ApplyTrend(t trend.Trend)
	Commit() error
}

// Defaults for Config.
const (
	DefaultAlertThreshold = 1.0
	DefaultMinValid       = -40.0
	DefaultMaxValid       = 125.0
)

// Config tunes the handlers.
type Config struct {
	// AlertThreshold: measurements strictly below it light the alert colour.
	AlertThreshold float64
	// MinValid and MaxValid bound plausible sensor readings.
	MinValid float64
	MaxValid float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AlertThreshold: DefaultAlertThreshold,
		MinValid:       DefaultMinValid,
		MaxValid:       DefaultMaxValid,
	}
}

// Timing is a start/end pair for one stage run.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Elapsed returns the stage duration at microsecond resolution.
func (t Timing) Elapsed() time.Duration {
	return report.Elapsed(t.Start, t.End)
}

// Snapshot is a copy of the shared pipeline state.
type Snapshot struct {
	Measurement float64
	Valid       bool
	Trend       trend.Trend
	Timings     [sched.NumStages]Timing
}

// Pipeline owns the collaborators and the state they produce.
// Not safe for concurrent use; only the scheduler's goroutine calls into it.
type Pipeline struct {
	sampler    Sampler
	classifier Classifier
	display    Display
	matrix     Matrix
	cfg        Config
	now        func() time.Time

	measurement float64
	valid       bool
	trend       trend.Trend
	// seq counts valid readings; classified is the seq the trend was computed for.
	seq        uint64
	classified uint64
	timings    [sched.NumStages]Timing
}

// New creates a Pipeline. now may be nil to use time.Now.
func New(sampler Sampler, classifier Classifier, display Display, matrix Matrix, cfg Config, now func() time.Time) (*Pipeline, error) {
	if sampler == nil || classifier == nil || display == nil || matrix == nil {
		return nil, errors.New("pipeline: nil collaborator")
	}
	if cfg.MinValid >= cfg.MaxValid {
		return nil, fmt.Errorf("pipeline: invalid range [%v, %v]", cfg.MinValid, cfg.MaxValid)
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		sampler:    sampler,
		classifier: classifier,
		display:    display,
		matrix:     matrix,
		cfg:        cfg,
		now:        now,
	}, nil
}

// Entries returns the scheduler table: each stage hands off to the next and
// UpdateMatrix closes the pass.
func (p *Pipeline) Entries() []sched.Entry {
	return []sched.Entry{
		{Stage: sched.ReadTemperature, Run: p.timed(sched.ReadTemperature, p.readTemperature), Next: sched.AlertMatrix},
		{Stage: sched.AlertMatrix, Run: p.timed(sched.AlertMatrix, p.alertMatrix), Next: sched.AnalyzeTrend},
		{Stage: sched.AnalyzeTrend, Run: p.timed(sched.AnalyzeTrend, p.analyzeTrend), Next: sched.ShowDisplay},
		{Stage: sched.ShowDisplay, Run: p.timed(sched.ShowDisplay, p.showDisplay), Next: sched.UpdateMatrix},
		{Stage: sched.UpdateMatrix, Run: p.timed(sched.UpdateMatrix, p.updateMatrix), Next: sched.StageNone},
	}
}

// Scheduler wires the pipeline to flags. sink receives one report per pass.
func (p *Pipeline) Scheduler(flags *sched.Flags, sink func(report.Pass)) (*sched.Scheduler, error) {
	return sched.New(flags, p.Entries(), func() {
		if sink != nil {
			sink(p.Report())
		}
	})
}

func (p *Pipeline) timed(s sched.Stage, task func() error) func() error {
	return func() error {
		p.timings[s].Start = p.now()
		err := task()
		p.timings[s].End = p.now()
		return err
	}
}

func (p *Pipeline) readTemperature() error {
	v, err := p.sampler.Average()
	if err != nil {
		p.valid = false
		return fmt.Errorf("%w: %w", ErrMeasurementUnavailable, err)
	}
	if math.IsNaN(v) || v < p.cfg.MinValid || v > p.cfg.MaxValid {
		p.valid = false
		return fmt.Errorf("%w: %.2f outside [%.1f, %.1f]", ErrMeasurementUnavailable, v, p.cfg.MinValid, p.cfg.MaxValid)
	}
	p.measurement = v
	p.valid = true
	p.seq++
	return nil
}

// requireValid stops downstream stages armed by their own timers from
// acting on a missing or rejected measurement.
func (p *Pipeline) requireValid() error {
	if !p.valid {
		return ErrMeasurementUnavailable
	}
	return nil
}

func (p *Pipeline) alertMatrix() error {
	if err := p.requireValid(); err != nil {
		return err
	}
	if p.measurement < p.cfg.AlertThreshold {
		p.matrix.SetAll(trend.ColorAlert)
	} else {
		p.matrix.Clear()
	}
	if err := p.matrix.Commit(); err != nil {
		return fmt.Errorf("commit alert: %w", err)
	}
	return nil
}

func (p *Pipeline) analyzeTrend() error {
	if err := p.requireValid(); err != nil {
		return err
	}
	// The classifier compares against its previous input, so feeding it the
	// same reading twice would report Stable. Only new readings are classified.
	if p.classified != p.seq {
		p.trend = p.classifier.Classify(p.measurement)
		p.classified = p.seq
	}
	return nil
}

func (p *Pipeline) showDisplay() error {
	if err := p.requireValid(); err != nil {
		return err
	}
	if err := p.display.Render(p.measurement, p.trend); err != nil {
		return fmt.Errorf("render display: %w", err)
	}
	return nil
}

func (p *Pipeline) updateMatrix() error {
	if err := p.requireValid(); err != nil {
		return err
	}
	p.matrix.ApplyTrend(p.trend)
	if err := p.matrix.Commit(); err != nil {
		return fmt.Errorf("commit trend: %w", err)
	}
	return nil
}

// Report builds the pass report from the latest state.
func (p *Pipeline) Report() report.Pass {
	return report.Pass{
		Timestamp:   p.timings[sched.UpdateMatrix].End,
		Temperature: p.measurement,
		Read:        p.timings[sched.ReadTemperature].Elapsed(),
		Display:     p.timings[sched.ShowDisplay].Elapsed(),
		Analyze:     p.timings[sched.AnalyzeTrend].Elapsed(),
		Update:      p.timings[sched.UpdateMatrix].Elapsed(),
		Trend:       p.trend,
	}
}

// Snapshot returns a copy of the shared state.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Measurement: p.measurement,
		Valid:       p.valid,
		Trend:       p.trend,
		Timings:     p.timings,
	}
}
