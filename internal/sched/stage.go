// Package sched is the cooperative executor for the monitoring pipeline.
//
// Timers arm stages by setting flags; the main loop calls Scheduler.Tick, which
// runs at most one armed stage (highest priority first) and, when that stage
// succeeds, arms the stage after it. The last stage closes a pass.
//
// Flags are the only state shared with timer context. Every flag mutation is
// a single atomic operation on one word, so a timer can never observe or
// cause a half-finished claim or hand-off.
package sched

import "fmt"

// Stage identifies one step of the pipeline. Lower values have higher priority.
type Stage int8

const (
	ReadTemperature Stage = iota
	AlertMatrix
	AnalyzeTrend
	ShowDisplay
	UpdateMatrix
)

// NumStages is the number of pipeline stages.
const NumStages = 5

// StageNone marks the absence of a stage, e.g. the successor of the last one.
const StageNone Stage = -1

// Stages lists every stage in priority order.
var Stages = [NumStages]Stage{ReadTemperature, AlertMatrix, AnalyzeTrend, ShowDisplay, UpdateMatrix}

var stageNames = [NumStages]string{
	"read_temperature",
	"alert_matrix",
	"analyze_trend",
	"show_display",
	"update_matrix",
}

func (s Stage) String() string {
	if s.Valid() {
		return stageNames[s]
	}
	if s == StageNone {
		return "none"
	}
	return fmt.Sprintf("stage(%d)", int8(s))
}

// Valid reports whether s is one of the five pipeline stages.
func (s Stage) Valid() bool {
	return s >= 0 && s < NumStages
}

// ParseStage maps a name produced by String back to a Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageNone, fmt.Errorf("unknown stage %q", name)
}
