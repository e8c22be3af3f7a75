// Package report formats the per-pass profiling line and parses it back.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/tempcycle/internal/trend"
)

// Pass is the outcome of one full traversal of the pipeline.
type Pass struct {
	Timestamp   time.Time
	Temperature float64
	Read        time.Duration // ReadTemperature
	Display     time.Duration // ShowDisplay
	Analyze     time.Duration // AnalyzeTrend
	Update      time.Duration // UpdateMatrix
	Trend       trend.Trend
}

// Elapsed returns end-start truncated to microsecond resolution.
// A zero or inverted span yields 0.
func Elapsed(start, end time.Time) time.Duration {
	if start.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start).Truncate(time.Microsecond)
}

func seconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1e6
}

// String renders the console line:
//
//	Temperatura: 25.30 °C | T1: 0.000100s | T2: 0.002000s | T3: 0.000050s | T4: 0.001500s | Tendência: estável
func (p Pass) String() string {
	return fmt.Sprintf("Temperatura: %.2f °C | T1: %.6fs | T2: %.6fs | T3: %.6fs | T4: %.6fs | Tendência: %s",
		p.Temperature,
		seconds(p.Read),
		seconds(p.Display),
		seconds(p.Analyze),
		seconds(p.Update),
		p.Trend,
	)
}

// ErrNotReport is returned by Parse for lines that are not pass reports,
// e.g. other console output interleaved on the serial port.
var ErrNotReport = errors.New("not a pass report")

const (
	prefixTemp  = "Temperatura: "
	suffixTemp  = " °C"
	prefixTrend = "Tendência: "
)

// Parse reads a line produced by Pass.String. Timestamp is left zero.
func Parse(line string) (Pass, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, prefixTemp) {
		return Pass{}, ErrNotReport
	}

	parts := strings.Split(line, " | ")
	if len(parts) != 6 {
		return Pass{}, fmt.Errorf("invalid report: expected 6 fields, got %d", len(parts))
	}

	var p Pass
	temp := strings.TrimSuffix(strings.TrimPrefix(parts[0], prefixTemp), suffixTemp)
	v, err := strconv.ParseFloat(temp, 64)
	if err != nil {
		return Pass{}, fmt.Errorf("invalid temperature: %w", err)
	}
	p.Temperature = v

	durations := []*time.Duration{&p.Read, &p.Display, &p.Analyze, &p.Update}
	for i, d := range durations {
		field := parts[i+1]
		prefix := fmt.Sprintf("T%d: ", i+1)
		if !strings.HasPrefix(field, prefix) || !strings.HasSuffix(field, "s") {
			return Pass{}, fmt.Errorf("invalid duration field %q", field)
		}
		secs, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(field, prefix), "s"), 64)
		if err != nil {
			return Pass{}, fmt.Errorf("invalid T%d: %w", i+1, err)
		}
		*d = time.Duration(secs*1e6+0.5) * time.Microsecond
	}

	if !strings.HasPrefix(parts[5], prefixTrend) {
		return Pass{}, fmt.Errorf("invalid trend field %q", parts[5])
	}
	t, ok := trend.Parse(strings.TrimPrefix(parts[5], prefixTrend))
	if !ok {
		return Pass{}, fmt.Errorf("unknown trend %q", strings.TrimPrefix(parts[5], prefixTrend))
	}
	p.Trend = t

	return p, nil
}
