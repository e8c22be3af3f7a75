package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tempcycle/internal/trend"
)

func TestStringExactFormat(t *testing.T) {
	base := time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)
	p := Pass{
		Temperature: 25.30,
		Read:        Elapsed(base, base.Add(100*time.Microsecond)),
		Display:     Elapsed(base, base.Add(2*time.Millisecond)),
		Analyze:     Elapsed(base, base.Add(50*time.Microsecond)),
		Update:      Elapsed(base, base.Add(1500*time.Microsecond)),
		Trend:       trend.Stable,
	}

	want := "Temperatura: 25.30 °C | T1: 0.000100s | T2: 0.002000s | T3: 0.000050s | T4: 0.001500s | Tendência: estável"
	assert.Equal(t, want, p.String())
}

func TestStringRounding(t *testing.T) {
	p := Pass{Temperature: 19.999, Trend: trend.Rising}
	assert.Equal(t,
		"Temperatura: 20.00 °C | T1: 0.000000s | T2: 0.000000s | T3: 0.000000s | T4: 0.000000s | Tendência: subindo",
		p.String())
}

func TestElapsed(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		start, end time.Time
		want       time.Duration
	}{
		{"microseconds", base, base.Add(1234 * time.Microsecond), 1234 * time.Microsecond},
		{"sub-microsecond truncated", base, base.Add(1500 * time.Nanosecond), time.Microsecond},
		{"zero start", time.Time{}, base, 0},
		{"inverted", base.Add(time.Second), base, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(tt.start, tt.end))
		})
	}
}

func TestParse(t *testing.T) {
	line := "Temperatura: 25.30 °C | T1: 0.000100s | T2: 0.002000s | T3: 0.000050s | T4: 0.001500s | Tendência: estável"
	p, err := Parse(line + "\r\n")
	require.NoError(t, err)

	assert.InDelta(t, 25.30, p.Temperature, 1e-9)
	assert.Equal(t, 100*time.Microsecond, p.Read)
	assert.Equal(t, 2*time.Millisecond, p.Display)
	assert.Equal(t, 50*time.Microsecond, p.Analyze)
	assert.Equal(t, 1500*time.Microsecond, p.Update)
	assert.Equal(t, trend.Stable, p.Trend)
	assert.Equal(t, line, p.String())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"bad temperature", "Temperatura: hot °C | T1: 0.1s | T2: 0.1s | T3: 0.1s | T4: 0.1s | Tendência: estável"},
		{"missing field", "Temperatura: 25.30 °C | T1: 0.1s | T2: 0.1s | T3: 0.1s | Tendência: estável"},
		{"bad duration", "Temperatura: 25.30 °C | T1: fast | T2: 0.1s | T3: 0.1s | T4: 0.1s | Tendência: estável"},
		{"swapped duration", "Temperatura: 25.30 °C | T2: 0.1s | T1: 0.1s | T3: 0.1s | T4: 0.1s | Tendência: estável"},
		{"unknown trend", "Temperatura: 25.30 °C | T1: 0.1s | T2: 0.1s | T3: 0.1s | T4: 0.1s | Tendência: sideways"},
		{"no trend label", "Temperatura: 25.30 °C | T1: 0.1s | T2: 0.1s | T3: 0.1s | T4: 0.1s | estável"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			assert.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotReport))
		})
	}
}

func TestParseNotReport(t *testing.T) {
	_, err := Parse("sched: read_temperature skipped")
	assert.ErrorIs(t, err, ErrNotReport)
}
