package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		trend Trend
		want  string
	}{
		{Rising, "subindo"},
		{Falling, "caindo"},
		{Stable, "estável"},
		{Unknown, "indefinida"},
		{Trend(42), "indefinida"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trend.String())
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, tr := range []Trend{Unknown, Rising, Falling, Stable} {
		got, ok := Parse(tr.String())
		assert.True(t, ok, "label %q", tr.String())
		assert.Equal(t, tr, got)
	}

	_, ok := Parse("sideways")
	assert.False(t, ok)
}

func TestClassifierFirstReadingIsStable(t *testing.T) {
	c := NewClassifier(0.1)
	assert.Equal(t, Stable, c.Classify(25.0))
}

func TestClassifierSequence(t *testing.T) {
	c := NewClassifier(0.1)
	readings := []struct {
		value float64
		want  Trend
	}{
		{25.00, Stable},
		{25.50, Rising},
		{25.55, Stable},
		{25.20, Falling},
		{25.20, Stable},
		{25.31, Rising},
	}

	for i, r := range readings {
		if got := c.Classify(r.value); got != r.want {
			t.Errorf("reading %d (%.2f): got %s, want %s", i, r.value, got, r.want)
		}
	}
}

func TestClassifierDeadbandBoundary(t *testing.T) {
	c := NewClassifier(0.5)
	c.Classify(20.0)
	// Exactly the deadband is not a movement.
	assert.Equal(t, Stable, c.Classify(20.5))
	assert.Equal(t, Stable, c.Classify(20.0))
}

func TestClassifierDefaultDeadband(t *testing.T) {
	c := NewClassifier(0)
	assert.Equal(t, DefaultDeadband, c.deadband)
}

func TestClassifierReset(t *testing.T) {
	c := NewClassifier(0.1)
	c.Classify(10)
	c.Reset()
	assert.Equal(t, Stable, c.Classify(30), "first reading after reset has no reference")
}

func TestColor(t *testing.T) {
	assert.Equal(t, ColorRising, Color(Rising))
	assert.Equal(t, ColorFalling, Color(Falling))
	assert.Equal(t, ColorStable, Color(Stable))
	assert.Equal(t, ColorUnknown, Color(Unknown))
}
