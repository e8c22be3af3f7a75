// Package trend classifies successive temperature readings and maps the result
// to display labels and matrix colours.
// This package has NO hardware dependencies.
package trend

import "image/color"

// Trend is the direction of the latest temperature movement.
type Trend uint8

const (
	Unknown Trend = iota
	Rising
	Falling
	Stable
)

// String returns the short label printed on the console and the OLED.
func (t Trend) String() string {
	switch t {
	case Rising:
		return "subindo"
	case Falling:
		return "caindo"
	case Stable:
		return "estável"
	default:
		return "indefinida"
	}
}

// Parse maps a label produced by String back to a Trend.
func Parse(label string) (Trend, bool) {
	for _, t := range []Trend{Unknown, Rising, Falling, Stable} {
		if t.String() == label {
			return t, true
		}
	}
	return Unknown, false
}

// DefaultDeadband is the smallest change in °C reported as rising or falling.
const DefaultDeadband = 0.05

// Classifier compares each reading to the previous one.
// Not safe for concurrent use; the scheduler owns it.
type Classifier struct {
	deadband float64
	last     float64
	seeded   bool
}

// NewClassifier creates a Classifier. A non-positive deadband uses DefaultDeadband.
func NewClassifier(deadband float64) *Classifier {
	if deadband <= 0 {
		deadband = DefaultDeadband
	}
	return &Classifier{deadband: deadband}
}

// Classify returns the trend of value relative to the previous call.
// The first call has nothing to compare against and reports Stable.
func (c *Classifier) Classify(value float64) Trend {
	if !c.seeded {
		c.last = value
		c.seeded = true
		return Stable
	}

	delta := value - c.last
	c.last = value

	switch {
	case delta > c.deadband:
		return Rising
	case delta < -c.deadband:
		return Falling
	default:
		return Stable
	}
}

// Reset forgets the previous reading.
func (c *Classifier) Reset() {
	c.seeded = false
	c.last = 0
}

// Colours used on the matrix.
var (
	ColorRising  = color.RGBA{R: 40, A: 255}
	ColorFalling = color.RGBA{B: 40, A: 255}
	ColorStable  = color.RGBA{G: 40, A: 255}
	ColorUnknown = color.RGBA{R: 20, G: 20, A: 255}
	ColorAlert   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Color returns the matrix colour for a trend.
func Color(t Trend) color.RGBA {
	switch t {
	case Rising:
		return ColorRising
	case Falling:
		return ColorFalling
	case Stable:
		return ColorStable
	default:
		return ColorUnknown
	}
}
