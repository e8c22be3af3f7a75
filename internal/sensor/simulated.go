package sensor

import (
	"math"
	"math/rand"
	"time"
)

// Simulated produces a slow sinusoidal drift around a base temperature with
// a little noise. Used on hosts without a thermal zone.
type Simulated struct {
	Base      float64
	Amplitude float64
	Period    time.Duration
	Noise     float64

	now   func() time.Time
	start time.Time
	rng   *rand.Rand
}

// NewSimulated creates a simulated source. now may be nil to use time.Now.
func NewSimulated(base, amplitude float64, period time.Duration, noise float64, now func() time.Time) *Simulated {
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Simulated{
		Base:      base,
		Amplitude: amplitude,
		Period:    period,
		Noise:     noise,
		now:       now,
		start:     now(),
		rng:       rand.New(rand.NewSource(1)),
	}
}

// Read returns the simulated temperature at the current time.
func (s *Simulated) Read() (float64, error) {
	elapsed := s.now().Sub(s.start)
	phase := 2 * math.Pi * float64(elapsed) / float64(s.Period)
	v := s.Base + s.Amplitude*math.Sin(phase)
	if s.Noise > 0 {
		v += (s.rng.Float64()*2 - 1) * s.Noise
	}
	return v, nil
}
