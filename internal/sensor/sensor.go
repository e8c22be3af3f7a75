// Package sensor provides temperature sources with hardware abstraction.
// The real implementation reads a Linux thermal zone.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"
	"fmt"
)

// Source returns one raw temperature reading in °C.
type Source interface {
	Read() (float64, error)
}

// DefaultSamples is the number of readings averaged per measurement.
const DefaultSamples = 8

// Averager averages several readings from a Source into one measurement.
type Averager struct {
	src     Source
	samples int
}

// NewAverager creates an Averager. A non-positive sample count uses DefaultSamples.
func NewAverager(src Source, samples int) *Averager {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &Averager{src: src, samples: samples}
}

// Average reads the configured number of samples and returns their mean.
// Any failed reading fails the whole measurement.
func (a *Averager) Average() (float64, error) {
	if a.src == nil {
		return 0, errors.New("sensor: no source")
	}
	var sum float64
	for i := 0; i < a.samples; i++ {
		v, err := a.src.Read()
		if err != nil {
			return 0, fmt.Errorf("sample %d/%d: %w", i+1, a.samples, err)
		}
		sum += v
	}
	return sum / float64(a.samples), nil
}

// Samples returns the number of readings per measurement.
func (a *Averager) Samples() int {
	return a.samples
}
