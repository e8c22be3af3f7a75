package sensor

import "errors"

// FakeSource is a test double that returns scripted readings.
type FakeSource struct {
	// Values contains scripted readings. Each call to Read consumes the next one.
	Values []float64

	// index tracks current position in Values
	index int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeSource creates a FakeSource with the given readings.
func NewFakeSource(values ...float64) *FakeSource {
	return &FakeSource{Values: values}
}

// Read returns the next scripted reading.
// If readings are exhausted, returns the last one repeatedly.
func (f *FakeSource) Read() (float64, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no readings configured")
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Reset rewinds to the first reading.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeSampler returns scripted measurements directly, bypassing averaging.
type FakeSampler struct {
	Source FakeSource
}

// NewFakeSampler creates a FakeSampler with the given measurements.
func NewFakeSampler(values ...float64) *FakeSampler {
	return &FakeSampler{Source: FakeSource{Values: values}}
}

// Average returns the next scripted measurement.
func (f *FakeSampler) Average() (float64, error) {
	return f.Source.Read()
}
