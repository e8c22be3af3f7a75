package display

import "github.com/sweeney/tempcycle/internal/trend"

// Frame is one Render call.
type Frame struct {
	Value float64
	Trend trend.Trend
}

// Fake records rendered frames for test assertions.
type Fake struct {
	// Frames contains every rendered frame, in order.
	Frames []Frame

	// RenderError, if set, will be returned by Render.
	RenderError error
}

// Render records the frame.
func (f *Fake) Render(value float64, t trend.Trend) error {
	if f.RenderError != nil {
		return f.RenderError
	}
	f.Frames = append(f.Frames, Frame{Value: value, Trend: t})
	return nil
}

// Reset clears recorded frames.
func (f *Fake) Reset() {
	f.Frames = nil
	f.RenderError = nil
}
