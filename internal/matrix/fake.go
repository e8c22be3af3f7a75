package matrix

import "image/color"

// FakeWriter records committed frames for test assertions.
type FakeWriter struct {
	// Frames contains a copy of every committed frame.
	Frames [][]color.RGBA

	// WriteError, if set, will be returned by WriteColors.
	WriteError error
}

// WriteColors records a copy of buf.
func (f *FakeWriter) WriteColors(buf []color.RGBA) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Frames = append(f.Frames, append([]color.RGBA(nil), buf...))
	return nil
}

// Last returns the most recent frame, or nil.
func (f *FakeWriter) Last() []color.RGBA {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Reset clears recorded frames.
func (f *FakeWriter) Reset() {
	f.Frames = nil
	f.WriteError = nil
}
