package gpio

// FakeLED is a test double that records channel states.
type FakeLED struct {
	// States contains every (r, g, b) value passed to Set, in order.
	States []RGB

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// RGB is one LED state.
type RGB struct {
	R, G, B bool
}

// NewFakeLED creates a FakeLED.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// Set records the channel states.
func (f *FakeLED) Set(r, g, b bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, RGB{R: r, G: g, B: b})
	return nil
}

// Current returns the last state set, or all off.
func (f *FakeLED) Current() RGB {
	if len(f.States) == 0 {
		return RGB{}
	}
	return f.States[len(f.States)-1]
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded states.
func (f *FakeLED) Reset() {
	f.States = nil
	f.Closed = false
}
