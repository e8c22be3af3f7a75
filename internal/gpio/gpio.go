// Package gpio drives an RGB status LED on three GPIO output lines.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "image/color"

// LED switches the three colour channels of an RGB LED.
type LED interface {
	// Set drives each channel on (true) or off.
	Set(r, g, b bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRed   = 17
	DefaultPinGreen = 27
	DefaultPinBlue  = 22
)

// DefaultThreshold is the mean channel intensity above which a channel lights.
const DefaultThreshold = 16

// FrameWriter shows a whole matrix frame on a single RGB LED by thresholding
// the frame's mean colour. It satisfies matrix.Writer.
type FrameWriter struct {
	LED       LED
	Threshold uint8
}

// NewFrameWriter wraps led. A zero threshold uses DefaultThreshold.
func NewFrameWriter(led LED, threshold uint8) *FrameWriter {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &FrameWriter{LED: led, Threshold: threshold}
}

// WriteColors lights the LED with the thresholded mean of buf.
func (w *FrameWriter) WriteColors(buf []color.RGBA) error {
	if len(buf) == 0 {
		return w.LED.Set(false, false, false)
	}
	var r, g, b int
	for _, c := range buf {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(buf)
	t := int(w.Threshold)
	return w.LED.Set(r/n >= t, g/n >= t, b/n >= t)
}
