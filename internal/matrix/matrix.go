// Package matrix keeps a frame buffer for the RGB LED matrix and pushes it to
// a Writer on Commit.
package matrix

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/sweeney/tempcycle/internal/trend"
)

// DefaultPixels is the 5x5 matrix on the BitDogLab board.
const DefaultPixels = 25

// Writer pushes a full frame to the LEDs. tinygo.org/x/drivers/ws2812.Device
// satisfies it directly.
type Writer interface {
	WriteColors(buf []color.RGBA) error
}

// Matrix is a frame buffer bound to a Writer.
// Not safe for concurrent use.
type Matrix struct {
	w     Writer
	frame []color.RGBA
}

// New creates a Matrix with n pixels. A non-positive n uses DefaultPixels.
func New(w Writer, n int) (*Matrix, error) {
	if w == nil {
		return nil, errors.New("matrix: nil writer")
	}
	if n <= 0 {
		n = DefaultPixels
	}
	return &Matrix{w: w, frame: make([]color.RGBA, n)}, nil
}

// SetAll fills every pixel with c.
func (m *Matrix) SetAll(c color.RGBA) {
	for i := range m.frame {
		m.frame[i] = c
	}
}

// Clear turns every pixel off.
func (m *Matrix) Clear() {
	m.SetAll(color.RGBA{})
}

// ApplyTrend fills the matrix with the trend's colour.
func (m *Matrix) ApplyTrend(t trend.Trend) {
	m.SetAll(trend.Color(t))
}

// Set changes a single pixel.
func (m *Matrix) Set(i int, c color.RGBA) error {
	if i < 0 || i >= len(m.frame) {
		return fmt.Errorf("matrix: pixel %d out of range [0, %d)", i, len(m.frame))
	}
	m.frame[i] = c
	return nil
}

// Frame returns a copy of the frame buffer.
func (m *Matrix) Frame() []color.RGBA {
	return append([]color.RGBA(nil), m.frame...)
}

// Commit writes the frame buffer to the LEDs.
func (m *Matrix) Commit() error {
	if err := m.w.WriteColors(m.frame); err != nil {
		return fmt.Errorf("write leds: %w", err)
	}
	return nil
}

// Discard is a Writer that drops every frame, for hosts without LEDs.
var Discard Writer = discard{}

type discard struct{}

func (discard) WriteColors([]color.RGBA) error { return nil }
