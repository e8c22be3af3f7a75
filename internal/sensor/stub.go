//go:build !linux

package sensor

import "errors"

// DefaultThermalZone is unused on non-Linux platforms.
const DefaultThermalZone = ""

// ThermalZone is not available on non-Linux platforms.
type ThermalZone struct{}

// NewThermalZone returns an error on non-Linux platforms.
func NewThermalZone(path string) (*ThermalZone, error) {
	return nil, errors.New("sensor: thermal zone not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (t *ThermalZone) Read() (float64, error) {
	return 0, errors.New("sensor: not supported")
}
