//go:build linux

package sensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultThermalZone is the SoC temperature on Raspberry Pi class boards.
const DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// ThermalZone reads a Linux thermal zone (millidegrees Celsius).
type ThermalZone struct {
	path string
}

// NewThermalZone opens nothing up front; it checks the zone is readable.
func NewThermalZone(path string) (*ThermalZone, error) {
	if path == "" {
		path = DefaultThermalZone
	}
	tz := &ThermalZone{path: path}
	if _, err := tz.Read(); err != nil {
		return nil, err
	}
	return tz, nil
}

// Read returns the zone temperature in °C.
func (t *ThermalZone) Read() (float64, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return 0, fmt.Errorf("read thermal zone: %w", err)
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse thermal zone %s: %w", t.path, err)
	}
	return float64(milli) / 1000, nil
}
