//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLED drives the LED through the Linux GPIO character device.
type RealLED struct {
	chip  *gpiocdev.Chip
	lines [3]*gpiocdev.Line
}

// NewRealLED requests the three pins as outputs, initially off.
func NewRealLED(chipName string, pinR, pinG, pinB int) (*RealLED, error) {
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	led := &RealLED{chip: chip}
	for i, pin := range []int{pinR, pinG, pinB} {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			led.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", channelName(i), pin, err)
		}
		led.lines[i] = line
	}
	return led, nil
}

func channelName(i int) string {
	return [...]string{"red", "green", "blue"}[i]
}

// Set drives each channel.
func (l *RealLED) Set(r, g, b bool) error {
	for i, on := range []bool{r, g, b} {
		v := 0
		if on {
			v = 1
		}
		if err := l.lines[i].SetValue(v); err != nil {
			return fmt.Errorf("set %s pin: %w", channelName(i), err)
		}
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing so the LED is dark and the pins are safe across reboot.
func (l *RealLED) Close() error {
	var errs []error

	for i, line := range l.lines {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", channelName(i), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", channelName(i), err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
