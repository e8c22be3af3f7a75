//go:build rp2040

package main

import (
	"image/color"
	"machine"
	"runtime/interrupt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/drivers/ws2812"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/sweeney/tempcycle/internal/display"
	"github.com/sweeney/tempcycle/internal/trend"
	"github.com/sweeney/tempcycle/internal/watchdog"
)

// chipSensor is the RP2040's internal temperature sensor.
type chipSensor struct{}

func (chipSensor) Read() (float64, error) {
	return float64(machine.ReadTemperature()) / 1000, nil
}

// panel is the part of the SSD1306 driver the display uses.
type panel interface {
	drivers.Displayer
	ClearBuffer()
}

// oled renders display.Lines on a 128x64 SSD1306.
type oled struct {
	dev panel
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func newOLED(bus *machine.I2C, sda, scl machine.Pin) (*oled, error) {
	if err := bus.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       sda,
		SCL:       scl,
	}); err != nil {
		return nil, err
	}
	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Width:   128,
		Height:  64,
		Address: 0x3C,
	})
	dev.ClearDisplay()
	return &oled{dev: dev}, nil
}

func (o *oled) Render(value float64, t trend.Trend) error {
	o.dev.ClearBuffer()
	for i, line := range display.Lines(value, t) {
		tinyfont.WriteLine(o.dev, &proggy.TinySZ8pt7b, 0, int16(12+i*16), line, white)
	}
	return o.dev.Display()
}

// strip drives the WS2812 matrix. The bit-banged protocol is timing
// sensitive, so interrupts are off while a frame goes out.
type strip struct {
	dev ws2812.Device
}

func newStrip(pin machine.Pin) *strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &strip{dev: ws2812.New(pin)}
}

func (s *strip) WriteColors(buf []color.RGBA) error {
	state := interrupt.Disable()
	err := s.dev.WriteColors(buf)
	interrupt.Restore(state)
	return err
}

// hwWatchdog resets the chip when the main loop stops feeding it.
type hwWatchdog struct{}

var _ watchdog.Feeder = hwWatchdog{}

func (hwWatchdog) start(timeoutMillis uint32) error {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMillis}); err != nil {
		return err
	}
	return machine.Watchdog.Start()
}

func (hwWatchdog) Feed() {
	machine.Watchdog.Update()
}
