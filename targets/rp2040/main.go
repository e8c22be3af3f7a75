//go:build rp2040

// Firmware for a Raspberry Pi Pico: on-chip temperature sensor, SSD1306 OLED
// and a WS2812 matrix, driven by the same timers and scheduler as the host
// daemon. Report lines go to the USB console where `tempcycle monitor` reads
// them.
package main

import (
	"context"
	"fmt"
	"machine"
	"time"

	"github.com/sweeney/tempcycle/internal/matrix"
	"github.com/sweeney/tempcycle/internal/pipeline"
	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/sensor"
	"github.com/sweeney/tempcycle/internal/timerbank"
	"github.com/sweeney/tempcycle/internal/trend"
)

const (
	loopPeriod      = 10 * time.Millisecond
	watchdogTimeout = 2000 // ms
	matrixPixels    = matrix.DefaultPixels
)

var panics uint32

func main() {
	// Give the host a moment to open the USB console.
	time.Sleep(2 * time.Second)

	disp, err := newOLED(machine.I2C0, machine.GP4, machine.GP5)
	if err != nil {
		halt("oled", err)
	}

	mat, err := matrix.New(newStrip(machine.GP15), matrixPixels)
	if err != nil {
		halt("matrix", err)
	}

	pl, err := pipeline.New(
		sensor.NewAverager(chipSensor{}, sensor.DefaultSamples),
		trend.NewClassifier(trend.DefaultDeadband),
		disp,
		mat,
		pipeline.DefaultConfig(),
		nil,
	)
	if err != nil {
		halt("pipeline", err)
	}

	flags := &sched.Flags{}
	scheduler, err := pl.Scheduler(flags, func(p report.Pass) {
		fmt.Println(p.String())
	})
	if err != nil {
		halt("scheduler", err)
	}

	bank, err := timerbank.New(flags, timerbank.Registrations(timerbank.PolicyRearm, timerbank.DefaultPeriods))
	if err != nil {
		halt("timers", err)
	}
	if err := bank.Start(context.Background()); err != nil {
		halt("timers", err)
	}

	wd := hwWatchdog{}
	if err := wd.start(watchdogTimeout); err != nil {
		halt("watchdog", err)
	}

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
					println("panic in main loop:", panics)
				}
			}()
			scheduler.Tick()
		}()
		wd.Feed()
		time.Sleep(loopPeriod)
	}
}

// halt reports a fatal init error and stops. The watchdog is not running yet,
// so the board stays up with the console readable.
func halt(what string, err error) {
	for {
		println("init", what, "failed:", err.Error())
		time.Sleep(5 * time.Second)
	}
}
