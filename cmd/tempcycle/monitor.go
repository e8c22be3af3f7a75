package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/tempcycle/internal/config"
	"github.com/sweeney/tempcycle/internal/mqtt"
	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/serialmon"
	"github.com/sweeney/tempcycle/internal/status"
	"github.com/sweeney/tempcycle/internal/web"
)

// errPortClosed ends the monitor when the board goes away.
var errPortClosed = errors.New("serial port closed")

func monitor(cfg *config.Config) error {
	mon := serialmon.New(cfg.Serial.Port, cfg.Serial.Baud, 0)
	if err := mon.Connect(); err != nil {
		return fmt.Errorf("init serial: %w", err)
	}
	defer mon.Close()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, "serial:"+cfg.Serial.Port))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	publishSystem(publisher, tracker, publisher, "STARTUP", "", true)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("monitoring %s at %d baud", cfg.Serial.Port, cfg.Serial.Baud)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var hb <-chan time.Time
	if cfg.Scheduler.Heartbeat > 0 {
		t := time.NewTicker(cfg.Scheduler.Heartbeat)
		defer t.Stop()
		hb = t.C
	}

	return monitorLoop(mon.Passes(), os.Stdout, publisher, publisher, tracker, hb, sigCh)
}

func monitorLoop(passes <-chan report.Pass, out io.Writer, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	sink := newSink(out, tracker, publisher)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			publishSystem(publisher, tracker, mqttStatus, "SHUTDOWN", signalName(s), true)
			return nil

		case p, ok := <-passes:
			if !ok {
				publishSystem(publisher, tracker, mqttStatus, "SHUTDOWN", "SERIAL_CLOSED", true)
				return errPortClosed
			}
			tracker.CountPass()
			sink(p)

		case <-heartbeat:
			snap := tracker.Snapshot()
			log.Printf("heartbeat: passes=%d", snap.Counters.Passes)
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			publishSystem(publisher, tracker, mqttStatus, "HEARTBEAT", "", false)
		}
	}
}
