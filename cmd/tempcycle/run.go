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
	"github.com/sweeney/tempcycle/internal/display"
	"github.com/sweeney/tempcycle/internal/gpio"
	"github.com/sweeney/tempcycle/internal/matrix"
	"github.com/sweeney/tempcycle/internal/mqtt"
	"github.com/sweeney/tempcycle/internal/pipeline"
	"github.com/sweeney/tempcycle/internal/report"
	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/sensor"
	"github.com/sweeney/tempcycle/internal/status"
	"github.com/sweeney/tempcycle/internal/timerbank"
	"github.com/sweeney/tempcycle/internal/trend"
	"github.com/sweeney/tempcycle/internal/watchdog"
	"github.com/sweeney/tempcycle/internal/web"
)

func run(cfg *config.Config) error {
	src, err := newSource(cfg)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}

	leds, closeLEDs, err := newMatrixWriter(cfg)
	if err != nil {
		return fmt.Errorf("init matrix: %w", err)
	}
	defer closeLEDs()

	mat, err := matrix.New(leds, cfg.Matrix.Pixels)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, "local"))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	pl, err := pipeline.New(
		sensor.NewAverager(src, cfg.Sensor.Samples),
		trend.NewClassifier(cfg.Trend.Deadband),
		display.NewLogger(os.Stderr),
		mat,
		cfg.Pipeline(),
		time.Now,
	)
	if err != nil {
		return err
	}

	flags := &sched.Flags{}
	scheduler, err := pl.Scheduler(flags, newSink(os.Stdout, tracker, publisher))
	if err != nil {
		return err
	}

	policy, err := timerbank.ParsePolicy(cfg.Scheduler.Policy)
	if err != nil {
		return err
	}
	bank, err := timerbank.New(flags, timerbank.Registrations(policy, cfg.Timers.Periods()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var feeder watchdog.Feeder = nopFeeder{}
	if cfg.Watchdog.Enabled {
		wd, err := watchdog.New(cfg.Watchdog.Timeout, stallHandler(publisher, tracker, os.Exit), nil)
		if err != nil {
			return err
		}
		check := time.NewTicker(max(cfg.Watchdog.Timeout/4, time.Millisecond))
		defer check.Stop()
		go wd.Run(ctx, check.C)
		feeder = wd
	}

	publishSystem(publisher, tracker, publisher, "STARTUP", "", true)

	// Start HTTP status server
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

	if err := bank.Start(ctx); err != nil {
		return err
	}
	defer bank.Stop()

	log.Printf("started: policy=%s loop=%v source=%s matrix=%s broker=%q heartbeat=%v",
		policy, cfg.Scheduler.Loop, cfg.Sensor.Source, cfg.Matrix.Backend, cfg.MQTT.Broker, cfg.Scheduler.Heartbeat)

	ticker := time.NewTicker(cfg.Scheduler.Loop)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		sched:      scheduler,
		timers:     bank,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		wd:         feeder,
		heartbeat:  cfg.Scheduler.Heartbeat,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

func newSource(cfg *config.Config) (sensor.Source, error) {
	switch cfg.Sensor.Source {
	case config.SourceThermal:
		return sensor.NewThermalZone(cfg.Sensor.Path)
	case config.SourceSimulated:
		s := cfg.Sensor.Simulated
		return sensor.NewSimulated(s.Base, s.Amplitude, s.Period, s.Noise, nil), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Sensor.Source)
}

func newMatrixWriter(cfg *config.Config) (matrix.Writer, func(), error) {
	switch cfg.Matrix.Backend {
	case config.BackendGPIO:
		led, err := gpio.NewRealLED(cfg.Matrix.Chip, cfg.Matrix.PinRed, cfg.Matrix.PinGreen, cfg.Matrix.PinBlue)
		if err != nil {
			return nil, nil, err
		}
		return gpio.NewFrameWriter(led, cfg.Matrix.Threshold), func() { led.Close() }, nil
	case config.BackendNone:
		return matrix.Discard, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Matrix.Backend)
}

// brokerClient is what the daemon needs from MQTT.
type brokerClient interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

func newPublisher(cfg *config.Config) (brokerClient, error) {
	if cfg.MQTT.Broker == "" {
		log.Printf("mqtt: no broker configured, publishing disabled")
		return mqtt.NopPublisher{}, nil
	}
	return mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.BufferSize)
}

type nopFeeder struct{}

func (nopFeeder) Feed() {}

// newSink prints the report line and hands the pass to status consumers.
func newSink(out io.Writer, tracker *status.Tracker, publisher mqtt.Publisher) func(report.Pass) {
	return func(p report.Pass) {
		fmt.Fprintln(out, p.String())
		tracker.RecordPass(p)
		if err := publisher.PublishPass(p); err != nil && !errors.Is(err, mqtt.ErrBuffered) {
			log.Printf("publish error: %v", err)
		}
	}
}

// stallHandler reports a stalled main loop and exits so the supervisor
// restarts the daemon.
func stallHandler(publisher mqtt.Publisher, tracker *status.Tracker, exit func(int)) func(time.Duration) {
	return func(idle time.Duration) {
		log.Printf("watchdog: main loop stalled for %v", idle)
		reason := fmt.Sprintf("no tick for %v", idle.Truncate(time.Millisecond))
		event := mqtt.SystemEvent{
			Timestamp:  time.Now(),
			Event:      "TASK_STALL",
			Reason:     reason,
			RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "TASK_STALL", reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish stall event: %v", err)
		}
		exit(1)
	}
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, event, reason string, retained bool) {
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(ev); err != nil && !errors.Is(err, mqtt.ErrBuffered) {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}

// firedCounter reports timer expiries per stage.
type firedCounter interface {
	Fired(s sched.Stage) uint64
}

// loop is the cooperative main loop: one scheduler step per tick.
type loop struct {
	sched      *sched.Scheduler
	timers     firedCounter
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	wd         watchdog.Feeder
	heartbeat  time.Duration
	now        func() time.Time
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := l.now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.updateStatus()
			publishSystem(l.publisher, l.tracker, l.mqttStatus, "SHUTDOWN", signalName(s), true)
			return nil

		case <-tick:
			l.sched.Tick()
			l.wd.Feed()
			l.updateStatus()

			t := l.now()
			if l.heartbeat > 0 && t.Sub(lastHeartbeat) >= l.heartbeat {
				lastHeartbeat = t
				st := l.sched.Stats()
				log.Printf("heartbeat: passes=%d skipped=%d overruns=%d", st.Passes, st.Skipped, st.TotalOverruns())
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					l.tracker.SetNetwork(net)
				}
				publishSystem(l.publisher, l.tracker, l.mqttStatus, "HEARTBEAT", "", false)
			}
		}
	}
}

func (l *loop) updateStatus() {
	var fired [sched.NumStages]uint64
	if l.timers != nil {
		for _, s := range sched.Stages {
			fired[s] = l.timers.Fired(s)
		}
	}
	l.tracker.UpdateStats(l.sched.Stats(), fired)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
