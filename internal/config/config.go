// Package config loads the tempcycle YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/tempcycle/internal/gpio"
	"github.com/sweeney/tempcycle/internal/matrix"
	"github.com/sweeney/tempcycle/internal/mqtt"
	"github.com/sweeney/tempcycle/internal/pipeline"
	"github.com/sweeney/tempcycle/internal/sched"
	"github.com/sweeney/tempcycle/internal/sensor"
	"github.com/sweeney/tempcycle/internal/timerbank"
	"github.com/sweeney/tempcycle/internal/trend"
)

// Sensor sources.
const (
	SourceSimulated = "simulated"
	SourceThermal   = "thermal"
)

// Matrix backends.
const (
	BackendNone = "none"
	BackendGPIO = "gpio"
)

// Config represents the daemon configuration.
type Config struct {
	Timers    TimersConfig    `yaml:"timers"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Alert     AlertConfig     `yaml:"alert"`
	Trend     TrendConfig     `yaml:"trend"`
	Matrix    MatrixConfig    `yaml:"matrix"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Serial    SerialConfig    `yaml:"serial"`
}

// TimersConfig holds the period of each stage's timer.
type TimersConfig struct {
	ReadTemperature time.Duration `yaml:"read_temperature"`
	AlertMatrix     time.Duration `yaml:"alert_matrix"`
	AnalyzeTrend    time.Duration `yaml:"analyze_trend"`
	ShowDisplay     time.Duration `yaml:"show_display"`
	UpdateMatrix    time.Duration `yaml:"update_matrix"`
}

// Periods returns the timer periods indexed by stage.
func (t TimersConfig) Periods() [sched.NumStages]time.Duration {
	return [sched.NumStages]time.Duration{
		sched.ReadTemperature: t.ReadTemperature,
		sched.AlertMatrix:     t.AlertMatrix,
		sched.AnalyzeTrend:    t.AnalyzeTrend,
		sched.ShowDisplay:     t.ShowDisplay,
		sched.UpdateMatrix:    t.UpdateMatrix,
	}
}

// SchedulerConfig contains main loop parameters.
type SchedulerConfig struct {
	Policy    string        `yaml:"policy"`    // "rearm" or "cascade"
	Loop      time.Duration `yaml:"loop"`      // main loop tick
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables HEARTBEAT events
}

// SensorConfig contains the temperature source and plausibility bounds.
type SensorConfig struct {
	Source   string  `yaml:"source"`
	Path     string  `yaml:"path"` // thermal zone file
	Samples  int     `yaml:"samples"`
	MinValid float64 `yaml:"min_valid"`
	MaxValid float64 `yaml:"max_valid"`

	Simulated SimulatedConfig `yaml:"simulated"`
}

// SimulatedConfig shapes the simulated source.
type SimulatedConfig struct {
	Base      float64       `yaml:"base"`
	Amplitude float64       `yaml:"amplitude"`
	Period    time.Duration `yaml:"period"`
	Noise     float64       `yaml:"noise"`
}

// AlertConfig contains the alert threshold in °C.
type AlertConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// TrendConfig contains the classifier deadband in °C.
type TrendConfig struct {
	Deadband float64 `yaml:"deadband"`
}

// MatrixConfig selects where matrix frames go.
type MatrixConfig struct {
	Backend   string `yaml:"backend"`
	Pixels    int    `yaml:"pixels"`
	Chip      string `yaml:"chip"`
	PinRed    int    `yaml:"pin_red"`
	PinGreen  int    `yaml:"pin_green"`
	PinBlue   int    `yaml:"pin_blue"`
	Threshold uint8  `yaml:"threshold"`
}

// WatchdogConfig contains the stall detector settings.
type WatchdogConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	BufferSize int    `yaml:"buffer_size"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SerialConfig is the board's USB console, used by the monitor command.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Default returns a default configuration.
func Default() *Config {
	p := timerbank.DefaultPeriods
	return &Config{
		Timers: TimersConfig{
			ReadTemperature: p[sched.ReadTemperature],
			AlertMatrix:     p[sched.AlertMatrix],
			AnalyzeTrend:    p[sched.AnalyzeTrend],
			ShowDisplay:     p[sched.ShowDisplay],
			UpdateMatrix:    p[sched.UpdateMatrix],
		},
		Scheduler: SchedulerConfig{
			Policy:    string(timerbank.PolicyRearm),
			Loop:      10 * time.Millisecond,
			Heartbeat: 15 * time.Minute,
		},
		Sensor: SensorConfig{
			Source:   SourceSimulated,
			Path:     sensor.DefaultThermalZone,
			Samples:  sensor.DefaultSamples,
			MinValid: pipeline.DefaultMinValid,
			MaxValid: pipeline.DefaultMaxValid,
			Simulated: SimulatedConfig{
				Base:      24,
				Amplitude: 2,
				Period:    5 * time.Minute,
				Noise:     0.02,
			},
		},
		Alert: AlertConfig{Threshold: pipeline.DefaultAlertThreshold},
		Trend: TrendConfig{Deadband: trend.DefaultDeadband},
		Matrix: MatrixConfig{
			Backend:   BackendNone,
			Pixels:    matrix.DefaultPixels,
			Chip:      "gpiochip0",
			PinRed:    gpio.DefaultPinRed,
			PinGreen:  gpio.DefaultPinGreen,
			PinBlue:   gpio.DefaultPinBlue,
			Threshold: gpio.DefaultThreshold,
		},
		Watchdog: WatchdogConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:   "tempcycle",
			BufferSize: 256,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields whose zero value is never meaningful.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Timers.ReadTemperature == 0 {
		c.Timers.ReadTemperature = def.Timers.ReadTemperature
	}
	if c.Timers.AlertMatrix == 0 {
		c.Timers.AlertMatrix = def.Timers.AlertMatrix
	}
	if c.Timers.AnalyzeTrend == 0 {
		c.Timers.AnalyzeTrend = def.Timers.AnalyzeTrend
	}
	if c.Timers.ShowDisplay == 0 {
		c.Timers.ShowDisplay = def.Timers.ShowDisplay
	}
	if c.Timers.UpdateMatrix == 0 {
		c.Timers.UpdateMatrix = def.Timers.UpdateMatrix
	}

	if c.Scheduler.Policy == "" {
		c.Scheduler.Policy = def.Scheduler.Policy
	}
	if c.Scheduler.Loop == 0 {
		c.Scheduler.Loop = def.Scheduler.Loop
	}

	if c.Sensor.Source == "" {
		c.Sensor.Source = def.Sensor.Source
	}
	if c.Sensor.Path == "" {
		c.Sensor.Path = def.Sensor.Path
	}
	if c.Sensor.Samples == 0 {
		c.Sensor.Samples = def.Sensor.Samples
	}
	if c.Sensor.Simulated.Period == 0 {
		c.Sensor.Simulated.Period = def.Sensor.Simulated.Period
	}

	if c.Matrix.Backend == "" {
		c.Matrix.Backend = def.Matrix.Backend
	}
	if c.Matrix.Pixels == 0 {
		c.Matrix.Pixels = def.Matrix.Pixels
	}
	if c.Matrix.Chip == "" {
		c.Matrix.Chip = def.Matrix.Chip
	}
	if c.Matrix.Threshold == 0 {
		c.Matrix.Threshold = def.Matrix.Threshold
	}

	if c.Watchdog.Timeout == 0 {
		c.Watchdog.Timeout = def.Watchdog.Timeout
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	for _, s := range sched.Stages {
		if p := c.Timers.Periods()[s]; p <= 0 {
			errs = append(errs, fmt.Errorf("timers.%s: period must be positive, got %v", s, p))
		}
	}
	if _, err := timerbank.ParsePolicy(c.Scheduler.Policy); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.policy: %w", err))
	}
	if c.Scheduler.Loop <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.loop: must be positive, got %v", c.Scheduler.Loop))
	}
	if c.Scheduler.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("scheduler.heartbeat: must not be negative, got %v", c.Scheduler.Heartbeat))
	}

	switch c.Sensor.Source {
	case SourceSimulated, SourceThermal:
	default:
		errs = append(errs, fmt.Errorf("sensor.source: unknown source %q", c.Sensor.Source))
	}
	if c.Sensor.Samples < 1 {
		errs = append(errs, fmt.Errorf("sensor.samples: must be at least 1, got %d", c.Sensor.Samples))
	}
	if c.Sensor.MinValid >= c.Sensor.MaxValid {
		errs = append(errs, fmt.Errorf("sensor: min_valid %v must be below max_valid %v", c.Sensor.MinValid, c.Sensor.MaxValid))
	}
	if c.Trend.Deadband < 0 {
		errs = append(errs, fmt.Errorf("trend.deadband: must not be negative, got %v", c.Trend.Deadband))
	}

	switch c.Matrix.Backend {
	case BackendNone, BackendGPIO:
	default:
		errs = append(errs, fmt.Errorf("matrix.backend: unknown backend %q", c.Matrix.Backend))
	}
	if c.Matrix.Pixels < 1 {
		errs = append(errs, fmt.Errorf("matrix.pixels: must be at least 1, got %d", c.Matrix.Pixels))
	}

	if c.Watchdog.Enabled && c.Watchdog.Timeout <= c.Scheduler.Loop {
		errs = append(errs, fmt.Errorf("watchdog.timeout: %v must exceed scheduler.loop %v", c.Watchdog.Timeout, c.Scheduler.Loop))
	}
	// A tick can publish a pass and a heartbeat to a hung broker.
	if minTimeout := 2 * mqtt.PublishTimeout; c.Watchdog.Enabled && c.MQTT.Broker != "" && c.Watchdog.Timeout <= minTimeout {
		errs = append(errs, fmt.Errorf("watchdog.timeout: %v must exceed %v when mqtt.broker is set", c.Watchdog.Timeout, minTimeout))
	}
	if c.MQTT.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("mqtt.buffer_size: must be at least 1, got %d", c.MQTT.BufferSize))
	}
	if c.Serial.Baud < 1 {
		errs = append(errs, fmt.Errorf("serial.baud: must be positive, got %d", c.Serial.Baud))
	}

	return errors.Join(errs...)
}

// Pipeline returns the handler thresholds.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		AlertThreshold: c.Alert.Threshold,
		MinValid:       c.Sensor.MinValid,
		MaxValid:       c.Sensor.MaxValid,
	}
}
