// Command tempcycle runs the temperature monitoring pipeline on a Linux host,
// or watches a board running the firmware over its USB console.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/tempcycle/internal/config"
	"github.com/sweeney/tempcycle/internal/serialmon"
	"github.com/sweeney/tempcycle/internal/status"
)

// Set by the linker at release time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// overrides holds flag values that take precedence over the config file.
type overrides struct {
	policy    string
	loop      time.Duration
	heartbeat time.Duration
	source    string
	backend   string
	broker    string
	httpAddr  string
	port      string
	baud      int
	watchdog  bool
}

func newRootCmd() *cobra.Command {
	var configPath string
	var ov overrides

	root := &cobra.Command{
		Use:           "tempcycle",
		Short:         "Cooperative five-stage temperature monitor.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "tempcycle.yaml", "YAML config file (missing file uses defaults)")
	root.PersistentFlags().StringVar(&ov.broker, "broker", "", "MQTT broker address (empty disables MQTT)")
	root.PersistentFlags().StringVar(&ov.httpAddr, "http", "", "HTTP status address (empty disables)")
	root.PersistentFlags().DurationVar(&ov.heartbeat, "heartbeat", 0, "Heartbeat interval (0 to disable)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		applyOverrides(cfg, ov, cmd.Flags().Changed)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline against a local sensor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	runCmd.Flags().StringVar(&ov.policy, "policy", "", `Secondary timer policy ("rearm" or "cascade")`)
	runCmd.Flags().DurationVar(&ov.loop, "loop", 0, "Main loop tick")
	runCmd.Flags().StringVar(&ov.source, "source", "", `Sensor source ("simulated" or "thermal")`)
	runCmd.Flags().StringVar(&ov.backend, "matrix", "", `Matrix backend ("none" or "gpio")`)
	runCmd.Flags().BoolVar(&ov.watchdog, "watchdog", true, "Enable the stall watchdog")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Read report lines from the board's USB console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return monitor(cfg)
		},
	}
	monitorCmd.Flags().StringVarP(&ov.port, "port", "p", "", "Serial port")
	monitorCmd.Flags().IntVar(&ov.baud, "baud", 0, "Baud rate")

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serialmon.Ports()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config <file>",
		Short: "Write the effective configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			return cfg.Save(args[0])
		},
	}

	root.AddCommand(runCmd, monitorCmd, portsCmd, configCmd)
	return root
}

// applyOverrides copies flags the user set onto cfg.
func applyOverrides(cfg *config.Config, ov overrides, changed func(string) bool) {
	if changed("policy") {
		cfg.Scheduler.Policy = ov.policy
	}
	if changed("loop") {
		cfg.Scheduler.Loop = ov.loop
	}
	if changed("heartbeat") {
		cfg.Scheduler.Heartbeat = ov.heartbeat
	}
	if changed("source") {
		cfg.Sensor.Source = ov.source
	}
	if changed("matrix") {
		cfg.Matrix.Backend = ov.backend
	}
	if changed("watchdog") {
		cfg.Watchdog.Enabled = ov.watchdog
	}
	if changed("broker") {
		cfg.MQTT.Broker = ov.broker
	}
	if changed("http") {
		cfg.HTTP.Addr = ov.httpAddr
	}
	if changed("port") {
		cfg.Serial.Port = ov.port
	}
	if changed("baud") {
		cfg.Serial.Baud = ov.baud
	}
}

// statusConfig flattens cfg for the status page and system events.
func statusConfig(cfg *config.Config, source string) status.Config {
	sc := status.Config{
		Source:      source,
		Policy:      cfg.Scheduler.Policy,
		LoopMs:      cfg.Scheduler.Loop.Milliseconds(),
		HeartbeatMs: cfg.Scheduler.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	}
	if cfg.Watchdog.Enabled {
		sc.WatchdogMs = cfg.Watchdog.Timeout.Milliseconds()
	}
	for s, p := range cfg.Timers.Periods() {
		sc.TimerPeriodsMs[s] = p.Milliseconds()
	}
	return sc
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
