package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/tempcycle/internal/sched"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string               `json:"event,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Last          *PassJSON            `json:"last_pass,omitempty"`
	Passes        uint64               `json:"passes"`
	Skipped       uint64               `json:"skipped"`
	Stages        map[string]StageJSON `json:"stages"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	StartTime     string               `json:"start_time"`
	Timestamp     string               `json:"timestamp"`
	MQTT          MQTTStatus           `json:"mqtt"`
	Network       *NetworkJSON         `json:"network,omitempty"`
	Config        ConfigJSON           `json:"config"`
}

// PassJSON is the JSON representation of one pass report.
type PassJSON struct {
	Timestamp      string  `json:"timestamp,omitempty"`
	Temperature    float64 `json:"temperature_c"`
	Trend          string  `json:"trend"`
	ReadSeconds    float64 `json:"t1_read_s"`
	DisplaySeconds float64 `json:"t2_display_s"`
	AnalyzeSeconds float64 `json:"t3_analyze_s"`
	UpdateSeconds  float64 `json:"t4_matrix_s"`
	Line           string  `json:"line"`
}

// StageJSON holds per-stage counters.
type StageJSON struct {
	Runs     uint64 `json:"runs"`
	Failed   uint64 `json:"failed"`
	Overruns uint64 `json:"overruns"`
	Fired    uint64 `json:"timer_fired"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source         string           `json:"source"`
	Policy         string           `json:"policy"`
	LoopMs         int64            `json:"loop_ms"`
	TimerPeriodsMs map[string]int64 `json:"timer_periods_ms"`
	HeartbeatMs    int64            `json:"heartbeat_ms"`
	WatchdogMs     int64            `json:"watchdog_ms"`
	Broker         string           `json:"broker"`
	HTTPAddr       string           `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	stages := make(map[string]StageJSON, sched.NumStages)
	periods := make(map[string]int64, sched.NumStages)
	for _, s := range sched.Stages {
		stages[s.String()] = StageJSON{
			Runs:     snap.Counters.Runs[s],
			Failed:   snap.Counters.Failed[s],
			Overruns: snap.Counters.Overruns[s],
			Fired:    snap.Counters.Fired[s],
		}
		if p := snap.Config.TimerPeriodsMs[s]; p > 0 {
			periods[s.String()] = p
		}
	}

	inner := StatusInner{
		Passes:        snap.Counters.Passes,
		Skipped:       snap.Counters.Skipped,
		Stages:        stages,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Source:         snap.Config.Source,
			Policy:         snap.Config.Policy,
			LoopMs:         snap.Config.LoopMs,
			TimerPeriodsMs: periods,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			WatchdogMs:     snap.Config.WatchdogMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}

	if p := snap.Last; p != nil {
		pj := &PassJSON{
			Temperature:    p.Temperature,
			Trend:          p.Trend.String(),
			ReadSeconds:    p.Read.Seconds(),
			DisplaySeconds: p.Display.Seconds(),
			AnalyzeSeconds: p.Analyze.Seconds(),
			UpdateSeconds:  p.Update.Seconds(),
			Line:           p.String(),
		}
		if !p.Timestamp.IsZero() {
			pj.Timestamp = p.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		inner.Last = pj
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
