// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/tempcycle/internal/report"
)

// TopicPass is the MQTT topic for per-pass reports.
const TopicPass = "tempcycle/pass"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "tempcycle/system"

// Publisher publishes pass reports and lifecycle events to MQTT.
type Publisher interface {
	// PublishPass sends one pass report to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishPass(p report.Pass) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "TASK_STALL"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// PassPayload is the MQTT message payload for a pass report.
type PassPayload struct {
	Pass PassPayloadInner `json:"pass"`
}

// PassPayloadInner contains the pass details. Durations are in seconds at
// microsecond resolution, matching the console line.
type PassPayloadInner struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature_c"`
	Trend       string  `json:"trend"`
	T1          float64 `json:"t1_read_s"`
	T2          float64 `json:"t2_display_s"`
	T3          float64 `json:"t3_analyze_s"`
	T4          float64 `json:"t4_matrix_s"`
	Line        string  `json:"line"`
}

// FormatPassPayload creates the JSON payload for a pass report.
func FormatPassPayload(p report.Pass) ([]byte, error) {
	payload := PassPayload{
		Pass: PassPayloadInner{
			Timestamp:   p.Timestamp.UTC().Format(time.RFC3339Nano),
			Temperature: p.Temperature,
			Trend:       p.Trend.String(),
			T1:          p.Read.Seconds(),
			T2:          p.Display.Seconds(),
			T3:          p.Analyze.Seconds(),
			T4:          p.Update.Seconds(),
			Line:        p.String(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
