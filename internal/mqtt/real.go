package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/tempcycle/internal/report"
)

// DefaultBufferSize is the number of messages held while the broker is unreachable.
const DefaultBufferSize = 256

// PublishTimeout bounds how long a publish blocks the caller. Publishes run
// on the main loop, so the stall watchdog must allow for it.
const PublishTimeout = 2 * time.Second

// ErrBuffered is returned when a message was queued for replay instead of sent.
var ErrBuffered = errors.New("mqtt: not connected, message buffered")

// connection is the subset of paho.Client used by RealPublisher.
type connection interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are held in a backlog and replayed on reconnect.
type RealPublisher struct {
	conn connection

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher connected to the given broker.
// The broker's last will marks the client offline on the system topic.
func NewRealPublisher(broker, clientID string, bufferSize int) (*RealPublisher, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	p := &RealPublisher{backlog: newBacklog(bufferSize)}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetOnConnectHandler(func(_ paho.Client) {
			p.flush()
		})

	client := paho.NewClient(opts)
	p.conn = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisherWithConn(conn connection, bufferSize int) *RealPublisher {
	return &RealPublisher{conn: conn, backlog: newBacklog(bufferSize)}
}

// PublishPass sends a pass report to the MQTT broker.
func (p *RealPublisher) PublishPass(pass report.Pass) error {
	payload, err := FormatPassPayload(pass)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(outbound{topic: TopicPass, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(outbound{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg outbound) error {
	if !p.conn.IsConnected() {
		p.mu.Lock()
		p.backlog.push(msg)
		p.mu.Unlock()
		return ErrBuffered
	}
	if err := p.send(msg); err != nil {
		p.mu.Lock()
		p.backlog.push(msg)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg outbound) error {
	token := p.conn.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(PublishTimeout) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages in order. Messages after the first
// failure go back into the buffer.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	pending := p.backlog.takeAll()
	p.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	log.Printf("mqtt: replaying %d buffered messages", len(pending))
	for i, msg := range pending {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: replay stopped: %v", err)
			p.mu.Lock()
			p.backlog.requeue(pending[i:])
			p.mu.Unlock()
			return
		}
	}
}

// Buffered returns the number of messages waiting for replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len()
}

// Dropped returns the number of messages evicted from a full backlog.
func (p *RealPublisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.dropped
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.conn.Disconnect(1000) // 1 second timeout
	return nil
}
