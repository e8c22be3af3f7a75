// Package serialmon reads pass report lines from the board's USB serial
// console and turns them back into report.Pass values.
package serialmon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/tempcycle/internal/report"
)

const (
	// DefaultBaudRate matches the firmware's USB CDC console.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the size of the passes channel buffer.
	DefaultBufferSize = 64
)

// opener opens a serial port. Replaced in tests.
type opener func(name string, mode *serial.Mode) (io.ReadCloser, error)

func openSerial(name string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(name, mode)
}

// Ports returns the names of the serial ports present on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// ErrUsed is returned by Connect after the monitor has already read a port.
var ErrUsed = errors.New("serialmon: monitor already used")

// Monitor is a connection to the board's console.
type Monitor struct {
	port     string
	baudRate int
	open     opener
	now      func() time.Time

	passes  chan report.Pass
	done    chan struct{}
	dropped atomic.Uint64
	invalid atomic.Uint64

	mu        sync.Mutex
	conn      io.ReadCloser
	cancel    context.CancelFunc
	connected bool
	started   bool
}

// New creates a Monitor for port. Zero baud rate or buffer size use defaults.
func New(port string, baudRate, bufSize int) *Monitor {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	return &Monitor{
		port:     port,
		baudRate: baudRate,
		open:     openSerial,
		now:      time.Now,
		passes:   make(chan report.Pass, bufSize),
		done:     make(chan struct{}),
	}
}

// Connect opens the port and starts reading. The Passes channel is closed
// when reading stops. A Monitor connects once; use a new one to reconnect.
func (m *Monitor) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return errors.New("already connected")
	}
	if m.started {
		return ErrUsed
	}

	conn, err := m.open(m.port, &serial.Mode{BaudRate: m.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", m.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.conn = conn
	m.cancel = cancel
	m.connected = true
	m.started = true

	go func() {
		defer close(m.done)
		defer close(m.passes)
		if err := m.scan(ctx, conn); err != nil {
			log.Printf("serialmon: %s: %v", m.port, err)
		}
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
	}()

	return nil
}

// Close stops reading and closes the port.
func (m *Monitor) Close() error {
	m.mu.Lock()
	conn, cancel := m.conn, m.cancel
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()
	err := conn.Close()
	<-m.done
	if err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}

// Passes returns the channel of parsed reports.
func (m *Monitor) Passes() <-chan report.Pass {
	return m.passes
}

// IsConnected reports whether the port is open and being read.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Dropped returns how many passes were discarded because the channel was full.
func (m *Monitor) Dropped() uint64 { return m.dropped.Load() }

// Invalid returns how many report-like lines failed to parse.
func (m *Monitor) Invalid() uint64 { return m.invalid.Load() }

// scan reads lines until EOF, a read error or ctx is done. Lines that are
// not reports (other console output) are ignored.
func (m *Monitor) scan(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p, err := report.Parse(line)
		if errors.Is(err, report.ErrNotReport) {
			continue
		}
		if err != nil {
			m.invalid.Add(1)
			log.Printf("serialmon: bad report line %q: %v", line, err)
			continue
		}
		p.Timestamp = m.now()

		select {
		case m.passes <- p:
		case <-ctx.Done():
			return nil
		default:
			if m.dropped.Add(1) == 1 {
				log.Printf("serialmon: passes channel full, dropping")
			}
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}
