package mqtt

import "log"

// outbound is a serialized MQTT message waiting to be sent.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// lifecycle reports whether m is a system event. Those outrank pass reports
// when the backlog is full: a missed pass is superseded by the next one a
// second later, a missed SHUTDOWN is not.
func (m outbound) lifecycle() bool {
	return m.topic == TopicSystem
}

// backlog holds messages while the broker is unreachable, oldest first.
// Not safe for concurrent use; the caller must synchronize.
type backlog struct {
	msgs     []outbound
	capacity int
	dropped  uint64
	warned   bool // logged the overflow since the last takeAll
}

func newBacklog(capacity int) *backlog {
	return &backlog{
		msgs:     make([]outbound, 0, capacity),
		capacity: capacity,
	}
}

// push appends m, evicting the oldest pass report (or, failing that, the
// oldest message) when full.
func (b *backlog) push(m outbound) {
	if len(b.msgs) == b.capacity {
		b.evict()
	}
	b.msgs = append(b.msgs, m)
}

func (b *backlog) evict() {
	victim := 0
	for i, m := range b.msgs {
		if !m.lifecycle() {
			victim = i
			break
		}
	}
	b.msgs = append(b.msgs[:victim], b.msgs[victim+1:]...)
	b.dropped++
	if !b.warned {
		log.Printf("mqtt: backlog full (%d messages), dropping oldest", b.capacity)
		b.warned = true
	}
}

// takeAll empties the backlog and returns its contents in order.
func (b *backlog) takeAll() []outbound {
	if len(b.msgs) == 0 {
		return nil
	}
	out := append([]outbound(nil), b.msgs...)
	b.msgs = b.msgs[:0]
	b.warned = false
	return out
}

// requeue puts msgs back ahead of anything pushed since takeAll, keeping
// the original publish order. Overflow evicts as push does.
func (b *backlog) requeue(msgs []outbound) {
	newer := b.msgs
	b.msgs = make([]outbound, 0, b.capacity)
	for _, m := range msgs {
		b.push(m)
	}
	for _, m := range newer {
		b.push(m)
	}
}

func (b *backlog) len() int {
	return len(b.msgs)
}
