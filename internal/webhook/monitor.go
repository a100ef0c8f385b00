package webhook

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

const monitorBuffer = 64

// MonitorEvent is one frame published to attached subscribers.
type MonitorEvent struct {
	Event string         `json:"event"`
	Time  time.Time      `json:"time"`
	Seq   int64          `json:"seq"`
	Data  map[string]any `json:"data,omitempty"`
}

// Monitor fans dispatch events out to attached websocket subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// frame.
type Monitor struct {
	log *logging.Logger
	seq atomic.Int64

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewMonitor creates a monitor with no subscribers.
func NewMonitor(log *logging.Logger) *Monitor {
	return &Monitor{
		log:  log.Sub("monitor"),
		subs: make(map[chan []byte]struct{}),
	}
}

// Publish sends one event frame to every subscriber.
func (m *Monitor) Publish(event string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) == 0 {
		return
	}

	frame, err := json.Marshal(MonitorEvent{
		Event: event,
		Time:  time.Now(),
		Seq:   m.seq.Add(1),
		Data:  data,
	})
	if err != nil {
		m.log.Warn().Err(err).Str("event", event).Msg("failed to encode monitor event")
		return
	}

	dropped := 0
	for ch := range m.subs {
		select {
		case ch <- frame:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		m.log.Debug().Int("dropped", dropped).Str("event", event).Msg("slow monitor subscribers missed event")
	}
}

// Subscribe attaches a new subscriber and returns its frame channel.
func (m *Monitor) Subscribe() chan []byte {
	ch := make(chan []byte, monitorBuffer)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe detaches a subscriber.
func (m *Monitor) Unsubscribe(ch chan []byte) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Subscribers returns the number of attached subscribers.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
