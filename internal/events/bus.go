package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/jordanhubbard/promptvault/internal/metrics"
)

// EventType represents the type of event
type EventType string

const (
	EventTypePromptCreated       EventType = "prompt.created"
	EventTypePromptUpdated       EventType = "prompt.updated"
	EventTypePromptDeleted       EventType = "prompt.deleted"
	EventTypeVersionRestored     EventType = "version.restored"
	EventTypeEvaluationCompleted EventType = "evaluation.completed"
	EventTypeEvaluationFailed    EventType = "evaluation.failed"
)

// Event represents a mutation event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	PromptID  string                 `json:"prompt_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Subscriber receives events over a buffered channel. Slow subscribers
// drop events rather than block publishers.
type Subscriber struct {
	ID      string
	Channel chan *Event
	done    chan struct{}
}

// Done is closed when the subscriber is removed from the bus. The event
// channel itself is never closed: Publish may still be fanning out to a
// snapshot taken before removal, and a send on a closed channel panics.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

const recentEventCapacity = 256

// Bus fans events out to in-process subscribers and, when a NATS
// connection is configured, publishes them to promptvault.<type> subjects.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	nc          *nats.Conn
	metrics     *metrics.Metrics

	// Ring buffer of recent events (ephemeral, lost on restart)
	recent      []*Event
	recentIdx   int
	recentCount int
}

// NewBus creates an in-process event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
		recent:      make([]*Event, recentEventCapacity),
		metrics:     metrics.NewMetrics(),
	}
}

// ConnectNATS attaches a NATS connection so events are also published
// externally. Reconnects are handled by the client.
func (b *Bus) ConnectNATS(url string) error {
	nc, err := nats.Connect(url,
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	b.mu.Lock()
	b.nc = nc
	b.mu.Unlock()

	log.Printf("Connected to NATS at %s", url)
	return nil
}

// Close severs the NATS connection and drops all subscribers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nc != nil {
		b.nc.Close()
		b.nc = nil
	}
	for id, sub := range b.subscribers {
		close(sub.done)
		delete(b.subscribers, id)
	}
}

// Publish delivers an event to all subscribers and NATS. Never blocks:
// subscribers with full channels miss the event.
func (b *Bus) Publish(eventType EventType, promptID string, data map[string]interface{}) {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PromptID:  promptID,
		Data:      data,
	}

	b.mu.Lock()
	b.recent[b.recentIdx] = event
	b.recentIdx = (b.recentIdx + 1) % len(b.recent)
	if b.recentCount < len(b.recent) {
		b.recentCount++
	}
	nc := b.nc
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	b.metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()

	for _, sub := range subs {
		select {
		case sub.Channel <- event:
		default:
		}
	}

	if nc != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal event %s: %v", event.ID, err)
			return
		}
		subject := "promptvault." + string(eventType)
		if err := nc.Publish(subject, payload); err != nil {
			log.Printf("Failed to publish event to %s: %v", subject, err)
		}
	}
}

// Subscribe registers a new subscriber and returns it. The caller must
// call Unsubscribe when done.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:      uuid.NewString(),
		Channel: make(chan *Event, 64),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and signals Done.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.done)
		delete(b.subscribers, id)
	}
}

// Recent returns up to limit recent events, oldest first.
func (b *Bus) Recent(limit int) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.recentCount {
		limit = b.recentCount
	}

	out := make([]*Event, 0, limit)
	start := b.recentIdx - limit
	if start < 0 {
		start += len(b.recent)
	}
	for i := 0; i < limit; i++ {
		out = append(out, b.recent[(start+i)%len(b.recent)])
	}
	return out
}
