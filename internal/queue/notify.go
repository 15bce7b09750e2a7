package queue

import (
	"sync"
	"time"

	"github.com/fin-diagnostics/backend/internal/models"
)

// EventType classifies queue change notifications.
type EventType string

const (
	EventAdded    EventType = "added"
	EventRemoved  EventType = "removed"
	EventCleared  EventType = "cleared"
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
)

// Event is one sequenced queue change pushed to subscribers. Every event
// carries the derived read model so consumers never recompute it themselves.
type Event struct {
	Seq             int64              `json:"seq"`
	Timestamp       time.Time          `json:"timestamp"`
	Type            EventType          `json:"type"`
	Item            *models.FileItem   `json:"item,omitempty"`
	Stats           models.QueueStats  `json:"stats"`
	BatchStatus     models.BatchStatus `json:"status"`
	OverallProgress int                `json:"overallProgress"`
}

const subscriberBuffer = 64

// Notifier fans queue events out to subscribers. Subscription and release are
// explicit; a subscriber that falls behind loses events rather than blocking
// the store.
type Notifier struct {
	mu      sync.Mutex
	nextSeq int64
	nextID  int
	subs    map[int]chan Event
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a new consumer. The returned release func must be
// called to free the subscription.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, subscriberBuffer)
	n.subs[id] = ch

	release := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, release
}

// Publish assigns a sequence number and delivers the event to every
// subscriber without blocking.
func (n *Notifier) Publish(event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextSeq++
	event.Seq = n.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; drop rather than stall the store.
		}
	}
}
