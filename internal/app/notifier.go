package app

import (
	"sync"
	"time"

	"github.com/seismetry/seismetry/pkg/types"
)

// EventType represents the type of a session event.
type EventType string

const (
	EventDatasetLoaded    EventType = "dataset_loaded"
	EventThresholdChanged EventType = "threshold_changed"
	EventRunCompleted     EventType = "run_completed"
	EventRunFailed        EventType = "run_failed"
)

// Event is one session notification: a dataset arrived, the threshold
// moved, or an analysis run finished.
type Event struct {
	Type      EventType         `json:"type"`
	RunID     string            `json:"run_id,omitempty"`
	Dataset   types.DatasetKind `json:"dataset,omitempty"`
	Rows      int64             `json:"rows,omitempty"`
	Threshold float64           `json:"threshold,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Notifier is an in-process pub/sub bus for session events. The HTTP
// event stream subscribes here; publishers never block on slow readers.
type Notifier struct {
	subscribers sync.Map
	bufferSize  int
}

// NewNotifier creates a notifier whose subscriber channels buffer up to
// bufferSize events.
func NewNotifier(bufferSize int) *Notifier {
	return &Notifier{
		bufferSize: bufferSize,
	}
}

// Publish sends an event to all matching subscribers.
// Non-blocking: if a subscriber's channel is full, the event is dropped.
func (n *Notifier) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	n.subscribers.Range(func(key, value interface{}) bool {
		sub := value.(*Subscriber)
		if matchesFilter(sub, ev.Type) {
			select {
			case sub.Ch <- ev:
			default:
				// Channel full - drop the event, do NOT block
			}
		}
		return true
	})
}

// Subscribe adds a subscriber with a custom ID. An empty filter list
// receives every event type.
func (n *Notifier) Subscribe(id string, filters []EventType) *Subscriber {
	ch := make(chan Event, n.bufferSize)
	sub := &Subscriber{
		ID:      id,
		Filters: filters,
		Ch:      ch,
	}
	n.subscribers.Store(sub.ID, sub)
	return sub
}

// SubscribeAutoID adds a subscriber with an auto-generated ID.
func (n *Notifier) SubscribeAutoID(filters ...EventType) *Subscriber {
	return n.Subscribe(generateSubscriberID(), filters)
}

// SubscriberCount reports the number of active subscribers.
func (n *Notifier) SubscriberCount() int {
	count := 0
	n.subscribers.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	if value, ok := n.subscribers.LoadAndDelete(subID); ok {
		sub := value.(*Subscriber)
		close(sub.Ch)
	}
}

func matchesFilter(sub *Subscriber, t EventType) bool {
	if len(sub.Filters) == 0 {
		return true
	}
	for _, filter := range sub.Filters {
		if filter == t {
			return true
		}
	}
	return false
}

// Subscriber is one registered event consumer.
type Subscriber struct {
	ID      string
	Filters []EventType
	Ch      chan Event
}

// generateSubscriberID generates a unique subscriber ID.
func generateSubscriberID() string {
	return "sub_" + time.Now().Format("20060102150405.000000000")
}
