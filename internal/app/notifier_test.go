package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismetry/seismetry/pkg/types"
)

func TestNotifierPublishSubscribe(t *testing.T) {
	n := NewNotifier(4)

	sub := n.Subscribe("test", nil)
	defer n.Unsubscribe(sub.ID)

	n.Publish(Event{Type: EventDatasetLoaded, Dataset: types.DatasetEvents, Rows: 42})

	select {
	case ev := <-sub.Ch:
		assert.Equal(t, EventDatasetLoaded, ev.Type)
		assert.Equal(t, types.DatasetEvents, ev.Dataset)
		assert.Equal(t, int64(42), ev.Rows)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNotifierFilters(t *testing.T) {
	n := NewNotifier(4)

	runsOnly := n.Subscribe("runs", []EventType{EventRunCompleted, EventRunFailed})
	defer n.Unsubscribe(runsOnly.ID)

	n.Publish(Event{Type: EventThresholdChanged, Threshold: 1.5})
	n.Publish(Event{Type: EventRunCompleted, RunID: "run-1"})

	select {
	case ev := <-runsOnly.Ch:
		assert.Equal(t, EventRunCompleted, ev.Type)
		assert.Equal(t, "run-1", ev.RunID)
	case <-time.After(time.Second):
		t.Fatal("filtered event not delivered")
	}

	select {
	case ev := <-runsOnly.Ch:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestNotifierDropsWhenBufferFull(t *testing.T) {
	n := NewNotifier(1)

	sub := n.Subscribe("slow", nil)
	defer n.Unsubscribe(sub.ID)

	// The first event fills the buffer, the second is dropped rather
	// than blocking the publisher.
	n.Publish(Event{Type: EventRunCompleted, RunID: "run-1"})
	n.Publish(Event{Type: EventRunCompleted, RunID: "run-2"})

	ev := <-sub.Ch
	assert.Equal(t, "run-1", ev.RunID)

	select {
	case ev := <-sub.Ch:
		t.Fatalf("unexpected event %s", ev.RunID)
	default:
	}
}

func TestNotifierUnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier(1)

	sub := n.Subscribe("once", nil)
	n.Unsubscribe(sub.ID)

	_, open := <-sub.Ch
	assert.False(t, open)

	// Publishing after unsubscribe is a no-op.
	n.Publish(Event{Type: EventRunCompleted})

	// Unsubscribing twice is safe.
	n.Unsubscribe(sub.ID)
}

func TestNotifierSubscribeAutoID(t *testing.T) {
	n := NewNotifier(1)

	a := n.SubscribeAutoID()
	b := n.SubscribeAutoID(EventRunCompleted)
	defer n.Unsubscribe(a.ID)
	defer n.Unsubscribe(b.ID)

	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []EventType{EventRunCompleted}, b.Filters)
}
