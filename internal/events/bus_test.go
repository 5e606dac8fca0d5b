package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_TypedSubscription(t *testing.T) {
	bus := NewBus()
	alertCh := bus.Subscribe(TypeAlert)
	defer bus.Unsubscribe(alertCh)

	bus.Emit(TypeAudit, "test", map[string]interface{}{"n": 1})
	bus.Emit(TypeAlert, "test", map[string]interface{}{"title": "WiFi Disabled"})

	select {
	case ev := <-alertCh:
		assert.Equal(t, TypeAlert, ev.Type)
		assert.Equal(t, "WiFi Disabled", ev.Data["title"])
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected alert event")
	}

	select {
	case ev := <-alertCh:
		t.Fatalf("unexpected extra event: %s", ev.Type)
	default:
	}
}

func TestBus_AllSubscriberSeesEverything(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Emit(TypeAlert, "test", nil)
	bus.Emit(TypeAudit, "test", nil)

	require.Len(t, ch, 2)
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(ch)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_FullSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1
	ch := bus.Subscribe(TypeHeal)
	defer bus.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Emit(TypeHeal, "test", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on full subscriber")
	}
}

type captureSink struct{ got []*Event }

func (c *captureSink) Deliver(e *Event) { c.got = append(c.got, e) }

func TestBus_SinkReceivesAllEvents(t *testing.T) {
	bus := NewBus()
	sink := &captureSink{}
	bus.AttachSink(sink)

	bus.Emit(TypeAlert, "test", nil)
	bus.Emit(TypeStatus, "test", nil)

	require.Len(t, sink.got, 2)
	assert.Equal(t, TypeAlert, sink.got[0].Type)
	assert.Equal(t, TypeStatus, sink.got[1].Type)
}
