package alerts

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltix/agent/internal/events"
)

func TestStore_PushNewestFirst(t *testing.T) {
	s := NewStore()

	s.Push(LevelWarning, "first", "m1", "wifi_up_no_net")
	s.Push(LevelCritical, "second", "m2", "wifi_disabled")

	all := s.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Title)
	assert.Equal(t, "first", all[1].Title)
	assert.Equal(t, LevelCritical, all[0].Level)
	assert.NotZero(t, all[0].ID)
	assert.NotEmpty(t, all[0].Timestamp)
}

func TestStore_CapEvictsOldest(t *testing.T) {
	s := NewStore()

	for i := 0; i < MaxAlerts+1; i++ {
		s.Push(LevelInfo, fmt.Sprintf("alert-%d", i), "m", "wifi_connected")
	}

	all := s.GetAll()
	require.Len(t, all, MaxAlerts, "store must never exceed the cap")
	assert.Equal(t, fmt.Sprintf("alert-%d", MaxAlerts), all[0].Title, "newest at index 0")
	assert.Equal(t, "alert-1", all[len(all)-1].Title, "alert-0 evicted from the tail")
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Push(LevelInfo, "a", "m", "wifi_connected")

	s.Clear()
	assert.Empty(t, s.GetAll())
}

func TestStore_ConcurrentPushesHoldInvariant(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s.Push(LevelInfo, fmt.Sprintf("g%d-%d", g, i), "m", "wifi_connected")
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, s.GetAll(), MaxAlerts)
}

func TestStore_LastStateCell(t *testing.T) {
	s := NewStore()
	assert.Equal(t, "unknown", s.LastState())

	s.SetLastState("wifi_disabled")
	assert.Equal(t, "wifi_disabled", s.LastState())
}

func TestStore_PushEmitsEvent(t *testing.T) {
	s := NewStore()
	bus := events.NewBus()
	ch := bus.Subscribe(events.TypeAlert)
	s.SetEmitter(bus)

	s.Push(LevelResolved, "WiFi Restored", "back online", "wifi_connected")

	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, "WiFi Restored", ev.Data["title"])
	assert.Equal(t, "resolved", ev.Data["level"])
}
