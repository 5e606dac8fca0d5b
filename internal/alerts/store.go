// Package alerts holds the operator-facing alert ring and the shared
// last-observed-state cell used by the monitor and the decision engine.
package alerts

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/voltix/agent/internal/events"
)

// Level classifies an alert for the dashboard.
type Level string

const (
	LevelInfo          Level = "info"
	LevelWarning       Level = "warning"
	LevelCritical      Level = "critical"
	LevelResolved      Level = "resolved"
	LevelSecurityBlock Level = "security_block"
)

// Alert is one operator-facing event.
type Alert struct {
	ID        int64  `json:"id"`
	Level     Level  `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// MaxAlerts caps the store; the oldest entry is evicted beyond this.
const MaxAlerts = 50

// Store is the append-only, capped, newest-first alert ring. All mutation
// goes through Push/Clear; readers get point-in-time copies.
type Store struct {
	mu      sync.Mutex
	alerts  []Alert
	emitter events.Emitter

	// lastState is the shared last-observed-state cell. It has its own
	// lock so it is never held across an alert mutation. Races between
	// monitor and decision engine are tolerated (last writer wins): both
	// are idempotent against the same physical network state and stronger
	// locking here would only over-synchronize redundant escalations.
	stateMu   sync.Mutex
	lastState string
}

// NewStore returns an empty store with the state cell at "unknown".
func NewStore() *Store {
	return &Store{
		emitter:   events.NopEmitter{},
		lastState: "unknown",
	}
}

// SetEmitter wires the event bus; every pushed alert is also published.
func (s *Store) SetEmitter(em events.Emitter) {
	if em != nil {
		s.emitter = em
	}
}

// Push prepends an alert, evicting the oldest past MaxAlerts.
func (s *Store) Push(level Level, title, message, state string) Alert {
	alert := Alert{
		ID:        time.Now().UnixMilli(),
		Level:     level,
		Title:     title,
		Message:   message,
		State:     state,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}

	s.mu.Lock()
	s.alerts = append([]Alert{alert}, s.alerts...)
	if len(s.alerts) > MaxAlerts {
		s.alerts = s.alerts[:MaxAlerts]
	}
	s.mu.Unlock()

	log.Printf("ALERT [%s] %s: %s", strings.ToUpper(string(level)), title, message)
	s.emitter.Emit(events.TypeAlert, "alerts", map[string]interface{}{
		"id":      alert.ID,
		"level":   string(level),
		"title":   title,
		"message": message,
		"state":   state,
	})
	return alert
}

// GetAll returns a snapshot of all alerts, newest first.
func (s *Store) GetAll() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.alerts = nil
	s.mu.Unlock()
}

// LastState reads the shared last-observed-state cell.
func (s *Store) LastState() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastState
}

// SetLastState writes the cell (last writer wins).
func (s *Store) SetLastState(state string) {
	s.stateMu.Lock()
	s.lastState = state
	s.stateMu.Unlock()
}
