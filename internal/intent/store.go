package intent

import (
	"log"
	"sync"

	"github.com/voltix/agent/internal/events"
)

// MaxAuditRecords caps the audit log; the oldest entry is evicted beyond it.
const MaxAuditRecords = 200

// AuditLog is the bounded, newest-first store of verification records.
// Records are immutable after append.
type AuditLog struct {
	mu      sync.Mutex
	records []Record
	emitter events.Emitter
}

// NewAuditLog returns an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{emitter: events.NopEmitter{}}
}

// SetEmitter wires the event bus; every appended record is also published.
func (a *AuditLog) SetEmitter(em events.Emitter) {
	if em != nil {
		a.emitter = em
	}
}

// Append prepends a record, evicting the oldest past MaxAuditRecords.
func (a *AuditLog) Append(rec Record) {
	a.mu.Lock()
	a.records = append([]Record{rec}, a.records...)
	if len(a.records) > MaxAuditRecords {
		a.records = a.records[:MaxAuditRecords]
	}
	a.mu.Unlock()

	log.Printf("[AUDIT] %s | action=%s | status=%s | mode=%s | token=%s",
		rec.Event, rec.Action, rec.Status, rec.Mode, orDash(rec.TokenID))
	a.emitter.Emit(events.TypeAudit, "intent", map[string]interface{}{
		"event":  rec.Event,
		"action": rec.Action,
		"status": string(rec.Status),
		"mode":   string(rec.Mode),
	})
}

// Snapshot returns a point-in-time copy of all records, newest first.
func (a *AuditLog) Snapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Clear empties the log.
func (a *AuditLog) Clear() {
	a.mu.Lock()
	a.records = nil
	a.mu.Unlock()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// CounterSnapshot is a consistent read of the verification counters.
type CounterSnapshot struct {
	Verified int `json:"verified"`
	Blocked  int `json:"blocked"`
	Errors   int `json:"errors"`
}

// Counters are the process-wide verification tallies. They only move up,
// except through an explicit Reset.
type Counters struct {
	mu       sync.Mutex
	verified int
	blocked  int
	errors   int
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters { return &Counters{} }

// IncVerified records a successful verification.
func (c *Counters) IncVerified(mode Mode) {
	c.mu.Lock()
	c.verified++
	c.mu.Unlock()
	verificationsTotal.WithLabelValues(string(mode), string(StatusVerified)).Inc()
}

// IncBlocked records a refused action.
func (c *Counters) IncBlocked() {
	c.mu.Lock()
	c.blocked++
	c.mu.Unlock()
	blockedActionsTotal.Inc()
}

// IncErrors records a verification-backend failure.
func (c *Counters) IncErrors(mode Mode) {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
	verificationsTotal.WithLabelValues(string(mode), string(StatusError)).Inc()
}

// Snapshot returns the current tallies.
func (c *Counters) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterSnapshot{Verified: c.verified, Blocked: c.blocked, Errors: c.errors}
}

// Reset zeroes the tallies.
func (c *Counters) Reset() {
	c.mu.Lock()
	c.verified, c.blocked, c.errors = 0, 0, 0
	c.mu.Unlock()
}
