// Package strategy runs an ordered chain of remediation attempts until one
// produces a verifiably healthy state.
//
// A strategy reporting success does not guarantee the desired end state:
// enabling a network adapter does not guarantee radio power. Success is
// therefore defined by a caller-supplied post-condition probe, re-checked
// after a settle delay. Order matters — strategies go from most to least
// authoritative for the failure mode, and reordering changes which failures
// are fixable.
package strategy

import (
	"log"
	"time"
)

// Step records one executed attempt (or the final verification) for the
// audit trail surfaced to operators.
type Step struct {
	Name  string `json:"step"`
	OK    bool   `json:"ok"`
	Out   string `json:"out,omitempty"`
	State string `json:"state,omitempty"`
}

// Strategy is one concrete remediation attempt in the fallback chain.
type Strategy struct {
	Name string
	Run  func() (ok bool, detail string)
}

// Result is the outcome of a chain run. FinalState is whatever the probe
// last observed — exhausting every strategy is not an error at this layer;
// escalation is the caller's concern.
type Result struct {
	Steps      []Step `json:"steps"`
	FinalState string `json:"final_state"`
}

// Executor runs strategy chains against a state probe.
type Executor struct {
	// Settle is how long to wait after a strategy reports success before
	// re-probing. Hardware needs time to come up.
	Settle time.Duration

	// Probe returns the current observed state.
	Probe func() string

	// Healthy reports whether a probed state counts as success.
	Healthy func(state string) bool
}

// Run executes strategies in order, stopping at the first one whose success
// is confirmed by the probe. If every strategy is exhausted, one final
// settle-and-probe decides the reported state.
func (e *Executor) Run(strategies []Strategy) Result {
	var steps []Step

	for _, s := range strategies {
		ok, out := s.Run()
		steps = append(steps, Step{Name: s.Name, OK: ok, Out: out})
		log.Printf("Strategy [%s]: ok=%v | %s", s.Name, ok, out)

		if !ok {
			continue
		}

		time.Sleep(e.Settle)
		state := e.Probe()
		if e.Healthy(state) {
			steps = append(steps, Step{Name: "verify", OK: true, State: state})
			return Result{Steps: steps, FinalState: state}
		}
		// Strategy reported success but the post-condition failed; fall
		// through to the next strategy.
	}

	time.Sleep(e.Settle)
	final := e.Probe()
	steps = append(steps, Step{Name: "verify", OK: e.Healthy(final), State: final})
	return Result{Steps: steps, FinalState: final}
}
