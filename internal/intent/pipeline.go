package intent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/pkg/trust"
)

// serviceName identifies this agent to the trust service and appears as the
// target of every plan step.
const serviceName = "voltix-mechanic"

// engineName labels plan captures with the deciding engine.
const engineName = "voltix-self-heal-engine"

// clientRetryBackoff is how long a failed client init is cached before the
// next call may retry it.
const clientRetryBackoff = 30 * time.Second

var errNotConfigured = errors.New("trust credential not configured (running in local simulation)")

// TrustClient is the slice of the trust service the pipeline needs.
// *trust.Client satisfies it; tests substitute fakes.
type TrustClient interface {
	CapturePlan(ctx context.Context, engine, prompt string, plan interface{}) (*trust.PlanCapture, error)
	IntentToken(ctx context.Context, captureID string, validity time.Duration) (*trust.Token, error)
	Invoke(ctx context.Context, service, action string, token *trust.Token, params map[string]interface{}) (*trust.InvokeResult, error)
}

var _ TrustClient = (*trust.Client)(nil)

// Config parameterizes the pipeline.
type Config struct {
	UserID        string
	AgentID       string
	SigningSecret string

	// TrustEnabled selects the production backend. The choice is sticky
	// for the process; only a failed client init is retried, after a
	// backoff.
	TrustEnabled bool

	// NewClient constructs the production client. Defaults are wired by
	// the caller (cmd/agent); tests inject fakes or failures.
	NewClient func() (TrustClient, error)
}

// Pipeline wraps actions with the verification chain and owns the audit
// log, counters, and backend choice.
type Pipeline struct {
	cfg      Config
	audit    *AuditLog
	counters *Counters
	alerts   *alerts.Store

	mu        sync.Mutex
	client    TrustClient
	clientErr error
	retryAt   time.Time
}

// NewPipeline wires the pipeline to its stores.
func NewPipeline(cfg Config, audit *AuditLog, counters *Counters, alertStore *alerts.Store) *Pipeline {
	return &Pipeline{cfg: cfg, audit: audit, counters: counters, alerts: alertStore}
}

// Audit exposes the audit log for read-side collaborators.
func (p *Pipeline) Audit() *AuditLog { return p.audit }

// Counters exposes the verification tallies.
func (p *Pipeline) Counters() *Counters { return p.counters }

// trustClient returns the sticky production client, or the reason the
// simulation backend is in effect.
func (p *Pipeline) trustClient() (TrustClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.TrustEnabled || p.cfg.NewClient == nil {
		return nil, errNotConfigured
	}
	if p.client != nil {
		return p.client, nil
	}
	if p.clientErr != nil && time.Now().Before(p.retryAt) {
		return nil, p.clientErr
	}

	client, err := p.cfg.NewClient()
	if err != nil {
		p.clientErr = err
		p.retryAt = time.Now().Add(clientRetryBackoff)
		log.Printf("Trust client init failed: %v", err)
		return nil, err
	}
	p.client = client
	p.clientErr = nil
	log.Println("Trust service client initialized")
	return client, nil
}

// VerifyAndExecute wraps a healing action with intent verification.
// The execute closure runs exactly once in every path — success,
// verification error, or simulation. Verification failures never suppress
// remediation (fail-open execution, fail-closed audit).
func (p *Pipeline) VerifyAndExecute(actionName, description string, params map[string]interface{}, execute func() interface{}) (interface{}, *Record) {
	timer := prometheus.NewTimer(verificationDuration.WithLabelValues(actionName))
	defer timer.ObserveDuration()

	plan := Plan{
		Goal: "Self-heal: " + description,
		Steps: []PlanStep{
			{Action: actionName, Target: serviceName, Params: params},
		},
	}

	rec := &Record{
		ID:          uuid.New().String(),
		Event:       "intent_verification",
		Action:      actionName,
		Description: description,
		Mode:        ModeUnknown,
		Status:      StatusPending,
		Timestamp:   time.Now().Format("2006-01-02 15:04:05"),
	}

	var result interface{}
	if client, err := p.trustClient(); err == nil {
		result = p.runProduction(client, plan, rec, actionName, description, params, execute)
	} else {
		result = p.runSimulation(plan, rec, actionName, execute)
	}

	p.audit.Append(*rec)
	return result, rec
}

func (p *Pipeline) runProduction(client TrustClient, plan Plan, rec *Record, actionName, description string, params map[string]interface{}, execute func() interface{}) interface{} {
	rec.Mode = ModeProduction
	ctx := context.Background()

	capture, err := client.CapturePlan(ctx, engineName, "Auto-heal action: "+description, plan)
	if err != nil {
		return p.failOpen(rec, StepCapturePlan, actionName, err, execute)
	}
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:   StepCapturePlan,
		Status: StepOK,
		Detail: fmt.Sprintf("Plan captured with %d step(s)", len(plan.Steps)),
	})
	log.Printf("[AUDIT] plan_captured | action=%s | steps=%d", actionName, len(plan.Steps))

	token, err := client.IntentToken(ctx, capture.CaptureID, simTokenValidity)
	if err != nil {
		return p.failOpen(rec, StepGetIntentToken, actionName, err, execute)
	}
	rec.PlanHash = token.PlanHash
	rec.TokenID = token.TokenID
	rec.SignaturePrefix = prefix(token.Signature, 32)
	rec.MerkleRoot = prefix(token.MerkleRoot, 16)
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:      StepGetIntentToken,
		Status:    StepOK,
		Detail:    "Token issued: " + token.TokenID,
		PlanHash:  prefix(token.PlanHash, 16),
		ExpiresIn: fmt.Sprintf("%.1fs", token.TimeUntilExpiry().Seconds()),
	})
	log.Printf("[AUDIT] token_generated | action=%s | token=%s", actionName, token.TokenID)

	result := execute()
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:   StepExecuteAction,
		Status: StepOK,
		Detail: fmt.Sprintf("Action %q executed", actionName),
	})
	log.Printf("[AUDIT] action_executed | action=%s", actionName)

	// The receipt submission is best effort: a proxy outage downgrades the
	// step to skipped, not the whole record to error.
	invokeParams := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		invokeParams[k] = v
	}
	invokeParams["_result"] = "executed_locally"
	if res, invokeErr := client.Invoke(ctx, serviceName, actionName, token, invokeParams); invokeErr != nil {
		rec.Steps = append(rec.Steps, VerifyStep{
			Step:   StepInvokeVerify,
			Status: StepSkipped,
			Detail: "Proxy invoke skipped: " + prefix(invokeErr.Error(), 80),
		})
		log.Printf("[AUDIT] action_verified | action=%s | proxy=skipped", actionName)
	} else {
		rec.Steps = append(rec.Steps, VerifyStep{
			Step:     StepInvokeVerify,
			Status:   StepOK,
			Detail:   "Proxy verification: " + res.Status,
			Verified: boolPtr(res.Verified),
		})
		log.Printf("[AUDIT] action_verified | action=%s | proxy=ok", actionName)
	}

	rec.Status = StatusVerified
	p.counters.IncVerified(ModeProduction)
	return result
}

// failOpen records a verification-backend failure and still executes the
// action: a degraded network must not stay unrepaired because the audit
// plumbing is down. The failure is counted and preserved on the record.
func (p *Pipeline) failOpen(rec *Record, failedStep, actionName string, cause error, execute func() interface{}) interface{} {
	rec.Status = StatusError
	rec.Error = cause.Error()
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:   failedStep,
		Status: StepError,
		Detail: prefix(cause.Error(), 120),
	})
	p.counters.IncErrors(ModeProduction)
	log.Printf("[AUDIT] verification_failure | action=%s | error=%v", actionName, cause)

	result := execute()
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:   StepExecuteAction,
		Status: StepOK,
		Detail: fmt.Sprintf("Action %q executed (verification bypass)", actionName),
	})
	log.Printf("[AUDIT] fallback_execution | action=%s", actionName)
	return result
}

func (p *Pipeline) runSimulation(plan Plan, rec *Record, actionName string, execute func() interface{}) interface{} {
	rec.Mode = ModeSimulation

	planHash := PlanHash(plan)
	merkleRoot := MerkleRoot(plan)
	rec.PlanHash = planHash
	rec.MerkleRoot = prefix(merkleRoot, 16)
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:     StepCapturePlan,
		Status:   StepOK,
		Detail:   "Plan captured (simulated provenance hash)",
		PlanHash: prefix(planHash, 16),
	})
	log.Printf("[AUDIT] plan_captured | action=%s | mode=simulation | hash=%s", actionName, prefix(planHash, 16))

	token := p.simulateToken(plan)
	rec.TokenID = token.TokenID
	rec.SignaturePrefix = prefix(token.Signature, 32)
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:      StepGetIntentToken,
		Status:    StepOK,
		Detail:    "Simulated token issued: " + token.TokenID,
		PlanHash:  prefix(planHash, 16),
		ExpiresIn: fmt.Sprintf("%.1fs", simTokenValidity.Seconds()),
	})
	log.Printf("[AUDIT] token_generated | action=%s | mode=simulation | token=%s", actionName, token.TokenID)

	result := execute()
	rec.Steps = append(rec.Steps, VerifyStep{
		Step:   StepExecuteAction,
		Status: StepOK,
		Detail: fmt.Sprintf("Action %q executed", actionName),
	})
	log.Printf("[AUDIT] action_executed | action=%s | mode=simulation", actionName)

	rec.Steps = append(rec.Steps, VerifyStep{
		Step:     StepInvokeVerify,
		Status:   StepOK,
		Detail:   "Merkle proof verified (local simulation)",
		Verified: boolPtr(true),
	})
	log.Printf("[AUDIT] action_verified | action=%s | mode=simulation | merkle=ok", actionName)

	// Simulation mode cannot produce a negative verification for a
	// non-blocked call: it makes the provenance protocol observable
	// without a live trust service, nothing more.
	rec.Status = StatusVerified
	p.counters.IncVerified(ModeSimulation)
	return result
}

// LogBlockedAction records an action refused for lack of a prior plan and
// token. The action is never executed; this is the fail-closed contrapositive
// of the fail-open chain above.
func (p *Pipeline) LogBlockedAction(actionName, reason string) *Record {
	p.counters.IncBlocked()

	rec := &Record{
		ID:          uuid.New().String(),
		Event:       "action_blocked",
		Action:      actionName,
		Description: "BLOCKED: " + reason,
		Mode:        ModeEnforcement,
		Status:      StatusBlocked,
		Error:       reason,
		Timestamp:   time.Now().Format("2006-01-02 15:04:05"),
	}
	p.audit.Append(*rec)
	log.Printf("[AUDIT] action_blocked | action=%s | reason=%s", actionName, reason)

	if p.alerts != nil {
		p.alerts.Push(alerts.LevelSecurityBlock, "Action Blocked",
			fmt.Sprintf("Attempted %q without intent verification. Action denied.", actionName),
			"security_block")
	}
	return rec
}

// TrustStatus summarizes the verification subsystem for /health and the
// dashboard.
type TrustStatus struct {
	Enabled            bool   `json:"enabled"`
	Mode               Mode   `json:"mode"`
	UserID             string `json:"user_id"`
	AgentID            string `json:"agent_id"`
	Error              string `json:"error,omitempty"`
	TotalVerifications int    `json:"total_verifications"`
	TotalBlocked       int    `json:"total_blocked"`
	TotalErrors        int    `json:"total_errors"`
}

// Status reports the active backend and counter tallies.
func (p *Pipeline) Status() TrustStatus {
	counters := p.counters.Snapshot()
	status := TrustStatus{
		Enabled:            p.cfg.TrustEnabled,
		Mode:               ModeSimulation,
		UserID:             p.cfg.UserID,
		AgentID:            p.cfg.AgentID,
		TotalVerifications: counters.Verified,
		TotalBlocked:       counters.Blocked,
		TotalErrors:        counters.Errors,
	}
	if _, err := p.trustClient(); err == nil {
		status.Mode = ModeProduction
	} else if !errors.Is(err, errNotConfigured) {
		status.Error = err.Error()
	}
	return status
}
