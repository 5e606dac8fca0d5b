package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/pkg/trust"
)

// fakeTrustClient scripts the production backend for tests.
type fakeTrustClient struct {
	captureErr error
	tokenErr   error
	invokeErr  error
	invoked    int
}

func (f *fakeTrustClient) CapturePlan(ctx context.Context, engine, prompt string, plan interface{}) (*trust.PlanCapture, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return &trust.PlanCapture{CaptureID: "cap_1", PlanHash: "prodhash"}, nil
}

func (f *fakeTrustClient) IntentToken(ctx context.Context, captureID string, validity time.Duration) (*trust.Token, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &trust.Token{
		TokenID:    "tok_prod_1",
		PlanHash:   "prodhash",
		MerkleRoot: "prodroot",
		Signature:  "prodsig",
		IssuedAt:   time.Now().Unix(),
		ExpiresAt:  time.Now().Add(validity).Unix(),
	}, nil
}

func (f *fakeTrustClient) Invoke(ctx context.Context, service, action string, token *trust.Token, params map[string]interface{}) (*trust.InvokeResult, error) {
	f.invoked++
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return &trust.InvokeResult{Status: "ok", Verified: true}, nil
}

func simPipeline() *Pipeline {
	return NewPipeline(Config{UserID: "u", AgentID: "a", SigningSecret: "s"},
		NewAuditLog(), NewCounters(), nil)
}

func prodPipeline(client TrustClient, initErr error) *Pipeline {
	return NewPipeline(Config{
		UserID: "u", AgentID: "a", SigningSecret: "s",
		TrustEnabled: true,
		NewClient: func() (TrustClient, error) {
			if initErr != nil {
				return nil, initErr
			}
			return client, nil
		},
	}, NewAuditLog(), NewCounters(), nil)
}

func TestVerifyAndExecute_SimulationPath(t *testing.T) {
	p := simPipeline()
	calls := 0

	result, rec := p.VerifyAndExecute("flush_dns", "Flush the DNS cache",
		map[string]interface{}{"state": "wifi_connected"},
		func() interface{} { calls++; return map[string]interface{}{"ok": true} })

	assert.Equal(t, 1, calls, "execute runs exactly once")
	assert.Equal(t, StatusVerified, rec.Status)
	assert.Equal(t, ModeSimulation, rec.Mode)
	assert.NotEmpty(t, rec.PlanHash)
	assert.Contains(t, rec.TokenID, "sim_")

	wantSteps := []string{StepCapturePlan, StepGetIntentToken, StepExecuteAction, StepInvokeVerify}
	require.Len(t, rec.Steps, len(wantSteps))
	for i, name := range wantSteps {
		assert.Equal(t, name, rec.Steps[i].Step)
		assert.Equal(t, StepOK, rec.Steps[i].Status)
	}

	assert.Equal(t, map[string]interface{}{"ok": true}, result)
	assert.Equal(t, CounterSnapshot{Verified: 1}, p.counters.Snapshot())
	assert.Len(t, p.audit.Snapshot(), 1)
}

func TestVerifyAndExecute_ProductionPath(t *testing.T) {
	client := &fakeTrustClient{}
	p := prodPipeline(client, nil)
	calls := 0

	_, rec := p.VerifyAndExecute("enable_wifi", "Re-enable adapter", nil,
		func() interface{} { calls++; return "done" })

	assert.Equal(t, 1, calls)
	assert.Equal(t, ModeProduction, rec.Mode)
	assert.Equal(t, StatusVerified, rec.Status)
	assert.Equal(t, "tok_prod_1", rec.TokenID)
	assert.Equal(t, "prodhash", rec.PlanHash)
	assert.Equal(t, 1, client.invoked)
	require.Len(t, rec.Steps, 4)
	assert.Equal(t, StepInvokeVerify, rec.Steps[3].Step)
	require.NotNil(t, rec.Steps[3].Verified)
	assert.True(t, *rec.Steps[3].Verified)
	assert.Equal(t, CounterSnapshot{Verified: 1}, p.counters.Snapshot())
}

func TestVerifyAndExecute_ProductionTokenFailureIsFailOpen(t *testing.T) {
	client := &fakeTrustClient{tokenErr: errors.New("trust service unreachable")}
	p := prodPipeline(client, nil)
	calls := 0

	result, rec := p.VerifyAndExecute("enable_wifi", "Re-enable adapter", nil,
		func() interface{} { calls++; return "done anyway" })

	assert.Equal(t, 1, calls, "verification failure must not suppress remediation")
	assert.Equal(t, "done anyway", result)
	assert.Equal(t, StatusError, rec.Status)
	assert.Contains(t, rec.Error, "unreachable")
	assert.Equal(t, CounterSnapshot{Errors: 1}, p.counters.Snapshot())

	// capture_plan ok, get_intent_token error, execute_action ok
	require.Len(t, rec.Steps, 3)
	assert.Equal(t, StepGetIntentToken, rec.Steps[1].Step)
	assert.Equal(t, StepError, rec.Steps[1].Status)
	assert.Equal(t, StepExecuteAction, rec.Steps[2].Step)
}

func TestVerifyAndExecute_ProxyInvokeFailureIsSkippedNotError(t *testing.T) {
	client := &fakeTrustClient{invokeErr: errors.New("proxy 502")}
	p := prodPipeline(client, nil)

	_, rec := p.VerifyAndExecute("restart_network", "Restart stack", nil,
		func() interface{} { return nil })

	assert.Equal(t, StatusVerified, rec.Status)
	require.Len(t, rec.Steps, 4)
	assert.Equal(t, StepSkipped, rec.Steps[3].Status)
}

func TestVerifyAndExecute_ClientInitFailureFallsBackToSimulation(t *testing.T) {
	p := prodPipeline(nil, errors.New("dns failure"))
	calls := 0

	_, rec := p.VerifyAndExecute("flush_dns", "Flush", nil,
		func() interface{} { calls++; return nil })

	assert.Equal(t, 1, calls)
	assert.Equal(t, ModeSimulation, rec.Mode)
	assert.Equal(t, StatusVerified, rec.Status)
}

func TestTrustClient_InitFailureCachedUntilBackoff(t *testing.T) {
	attempts := 0
	p := NewPipeline(Config{
		TrustEnabled: true,
		NewClient: func() (TrustClient, error) {
			attempts++
			return nil, errors.New("transient")
		},
	}, NewAuditLog(), NewCounters(), nil)

	_, err := p.trustClient()
	require.Error(t, err)
	_, err = p.trustClient()
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "backoff window must suppress immediate retries")

	p.retryAt = time.Now().Add(-time.Second)
	_, _ = p.trustClient()
	assert.Equal(t, 2, attempts, "init retried after the backoff expires")
}

func TestLogBlockedAction(t *testing.T) {
	alertStore := alerts.NewStore()
	p := NewPipeline(Config{}, NewAuditLog(), NewCounters(), alertStore)

	rec := p.LogBlockedAction("escalate_privileges", "no intent token provided")

	assert.Equal(t, StatusBlocked, rec.Status)
	assert.Equal(t, ModeEnforcement, rec.Mode)
	assert.Empty(t, rec.Steps)
	assert.Equal(t, "no intent token provided", rec.Error)
	assert.Equal(t, CounterSnapshot{Blocked: 1}, p.counters.Snapshot())

	all := alertStore.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, alerts.LevelSecurityBlock, all[0].Level)

	require.Len(t, p.audit.Snapshot(), 1)
	assert.Equal(t, "action_blocked", p.audit.Snapshot()[0].Event)
}

func TestAuditLog_CapEvictsOldest(t *testing.T) {
	audit := NewAuditLog()
	for i := 0; i < MaxAuditRecords+5; i++ {
		audit.Append(Record{ID: fmt.Sprintf("rec-%d", i), Event: "intent_verification"})
	}

	snapshot := audit.Snapshot()
	require.Len(t, snapshot, MaxAuditRecords)
	assert.Equal(t, fmt.Sprintf("rec-%d", MaxAuditRecords+4), snapshot[0].ID)
}

func TestCounters_ResetZeroes(t *testing.T) {
	c := NewCounters()
	c.IncVerified(ModeSimulation)
	c.IncBlocked()
	c.IncErrors(ModeProduction)
	assert.Equal(t, CounterSnapshot{Verified: 1, Blocked: 1, Errors: 1}, c.Snapshot())

	c.Reset()
	assert.Equal(t, CounterSnapshot{}, c.Snapshot())
}

func TestStatus_ModeFollowsBackend(t *testing.T) {
	assert.Equal(t, ModeSimulation, simPipeline().Status().Mode)

	p := prodPipeline(&fakeTrustClient{}, nil)
	assert.Equal(t, ModeProduction, p.Status().Mode)
}
