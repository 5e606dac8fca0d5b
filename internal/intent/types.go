// Package intent wraps every remediation action with a tamper-evident
// verification chain: plan capture, token issuance, execution, proof-chain
// audit. Two interchangeable backends exist — the production trust service
// and a deterministic local simulation — selected once per process by the
// presence of a trust credential.
package intent

// Mode identifies which backend produced a verification record.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeSimulation  Mode = "local_simulation"
	ModeEnforcement Mode = "security_enforcement"
	ModeUnknown     Mode = "unknown"
)

// Status is the terminal state of a verification record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusBlocked  Status = "blocked"
	StatusError    Status = "error"
)

// Step-status vocabulary for the per-step audit trail.
const (
	StepOK      = "ok"
	StepSkipped = "skipped"
	StepError   = "error"
)

// Fixed step names of the verification chain, in execution order.
const (
	StepCapturePlan    = "capture_plan"
	StepGetIntentToken = "get_intent_token"
	StepExecuteAction  = "execute_action"
	StepInvokeVerify   = "invoke_verify"
)

// PlanStep is one declared intended action.
type PlanStep struct {
	Action string                 `json:"action"`
	Target string                 `json:"target"`
	Params map[string]interface{} `json:"params"`
}

// Plan is an ordered declaration of intended remediation steps, hashed for
// provenance before execution. Step order is significant and included in
// both the plan hash and the Merkle root.
type Plan struct {
	Goal  string     `json:"goal"`
	Steps []PlanStep `json:"steps"`
}

// SimulatedToken mirrors the trust service's token structure so the
// provenance protocol stays observable without a live service. It is never
// a substitute for real attestation: "verified" in simulation mode asserts
// protocol shape, not third-party non-repudiation.
type SimulatedToken struct {
	Mode              Mode                   `json:"mode"`
	TokenID           string                 `json:"token_id"`
	PlanHash          string                 `json:"plan_hash"`
	MerkleRoot        string                 `json:"merkle_root"`
	Signature         string                 `json:"signature"`
	IssuedAt          int64                  `json:"issued_at"`
	ExpiresAt         int64                  `json:"expires_at"`
	CompositeIdentity string                 `json:"composite_identity"`
	Policy            map[string]interface{} `json:"policy"`
	Verified          bool                   `json:"verified"`
}

// VerifyStep is one entry in a record's ordered step log.
type VerifyStep struct {
	Step      string `json:"step"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	PlanHash  string `json:"plan_hash,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"`
	Verified  *bool  `json:"verified,omitempty"`
}

// Record is the immutable audit entry produced for every wrapped action
// (and for every blocked attempt). Steps are ordered exactly as executed.
type Record struct {
	ID              string       `json:"id"`
	Event           string       `json:"event"`
	Action          string       `json:"action"`
	Description     string       `json:"description"`
	Mode            Mode         `json:"mode"`
	Status          Status       `json:"status"`
	PlanHash        string       `json:"plan_hash"`
	TokenID         string       `json:"token_id"`
	SignaturePrefix string       `json:"signature_prefix"`
	MerkleRoot      string       `json:"merkle_root"`
	Steps           []VerifyStep `json:"steps"`
	Error           string       `json:"error,omitempty"`
	Timestamp       string       `json:"timestamp"`
}

func boolPtr(b bool) *bool { return &b }

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
