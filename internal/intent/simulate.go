package intent

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// emptyPlanSentinel is the Merkle leaf for a plan with no steps; an empty
// plan is legal and must hash to a stable root.
const emptyPlanSentinel = "empty"

// canonicalJSON renders v with sorted keys and no whitespace, so hashing is
// independent of struct field order.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	// encoding/json sorts map keys and emits no whitespace.
	return json.Marshal(generic)
}

func sha256hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PlanHash is the deterministic SHA-256 of the canonical-JSON plan.
func PlanHash(plan Plan) string {
	canonical, err := canonicalJSON(plan)
	if err != nil {
		// Plan is plain data; marshal cannot fail in practice.
		return sha256hex([]byte(fmt.Sprintf("%+v", plan)))
	}
	return sha256hex(canonical)
}

// MerkleRoot builds a binary Merkle tree over per-step canonical-JSON leaf
// hashes: pairs combine pairwise (an odd leaf is duplicated against itself)
// until one root remains. An empty step list hashes to a fixed sentinel.
func MerkleRoot(plan Plan) string {
	var leaves []string
	for _, step := range plan.Steps {
		canonical, err := canonicalJSON(step)
		if err != nil {
			canonical = []byte(fmt.Sprintf("%+v", step))
		}
		leaves = append(leaves, sha256hex(canonical))
	}
	if len(leaves) == 0 {
		return sha256hex([]byte(emptyPlanSentinel))
	}

	for len(leaves) > 1 {
		var next []string
		for i := 0; i < len(leaves); i += 2 {
			left := leaves[i]
			right := left
			if i+1 < len(leaves) {
				right = leaves[i+1]
			}
			next = append(next, sha256hex([]byte(left+right)))
		}
		leaves = next
	}
	return leaves[0]
}

// simTokenValidity is the fixed validity window for simulated tokens.
const simTokenValidity = 60 * time.Second

// signToken derives the simulated token signature with HMAC-SHA256 over
// (plan_hash, merkle_root, issued_at), keyed by the configured secret.
func signToken(secret, planHash, merkleRoot string, issuedAt int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", planHash, merkleRoot, issuedAt)
	return hex.EncodeToString(mac.Sum(nil))
}

// compositeIdentity fingerprints the principal/agent pair.
func compositeIdentity(userID, agentID string) string {
	return sha256hex([]byte(userID + ":" + agentID))[:32]
}

// simulateToken synthesizes an intent token for local-simulation mode.
func (p *Pipeline) simulateToken(plan Plan) SimulatedToken {
	planHash := PlanHash(plan)
	merkleRoot := MerkleRoot(plan)
	now := time.Now()

	return SimulatedToken{
		Mode:              ModeSimulation,
		TokenID:           fmt.Sprintf("sim_%d", now.UnixMilli()),
		PlanHash:          planHash,
		MerkleRoot:        merkleRoot,
		Signature:         signToken(p.cfg.SigningSecret, planHash, merkleRoot, now.Unix()),
		IssuedAt:          now.Unix(),
		ExpiresAt:         now.Add(simTokenValidity).Unix(),
		CompositeIdentity: compositeIdentity(p.cfg.UserID, p.cfg.AgentID),
		Policy:            map[string]interface{}{"mode": "allow-all", "note": "local simulation"},
		Verified:          true,
	}
}
