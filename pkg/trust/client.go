// Package trust is the HTTP client for the intent-verification trust
// service. The healing core talks to it through a narrow interface so the
// local-simulation backend can stand in when no credential is configured.
package trust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	UserID  string
	AgentID string

	// HTTPClient overrides the default client (tests, custom transports).
	HTTPClient *http.Client
}

// Client talks to the trust service.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a trust-service client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.armoriq.io"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}
}

// PlanCapture is the service's receipt for a declared plan.
type PlanCapture struct {
	CaptureID string `json:"capture_id"`
	PlanHash  string `json:"plan_hash"`
	StepCount int    `json:"step_count"`
}

// Token is a signed intent token issued against a captured plan.
type Token struct {
	TokenID    string `json:"token_id"`
	PlanHash   string `json:"plan_hash"`
	MerkleRoot string `json:"merkle_root"`
	Signature  string `json:"signature"`
	IssuedAt   int64  `json:"issued_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

// TimeUntilExpiry returns the remaining token validity.
func (t *Token) TimeUntilExpiry() time.Duration {
	return time.Until(time.Unix(t.ExpiresAt, 0))
}

// InvokeResult is the proxy-verification receipt for an executed action.
type InvokeResult struct {
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
}

// CapturePlan declares what the agent intends to do before acting.
func (c *Client) CapturePlan(ctx context.Context, engine, prompt string, plan interface{}) (*PlanCapture, error) {
	var out PlanCapture
	err := c.post(ctx, "/v1/plans", map[string]interface{}{
		"user_id":  c.cfg.UserID,
		"agent_id": c.cfg.AgentID,
		"llm":      engine,
		"prompt":   prompt,
		"plan":     plan,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("capture plan: %w", err)
	}
	return &out, nil
}

// IntentToken requests a signed token for a captured plan.
func (c *Client) IntentToken(ctx context.Context, captureID string, validity time.Duration) (*Token, error) {
	var out Token
	err := c.post(ctx, "/v1/tokens", map[string]interface{}{
		"capture_id":       captureID,
		"validity_seconds": validity.Seconds(),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("intent token: %w", err)
	}
	return &out, nil
}

// Invoke submits an execution receipt for proxy verification.
func (c *Client) Invoke(ctx context.Context, service, action string, token *Token, params map[string]interface{}) (*InvokeResult, error) {
	var out InvokeResult
	err := c.post(ctx, "/v1/invoke", map[string]interface{}{
		"service":  service,
		"action":   action,
		"token_id": token.TokenID,
		"params":   params,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("invoke: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trust service %s: %s", resp.Status, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
