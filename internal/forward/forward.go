// Package forward implements the Forwarder component (C5): delivering the
// permitted request to its target Executor with the minted receipt
// attached, and the acceptance object deliberately omitted.
package forward

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solace-labs/solace-gate/internal/config"
	"github.com/solace-labs/solace-gate/internal/gateerr"
	"github.com/solace-labs/solace-gate/pkg/executorverify"
	"github.com/solace-labs/solace-gate/pkg/receipt"
)

// Result is what the Forwarder returns on a completed HTTP round trip. It
// does not itself classify failure vs success at the HTTP level — status is
// surfaced as-is, and it is the Gate Orchestrator's job to decide what that
// means for the client.
type Result struct {
	Status int
	Body   any
}

// Forwarder posts {intent, execute} plus the receipt header to a resolved
// target.
type Forwarder struct {
	HTTP *http.Client
}

// New builds a Forwarder with the given per-call timeout. A zero timeout
// falls back to the package default of 8 seconds, matching the
// specification's "default equal to Core timeout" guidance when the caller
// has no more specific value on hand.
func New(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Forwarder{HTTP: &http.Client{Timeout: timeout}}
}

// body is the explicit two-field forward payload. Constructing it as a
// named struct — rather than stripping a field from the inbound envelope —
// is what makes "acceptance never reaches the Executor" a property of the
// type system instead of a runtime precaution.
type body struct {
	Intent  any `json:"intent"`
	Execute any `json:"execute"`
}

// Forward delivers intent+execute to target with the receipt attached via
// the x-solace-receipt header. It returns a *gateerr.ForwardingError only
// when target itself is the zero value (defensive — the Router should have
// already rejected an unresolvable service); any network-level failure is
// returned as a plain wrapped error, which the Gate Orchestrator converts to
// a forwarding_failed DENY.
func (f *Forwarder) Forward(ctx context.Context, target config.Target, intent, execute any, r *receipt.Receipt) (*Result, error) {
	if target.URL == "" {
		return nil, &gateerr.ForwardingError{Service: r.Service}
	}

	payload, err := json.Marshal(body{Intent: intent, Execute: execute})
	if err != nil {
		return nil, fmt.Errorf("forward: marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("forward: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-solace-trace", newTraceID())

	receiptHeader, err := executorverify.EncodeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("forward: encode receipt header: %w", err)
	}
	req.Header.Set("x-solace-receipt", receiptHeader)

	if target.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+target.BearerToken)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward: request to %s: %w", target.URL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("forward: read response from %s: %w", target.URL, err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		parsed = map[string]any{"_raw": string(raw)}
	}

	return &Result{Status: resp.StatusCode, Body: parsed}, nil
}

func newTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
