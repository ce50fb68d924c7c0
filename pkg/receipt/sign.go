package receipt

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solace-labs/solace-gate/pkg/canon"
)

// ConfigError is returned by Sign when required identity or key material is
// missing. It is the receipt package's half of the three-kind error
// taxonomy (ConfigError / FailClosedError / ForwardingError) described in
// the specification; callers that need the other two kinds define them
// where they apply (internal/gateerr).
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("receipt: missing required field %q", e.Field)
}

// SignInput carries everything needed to mint a receipt for one permitted
// envelope.
type SignInput struct {
	AdapterID      string
	Service        string
	ActorID        string
	Intent         string
	IntentHash     string
	ExecuteHash    string
	AuthorityKeyID string
	CoreIssuedAt   string
	CoreExpiresAt  string
	CoreTime       string
	PrivateKey     ed25519.PrivateKey
	TTLSeconds     int
	Now            time.Time // zero value means time.Now()
}

// Sign mints and signs a Receipt from in. issuedAt/expiresAt are derived
// from in.Now (or the wall clock if unset) and in.TTLSeconds.
func Sign(in SignInput) (*Receipt, error) {
	if in.AdapterID == "" {
		return nil, &ConfigError{Field: "adapterId"}
	}
	if in.Service == "" {
		return nil, &ConfigError{Field: "service"}
	}
	if len(in.PrivateKey) != ed25519.PrivateKeySize {
		return nil, &ConfigError{Field: "receiptPrivateKeyPem"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	ttl := in.TTLSeconds
	if ttl <= 0 {
		ttl = 30
	}

	issuedAt := now.UTC()
	expiresAt := issuedAt.Add(time.Duration(ttl) * time.Second)

	r := &Receipt{
		V:              SchemaVersion,
		ReceiptID:      uuid.New().String(),
		AdapterID:      in.AdapterID,
		Service:        in.Service,
		ActorID:        in.ActorID,
		Intent:         in.Intent,
		IntentHash:     in.IntentHash,
		ExecuteHash:    in.ExecuteHash,
		CoreDecision:   CoreDecisionPermit,
		AuthorityKeyID: in.AuthorityKeyID,
		CoreIssuedAt:   in.CoreIssuedAt,
		CoreExpiresAt:  in.CoreExpiresAt,
		CoreTime:       in.CoreTime,
		IssuedAt:       issuedAt.Format(time.RFC3339Nano),
		ExpiresAt:      expiresAt.Format(time.RFC3339Nano),
	}

	payload, err := canon.Canonical(r.signingView())
	if err != nil {
		return nil, fmt.Errorf("receipt: canonicalize for signing: %w", err)
	}

	sig := ed25519.Sign(in.PrivateKey, payload)
	r.Signature = encodeSignature(sig)

	return r, nil
}
