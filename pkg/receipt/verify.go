package receipt

import (
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/solace-labs/solace-gate/pkg/canon"
)

// Reason codes for VerifyResult, checked in the order listed in §4.2 of the
// specification — the first failing predicate wins.
const (
	ReasonMissingPublicKey  = "missing_receipt_public_key"
	ReasonInvalidVersion    = "invalid_receipt_version"
	ReasonNotPermit         = "receipt_not_permit"
	ReasonMissingSignature  = "missing_receipt_signature"
	ReasonInvalidTimeFields = "invalid_receipt_time_fields"
	ReasonNotYetValid       = "receipt_not_yet_valid"
	ReasonExpired           = "receipt_expired"
	ReasonInvalidSignature  = "invalid_receipt_signature"
)

const defaultClockSkewSeconds = 10

// VerifyOptions configures Verify. PublicKey is required; Now and
// SkewSeconds default to the current wall clock and 10 seconds.
type VerifyOptions struct {
	PublicKey   ed25519.PublicKey
	Now         time.Time // zero value means time.Now()
	SkewSeconds int       // zero value means defaultClockSkewSeconds; negative disables the default
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	OK     bool
	Reason string
}

// Verify checks r against every predicate in §4.2, in order, returning the
// first failure encountered. A nil error return is not part of this API —
// every outcome, success or failure, is expressed in VerifyResult so
// callers never need to distinguish "rejected" from "couldn't check".
func Verify(r *Receipt, opts VerifyOptions) VerifyResult {
	if len(opts.PublicKey) != ed25519.PublicKeySize {
		return VerifyResult{Reason: ReasonMissingPublicKey}
	}
	if r.V != SchemaVersion {
		return VerifyResult{Reason: ReasonInvalidVersion}
	}
	if r.CoreDecision != CoreDecisionPermit {
		return VerifyResult{Reason: ReasonNotPermit}
	}
	if r.Signature == "" {
		return VerifyResult{Reason: ReasonMissingSignature}
	}

	issuedAt, err1 := time.Parse(time.RFC3339Nano, r.IssuedAt)
	expiresAt, err2 := time.Parse(time.RFC3339Nano, r.ExpiresAt)
	if err1 != nil || err2 != nil {
		return VerifyResult{Reason: ReasonInvalidTimeFields}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	skew := time.Duration(opts.SkewSeconds) * time.Second
	if opts.SkewSeconds == 0 {
		skew = defaultClockSkewSeconds * time.Second
	}

	if now.Add(skew).Before(issuedAt) {
		return VerifyResult{Reason: ReasonNotYetValid}
	}
	if now.Add(-skew).After(expiresAt) {
		return VerifyResult{Reason: ReasonExpired}
	}

	sig, err := decodeSignature(r.Signature)
	if err != nil {
		return VerifyResult{Reason: ReasonInvalidSignature}
	}
	payload, err := canon.Canonical(r.signingView())
	if err != nil {
		return VerifyResult{Reason: ReasonInvalidSignature}
	}
	if !ed25519.Verify(opts.PublicKey, payload, sig) {
		return VerifyResult{Reason: ReasonInvalidSignature}
	}

	return VerifyResult{OK: true}
}

func encodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

func decodeSignature(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
