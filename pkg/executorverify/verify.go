// Package executorverify is the library an Executor imports to authenticate
// a solace-gate execution receipt before performing a side effect. Third
// parties may also reimplement this verbatim against the wire contract
// described in the specification's Executor Verifier section — the package
// exists to make that unnecessary.
package executorverify

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/solace-labs/solace-gate/pkg/canon"
	"github.com/solace-labs/solace-gate/pkg/receipt"
)

// Reason codes specific to the Executor-side checks; receipt.Verify's
// reason codes (missing_receipt_public_key, receipt_expired, …) pass
// through unchanged when that step fails.
const (
	ReasonMissingOrInvalidHeader = "missing_or_invalid_receipt_header"
	ReasonServiceMismatch        = "receipt_service_mismatch"
	ReasonExecuteHashMismatch    = "execute_hash_mismatch"
)

// Result is the outcome of VerifyRequest.
type Result struct {
	OK          bool
	Reason      string
	Receipt     *receipt.Receipt
	ExecuteHash string
}

// Options configures VerifyRequest.
type Options struct {
	// ReceiptHeaderValue is the raw value of the x-solace-receipt header:
	// base64(JSON(receipt)).
	ReceiptHeaderValue string
	// ReceiptPublicKey is the PEP's Ed25519 public key, as distributed out
	// of band (e.g. fetched once from GET /v1/receipt-public-key).
	ReceiptPublicKey ed25519.PublicKey
	// ExpectedServiceName is this Executor's own configured service name,
	// matched against receipt.service.
	ExpectedServiceName string
	// ReceivedExecute is the execute object this Executor actually received
	// in the forwarded request body.
	ReceivedExecute any
	// Now defaults to the wall clock; SkewSeconds defaults to 10 (see
	// receipt.VerifyOptions).
	Now         time.Time
	SkewSeconds int
}

// VerifyRequest runs the five-step Executor Verifier contract:
//  1. decode the receipt header
//  2. match receipt.service against the Executor's own name
//  3. delegate to receipt.Verify for schema/TTL/signature checks
//  4. recompute the execute hash and bind it to the receipt
//  5. (left to the caller) enforce idempotency on ReceiptID/ExecuteHash
func VerifyRequest(opts Options) Result {
	r, err := decodeHeader(opts.ReceiptHeaderValue)
	if err != nil {
		return Result{Reason: ReasonMissingOrInvalidHeader}
	}

	if r.Service != opts.ExpectedServiceName {
		return Result{Reason: ReasonServiceMismatch, Receipt: r}
	}

	vr := receipt.Verify(r, receipt.VerifyOptions{
		PublicKey:   opts.ReceiptPublicKey,
		Now:         opts.Now,
		SkewSeconds: opts.SkewSeconds,
	})
	if !vr.OK {
		return Result{Reason: vr.Reason, Receipt: r}
	}

	executeHash, err := canon.ComputeExecuteHash(opts.ReceivedExecute)
	if err != nil {
		return Result{Reason: ReasonMissingOrInvalidHeader, Receipt: r}
	}
	if executeHash != r.ExecuteHash {
		return Result{Reason: ReasonExecuteHashMismatch, Receipt: r, ExecuteHash: executeHash}
	}

	return Result{OK: true, Receipt: r, ExecuteHash: executeHash}
}

func decodeHeader(v string) (*receipt.Receipt, error) {
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, err
	}
	var r receipt.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeHeader is the inverse of the decoding VerifyRequest performs —
// exposed so Forwarder implementations and tests can build a conforming
// x-solace-receipt header value without duplicating the base64(JSON(...))
// convention.
func EncodeHeader(r *receipt.Receipt) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
