// Package canon implements the deterministic canonicalization and hashing
// that every execution digest and receipt signature in solace-gate is built
// on. Two semantically-equal JSON values must always canonicalize to
// identical bytes, regardless of key order, because the PEP and any
// Executor may canonicalize the same payload independently and must agree
// bit-for-bit.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 (JSON Canonicalization Scheme) byte
// representation of v: object members sorted by UTF-16 code unit, no
// insignificant whitespace, numbers formatted per the ECMAScript Number
// ToString algorithm. v is first marshaled with the standard library (so
// struct tags and custom MarshalJSON implementations are respected), then
// transformed into canonical form.
func Canonical(v any) ([]byte, error) {
	raw, err := marshalNoEscape(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: jcs transform: %w", err)
	}
	return out, nil
}

// marshalNoEscape marshals v without HTML-escaping '<', '>' and '&', which
// would otherwise corrupt values containing those characters before JCS
// ever sees them.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so jcs.Transform
	// sees exactly one JSON value.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hash returns the lowercase hex SHA-256 digest of the canonical form of v.
func Hash(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// ComputeIntentHash hashes the canonical form of an envelope's intent
// sub-mapping.
func ComputeIntentHash(intent any) (string, error) {
	return Hash(intent)
}

// ComputeExecuteHash hashes the canonical form of an envelope's execute
// sub-mapping.
func ComputeExecuteHash(execute any) (string, error) {
	return Hash(execute)
}

// ComputeAcceptanceHash hashes the canonical form of an envelope's
// acceptance sub-mapping. Exposed only for test-time assertions; the PEP
// itself never forwards or persists acceptance hashes.
func ComputeAcceptanceHash(acceptance any) (string, error) {
	return Hash(acceptance)
}
