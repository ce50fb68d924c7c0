// Package receipt builds, signs, and verifies solace-gate execution
// receipts: the short-lived Ed25519-signed artifact that cryptographically
// binds a Core PERMIT decision to one specific execute payload and target
// service. Both the PEP (which mints receipts) and Executors (which verify
// them) import this package, or reimplement it verbatim against the wire
// contract documented here.
package receipt

// SchemaVersion is the fixed `v` field of every receipt minted by this
// package. Bumping it is a breaking wire-format change.
const SchemaVersion = 1

// CoreDecisionPermit is the only coreDecision value a minted receipt ever
// carries — receipts exist only for permits.
const CoreDecisionPermit = "PERMIT"

// Receipt is the signed artifact described in §3 of the specification.
// Field order here is for readability only; canonicalization for signing
// always derives from the JSON tags via pkg/canon, never struct order.
type Receipt struct {
	V              int    `json:"v"`
	ReceiptID      string `json:"receiptId"`
	AdapterID      string `json:"adapterId"`
	Service        string `json:"service"`
	ActorID        string `json:"actorId"`
	Intent         string `json:"intent"`
	IntentHash     string `json:"intentHash"`
	ExecuteHash    string `json:"executeHash"`
	CoreDecision   string `json:"coreDecision"`
	AuthorityKeyID string `json:"authorityKeyId,omitempty"`
	CoreIssuedAt   string `json:"coreIssuedAt,omitempty"`
	CoreExpiresAt  string `json:"coreExpiresAt,omitempty"`
	CoreTime       string `json:"coreTime,omitempty"`
	IssuedAt       string `json:"issuedAt"`
	ExpiresAt      string `json:"expiresAt"`
	Signature      string `json:"signature,omitempty"`
}

// signingView is the subset of Receipt fields that are signed: every field
// except Signature itself. Keeping this as a distinct (tag-identical) type
// means canon.Canonical never has to be told to "skip a field" — the
// signing payload simply doesn't have one.
type signingView struct {
	V              int    `json:"v"`
	ReceiptID      string `json:"receiptId"`
	AdapterID      string `json:"adapterId"`
	Service        string `json:"service"`
	ActorID        string `json:"actorId"`
	Intent         string `json:"intent"`
	IntentHash     string `json:"intentHash"`
	ExecuteHash    string `json:"executeHash"`
	CoreDecision   string `json:"coreDecision"`
	AuthorityKeyID string `json:"authorityKeyId,omitempty"`
	CoreIssuedAt   string `json:"coreIssuedAt,omitempty"`
	CoreExpiresAt  string `json:"coreExpiresAt,omitempty"`
	CoreTime       string `json:"coreTime,omitempty"`
	IssuedAt       string `json:"issuedAt"`
	ExpiresAt      string `json:"expiresAt"`
}

func (r *Receipt) signingView() signingView {
	return signingView{
		V:              r.V,
		ReceiptID:      r.ReceiptID,
		AdapterID:      r.AdapterID,
		Service:        r.Service,
		ActorID:        r.ActorID,
		Intent:         r.Intent,
		IntentHash:     r.IntentHash,
		ExecuteHash:    r.ExecuteHash,
		CoreDecision:   r.CoreDecision,
		AuthorityKeyID: r.AuthorityKeyID,
		CoreIssuedAt:   r.CoreIssuedAt,
		CoreExpiresAt:  r.CoreExpiresAt,
		CoreTime:       r.CoreTime,
		IssuedAt:       r.IssuedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}
