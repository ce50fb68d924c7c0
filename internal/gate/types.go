// Package gate implements the Gate Orchestrator (C6): the state machine
// that validates an envelope, routes it, consults Core, mints a receipt on
// PERMIT, and forwards to the resolved Executor — in that order, with no
// step skipped, reordered, or parallelized, per §4.6 of the specification.
package gate

import "github.com/solace-labs/solace-gate/pkg/receipt"

// Envelope is the {intent, execute, acceptance} triple described in §3.
// Fields are kept as loosely-typed maps because the PEP never interprets
// their contents beyond the handful of required keys the envelope validity
// predicate checks — everything else is opaque payload owned by Core and
// the Executor.
type Envelope struct {
	Intent     map[string]any `json:"intent"`
	Execute    map[string]any `json:"execute"`
	Acceptance map[string]any `json:"acceptance"`
}

// Decision is the closed PERMIT/DENY/ESCALATE sum described in §9 of the
// specification ("implement as a discriminated enum rather than a string
// field wherever the language supports it"). The wire representation is
// still the plain string the client and Core exchange.
type Decision string

const (
	DecisionPermit   Decision = "PERMIT"
	DecisionDeny     Decision = "DENY"
	DecisionEscalate Decision = "ESCALATE"
)

// Result is the GateResult returned to the client, per §6.1.
type Result struct {
	Decision       Decision         `json:"decision"`
	Reason         string           `json:"reason,omitempty"`
	Receipt        *receipt.Receipt `json:"receipt,omitempty"`
	ForwardStatus  int              `json:"forwardStatus,omitempty"`
	ForwardBody    any              `json:"forwardBody,omitempty"`
	ExecuteHash    string           `json:"executeHash,omitempty"`
	IntentHash     string           `json:"intentHash,omitempty"`
	AuthorityKeyID string           `json:"authorityKeyId,omitempty"`
}

// ReasonAdapterInternalError is the one DENY reason that maps to HTTP 500
// instead of 403 — every other DENY/ESCALATE reason is a normal policy
// outcome, not a server fault.
const ReasonAdapterInternalError = "adapter_internal_error"

// HTTPStatus implements the status mapping of §6.1 for a terminal Result
// (method_not_allowed/invalid_json/missing_request_body/401 are handled one
// layer up in internal/api, before a Result even exists).
func (r Result) HTTPStatus() int {
	switch r.Decision {
	case DecisionPermit:
		return 200
	case DecisionDeny, DecisionEscalate:
		if r.Reason == ReasonAdapterInternalError {
			return 500
		}
		return 403
	default:
		return 500
	}
}

func deny(reason string) Result {
	return Result{Decision: DecisionDeny, Reason: reason}
}
