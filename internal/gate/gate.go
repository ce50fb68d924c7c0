package gate

import (
	"context"

	"github.com/solace-labs/solace-gate/internal/config"
	"github.com/solace-labs/solace-gate/internal/coreclient"
	"github.com/solace-labs/solace-gate/internal/forward"
	"github.com/solace-labs/solace-gate/internal/router"
	"github.com/solace-labs/solace-gate/pkg/canon"
	"github.com/solace-labs/solace-gate/pkg/receipt"
)

// Reason codes owned by the Gate Orchestrator itself — the ones from
// router/coreclient/receipt/forward are reused verbatim as DENY reasons.
const (
	ReasonInvalidGateRequest   = "invalid_or_missing_gate_request"
	ReasonReceiptMintFailed    = "receipt_mint_failed"
	ReasonForwardingFailed     = "forwarding_failed"
	ReasonForwardedAfterPermit = "forwarded_after_core_permit"
)

// Orchestrator wires C4 (router) → C3 (core) → C2 (receipt) → C5 (forward)
// behind the single Run entrypoint, in the strict order mandated by §4.6:
// validate → route → core → mint → forward, with no step skipped,
// reordered, or run in parallel.
type Orchestrator struct {
	Config *config.Config
	Core   *coreclient.Client
	Fwd    *forward.Forwarder
}

// New builds an Orchestrator from already-constructed collaborators. The
// caller (cmd/solace-gate) is responsible for wiring config, the Core
// client, and the Forwarder with the shared configuration's timeouts.
func New(cfg *config.Config, core *coreclient.Client, fwd *forward.Forwarder) *Orchestrator {
	return &Orchestrator{Config: cfg, Core: core, Fwd: fwd}
}

// Run executes the state machine of §4.6 for one envelope and returns a
// terminal Result. It never panics on malformed input — every failure mode
// described by the specification, including ones defensive code paths
// should never reach in practice, collapses to a DENY Result rather than an
// error return, matching the fail-closed contract the rest of the pipeline
// was built around.
func (o *Orchestrator) Run(ctx context.Context, env Envelope) Result {
	if !envelopeValid(env) {
		return deny(ReasonInvalidGateRequest)
	}

	action, _ := env.Execute["action"].(string)
	route, err := router.Resolve(action, o.Config.Targets)
	if err != nil {
		return deny(err.(*router.RouteError).Reason)
	}

	localIntentHash, err := canon.ComputeIntentHash(env.Intent)
	if err != nil {
		return deny(ReasonInvalidGateRequest)
	}
	localExecuteHash, err := canon.ComputeExecuteHash(env.Execute)
	if err != nil {
		return deny(ReasonInvalidGateRequest)
	}

	coreEnvelope := map[string]any{
		"intent":     env.Intent,
		"execute":    env.Execute,
		"acceptance": env.Acceptance,
	}
	coreDecision := o.Core.Execute(ctx, coreEnvelope)

	switch coreDecision.Decision {
	case coreclient.DecisionDeny, coreclient.DecisionEscalate:
		d := DecisionDeny
		if coreDecision.Decision == coreclient.DecisionEscalate {
			d = DecisionEscalate
		}
		return Result{Decision: d, Reason: coreDecision.Reason}
	case coreclient.DecisionPermit:
		// fall through to MINT
	default:
		// The Core Client never returns an empty/unknown decision string for
		// a successful parse — this default exists only so an unexpected
		// third value fails closed rather than falling into forwarding.
		return deny(coreDecision.Reason)
	}

	// Hash selection rule (§4.6): prefer Core's digests when supplied, else
	// the locally computed ones.
	intentHash := localIntentHash
	if coreDecision.IntentHash != "" {
		intentHash = coreDecision.IntentHash
	}
	executeHash := localExecuteHash
	if coreDecision.ExecuteHash != "" {
		executeHash = coreDecision.ExecuteHash
	}

	actorID, _ := env.Intent["actor"].(map[string]any)["id"].(string)
	intentName, _ := env.Intent["intent"].(string)

	r, err := receipt.Sign(receipt.SignInput{
		AdapterID:      o.Config.AdapterID,
		Service:        route.Service,
		ActorID:        actorID,
		Intent:         intentName,
		IntentHash:     intentHash,
		ExecuteHash:    executeHash,
		AuthorityKeyID: coreDecision.AuthorityKeyID,
		CoreIssuedAt:   coreDecision.IssuedAt,
		CoreExpiresAt:  coreDecision.ExpiresAt,
		CoreTime:       coreDecision.Time,
		PrivateKey:     o.Config.ReceiptPrivateKey,
		TTLSeconds:     int(o.Config.ReceiptTTL.Seconds()),
	})
	if err != nil {
		return deny(ReasonReceiptMintFailed)
	}

	fwdResult, err := o.Fwd.Forward(ctx, route.Target, env.Intent, env.Execute, r)
	if err != nil {
		return deny(ReasonForwardingFailed)
	}

	return Result{
		Decision:       DecisionPermit,
		Reason:         ReasonForwardedAfterPermit,
		Receipt:        r,
		ForwardStatus:  fwdResult.Status,
		ForwardBody:    fwdResult.Body,
		ExecuteHash:    executeHash,
		IntentHash:     intentHash,
		AuthorityKeyID: coreDecision.AuthorityKeyID,
	}
}

// envelopeValid implements the envelope validity predicate of §4.6: body
// present, intent.actor.id non-empty string, intent.intent non-empty
// string, execute and acceptance both present as mappings.
func envelopeValid(env Envelope) bool {
	if env.Intent == nil || env.Execute == nil || env.Acceptance == nil {
		return false
	}
	actor, ok := env.Intent["actor"].(map[string]any)
	if !ok {
		return false
	}
	actorID, ok := actor["id"].(string)
	if !ok || actorID == "" {
		return false
	}
	intentName, ok := env.Intent["intent"].(string)
	if !ok || intentName == "" {
		return false
	}
	return true
}
