// Package api implements C9, the Public Adapter Endpoint: the single
// POST /v1/gate HTTP handler that decodes a request body into an envelope,
// dispatches it to the Gate Orchestrator, and serializes the GateResult back
// per §6.1's status mapping. It also carries the ambient surface a real
// deployment needs around that one endpoint: liveness, the public key
// distribution endpoint, request correlation, and rate limiting — described
// as supplemented features in the specification, not policy logic.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/solace-labs/solace-gate/internal/gate"
)

// gateResponse is the wire shape of §6.1's response body. It is a plain
// struct distinct from gate.Result so a request that never reaches the
// orchestrator (bad method, bad JSON, empty body) can still produce a
// conforming response without fabricating a gate.Result.
type gateResponse struct {
	Decision       string `json:"decision"`
	Reason         string `json:"reason,omitempty"`
	Receipt        any    `json:"receipt,omitempty"`
	ForwardStatus  int    `json:"forwardStatus,omitempty"`
	ForwardBody    any    `json:"forwardBody,omitempty"`
	ExecuteHash    string `json:"executeHash,omitempty"`
	IntentHash     string `json:"intentHash,omitempty"`
	AuthorityKeyID string `json:"authorityKeyId,omitempty"`
}

func fromResult(r gate.Result) gateResponse {
	return gateResponse{
		Decision:       string(r.Decision),
		Reason:         r.Reason,
		Receipt:        r.Receipt,
		ForwardStatus:  r.ForwardStatus,
		ForwardBody:    r.ForwardBody,
		ExecuteHash:    r.ExecuteHash,
		IntentHash:     r.IntentHash,
		AuthorityKeyID: r.AuthorityKeyID,
	}
}

func writeResult(w http.ResponseWriter, status int, resp gateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler is the HTTP front for the Gate Orchestrator.
type Handler struct {
	Orchestrator *gate.Orchestrator
	Logger       *slog.Logger
}

// NewHandler builds a Handler. A nil logger falls back to slog.Default().
func NewHandler(o *gate.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Orchestrator: o, Logger: logger}
}

const maxGateBodyBytes = 1 << 20 // 1 MiB; envelopes are small JSON documents.

// ServeGate implements POST /v1/gate.
func (h *Handler) ServeGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResult(w, http.StatusMethodNotAllowed, gateResponse{Decision: "DENY", Reason: "method_not_allowed"})
		return
	}

	if r.Body == nil {
		writeResult(w, http.StatusBadRequest, gateResponse{Decision: "DENY", Reason: "missing_request_body"})
		return
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxGateBodyBytes+1))
	if err != nil {
		writeResult(w, http.StatusBadRequest, gateResponse{Decision: "DENY", Reason: "invalid_json"})
		return
	}
	if len(raw) == 0 {
		writeResult(w, http.StatusBadRequest, gateResponse{Decision: "DENY", Reason: "missing_request_body"})
		return
	}
	if len(raw) > maxGateBodyBytes {
		writeResult(w, http.StatusBadRequest, gateResponse{Decision: "DENY", Reason: "invalid_json"})
		return
	}

	var env gate.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		writeResult(w, http.StatusBadRequest, gateResponse{Decision: "DENY", Reason: "invalid_json"})
		return
	}

	result := h.Orchestrator.Run(r.Context(), env)

	h.Logger.InfoContext(r.Context(), "gate decision",
		"request_id", RequestID(r.Context()),
		"decision", result.Decision,
		"reason", result.Reason,
	)

	writeResult(w, result.HTTPStatus(), fromResult(result))
}

// ServeHealthz implements GET /healthz: a trivial, unauthenticated liveness
// probe, matching proxy_cmd.go's /health handler in the teacher.
func (h *Handler) ServeHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ServeReceiptPublicKey implements GET /v1/receipt-public-key: serves the
// PEP's configured Ed25519 SPKI PEM so Executors can fetch the current
// verification key out of band, per §11.
func (h *Handler) ServeReceiptPublicKey(publicKeyPEM []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeResult(w, http.StatusMethodNotAllowed, gateResponse{Decision: "DENY", Reason: "method_not_allowed"})
			return
		}
		w.Header().Set("Content-Type", "application/x-pem-file")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(publicKeyPEM)
	}
}
