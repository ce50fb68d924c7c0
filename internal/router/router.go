// Package router implements the Router component (C4): it parses
// execute.action into a "<service>:<operation>" pair and looks the service
// up in the configured target table.
package router

import (
	"strings"

	"github.com/solace-labs/solace-gate/internal/config"
)

// Reason codes returned as DENY reasons by the Gate Orchestrator when
// routing fails.
const (
	ReasonInvalidActionFormat  = "invalid_action_format"
	ReasonUnknownForwardTarget = "unknown_forward_target"
)

// Route is the resolved routing outcome for one request.
type Route struct {
	Service   string
	Operation string
	Target    config.Target
}

// RouteError carries one of the two router reason codes.
type RouteError struct {
	Reason string
}

func (e *RouteError) Error() string { return e.Reason }

// Resolve parses action as "<service>:<operation>" and looks service up in
// targets. Both halves of action must be non-empty after trimming
// whitespace.
func Resolve(action string, targets map[string]config.Target) (*Route, error) {
	idx := strings.IndexByte(action, ':')
	if idx < 0 {
		return nil, &RouteError{Reason: ReasonInvalidActionFormat}
	}

	service := strings.TrimSpace(action[:idx])
	operation := strings.TrimSpace(action[idx+1:])
	if service == "" || operation == "" {
		return nil, &RouteError{Reason: ReasonInvalidActionFormat}
	}

	target, ok := targets[service]
	if !ok {
		return nil, &RouteError{Reason: ReasonUnknownForwardTarget}
	}

	return &Route{Service: service, Operation: operation, Target: target}, nil
}
