package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solace-labs/solace-gate/internal/config"
)

func targets() map[string]config.Target {
	return map[string]config.Target{
		"payments": {URL: "https://payments.example.com/execute"},
	}
}

func TestResolve_HappyPath(t *testing.T) {
	r, err := Resolve("payments:refund", targets())
	require.NoError(t, err)
	require.Equal(t, "payments", r.Service)
	require.Equal(t, "refund", r.Operation)
	require.Equal(t, "https://payments.example.com/execute", r.Target.URL)
}

func TestResolve_NoColon(t *testing.T) {
	_, err := Resolve("payments_refund", targets())
	require.Error(t, err)
	require.Equal(t, ReasonInvalidActionFormat, err.(*RouteError).Reason)
}

func TestResolve_EmptyService(t *testing.T) {
	_, err := Resolve(":refund", targets())
	require.Error(t, err)
	require.Equal(t, ReasonInvalidActionFormat, err.(*RouteError).Reason)
}

func TestResolve_EmptyOperation(t *testing.T) {
	_, err := Resolve("payments:", targets())
	require.Error(t, err)
	require.Equal(t, ReasonInvalidActionFormat, err.(*RouteError).Reason)
}

func TestResolve_UnknownService(t *testing.T) {
	_, err := Resolve("unknown:op", targets())
	require.Error(t, err)
	require.Equal(t, ReasonUnknownForwardTarget, err.(*RouteError).Reason)
}

func TestResolve_TrimsWhitespace(t *testing.T) {
	tg := map[string]config.Target{"payments": {URL: "https://x"}}
	r, err := Resolve(" payments : refund ", tg)
	require.NoError(t, err)
	require.Equal(t, "payments", r.Service)
	require.Equal(t, "refund", r.Operation)
}
