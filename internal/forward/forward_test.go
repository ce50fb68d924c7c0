package forward

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solace-labs/solace-gate/internal/config"
	"github.com/solace-labs/solace-gate/pkg/canon"
	"github.com/solace-labs/solace-gate/pkg/executorverify"
	"github.com/solace-labs/solace-gate/pkg/receipt"
)

func decodeJSONBody(t *testing.T, r *http.Request, out *map[string]any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(out))
}

func mintReceipt(t *testing.T) (*receipt.Receipt, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	r, err := receipt.Sign(receipt.SignInput{AdapterID: "a1", Service: "payments", PrivateKey: priv})
	require.NoError(t, err)
	return r, pub
}

func TestForward_HappyPath(t *testing.T) {
	var gotAuth, gotReceiptHeader string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReceiptHeader = r.Header.Get("x-solace-receipt")
		decodeJSONBody(t, r, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	rcpt, _ := mintReceipt(t)
	f := New(time.Second)
	target := config.Target{URL: srv.URL, BearerToken: "exec-token"}

	result, err := f.Forward(context.Background(), target,
		map[string]any{"actor": map[string]any{"id": "u1"}, "intent": "refund"},
		map[string]any{"action": "payments:refund", "amount": 100},
		rcpt,
	)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.Status)
	require.Equal(t, "Bearer exec-token", gotAuth)
	require.NotEmpty(t, gotReceiptHeader)
	require.Contains(t, gotBody, "intent")
	require.Contains(t, gotBody, "execute")
	require.NotContains(t, gotBody, "acceptance")
}

func TestForward_NeverIncludesAcceptance(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSONBody(t, r, &gotBody)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	rcpt, _ := mintReceipt(t)
	f := New(time.Second)
	target := config.Target{URL: srv.URL}

	// Even if a caller mistakenly had an "acceptance" value lying around,
	// Forward's signature has no parameter for it — there is no way to pass
	// it through.
	_, err := f.Forward(context.Background(), target, map[string]any{}, map[string]any{}, rcpt)
	require.NoError(t, err)
	require.NotContains(t, gotBody, "acceptance")
}

func TestForward_UnparsableResponseBodyIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	t.Cleanup(srv.Close)

	rcpt, _ := mintReceipt(t)
	f := New(time.Second)
	target := config.Target{URL: srv.URL}

	result, err := f.Forward(context.Background(), target, map[string]any{}, map[string]any{}, rcpt)
	require.NoError(t, err)
	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "not json", body["_raw"])
}

func TestForward_ReceiptHeaderVerifiesOnTheOtherSide(t *testing.T) {
	var gotReceiptHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReceiptHeader = r.Header.Get("x-solace-receipt")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	execute := map[string]any{"action": "payments:refund", "amount": 100}
	executeHash, err := canon.ComputeExecuteHash(execute)
	require.NoError(t, err)

	rcpt, err := receipt.Sign(receipt.SignInput{
		AdapterID:   "a1",
		Service:     "payments",
		ExecuteHash: executeHash,
		PrivateKey:  priv,
	})
	require.NoError(t, err)

	f := New(time.Second)
	target := config.Target{URL: srv.URL}

	_, err = f.Forward(context.Background(), target, map[string]any{}, execute, rcpt)
	require.NoError(t, err)
	require.NotEmpty(t, gotReceiptHeader)

	result := executorverify.VerifyRequest(executorverify.Options{
		ReceiptHeaderValue:  gotReceiptHeader,
		ReceiptPublicKey:    pub,
		ExpectedServiceName: "payments",
		ReceivedExecute:     execute,
	})
	require.True(t, result.OK)
}
