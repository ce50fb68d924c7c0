package receipt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func genKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestSign_MissingAdapterID(t *testing.T) {
	_, priv := genKeypair(t)
	_, err := Sign(SignInput{Service: "payments", PrivateKey: priv})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "adapterId", cfgErr.Field)
}

func TestSign_MissingPrivateKey(t *testing.T) {
	_, err := Sign(SignInput{AdapterID: "a1", Service: "payments"})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "receiptPrivateKeyPem", cfgErr.Field)
}

func TestSign_PopulatesSchemaAndWindow(t *testing.T) {
	_, priv := genKeypair(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r, err := Sign(SignInput{
		AdapterID:   "adapter-1",
		Service:     "payments",
		ActorID:     "u1",
		Intent:      "refund",
		IntentHash:  "H_i",
		ExecuteHash: "H_e",
		PrivateKey:  priv,
		TTLSeconds:  30,
		Now:         now,
	})
	require.NoError(t, err)

	require.Equal(t, SchemaVersion, r.V)
	require.NotEmpty(t, r.ReceiptID)
	require.Equal(t, CoreDecisionPermit, r.CoreDecision)
	require.Equal(t, "2025-01-01T00:00:00Z", r.IssuedAt)
	require.Equal(t, "2025-01-01T00:00:30Z", r.ExpiresAt)
	require.NotEmpty(t, r.Signature)
}
