package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeKeyPair(t *testing.T) (privPEM, pubPEM string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	privBlock := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubBlock := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return string(privBlock), string(pubBlock)
}

func writeConfigFile(t *testing.T, yamlBody string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))
	return path
}

func TestLoad_HappyPath(t *testing.T) {
	privPEM, pubPEM := writeKeyPair(t)
	body := `
adapterId: adapter-1
receiptPrivateKeyPem: |
` + indent(privPEM) + `
receiptPublicKeyPem: |
` + indent(pubPEM) + `
core:
  coreBaseUrl: https://core.example.com
targets:
  payments:
    url: https://payments.example.com/execute
`
	path := writeConfigFile(t, body)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "adapter-1", cfg.AdapterID)
	require.Equal(t, int64(30*1e9), cfg.ReceiptTTL.Nanoseconds())
	require.Contains(t, cfg.Targets, "payments")
}

func TestLoad_MissingAdapterID(t *testing.T) {
	privPEM, pubPEM := writeKeyPair(t)
	body := `
receiptPrivateKeyPem: |
` + indent(privPEM) + `
receiptPublicKeyPem: |
` + indent(pubPEM) + `
core:
  coreBaseUrl: https://core.example.com
targets:
  payments:
    url: https://payments.example.com/execute
`
	path := writeConfigFile(t, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MismatchedKeypairFailsSelfCheck(t *testing.T) {
	privPEM, _ := writeKeyPair(t)
	_, otherPubPEM := writeKeyPair(t)
	body := `
adapterId: adapter-1
receiptPrivateKeyPem: |
` + indent(privPEM) + `
receiptPublicKeyPem: |
` + indent(otherPubPEM) + `
core:
  coreBaseUrl: https://core.example.com
targets:
  payments:
    url: https://payments.example.com/execute
`
	path := writeConfigFile(t, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingTargets(t *testing.T) {
	privPEM, pubPEM := writeKeyPair(t)
	body := `
adapterId: adapter-1
receiptPrivateKeyPem: |
` + indent(privPEM) + `
receiptPublicKeyPem: |
` + indent(pubPEM) + `
core:
  coreBaseUrl: https://core.example.com
`
	path := writeConfigFile(t, body)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	privPEM, pubPEM := writeKeyPair(t)
	body := `
adapterId: adapter-1
receiptPrivateKeyPem: |
` + indent(privPEM) + `
receiptPublicKeyPem: |
` + indent(pubPEM) + `
core:
  coreBaseUrl: https://core.example.com
targets:
  payments:
    url: https://payments.example.com/execute
`
	path := writeConfigFile(t, body)

	t.Setenv("PEP_ADAPTER_ID", "adapter-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "adapter-from-env", cfg.AdapterID)
}

// indent prepends two spaces to every line of s so it nests correctly under
// a YAML block scalar.
func indent(s string) string {
	out := ""
	for _, line := range splitLines(s) {
		out += "  " + line + "\n"
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
