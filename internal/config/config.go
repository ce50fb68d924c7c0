// Package config loads solace-gate's startup configuration: adapter
// identity, receipt keys, Core connection settings, and the executor
// routing table. Loading happens once, at startup; the result is treated as
// read-only for the lifetime of the process (see §5 of the specification —
// no request handler ever mutates configuration).
package config

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/solace-labs/solace-gate/internal/gateerr"
	"github.com/solace-labs/solace-gate/pkg/receipt"
)

// Target is a single executor route entry.
type Target struct {
	URL         string `yaml:"url" json:"url"`
	BearerToken string `yaml:"bearerToken,omitempty" json:"bearerToken,omitempty"`
}

// CoreConfig configures the HTTP client used to consult Core.
type CoreConfig struct {
	BaseURL    string            `yaml:"coreBaseUrl" json:"coreBaseUrl"`
	TimeoutMs  int               `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// File is the on-disk (YAML) shape of the configuration, before env
// overrides and defaults are applied.
type File struct {
	AdapterID            string            `yaml:"adapterId"`
	ReceiptPrivateKeyPem string            `yaml:"receiptPrivateKeyPem,omitempty"`
	ReceiptPublicKeyPem  string            `yaml:"receiptPublicKeyPem,omitempty"`
	ReceiptTTLSeconds    int               `yaml:"receiptTtlSeconds"`
	ClockSkewSeconds     int               `yaml:"clockSkewSeconds"`
	Core                 CoreConfig        `yaml:"core"`
	Targets              map[string]Target `yaml:"targets"`
	ListenAddr           string            `yaml:"listenAddr,omitempty"`
}

// Config is the fully loaded, validated, and parsed configuration —
// including decoded key material — ready to be wired into the gate
// orchestrator.
type Config struct {
	AdapterID         string
	ReceiptPrivateKey ed25519.PrivateKey
	ReceiptPublicKey  ed25519.PublicKey
	ReceiptTTL        time.Duration
	ClockSkew         time.Duration
	Core              CoreConfig
	CoreTimeout       time.Duration
	Targets           map[string]Target
	ListenAddr        string
}

const (
	defaultReceiptTTLSeconds = 30
	defaultClockSkewSeconds  = 10
	defaultCoreTimeoutMs     = 8000
	defaultListenAddr        = ":8443"
)

// Load reads a YAML configuration file at path, applies environment
// variable overrides for secrets, fills in defaults, and validates the
// result. It fails fast — returning a *gateerr.ConfigError — on any missing
// required field, matching the specification's "process must not serve
// traffic in a partially-configured state".
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &gateerr.ConfigError{Field: "configFile", Cause: err}
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &gateerr.ConfigError{Field: "configFile", Cause: err}
	}

	applyEnvOverrides(&f)

	return build(&f)
}

// applyEnvOverrides lets secrets live outside the checked-in YAML file,
// following the env-override convention of the teacher's configuration
// loader: secrets are never required to be committed to disk.
func applyEnvOverrides(f *File) {
	if v := os.Getenv("PEP_ADAPTER_ID"); v != "" {
		f.AdapterID = v
	}
	if v := os.Getenv("PEP_RECEIPT_PRIVATE_KEY_PEM"); v != "" {
		f.ReceiptPrivateKeyPem = v
	}
	if v := os.Getenv("PEP_RECEIPT_PUBLIC_KEY_PEM"); v != "" {
		f.ReceiptPublicKeyPem = v
	}
	if v := os.Getenv("PEP_CORE_BASE_URL"); v != "" {
		f.Core.BaseURL = v
	}
	if v := os.Getenv("PEP_CORE_BEARER_TOKEN"); v != "" {
		if f.Core.Headers == nil {
			f.Core.Headers = map[string]string{}
		}
		f.Core.Headers["Authorization"] = "Bearer " + v
	}
	if v := os.Getenv("PEP_LISTEN_ADDR"); v != "" {
		f.ListenAddr = v
	}
	if v := os.Getenv("PEP_RECEIPT_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.ReceiptTTLSeconds = n
		}
	}
}

func build(f *File) (*Config, error) {
	if f.AdapterID == "" {
		return nil, &gateerr.ConfigError{Field: "adapterId"}
	}
	if f.ReceiptPrivateKeyPem == "" {
		return nil, &gateerr.ConfigError{Field: "receiptPrivateKeyPem"}
	}
	if f.ReceiptPublicKeyPem == "" {
		return nil, &gateerr.ConfigError{Field: "receiptPublicKeyPem"}
	}
	if f.Core.BaseURL == "" {
		return nil, &gateerr.ConfigError{Field: "core.coreBaseUrl"}
	}
	if len(f.Targets) == 0 {
		return nil, &gateerr.ConfigError{Field: "targets"}
	}

	priv, err := receipt.ParsePrivateKeyPEM([]byte(f.ReceiptPrivateKeyPem))
	if err != nil {
		return nil, &gateerr.ConfigError{Field: "receiptPrivateKeyPem", Cause: err}
	}
	pub, err := receipt.ParsePublicKeyPEM([]byte(f.ReceiptPublicKeyPem))
	if err != nil {
		return nil, &gateerr.ConfigError{Field: "receiptPublicKeyPem", Cause: err}
	}
	if err := selfCheckKeypair(priv, pub); err != nil {
		return nil, &gateerr.ConfigError{Field: "receiptPrivateKeyPem/receiptPublicKeyPem", Cause: err}
	}

	ttl := f.ReceiptTTLSeconds
	if ttl <= 0 {
		ttl = defaultReceiptTTLSeconds
	}
	skew := f.ClockSkewSeconds
	if skew <= 0 {
		skew = defaultClockSkewSeconds
	}
	timeoutMs := f.Core.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultCoreTimeoutMs
	}
	listenAddr := f.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	for name, t := range f.Targets {
		if t.URL == "" {
			return nil, &gateerr.ConfigError{Field: fmt.Sprintf("targets.%s.url", name)}
		}
	}

	return &Config{
		AdapterID:         f.AdapterID,
		ReceiptPrivateKey: priv,
		ReceiptPublicKey:  pub,
		ReceiptTTL:        time.Duration(ttl) * time.Second,
		ClockSkew:         time.Duration(skew) * time.Second,
		Core:              f.Core,
		CoreTimeout:       time.Duration(timeoutMs) * time.Millisecond,
		Targets:           f.Targets,
		ListenAddr:        listenAddr,
	}, nil
}

// selfCheckKeypair verifies that priv and pub are a matched Ed25519 pair by
// signing and verifying a nonce, so a typo'd PEM pair is caught at startup
// instead of as a wall of invalid_receipt_signature failures in production.
func selfCheckKeypair(priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	nonce := []byte("solace-gate-keypair-self-check")
	sig := ed25519.Sign(priv, nonce)
	if !ed25519.Verify(pub, nonce, sig) {
		return fmt.Errorf("private and public receipt keys do not form a matched pair")
	}
	return nil
}
