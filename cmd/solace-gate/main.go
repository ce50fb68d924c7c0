// Command solace-gate runs the Policy Enforcement Point: the HTTP gateway
// that validates, routes, and — only on an external Core PERMIT — mints a
// signed receipt for and forwards every governed request to its Executor.
package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solace-labs/solace-gate/internal/api"
	"github.com/solace-labs/solace-gate/internal/config"
	"github.com/solace-labs/solace-gate/internal/coreclient"
	"github.com/solace-labs/solace-gate/internal/forward"
	"github.com/solace-labs/solace-gate/internal/gate"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("solace-gate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		rateRPS    float64
		rateBurst  int
	)
	cmd.StringVar(&configPath, "config", "solace-gate.yaml", "Path to the YAML configuration file")
	cmd.Float64Var(&rateRPS, "rate-limit-rps", 50, "Per-source-IP admission rate limit (requests/second, 0 disables)")
	cmd.IntVar(&rateBurst, "rate-limit-burst", 100, "Per-source-IP admission burst size")

	if len(args) > 1 {
		if err := cmd.Parse(args[1:]); err != nil {
			return 2
		}
	}

	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err, "path", configPath)
		return 2
	}

	core := coreclient.New(cfg.Core.BaseURL, cfg.Core.Headers, cfg.CoreTimeout)
	fwd := forward.New(cfg.CoreTimeout)
	orchestrator := gate.New(cfg, core, fwd)
	handler := api.NewHandler(orchestrator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/gate", handler.ServeGate)
	mux.HandleFunc("/healthz", handler.ServeHealthz)
	mux.HandleFunc("/v1/receipt-public-key", handler.ServeReceiptPublicKey(publicKeyPEM(cfg)))

	var h http.Handler = mux
	h = api.RequestIDMiddleware(h)
	if rateRPS > 0 {
		h = api.NewRateLimiter(rateRPS, rateBurst).Middleware(h)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(stdout, "solace-gate listening on %s (adapter=%s)\n", cfg.ListenAddr, cfg.AdapterID)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited unexpectedly", "error", err)
			return 1
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

// newLogger builds the process-wide structured logger: JSON by default,
// text when PEP_LOG_FORMAT=text (handy for local development).
func newLogger() *slog.Logger {
	var handler slog.Handler
	if os.Getenv("PEP_LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	return slog.New(handler)
}

// publicKeyPEM re-derives the PEM encoding of the configured receipt public
// key for GET /v1/receipt-public-key, rather than threading the original
// file bytes through Config.
func publicKeyPEM(cfg *config.Config) []byte {
	der, err := x509.MarshalPKIXPublicKey(cfg.ReceiptPublicKey)
	if err != nil {
		return nil
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}
