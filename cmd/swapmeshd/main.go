// Command swapmeshd is the engine process: it loads configuration, opens
// the durable state store, builds the four Ed25519 key rings, and serves
// the gateway's HTTP surface over the engine's operation facade.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"swapmesh/config"
	"swapmesh/core/events"
	"swapmesh/core/state"
	"swapmesh/crypto"
	"swapmesh/delivery"
	"swapmesh/engine"
	"swapmesh/gateway"
	"swapmesh/gateway/middleware"
	"swapmesh/gateway/session"
	"swapmesh/observability/logging"
	"swapmesh/observability/metrics"
	"swapmesh/observability/tracing"
	"swapmesh/policy"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to the process TOML config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SWAPMESH_ENV"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swapmeshd: load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Service:    "swapmeshd",
		Env:        env,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	tracer := tracing.Tracer("swapmeshd")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "swapmeshd: create data dir: %v\n", err)
		os.Exit(1)
	}
	store, err := state.Open(filepath.Join(cfg.DataDir, "swapmesh.db"))
	if err != nil {
		logger.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	keys, err := loadKeyRings(cfg, logger)
	if err != nil {
		logger.Error("failed to load key rings", "error", err)
		os.Exit(1)
	}

	var manifest config.PolicyManifest
	if strings.TrimSpace(cfg.PolicyPath) != "" {
		loaded, err := config.LoadPolicyManifest(cfg.PolicyPath)
		if err != nil {
			logger.Warn("policy manifest not loaded, running with an empty manifest", "error", err)
		} else {
			manifest = *loaded
		}
	}

	consentEnforcement := policy.ConsentEnforcement{
		RequireTier:      cfg.Consent.RequireTier,
		RequireBinding:   cfg.Consent.RequireBinding,
		RequireSignature: cfg.Consent.RequireSignature,
		RequireReplay:    cfg.Consent.RequireReplay,
		RequireChallenge: cfg.Consent.RequireChallenge,
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid consent enforcement configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	emitter := events.NoopEmitter{}

	eng := engine.New(store, engine.KeyRings{
		Events:      keys.Events,
		Receipts:    keys.Receipts,
		Delegations: keys.Delegations,
		Consent:     keys.Consent,
	}, manifest.Manifest(), consentEnforcement, emitter, m, tracer, nil)
	if cfg.DepositWindowMinutes > 0 {
		eng.DepositWindow = time.Duration(cfg.DepositWindowMinutes) * time.Minute
	}

	partnerKeys := delivery.StaticPartnerKeys{}
	limiter := delivery.NewLimiter(cfg.WebhookIngestRatePerSecond, cfg.WebhookIngestBurst)

	srv := &gateway.Server{Engine: eng, PartnerKeys: partnerKeys, Limiter: limiter}

	var authenticator *session.Authenticator
	if strings.TrimSpace(cfg.Gateway.SessionSecret) != "" {
		authenticator = session.New(session.Config{
			Secret:   cfg.Gateway.SessionSecret,
			Issuer:   cfg.Gateway.SessionIssuer,
			Audience: cfg.Gateway.SessionAudience,
			TTL:      time.Duration(cfg.Gateway.SessionTTLMinutes) * time.Minute,
		})
	} else {
		logger.Warn("Gateway.SessionSecret unset, serving every v1 route without session auth")
	}

	obs := &middleware.Observability{Tracer: tracer, Metrics: m}
	handler := gateway.NewRouter(gateway.RouterConfig{Server: srv, Session: authenticator, Observability: obs})

	listenAddr := cfg.Gateway.ListenAddress
	if listenAddr == "" {
		listenAddr = cfg.ListenAddress
	}
	httpServer := &http.Server{Addr: listenAddr, Handler: handler}

	go func() {
		logger.Info("gateway listening", "address", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// loadKeyRings builds the four Ed25519 rings from config, generating an
// ephemeral active key per ring when no seed is configured (local/dev use
// only; production deploys must set every *SeedHex field).
func loadKeyRings(cfg *config.Config, logger *slog.Logger) (crypto.RingSet, error) {
	build := func(name string, rc config.KeyRingConfig) (*crypto.Ring, error) {
		if strings.TrimSpace(rc.ActiveSeed) == "" {
			logger.Warn("no active seed configured, generating an ephemeral key ring", "ring", name)
			_, priv, err := crypto.GenerateKey()
			if err != nil {
				return nil, err
			}
			return crypto.NewRing(name+"-ephemeral", priv, nil)
		}
		seed, err := hex.DecodeString(rc.ActiveSeed)
		if err != nil {
			return nil, fmt.Errorf("ring %s: decode active seed: %w", name, err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("ring %s: active seed must be %d bytes, got %d", name, ed25519.SeedSize, len(seed))
		}
		priv := ed25519.NewKeyFromSeed(seed)
		verifiers := make(map[string]ed25519.PublicKey, len(rc.VerifyOnly))
		for keyID, hexPub := range rc.VerifyOnly {
			raw, err := hex.DecodeString(hexPub)
			if err != nil {
				return nil, fmt.Errorf("ring %s: decode verify key %s: %w", name, keyID, err)
			}
			verifiers[keyID] = ed25519.PublicKey(raw)
		}
		return crypto.NewRing(rc.ActiveKeyID, priv, verifiers)
	}

	eventsRing, err := build("events", cfg.EventKeyRing)
	if err != nil {
		return crypto.RingSet{}, err
	}
	receipts, err := build("receipts", cfg.ReceiptKeyRing)
	if err != nil {
		return crypto.RingSet{}, err
	}
	delegations, err := build("delegations", cfg.DelegationKeyRing)
	if err != nil {
		return crypto.RingSet{}, err
	}
	consent, err := build("consent", cfg.ConsentKeyRing)
	if err != nil {
		return crypto.RingSet{}, err
	}
	return crypto.RingSet{Events: eventsRing, Receipts: receipts, Delegations: delegations, Consent: consent}, nil
}
