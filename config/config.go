// Package config loads the engine's TOML process configuration and its
// YAML trading-policy/authorization manifest (spec.md §2.2).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ConsentEnforcement mirrors policy.ConsentEnforcement without importing
// the policy package, keeping config dependency-free of domain logic.
type ConsentEnforcement struct {
	RequireTier      bool `toml:"RequireTier"`
	RequireBinding   bool `toml:"RequireBinding"`
	RequireSignature bool `toml:"RequireSignature"`
	RequireReplay    bool `toml:"RequireReplay"`
	RequireChallenge bool `toml:"RequireChallenge"`
}

// KeyRingConfig names the hex-encoded seed for a ring's active signing key
// plus any additional verify-only public keys, by key id.
type KeyRingConfig struct {
	ActiveKeyID  string            `toml:"ActiveKeyID"`
	ActiveSeed   string            `toml:"ActiveSeedHex"`
	VerifyOnly   map[string]string `toml:"VerifyOnlyHex"`
}

// Config is the engine process's top-level TOML configuration.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	PolicyPath    string `toml:"PolicyManifestPath"`

	EventKeyRing      KeyRingConfig `toml:"EventKeyRing"`
	ReceiptKeyRing     KeyRingConfig `toml:"ReceiptKeyRing"`
	DelegationKeyRing  KeyRingConfig `toml:"DelegationKeyRing"`
	ConsentKeyRing     KeyRingConfig `toml:"ConsentKeyRing"`

	DepositWindowMinutes int `toml:"DepositWindowMinutes"`

	Consent ConsentEnforcement `toml:"Consent"`

	WebhookIngestRatePerSecond float64 `toml:"WebhookIngestRatePerSecond"`
	WebhookIngestBurst         int     `toml:"WebhookIngestBurst"`

	Tracing struct {
		ServiceName string `toml:"ServiceName"`
		Enabled     bool   `toml:"Enabled"`
	} `toml:"Tracing"`

	Logging struct {
		FilePath   string `toml:"FilePath"`
		Env        string `toml:"Env"`
		MaxSizeMB  int    `toml:"MaxSizeMB"`
		MaxBackups int    `toml:"MaxBackups"`
		MaxAgeDays int    `toml:"MaxAgeDays"`
	} `toml:"Logging"`

	Gateway struct {
		ListenAddress     string `toml:"ListenAddress"`
		SessionSecret     string `toml:"SessionSecret"`
		SessionIssuer     string `toml:"SessionIssuer"`
		SessionAudience   string `toml:"SessionAudience"`
		SessionTTLMinutes int    `toml:"SessionTTLMinutes"`
	} `toml:"Gateway"`
}

// Load reads path as TOML, falling back to a development-friendly default
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		ListenAddress:        ":8080",
		DataDir:              "./swapmesh-data",
		PolicyPath:           "./policy.yaml",
		DepositWindowMinutes: 24 * 60,
		WebhookIngestRatePerSecond: 10,
		WebhookIngestBurst:         20,
	}
	cfg.Tracing.ServiceName = "swapmeshd"
	cfg.Logging.Env = "development"
	cfg.Gateway.ListenAddress = ":8081"
	cfg.Gateway.SessionIssuer = "swapmeshd"
	cfg.Gateway.SessionAudience = "swapmesh-gateway"
	cfg.Gateway.SessionTTLMinutes = 60
	return cfg
}

// Validate rejects nonsensical consent-enforcement flag combinations at
// startup, per spec.md §9's open-question resolution: replay enforcement
// requires signature enforcement (a replay key is only trustworthy once the
// proof it is drawn from has been verified), and challenge enforcement
// requires binding enforcement (the challenge id is carried inside the
// bound body).
func (c *Config) Validate() error {
	if c.Consent.RequireReplay && !c.Consent.RequireSignature {
		return fmt.Errorf("config: Consent.RequireReplay requires Consent.RequireSignature")
	}
	if c.Consent.RequireChallenge && !c.Consent.RequireBinding {
		return fmt.Errorf("config: Consent.RequireChallenge requires Consent.RequireBinding")
	}
	if c.DepositWindowMinutes < 0 {
		return fmt.Errorf("config: DepositWindowMinutes must be non-negative")
	}
	return nil
}
