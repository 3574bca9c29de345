package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"swapmesh/authz"
	"swapmesh/core/types"
)

// operationRuleYAML is the YAML shape of one authz.OperationRule entry.
type operationRuleYAML struct {
	AllowedActorTypes []string `yaml:"allowed_actor_types"`
	RequiredScopes    []string `yaml:"required_scopes"`
}

// PolicyManifest is the on-disk YAML document describing the per-operation
// authorization manifest and the default delegation policy applied to
// agent actors that don't carry their own persisted delegation record.
type PolicyManifest struct {
	Operations       map[string]operationRuleYAML `yaml:"operations"`
	DefaultPolicy    delegationPolicyYAML          `yaml:"default_policy"`
}

type delegationPolicyYAML struct {
	MaxValuePerSwapUSD           float64 `yaml:"max_value_per_swap_usd"`
	MaxCycleLength               int     `yaml:"max_cycle_length"`
	MinConfidenceScore           float64 `yaml:"min_confidence_score"`
	RequireEscrow                bool    `yaml:"require_escrow"`
	MaxValuePerDayUSD            float64 `yaml:"max_value_per_day_usd"`
	HighValueConsentThresholdUSD float64 `yaml:"high_value_consent_threshold_usd"`
	QuietHours                   *struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
		TZ    string `yaml:"tz"`
	} `yaml:"quiet_hours"`
}

// LoadPolicyManifest reads and parses the YAML policy manifest at path.
func LoadPolicyManifest(path string) (*PolicyManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read policy manifest %s: %w", path, err)
	}
	var manifest PolicyManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("config: parse policy manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// Manifest converts the YAML operation rules into an authz.Manifest.
func (p *PolicyManifest) Manifest() authz.Manifest {
	out := make(authz.Manifest, len(p.Operations))
	for id, rule := range p.Operations {
		actorTypes := make([]types.ActorType, len(rule.AllowedActorTypes))
		for i, t := range rule.AllowedActorTypes {
			actorTypes[i] = types.ActorType(t)
		}
		out[id] = authz.OperationRule{
			AllowedActorTypes: actorTypes,
			RequiredScopes:    rule.RequiredScopes,
		}
	}
	return out
}

// DelegationPolicy converts the YAML default policy into types.DelegationPolicy.
func (p *PolicyManifest) DelegationPolicy() types.DelegationPolicy {
	dp := types.DelegationPolicy{
		MaxValuePerSwapUSD:           p.DefaultPolicy.MaxValuePerSwapUSD,
		MaxCycleLength:               p.DefaultPolicy.MaxCycleLength,
		MinConfidenceScore:           p.DefaultPolicy.MinConfidenceScore,
		RequireEscrow:                p.DefaultPolicy.RequireEscrow,
		MaxValuePerDayUSD:            p.DefaultPolicy.MaxValuePerDayUSD,
		HighValueConsentThresholdUSD: p.DefaultPolicy.HighValueConsentThresholdUSD,
	}
	if p.DefaultPolicy.QuietHours != nil {
		dp.QuietHours = &types.QuietHours{
			Start: p.DefaultPolicy.QuietHours.Start,
			End:   p.DefaultPolicy.QuietHours.End,
			TZ:    p.DefaultPolicy.QuietHours.TZ,
		}
	}
	return dp
}
