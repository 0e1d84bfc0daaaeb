package application

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	optimization "energy-optimizer/internal/optimization/domain"
)

// LeverOverride adjusts one row of the default elasticity table.
// Omitted fields keep the default; elasticity 0 disables a lever.
type LeverOverride struct {
	Elasticity *float64 `yaml:"elasticity"`
	Disruption *float64 `yaml:"disruption"`
	Confidence *float64 `yaml:"confidence"`
	Action     string   `yaml:"action"`
}

// PolicyConfig is the on-disk policy file.
type PolicyConfig struct {
	Levers map[string]LeverOverride `yaml:"levers"`
}

// LoadPolicy reads a policy file and merges it over the default table.
// An empty path yields the default policy.
func LoadPolicy(path string) (optimization.Policy, error) {
	if path == "" {
		return optimization.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return optimization.Policy{}, fmt.Errorf("reading policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy merges YAML overrides over the default table.
func ParsePolicy(data []byte) (optimization.Policy, error) {
	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return optimization.Policy{}, fmt.Errorf("parsing policy: %w", err)
	}

	policy := optimization.DefaultPolicy()
	known := make(map[optimization.Lever]int, len(policy.Levers))
	for i, lp := range policy.Levers {
		known[lp.Lever] = i
	}
	for name, override := range cfg.Levers {
		i, ok := known[optimization.Lever(name)]
		if !ok {
			return optimization.Policy{}, fmt.Errorf("%w: %q", optimization.ErrUnknownLever, name)
		}
		policy.Levers[i] = mergeLever(policy.Levers[i], override)
	}
	if err := policy.Validate(); err != nil {
		return optimization.Policy{}, err
	}
	return policy, nil
}

func mergeLever(base optimization.LeverPolicy, override LeverOverride) optimization.LeverPolicy {
	if override.Elasticity != nil {
		base.Elasticity = *override.Elasticity
	}
	if override.Disruption != nil {
		base.Disruption = *override.Disruption
	}
	if override.Confidence != nil {
		base.Confidence = *override.Confidence
	}
	if override.Action != "" {
		base.Action = override.Action
	}
	return base
}
