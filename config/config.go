package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/OmniBazaar/participation/decay"
)

type ledgerConfig struct {
	Endpoint       string
	TimeoutSeconds int
}

type cacheConfig struct {
	TTLSeconds int
	MaxEntries int
}

type stakingConfig struct {
	RPCEndpoint     string
	ContractAddress string
	MinStake        string
}

type decayConfig struct {
	GracePeriodDays int
	DecayRate       float64
	DecayPeriodDays int
	MinPoints       float64
}

// Config carries everything needed to wire an engine against a live network.
// Decay entries override the default policy per component, keyed by
// "forum", "marketplace", "policing", or "reliability"; unknown keys are
// rejected so typos don't silently leave the default in place. An override
// replaces the component's whole policy, so it must spell out every field
// and carry a positive decayPeriodDays.
type Config struct {
	Ledger  ledgerConfig           `json:"ledger"`
	Cache   cacheConfig            `json:"cache"`
	Staking stakingConfig          `json:"staking"`
	Decay   map[string]decayConfig `json:"decay"`
}

const (
	defaultLedgerTimeout = 10 * time.Second
	defaultCacheTTL      = 5 * time.Minute
	defaultCacheEntries  = 4096
)

func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "./config.json"
	}
	contents, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := json.Unmarshal(contents, &config); err != nil {
		return nil, err
	}
	for key, override := range config.Decay {
		switch key {
		case "forum", "marketplace", "policing", "reliability":
		default:
			return nil, fmt.Errorf("Unrecognized decay policy key: %s", key)
		}
		if override.DecayPeriodDays <= 0 {
			return nil, fmt.Errorf("Decay policy %s requires a positive decayPeriodDays, got %d", key, override.DecayPeriodDays)
		}
		if override.DecayRate < 0 {
			return nil, fmt.Errorf("Decay policy %s requires a non-negative decayRate, got %v", key, override.DecayRate)
		}
		if override.GracePeriodDays < 0 {
			return nil, fmt.Errorf("Decay policy %s requires a non-negative gracePeriodDays, got %d", key, override.GracePeriodDays)
		}
	}
	return &config, nil
}

func (c *Config) LedgerTimeout() time.Duration {
	if c.Ledger.TimeoutSeconds <= 0 {
		return defaultLedgerTimeout
	}
	return time.Duration(c.Ledger.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) CacheEntries() int {
	if c.Cache.MaxEntries <= 0 {
		return defaultCacheEntries
	}
	return c.Cache.MaxEntries
}

// MinStake parses the configured minimum validator stake. An empty value
// falls back to nil so the evaluator applies the network default.
func (c *Config) MinStake() (*big.Int, error) {
	if c.Staking.MinStake == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(c.Staking.MinStake, 10)
	if !ok {
		return nil, fmt.Errorf("Invalid minimum stake amount: %s", c.Staking.MinStake)
	}
	return amount, nil
}

// PolicyTable merges any configured overrides onto the default decay
// schedule.
func (c *Config) PolicyTable() decay.PolicyTable {
	policies := decay.DefaultPolicies()
	for key, override := range c.Decay {
		policy := decay.Policy{
			GracePeriodDays: override.GracePeriodDays,
			DecayRate:       override.DecayRate,
			DecayPeriodDays: override.DecayPeriodDays,
			MinPoints:       override.MinPoints,
		}
		switch key {
		case "forum":
			policies.Forum = policy
		case "marketplace":
			policies.Marketplace = policy
		case "policing":
			policies.Policing = policy
		case "reliability":
			policies.Reliability = policy
		}
	}
	return policies
}
