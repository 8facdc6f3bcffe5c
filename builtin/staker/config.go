// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/tierstake/builtin/staker/penalty"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/builtin/staker/stakes"
	"github.com/vechain/tierstake/builtin/staker/tier"
	"github.com/vechain/tierstake/kv"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

// Config is the engine configuration.
type Config struct {
	// Address is the engine's own account, used as spender when pulling value.
	Address    thor.Address `yaml:"address"`
	StakePool  thor.Address `yaml:"stake_pool"`
	RewardPool thor.Address `yaml:"reward_pool"`

	Tiers   []tier.Tier      `yaml:"tiers"`
	Penalty penalty.Schedule `yaml:"penalty"`

	MaxStakesPerAccount    int    `yaml:"max_stakes_per_account"`
	ClaimPeriod            uint64 `yaml:"claim_period"`             // seconds between referral claims
	MinAPYBP               uint64 `yaml:"min_apy_bp"`               // zero disables the guard
	CircuitBreakerCooldown uint64 `yaml:"circuit_breaker_cooldown"` // seconds
	OperationGasLimit      uint64 `yaml:"operation_gas_limit"`
	CacheSize              int    `yaml:"cache_size"` // committed slots cached by state, zero means the default
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Address:                thor.BytesToAddress([]byte("tierstake")),
		StakePool:              thor.BytesToAddress([]byte("stake-pool")),
		RewardPool:             thor.BytesToAddress([]byte("reward-pool")),
		Tiers:                  tier.Default(),
		Penalty:                penalty.DefaultSchedule(),
		MaxStakesPerAccount:    stakes.DefaultMaxPerAccount,
		ClaimPeriod:            thor.SecondsPerDay,
		CircuitBreakerCooldown: thor.SecondsPerDay,
		OperationGasLimit:      thor.InitialOperationGasLimit,
	}
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return ParseConfig(data)
}

// NewState opens the engine state over store with the configured cache.
func (c Config) NewState(store kv.Store) (*state.State, error) {
	return state.New(store, c.CacheSize)
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) Validate() error {
	if c.Address.IsZero() || c.StakePool.IsZero() || c.RewardPool.IsZero() {
		return reverts.ErrInvalidConfig.Withf("addresses must be set")
	}
	if c.Address == c.StakePool || c.Address == c.RewardPool || c.StakePool == c.RewardPool {
		return reverts.ErrInvalidConfig.Withf("addresses must be distinct")
	}
	if _, err := tier.NewSet(c.Tiers); err != nil {
		return reverts.ErrInvalidConfig.Withf("%v", err)
	}
	if err := c.Penalty.Validate(); err != nil {
		return reverts.ErrInvalidConfig.Withf("%v", err)
	}
	if c.MaxStakesPerAccount <= 0 {
		return reverts.ErrInvalidConfig.Withf("max stakes per account must be positive")
	}
	if c.ClaimPeriod == 0 {
		return reverts.ErrInvalidConfig.Withf("claim period must be positive")
	}
	if c.MinAPYBP > thor.BasisPoints {
		return reverts.ErrInvalidConfig.Withf("min apy %d bp above 100%%", c.MinAPYBP)
	}
	if c.OperationGasLimit == 0 {
		return reverts.ErrInvalidConfig.Withf("operation gas limit must be positive")
	}
	if c.CacheSize < 0 {
		return reverts.ErrInvalidConfig.Withf("negative cache size %d", c.CacheSize)
	}
	return nil
}
