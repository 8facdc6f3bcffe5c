// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package penalty computes early-exit penalties. It holds no state.
package penalty

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/thor"
)

// Step applies RateBP when the remaining fraction of the lock is strictly above AboveBP.
type Step struct {
	AboveBP uint64 `yaml:"above_bp" json:"aboveBP"`
	RateBP  uint64 `yaml:"rate_bp" json:"rateBP"`
}

// Schedule is the penalty policy.
//
// Exits before AntiCyclingThreshold forfeit AntiCyclingRewardBP of the pending
// reward and AntiCyclingPrincipalBP of the principal. Later exits forfeit part
// of the pending reward only, picked from Steps by the remaining fraction, or
// FloorBP when no step matches.
type Schedule struct {
	AntiCyclingThreshold   uint64 `yaml:"anti_cycling_threshold"` // seconds
	AntiCyclingRewardBP    uint64 `yaml:"anti_cycling_reward_bp"`
	AntiCyclingPrincipalBP uint64 `yaml:"anti_cycling_principal_bp"`
	Steps                  []Step `yaml:"steps"` // descending by AboveBP
	FloorBP                uint64 `yaml:"floor_bp"`
}

// DefaultSchedule returns the reference schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		AntiCyclingThreshold:   thor.SecondsPerDay,
		AntiCyclingRewardBP:    10000,
		AntiCyclingPrincipalBP: 9000,
		Steps: []Step{
			{AboveBP: 9000, RateBP: 9000},
			{AboveBP: 7500, RateBP: 7500},
			{AboveBP: 6000, RateBP: 6000},
			{AboveBP: 4500, RateBP: 4500},
			{AboveBP: 3000, RateBP: 3000},
			{AboveBP: 1500, RateBP: 2000},
		},
		FloorBP: 1000,
	}
}

func (s Schedule) Validate() error {
	if s.AntiCyclingRewardBP > thor.BasisPoints || s.AntiCyclingPrincipalBP > thor.BasisPoints || s.FloorBP > thor.BasisPoints {
		return errors.New("penalty rate above 100%")
	}
	prev := thor.BasisPoints + 1
	for i, step := range s.Steps {
		if step.RateBP > thor.BasisPoints {
			return errors.Errorf("step %d: rate above 100%%", i)
		}
		if step.AboveBP >= prev {
			return errors.Errorf("step %d: thresholds must be strictly descending", i)
		}
		prev = step.AboveBP
	}
	return nil
}

// Result describes the penalty of an exit.
type Result struct {
	RateBP           uint64   `json:"rateBP"`           // applied to the pending reward
	RemainingBP      uint64   `json:"remainingBP"`      // remaining fraction of the lock
	RewardPenalty    *big.Int `json:"rewardPenalty"`    // deducted from pending reward
	PrincipalPenalty *big.Int `json:"principalPenalty"` // deducted from principal, anti-cycling only
	AntiCycling      bool     `json:"antiCycling"`
}

func zero() Result {
	return Result{RewardPenalty: new(big.Int), PrincipalPenalty: new(big.Int)}
}

func bp(v *big.Int, rate uint64) *big.Int {
	r := new(big.Int).Mul(v, new(big.Int).SetUint64(rate))
	return r.Quo(r, new(big.Int).SetUint64(thor.BasisPoints))
}

// RemainingBP returns (duration - elapsed) / duration in basis points, floored.
func RemainingBP(duration, elapsed uint64) uint64 {
	if duration == 0 || elapsed >= duration {
		return 0
	}
	r := new(big.Int).SetUint64(duration - elapsed)
	r.Mul(r, new(big.Int).SetUint64(thor.BasisPoints))
	r.Quo(r, new(big.Int).SetUint64(duration))
	return r.Uint64()
}

// Rate returns the reward penalty rate for a graduated exit.
func (s Schedule) Rate(remainingBP uint64) uint64 {
	for _, step := range s.Steps {
		if remainingBP > step.AboveBP {
			return step.RateBP
		}
	}
	return s.FloorBP
}

// Calculate returns the penalty for leaving a lock of the given duration after elapsed seconds.
func Calculate(s Schedule, duration, elapsed uint64, principal, reward *big.Int) Result {
	if elapsed >= duration {
		return zero()
	}
	res := zero()
	res.RemainingBP = RemainingBP(duration, elapsed)
	if elapsed < s.AntiCyclingThreshold {
		res.AntiCycling = true
		res.RateBP = s.AntiCyclingRewardBP
		res.RewardPenalty = bp(reward, s.AntiCyclingRewardBP)
		res.PrincipalPenalty = bp(principal, s.AntiCyclingPrincipalBP)
		return res
	}
	res.RateBP = s.Rate(res.RemainingBP)
	res.RewardPenalty = bp(reward, res.RateBP)
	return res
}
