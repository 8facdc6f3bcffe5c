// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/tierstake/builtin/staker"
	"github.com/vechain/tierstake/builtin/staker/penalty"
	"github.com/vechain/tierstake/builtin/staker/referral"
	"github.com/vechain/tierstake/builtin/staker/stakes"
	"github.com/vechain/tierstake/thor"
)

type Tier struct {
	ID              uint8                 `json:"id"`
	Days            uint64                `json:"days"`
	RateBP          uint64                `json:"rateBP"`
	EffectiveRateBP uint64                `json:"effectiveRateBP"`
	CommissionPct   uint64                `json:"commissionPct"`
	TotalPrincipal  *math.HexOrDecimal256 `json:"totalPrincipal"`
	Accumulator     *math.HexOrDecimal256 `json:"accumulator"`
}

type Stake struct {
	ID        uint64                `json:"id"`
	Owner     thor.Address          `json:"owner"`
	Principal *math.HexOrDecimal256 `json:"principal"`
	Tier      uint8                 `json:"tier"`
	StartTime uint64                `json:"startTime"`
	Settled   *math.HexOrDecimal256 `json:"settled"`
	Referrer  *thor.Address         `json:"referrer,omitempty"`
	GrantID   uint64                `json:"grantID,omitempty"`
	Active    bool                  `json:"active"`
}

type Pending struct {
	StakeID uint64                `json:"stakeID"`
	Time    uint64                `json:"time"`
	Reward  *math.HexOrDecimal256 `json:"reward"`
}

type Penalty struct {
	StakeID          uint64                `json:"stakeID"`
	Time             uint64                `json:"time"`
	RateBP           uint64                `json:"rateBP"`
	RemainingBP      uint64                `json:"remainingBP"`
	RewardPenalty    *math.HexOrDecimal256 `json:"rewardPenalty"`
	PrincipalPenalty *math.HexOrDecimal256 `json:"principalPenalty"`
	AntiCycling      bool                  `json:"antiCycling"`
}

type Pool struct {
	StakeCustody          *math.HexOrDecimal256 `json:"stakeCustody"`
	RewardCustody         *math.HexOrDecimal256 `json:"rewardCustody"`
	Liabilities           *math.HexOrDecimal256 `json:"liabilities"`
	Deferred              *math.HexOrDecimal256 `json:"deferred"`
	Available             *math.HexOrDecimal256 `json:"available"`
	PendingEmission       *math.HexOrDecimal256 `json:"pendingEmission"`
	LastAccrualUpdateTime uint64                `json:"lastAccrualUpdateTime"`
}

type Control struct {
	Paused               bool   `json:"paused"`
	CircuitBreakerActive bool   `json:"circuitBreakerActive"`
	CircuitBreakerUntil  uint64 `json:"circuitBreakerUntil"`
}

type Account struct {
	Address  thor.Address          `json:"address"`
	Stakes   []*Stake              `json:"stakes"`
	Deferred *math.HexOrDecimal256 `json:"deferred"`
}

type TierVolume struct {
	Tier   uint8                 `json:"tier"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type Grant struct {
	ID                    uint64                `json:"id"`
	StakeID               uint64                `json:"stakeID"`
	Principal             *math.HexOrDecimal256 `json:"principal"`
	Tier                  uint8                 `json:"tier"`
	StartTime             uint64                `json:"startTime"`
	Duration              uint64                `json:"duration"`
	TotalCommission       *math.HexOrDecimal256 `json:"totalCommission"`
	Claimed               *math.HexOrDecimal256 `json:"claimed"`
	Claimable             *math.HexOrDecimal256 `json:"claimable"`
	NextEligibleClaimTime uint64                `json:"nextEligibleClaimTime"`
	Active                bool                  `json:"active"`
}

type Referrer struct {
	Address       thor.Address          `json:"address"`
	TotalReferred *math.HexOrDecimal256 `json:"totalReferred"`
	Unclaimed     *math.HexOrDecimal256 `json:"unclaimed"`
	ActiveVolume  []TierVolume          `json:"activeVolume"`
	Grants        []Grant               `json:"grants"`
}

func hex(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

func convertTier(ts *staker.TierStatus) *Tier {
	return &Tier{
		ID:              ts.ID,
		Days:            ts.Days,
		RateBP:          ts.RateBP,
		EffectiveRateBP: ts.EffectiveRateBP,
		CommissionPct:   ts.CommissionPct,
		TotalPrincipal:  hex(ts.TotalPrincipal),
		Accumulator:     hex(ts.Accumulator),
	}
}

func convertStake(id uint64, s *stakes.Stake) *Stake {
	out := &Stake{
		ID:        id,
		Owner:     s.Owner,
		Principal: hex(s.Principal),
		Tier:      s.Tier,
		StartTime: s.StartTime,
		Settled:   hex(s.Settled),
		GrantID:   s.GrantID,
		Active:    s.Active,
	}
	if s.HasReferrer() {
		referrer := s.Referrer
		out.Referrer = &referrer
	}
	return out
}

func convertPenalty(id, now uint64, res penalty.Result) *Penalty {
	return &Penalty{
		StakeID:          id,
		Time:             now,
		RateBP:           res.RateBP,
		RemainingBP:      res.RemainingBP,
		RewardPenalty:    hex(res.RewardPenalty),
		PrincipalPenalty: hex(res.PrincipalPenalty),
		AntiCycling:      res.AntiCycling,
	}
}

func convertPool(ps *staker.PoolStatus) *Pool {
	return &Pool{
		StakeCustody:          hex(ps.StakeCustody),
		RewardCustody:         hex(ps.RewardCustody),
		Liabilities:           hex(ps.Liabilities),
		Deferred:              hex(ps.Deferred),
		Available:             hex(ps.Available),
		PendingEmission:       hex(ps.PendingEmission),
		LastAccrualUpdateTime: ps.LastAccrualUpdateTime,
	}
}

func convertReferrer(addr thor.Address, a *referral.Account, grants []staker.GrantStatus) *Referrer {
	out := &Referrer{
		Address:       addr,
		TotalReferred: hex(a.TotalReferred),
		Unclaimed:     hex(a.Unclaimed),
		ActiveVolume:  make([]TierVolume, 0, len(a.ActiveVolume)),
		Grants:        make([]Grant, 0, len(grants)),
	}
	for _, v := range a.ActiveVolume {
		out.ActiveVolume = append(out.ActiveVolume, TierVolume{Tier: v.Tier, Amount: hex(v.Amount)})
	}
	for _, g := range grants {
		out.Grants = append(out.Grants, Grant{
			ID:                    g.ID,
			StakeID:               g.StakeID,
			Principal:             hex(g.Principal),
			Tier:                  g.Tier,
			StartTime:             g.StartTime,
			Duration:              g.Duration,
			TotalCommission:       hex(g.TotalCommission),
			Claimed:               hex(g.Claimed),
			Claimable:             hex(g.ClaimableNow),
			NextEligibleClaimTime: g.NextEligibleClaimTime,
			Active:                g.Active,
		})
	}
	return out
}
