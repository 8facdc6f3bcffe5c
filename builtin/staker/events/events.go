// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events defines the signals published by the staking engine.
// Events of an operation are published only after it commits.
package events

import (
	"math/big"

	"github.com/vechain/tierstake/thor"
)

// Event is a published signal.
type Event interface {
	EventName() string
}

type Staked struct {
	StakeID  uint64
	Owner    thor.Address
	Amount   *big.Int
	Tier     uint8
	Referrer thor.Address
	Time     uint64
}

type Unstaked struct {
	StakeID          uint64
	Owner            thor.Address
	Principal        *big.Int // returned
	PrincipalPenalty *big.Int
	Reward           *big.Int // net of penalty
	RewardPenalty    *big.Int
	AntiCycling      bool
	Time             uint64
}

// RewardSettled is emitted when pending reward of a live stake is credited.
type RewardSettled struct {
	StakeID uint64
	Owner   thor.Address
	Amount  *big.Int
}

type RewardPaid struct {
	Account thor.Address
	StakeID uint64 // zero for deferred payouts
	Amount  *big.Int
}

// RewardUndistributed signals reward owed but not paid, so monitoring can top
// up liquidity. Deferred amounts stay claimable.
type RewardUndistributed struct {
	Account  thor.Address
	StakeID  uint64
	Amount   *big.Int
	Reason   string
	Deferred bool
}

type ReferralGranted struct {
	Referrer   thor.Address
	StakeID    uint64
	GrantID    uint64
	Commission *big.Int
}

type ReferralFrozen struct {
	Referrer  thor.Address
	GrantID   uint64
	Total     *big.Int
	Forfeited *big.Int
}

type CommissionClaimed struct {
	Referrer thor.Address
	Amount   *big.Int
	Pruned   []uint64
}

// EmissionScaled is emitted when accrual was scaled down to the available liquidity.
type EmissionScaled struct {
	Naive       *big.Int
	Distributed *big.Int
	Available   *big.Int
	Time        uint64
}

type RewardFunded struct {
	From   thor.Address
	Amount *big.Int
}

type ReconciledSurplus struct {
	Amount *big.Int
}

type ReconciledShortfall struct {
	Shortfall *big.Int
	Absorbed  *big.Int
	Uncovered *big.Int
}

type CircuitBreakerTripped struct {
	By    thor.Address
	Until uint64
}

type CircuitBreakerReset struct {
	By thor.Address
}

type PauseChanged struct {
	By     thor.Address
	Paused bool
}

type TierRateChanged struct {
	Tier      uint8
	OldRateBP uint64
	NewRateBP uint64
}

func (Staked) EventName() string                { return "Staked" }
func (Unstaked) EventName() string              { return "Unstaked" }
func (RewardSettled) EventName() string         { return "RewardSettled" }
func (RewardPaid) EventName() string            { return "RewardPaid" }
func (RewardUndistributed) EventName() string   { return "RewardUndistributed" }
func (ReferralGranted) EventName() string       { return "ReferralGranted" }
func (ReferralFrozen) EventName() string        { return "ReferralFrozen" }
func (CommissionClaimed) EventName() string     { return "CommissionClaimed" }
func (EmissionScaled) EventName() string        { return "EmissionScaled" }
func (RewardFunded) EventName() string          { return "RewardFunded" }
func (ReconciledSurplus) EventName() string     { return "ReconciledSurplus" }
func (ReconciledShortfall) EventName() string   { return "ReconciledShortfall" }
func (CircuitBreakerTripped) EventName() string { return "CircuitBreakerTripped" }
func (CircuitBreakerReset) EventName() string   { return "CircuitBreakerReset" }
func (PauseChanged) EventName() string          { return "PauseChanged" }
func (TierRateChanged) EventName() string       { return "TierRateChanged" }
