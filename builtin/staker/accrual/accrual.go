// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accrual

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

var slotTiers = thor.BytesToBytes32([]byte("accrual-tiers"))

// emission divisor: rates are annual basis points
var yearBP = new(big.Int).SetUint64(thor.BasisPoints * thor.SecondsPerYear)

// TierState is the accrual state of one tier.
type TierState struct {
	TotalPrincipal *big.Int
	Accumulator    *big.Int // reward per unit principal since genesis, scaled by fixedpoint.Precision
}

func (t *TierState) normalize() {
	if t.TotalPrincipal == nil {
		t.TotalPrincipal = new(big.Int)
	}
	if t.Accumulator == nil {
		t.Accumulator = new(big.Int)
	}
}

// Rate is the effective annual rate of a tier.
type Rate struct {
	Tier   uint8
	RateBP uint64
}

// Input is one tier's contribution to an emission cycle.
type Input struct {
	Tier           uint8
	TotalPrincipal *big.Int
	RateBP         uint64
}

// Emission is the reward of one tier in an emission cycle.
type Emission struct {
	Tier   uint8
	Naive  *big.Int // owed at the nominal rate
	Reward *big.Int // after scaling down to the available liquidity
}

// ComputeEmission returns the per-tier reward for elapsed seconds, scaled
// proportionally when the naive total exceeds available. Tiers without
// principal are skipped.
func ComputeEmission(inputs []Input, elapsed uint64, available *big.Int) (emissions []Emission, naiveTotal *big.Int, scaled bool) {
	naiveTotal = new(big.Int)
	if elapsed == 0 {
		return nil, naiveTotal, false
	}
	el := new(big.Int).SetUint64(elapsed)
	for _, in := range inputs {
		if in.TotalPrincipal == nil || in.TotalPrincipal.Sign() <= 0 {
			continue
		}
		pr := new(big.Int).Mul(in.TotalPrincipal, new(big.Int).SetUint64(in.RateBP))
		naive := fixedpoint.MulDivHalfUp(pr, el, yearBP)
		emissions = append(emissions, Emission{Tier: in.Tier, Naive: naive, Reward: naive})
		naiveTotal.Add(naiveTotal, naive)
	}
	if naiveTotal.Cmp(available) > 0 {
		scaled = true
		for i := range emissions {
			if available.Sign() <= 0 {
				emissions[i].Reward = new(big.Int)
				continue
			}
			emissions[i].Reward = fixedpoint.MulDiv(emissions[i].Naive, available, naiveTotal)
		}
	}
	return emissions, naiveTotal, scaled
}

// Result summarises an Update.
type Result struct {
	Emissions   []Emission
	Naive       *big.Int // total owed at nominal rates
	Distributed *big.Int // emitted into accumulators, becomes liability
	Scaled      bool
	Touched     []uint8 // tiers whose accumulator moved
}

// Pending returns settled + principal * (accumulator - snapshot) / Precision.
func Pending(principal, accumulator, snapshot, settled *big.Int) *big.Int {
	delta := new(big.Int).Sub(accumulator, snapshot)
	if delta.Sign() < 0 {
		// snapshots are never ahead of the accumulator
		delta.SetUint64(0)
	}
	p := fixedpoint.MulDiv(principal, delta, fixedpoint.Precision)
	if settled != nil {
		p.Add(p, settled)
	}
	return p
}

// Service owns the per-tier accumulators.
type Service struct {
	tiers *solidity.Mapping[solidity.Uint8Key, *TierState]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		tiers: solidity.NewMapping[solidity.Uint8Key, *TierState](sctx, slotTiers),
	}
}

// Get returns the state of a tier, zeroed when never touched.
func (s *Service) Get(tier uint8) (*TierState, error) {
	st, err := s.tiers.Get(solidity.Uint8Key(tier))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get tier %d", tier)
	}
	st.normalize()
	return st, nil
}

func (s *Service) set(tier uint8, st *TierState) error {
	if err := s.tiers.Set(solidity.Uint8Key(tier), st, false); err != nil {
		return errors.Wrapf(err, "failed to set tier %d", tier)
	}
	return nil
}

// AddPrincipal increases a tier's total principal.
func (s *Service) AddPrincipal(tier uint8, amount *big.Int) error {
	st, err := s.Get(tier)
	if err != nil {
		return err
	}
	st.TotalPrincipal.Add(st.TotalPrincipal, amount)
	return s.set(tier, st)
}

// SubPrincipal decreases a tier's total principal. Going below zero is an invariant violation.
func (s *Service) SubPrincipal(tier uint8, amount *big.Int) error {
	st, err := s.Get(tier)
	if err != nil {
		return err
	}
	if st.TotalPrincipal.Cmp(amount) < 0 {
		return reverts.ErrInvariant.Withf("tier %d total principal %v below %v", tier, st.TotalPrincipal, amount)
	}
	st.TotalPrincipal.Sub(st.TotalPrincipal, amount)
	return s.set(tier, st)
}

// Preview computes the tier states an Update would write, without writing them.
func (s *Service) Preview(rates []Rate, elapsed uint64, available *big.Int) (map[uint8]*TierState, *Result, error) {
	states := make(map[uint8]*TierState, len(rates))
	inputs := make([]Input, 0, len(rates))
	for _, r := range rates {
		st, err := s.Get(r.Tier)
		if err != nil {
			return nil, nil, err
		}
		states[r.Tier] = st
		inputs = append(inputs, Input{Tier: r.Tier, TotalPrincipal: st.TotalPrincipal, RateBP: r.RateBP})
	}

	res := &Result{Naive: new(big.Int), Distributed: new(big.Int)}
	if elapsed == 0 {
		return states, res, nil
	}
	res.Emissions, res.Naive, res.Scaled = ComputeEmission(inputs, elapsed, available)
	for _, e := range res.Emissions {
		if e.Reward.Sign() == 0 {
			continue
		}
		st := states[e.Tier]
		inc := fixedpoint.MulDiv(e.Reward, fixedpoint.Precision, st.TotalPrincipal)
		if inc.Sign() == 0 {
			continue
		}
		st.Accumulator = new(big.Int).Add(st.Accumulator, inc)
		// flooring leaves dust in the liability, so claims never exceed it
		res.Distributed.Add(res.Distributed, e.Reward)
		res.Touched = append(res.Touched, e.Tier)
	}
	return states, res, nil
}

// Update brings accumulators current for elapsed seconds, emitting at most available.
func (s *Service) Update(rates []Rate, elapsed uint64, available *big.Int) (*Result, error) {
	if elapsed == 0 {
		return &Result{Naive: new(big.Int), Distributed: new(big.Int)}, nil
	}
	states, res, err := s.Preview(rates, elapsed, available)
	if err != nil {
		return nil, err
	}
	for _, id := range res.Touched {
		if err := s.set(id, states[id]); err != nil {
			return nil, err
		}
	}
	return res, nil
}
