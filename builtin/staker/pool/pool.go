// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

var (
	slotState    = thor.BytesToBytes32([]byte("pool-state"))
	slotDeferred = thor.BytesToBytes32([]byte("pool-deferred"))
)

// State is the expected custody bookkeeping.
type State struct {
	StakeCustody          *big.Int // principal held by the stake pool
	RewardCustody         *big.Int // liquidity held by the reward pool
	Liabilities           *big.Int // reward emitted or deferred, not yet paid
	Deferred              *big.Int // part of Liabilities owed to exited stakes
	LastAccrualUpdateTime uint64
}

func (s *State) normalize() {
	for _, p := range []**big.Int{&s.StakeCustody, &s.RewardCustody, &s.Liabilities, &s.Deferred} {
		if *p == nil {
			*p = new(big.Int)
		}
	}
}

// Available returns the reward liquidity not yet promised, never negative.
func (s *State) Available() *big.Int {
	return fixedpoint.SubFloor(s.RewardCustody, s.Liabilities)
}

// ReconcileResult describes the drift found by a reconciliation.
type ReconcileResult struct {
	Surplus   *big.Int // added to reward custody
	Shortfall *big.Int // total missing from custody
	Absorbed  *big.Int // part of the shortfall written off the reward side
	Uncovered *big.Int // principal the reward side could not cover
	// Rebalance is the amount to move from the stake pool to the reward pool
	// so the stake pool holds exactly the expected principal. Negative moves
	// the other way.
	Rebalance *big.Int
}

// Service is the pool accountant.
type Service struct {
	state    *solidity.Raw[*State]
	deferred *solidity.Mapping[thor.Address, *big.Int]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		state:    solidity.NewRaw[*State](sctx, slotState),
		deferred: solidity.NewMapping[thor.Address, *big.Int](sctx, slotDeferred),
	}
}

func (s *Service) Get() (*State, error) {
	st, err := s.state.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool state")
	}
	st.normalize()
	return st, nil
}

func (s *Service) update(cb func(st *State) error) error {
	st, err := s.Get()
	if err != nil {
		return err
	}
	if err := cb(st); err != nil {
		return err
	}
	if err := s.state.Set(st); err != nil {
		return errors.Wrap(err, "failed to set pool state")
	}
	return nil
}

func sub(field string, v **big.Int, amount *big.Int) error {
	if (*v).Cmp(amount) < 0 {
		return reverts.ErrInvariant.Withf("%s %v below %v", field, *v, amount)
	}
	*v = new(big.Int).Sub(*v, amount)
	return nil
}

// SetLastAccrualUpdateTime records the time accrual was brought current.
func (s *Service) SetLastAccrualUpdateTime(now uint64) error {
	return s.update(func(st *State) error {
		st.LastAccrualUpdateTime = now
		return nil
	})
}

// DepositPrincipal records principal received by the stake pool.
func (s *Service) DepositPrincipal(amount *big.Int) error {
	return s.update(func(st *State) error {
		st.StakeCustody = new(big.Int).Add(st.StakeCustody, amount)
		return nil
	})
}

// ReleasePrincipal records principal leaving the stake pool.
func (s *Service) ReleasePrincipal(amount *big.Int) error {
	return s.update(func(st *State) error {
		return sub("stake custody", &st.StakeCustody, amount)
	})
}

// MovePenalty records forfeited principal moving to the reward side.
func (s *Service) MovePenalty(amount *big.Int) error {
	return s.update(func(st *State) error {
		if err := sub("stake custody", &st.StakeCustody, amount); err != nil {
			return err
		}
		st.RewardCustody = new(big.Int).Add(st.RewardCustody, amount)
		return nil
	})
}

// Fund records reward liquidity received by the reward pool.
func (s *Service) Fund(amount *big.Int) error {
	return s.update(func(st *State) error {
		st.RewardCustody = new(big.Int).Add(st.RewardCustody, amount)
		return nil
	})
}

// AddLiability records reward emitted into accumulators.
func (s *Service) AddLiability(amount *big.Int) error {
	return s.update(func(st *State) error {
		st.Liabilities = new(big.Int).Add(st.Liabilities, amount)
		return nil
	})
}

// ReleaseLiability frees promised reward back to the pool, e.g. a reward penalty.
func (s *Service) ReleaseLiability(amount *big.Int) error {
	return s.update(func(st *State) error {
		st.Liabilities = fixedpoint.SubFloor(st.Liabilities, amount)
		return nil
	})
}

// PayReward records a payout of promised reward.
func (s *Service) PayReward(amount *big.Int) error {
	return s.update(func(st *State) error {
		if err := sub("reward custody", &st.RewardCustody, amount); err != nil {
			return err
		}
		st.Liabilities = fixedpoint.SubFloor(st.Liabilities, amount)
		return nil
	})
}

// PayUnpromised records a payout from free liquidity, e.g. referral commission.
func (s *Service) PayUnpromised(amount *big.Int) error {
	return s.update(func(st *State) error {
		if st.Available().Cmp(amount) < 0 {
			return reverts.ErrInvariant.Withf("payout %v above available %v", amount, st.Available())
		}
		return sub("reward custody", &st.RewardCustody, amount)
	})
}

// DeferredOf returns the reward deferred for an account.
func (s *Service) DeferredOf(account thor.Address) (*big.Int, error) {
	v, err := s.deferred.Get(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deferred reward")
	}
	return v, nil
}

// Defer keeps unpaid reward owed to an account. It stays a liability.
func (s *Service) Defer(account thor.Address, amount *big.Int) error {
	prev, err := s.DeferredOf(account)
	if err != nil {
		return err
	}
	if err := s.deferred.Set(account, new(big.Int).Add(prev, amount), prev.Sign() == 0); err != nil {
		return errors.Wrap(err, "failed to set deferred reward")
	}
	return s.update(func(st *State) error {
		st.Deferred = new(big.Int).Add(st.Deferred, amount)
		return nil
	})
}

// TakeDeferred removes up to max of an account's deferred reward and
// returns the amount taken. The liability is released by PayReward.
func (s *Service) TakeDeferred(account thor.Address, max *big.Int) (*big.Int, error) {
	owed, err := s.DeferredOf(account)
	if err != nil {
		return nil, err
	}
	take := fixedpoint.Min(owed, max)
	if take.Sign() == 0 {
		return new(big.Int), nil
	}
	rest := new(big.Int).Sub(owed, take)
	if rest.Sign() == 0 {
		err = s.deferred.Delete(account)
	} else {
		err = s.deferred.Set(account, rest, false)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to set deferred reward")
	}
	if err := s.update(func(st *State) error {
		return sub("deferred", &st.Deferred, take)
	}); err != nil {
		return nil, err
	}
	return new(big.Int).Set(take), nil
}

// Reconcile aligns the bookkeeping with the actual custody balances. Drift
// is absorbed by the reward side only. Principal is never written down.
func (s *Service) Reconcile(actualStake, actualReward *big.Int) (*ReconcileResult, error) {
	res := &ReconcileResult{
		Surplus:   new(big.Int),
		Shortfall: new(big.Int),
		Absorbed:  new(big.Int),
		Uncovered: new(big.Int),
		Rebalance: new(big.Int),
	}
	err := s.update(func(st *State) error {
		expected := new(big.Int).Add(st.StakeCustody, st.RewardCustody)
		actual := new(big.Int).Add(actualStake, actualReward)

		switch actual.Cmp(expected) {
		case 1:
			res.Surplus.Sub(actual, expected)
			st.RewardCustody = new(big.Int).Add(st.RewardCustody, res.Surplus)
		case -1:
			res.Shortfall.Sub(expected, actual)
			res.Absorbed = fixedpoint.Min(res.Shortfall, st.RewardCustody)
			st.RewardCustody = new(big.Int).Sub(st.RewardCustody, res.Absorbed)
			res.Uncovered.Sub(res.Shortfall, res.Absorbed)
		}

		diff := new(big.Int).Sub(actualStake, st.StakeCustody)
		if diff.Sign() < 0 {
			// pull from the reward pool, as far as it holds anything
			need := new(big.Int).Neg(diff)
			diff.Neg(fixedpoint.Min(need, actualReward))
		}
		res.Rebalance = diff
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
