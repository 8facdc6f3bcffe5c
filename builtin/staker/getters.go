// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/tierstake/builtin/staker/accrual"
	"github.com/vechain/tierstake/builtin/staker/penalty"
	"github.com/vechain/tierstake/builtin/staker/pool"
	"github.com/vechain/tierstake/builtin/staker/referral"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/builtin/staker/stakes"
	"github.com/vechain/tierstake/builtin/staker/tier"
	"github.com/vechain/tierstake/thor"
)

//
// Getters - no state change. Values owed are computed as if accrual had
// been brought current to the given time.
//

// PoolStatus is the pool bookkeeping plus the accrual not yet recorded.
type PoolStatus struct {
	pool.State
	Available       *big.Int
	PendingEmission *big.Int // emitted between the last update and now
}

// TierStatus is the live state of one tier.
type TierStatus struct {
	tier.Tier
	EffectiveRateBP uint64
	TotalPrincipal  *big.Int
	Accumulator     *big.Int
}

// GrantStatus is a referral grant with its claimable amount.
type GrantStatus struct {
	ID uint64
	*referral.Grant
	ClaimableNow *big.Int
}

// ControlStatus reports the operator switches.
type ControlStatus struct {
	Paused               bool
	CircuitBreakerActive bool
	CircuitBreakerUntil  uint64
}

// virtual returns tier states and pool state as an accrual at now would leave them.
func (s *Staker) virtual(svc *services, now uint64) (map[uint8]*accrual.TierState, *pool.State, *big.Int, error) {
	ps, err := svc.pool.Get()
	if err != nil {
		return nil, nil, nil, err
	}
	rates, err := s.rates(svc)
	if err != nil {
		return nil, nil, nil, err
	}
	elapsed := elapsedSince(ps.LastAccrualUpdateTime, now)
	states, res, err := svc.accrual.Preview(rates, elapsed, ps.Available())
	if err != nil {
		return nil, nil, nil, err
	}
	ps.Liabilities = new(big.Int).Add(ps.Liabilities, res.Distributed)
	return states, ps, res.Distributed, nil
}

// Tiers returns the configured tiers.
func (s *Staker) Tiers() []tier.Tier {
	return s.tiers.All()
}

// Stakes returns the ids of an account's active stakes.
func (s *Staker) Stakes(account thor.Address) (ids []uint64, err error) {
	err = s.read(func(svc *services) error {
		ids, err = svc.stakes.ActiveIDs(account)
		return err
	})
	return
}

// GetStake returns a stake record, active or not.
func (s *Staker) GetStake(id uint64) (stake *stakes.Stake, err error) {
	err = s.read(func(svc *services) error {
		stake, err = svc.stakes.Get(id)
		return err
	})
	return
}

// TotalStakes returns the number of stakes ever created.
func (s *Staker) TotalStakes() (total uint64, err error) {
	err = s.read(func(svc *services) error {
		total, err = svc.stakes.Total()
		return err
	})
	return
}

func (s *Staker) pendingAt(svc *services, stake *stakes.Stake, now uint64) (*big.Int, error) {
	if !stake.Active {
		return new(big.Int), nil
	}
	states, _, _, err := s.virtual(svc, now)
	if err != nil {
		return nil, err
	}
	ts, ok := states[stake.Tier]
	if !ok {
		return nil, reverts.ErrInvariant.Withf("stake in unknown tier %d", stake.Tier)
	}
	return stake.Pending(ts.Accumulator), nil
}

// PendingReward returns the gross reward owed to a stake at now, zero once it exited.
func (s *Staker) PendingReward(id uint64, now uint64) (pending *big.Int, err error) {
	err = s.read(func(svc *services) error {
		stake, err := svc.stakes.Get(id)
		if err != nil {
			return err
		}
		pending, err = s.pendingAt(svc, stake, now)
		return err
	})
	return
}

// PenaltyPreview returns the penalty an exit at now would incur.
func (s *Staker) PenaltyPreview(id uint64, now uint64) (res penalty.Result, err error) {
	err = s.read(func(svc *services) error {
		stake, err := svc.stakes.Get(id)
		if err != nil {
			return err
		}
		t, err := s.stakeTier(stake)
		if err != nil {
			return err
		}
		pending, err := s.pendingAt(svc, stake, now)
		if err != nil {
			return err
		}
		res = penalty.Calculate(s.cfg.Penalty, t.Duration(), elapsedSince(stake.StartTime, now), stake.Principal, pending)
		return nil
	})
	return
}

// PoolStatus returns the pool bookkeeping as of now.
func (s *Staker) PoolStatus(now uint64) (status *PoolStatus, err error) {
	err = s.read(func(svc *services) error {
		_, ps, emitted, err := s.virtual(svc, now)
		if err != nil {
			return err
		}
		status = &PoolStatus{State: *ps, Available: ps.Available(), PendingEmission: emitted}
		return nil
	})
	return
}

// TierStatus returns the live state of a tier.
func (s *Staker) TierStatus(tierID uint8) (status *TierStatus, err error) {
	t, ok := s.tiers.Get(tierID)
	if !ok {
		return nil, reverts.ErrUnknownTier.Withf("tier %d", tierID)
	}
	err = s.read(func(svc *services) error {
		rate, err := s.rate(svc, t)
		if err != nil {
			return err
		}
		ts, err := svc.accrual.Get(tierID)
		if err != nil {
			return err
		}
		status = &TierStatus{
			Tier:            t,
			EffectiveRateBP: rate,
			TotalPrincipal:  ts.TotalPrincipal,
			Accumulator:     ts.Accumulator,
		}
		return nil
	})
	return
}

// ReferrerAccount returns the referral aggregate of an address.
func (s *Staker) ReferrerAccount(referrer thor.Address) (account *referral.Account, err error) {
	err = s.read(func(svc *services) error {
		account, err = svc.referral.GetAccount(referrer)
		return err
	})
	return
}

// Grants returns the referrer's open grants with what each could claim at now.
func (s *Staker) Grants(referrer thor.Address, now uint64) (out []GrantStatus, err error) {
	err = s.read(func(svc *services) error {
		ids, grants, err := svc.referral.Grants(referrer)
		if err != nil {
			return err
		}
		out = make([]GrantStatus, 0, len(ids))
		for i, g := range grants {
			out = append(out, GrantStatus{ID: ids[i], Grant: g, ClaimableNow: g.Claimable(now)})
		}
		return nil
	})
	return
}

// DeferredReward returns reward deferred for an account.
func (s *Staker) DeferredReward(account thor.Address) (owed *big.Int, err error) {
	err = s.read(func(svc *services) error {
		owed, err = svc.pool.DeferredOf(account)
		return err
	})
	return
}

// Control returns the pause and circuit breaker switches as of now.
func (s *Staker) Control(now uint64) (status ControlStatus, err error) {
	err = s.read(func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		status = ControlStatus{
			Paused:               ctl.Paused,
			CircuitBreakerActive: ctl.breakerActive(now),
			CircuitBreakerUntil:  ctl.BreakerUntil,
		}
		return nil
	})
	return
}
