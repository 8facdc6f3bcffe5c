// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/vechain/tierstake/builtin/staker/events"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/penalty"
	"github.com/vechain/tierstake/builtin/staker/pool"
	"github.com/vechain/tierstake/builtin/staker/referral"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/builtin/staker/stakes"
	"github.com/vechain/tierstake/builtin/staker/tier"
	"github.com/vechain/tierstake/thor"
)

// UnstakeResult describes what an exit paid out.
type UnstakeResult struct {
	StakeID          uint64
	Principal        *big.Int // returned to the owner
	PrincipalPenalty *big.Int // moved to the reward pool
	Reward           *big.Int // net reward paid now
	RewardPenalty    *big.Int
	Deferred         *big.Int // net reward owed but not paid, claimable later
	Penalty          penalty.Result
}

// Stake locks amount of the caller's value in tier. The caller must have
// approved the engine address for amount. Pending reward of the caller's
// other stakes is settled first.
func (s *Staker) Stake(caller thor.Address, amount *big.Int, tierID uint8, referrer thor.Address, now uint64) (uint64, error) {
	var id uint64
	err := s.write("stake", func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if err := ctl.check(now); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		t, ok := s.tiers.Get(tierID)
		if !ok {
			return reverts.ErrUnknownTier.Withf("tier %d", tierID)
		}
		if !referrer.IsZero() && referrer == caller {
			return reverts.ErrSelfReferral.Withf("%v", caller)
		}

		if err := s.accrue(svc, now); err != nil {
			return err
		}
		rate, err := s.rate(svc, t)
		if err != nil {
			return err
		}
		if err := s.checkMinAPY(svc, rate, amount); err != nil {
			return err
		}
		if err := s.settleAccount(svc, caller); err != nil {
			return err
		}

		ts, err := svc.accrual.Get(tierID)
		if err != nil {
			return err
		}
		var stake *stakes.Stake
		id, stake, err = svc.stakes.Create(caller, amount, tierID, referrer, now, ts.Accumulator)
		if err != nil {
			return err
		}
		if stake.HasReferrer() {
			gid, grant, err := svc.referral.Create(referrer, id, amount, tierID, t.CommissionPct, t.Duration(), now)
			if err != nil {
				return err
			}
			stake.GrantID = gid
			if err := svc.stakes.Update(id, stake); err != nil {
				return err
			}
			svc.events.Add(events.ReferralGranted{
				Referrer:   referrer,
				StakeID:    id,
				GrantID:    gid,
				Commission: grant.TotalCommission,
			})
		}
		if err := svc.pool.DepositPrincipal(amount); err != nil {
			return err
		}

		if err := s.pull(svc, caller, s.cfg.StakePool, amount); err != nil {
			if isTransferError(err) {
				return reverts.ErrPrincipalTransfer.Withf("%v", err)
			}
			return err
		}
		svc.events.Add(events.Staked{
			StakeID:  id,
			Owner:    caller,
			Amount:   new(big.Int).Set(amount),
			Tier:     tierID,
			Referrer: referrer,
			Time:     now,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// settleAccount credits pending reward of every active stake of owner.
func (s *Staker) settleAccount(svc *services, owner thor.Address) error {
	ids, err := svc.stakes.ActiveIDs(owner)
	if err != nil {
		return err
	}
	for _, id := range ids {
		stake, err := svc.stakes.Get(id)
		if err != nil {
			return err
		}
		ts, err := svc.accrual.Get(stake.Tier)
		if err != nil {
			return err
		}
		credited, err := svc.stakes.Settle(id, ts.Accumulator)
		if err != nil {
			return err
		}
		if credited.Sign() > 0 {
			svc.events.Add(events.RewardSettled{StakeID: id, Owner: owner, Amount: credited})
		}
	}
	return nil
}

// checkMinAPY rejects a stake whose projected effective rate would fall
// below the configured floor. Obligations are one year of nominal reward on
// all active principal plus the new stake.
func (s *Staker) checkMinAPY(svc *services, rateBP uint64, amount *big.Int) error {
	if s.cfg.MinAPYBP == 0 {
		return nil
	}
	projected, err := s.projectedRate(svc, rateBP, amount)
	if err != nil {
		return err
	}
	if projected < s.cfg.MinAPYBP {
		return reverts.ErrAPYUnsatisfiable.Withf("projected %d bp, minimum %d bp", projected, s.cfg.MinAPYBP)
	}
	return nil
}

// projectedRate returns rateBP scaled by min(1, available / obligations).
func (s *Staker) projectedRate(svc *services, rateBP uint64, amount *big.Int) (uint64, error) {
	bp := new(big.Int).SetUint64(thor.BasisPoints)
	obligations := fixedpoint.MulDiv(amount, new(big.Int).SetUint64(rateBP), bp)
	rates, err := s.rates(svc)
	if err != nil {
		return 0, err
	}
	for _, r := range rates {
		ts, err := svc.accrual.Get(r.Tier)
		if err != nil {
			return 0, err
		}
		obligations.Add(obligations, fixedpoint.MulDiv(ts.TotalPrincipal, new(big.Int).SetUint64(r.RateBP), bp))
	}
	ps, err := svc.pool.Get()
	if err != nil {
		return 0, err
	}
	available := ps.Available()
	if obligations.Sign() == 0 || available.Cmp(obligations) >= 0 {
		return rateBP, nil
	}
	return fixedpoint.MulDiv(new(big.Int).SetUint64(rateBP), available, obligations).Uint64(), nil
}

// elapsedSince returns now - start, zero when now is earlier.
func elapsedSince(start, now uint64) uint64 {
	if now <= start {
		return 0
	}
	return now - start
}

func (s *Staker) stakeTier(stake *stakes.Stake) (tier.Tier, error) {
	t, ok := s.tiers.Get(stake.Tier)
	if !ok {
		return tier.Tier{}, reverts.ErrInvariant.Withf("stake in unknown tier %d", stake.Tier)
	}
	return t, nil
}

// Unstake exits a stake. Principal, net of any anti-cycling penalty, is
// always returned. The net reward is paid as far as liquidity allows and
// the rest deferred for ClaimDeferred. Pause and circuit breaker defer the
// whole reward.
func (s *Staker) Unstake(caller thor.Address, id uint64, now uint64) (*UnstakeResult, error) {
	var res *UnstakeResult
	err := s.write("unstake", func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if err := s.accrue(svc, now); err != nil {
			return err
		}

		stake, err := svc.stakes.Get(id)
		if err != nil {
			return err
		}
		t, err := s.stakeTier(stake)
		if err != nil {
			return err
		}
		ts, err := svc.accrual.Get(stake.Tier)
		if err != nil {
			return err
		}
		pending := stake.Pending(ts.Accumulator)
		pen := penalty.Calculate(s.cfg.Penalty, t.Duration(), elapsedSince(stake.StartTime, now), stake.Principal, pending)

		if _, err := svc.stakes.Deactivate(caller, id); err != nil {
			return err
		}
		if stake.GrantID != 0 {
			grant, forfeited, err := svc.referral.Freeze(stake.GrantID, now)
			if err != nil {
				return err
			}
			svc.events.Add(events.ReferralFrozen{
				Referrer:  grant.Referrer,
				GrantID:   stake.GrantID,
				Total:     grant.TotalCommission,
				Forfeited: forfeited,
			})
		}

		res = &UnstakeResult{
			StakeID:          id,
			Principal:        new(big.Int).Sub(stake.Principal, pen.PrincipalPenalty),
			PrincipalPenalty: pen.PrincipalPenalty,
			RewardPenalty:    pen.RewardPenalty,
			Reward:           new(big.Int),
			Deferred:         new(big.Int),
			Penalty:          pen,
		}
		netReward := new(big.Int).Sub(pending, pen.RewardPenalty)

		if err := svc.pool.ReleasePrincipal(res.Principal); err != nil {
			return err
		}
		if pen.PrincipalPenalty.Sign() > 0 {
			if err := svc.pool.MovePenalty(pen.PrincipalPenalty); err != nil {
				return err
			}
		}
		if pen.RewardPenalty.Sign() > 0 {
			if err := svc.pool.ReleaseLiability(pen.RewardPenalty); err != nil {
				return err
			}
		}

		if res.Principal.Sign() > 0 {
			if err := s.transfer(svc, s.cfg.StakePool, caller, res.Principal); err != nil {
				return principalErr(err)
			}
		}
		if pen.PrincipalPenalty.Sign() > 0 {
			if err := s.transfer(svc, s.cfg.StakePool, s.cfg.RewardPool, pen.PrincipalPenalty); err != nil {
				return principalErr(err)
			}
		}

		reason := ""
		if netReward.Sign() > 0 {
			if err := ctl.check(now); err != nil {
				reason = err.Error()
			} else {
				res.Reward, reason, err = s.payReward(svc, caller, netReward)
				if err != nil {
					return err
				}
			}
		}
		if res.Reward.Sign() > 0 {
			svc.events.Add(events.RewardPaid{Account: caller, StakeID: id, Amount: res.Reward})
		}
		res.Deferred.Sub(netReward, res.Reward)
		if res.Deferred.Sign() > 0 {
			if err := svc.pool.Defer(caller, res.Deferred); err != nil {
				return err
			}
			s.undistributed(svc, caller, id, res.Deferred, reason, true)
		}

		svc.events.Add(events.Unstaked{
			StakeID:          id,
			Owner:            caller,
			Principal:        res.Principal,
			PrincipalPenalty: pen.PrincipalPenalty,
			Reward:           netReward,
			RewardPenalty:    pen.RewardPenalty,
			AntiCycling:      pen.AntiCycling,
			Time:             now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func principalErr(err error) error {
	if isTransferError(err) {
		return reverts.ErrPrincipalTransfer.Withf("%v", err)
	}
	return err
}

func (s *Staker) undistributed(svc *services, account thor.Address, stakeID uint64, amount *big.Int, reason string, deferred bool) {
	logger.Warn("reward undistributed", "account", account, "stake", stakeID, "amount", amount, "reason", reason)
	metricUndistributed().Add(1)
	svc.events.Add(events.RewardUndistributed{
		Account:  account,
		StakeID:  stakeID,
		Amount:   new(big.Int).Set(amount),
		Reason:   reason,
		Deferred: deferred,
	})
}

// Claim pays the pending reward of a matured, still active stake. What the
// pool cannot cover stays credited to the stake.
func (s *Staker) Claim(caller thor.Address, id uint64, now uint64) (*big.Int, error) {
	var paid *big.Int
	err := s.write("claim", func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if err := ctl.check(now); err != nil {
			return err
		}
		if err := s.accrue(svc, now); err != nil {
			return err
		}

		stake, err := svc.stakes.Get(id)
		if err != nil {
			return err
		}
		if stake.Owner != caller {
			return reverts.ErrNotStakeOwner.Withf("stake %d", id)
		}
		if !stake.Active {
			return reverts.ErrStakeInactive.Withf("stake %d", id)
		}
		t, err := s.stakeTier(stake)
		if err != nil {
			return err
		}
		if elapsedSince(stake.StartTime, now) < t.Duration() {
			return reverts.ErrStakeLocked.Withf("stake %d matures at %d", id, stake.StartTime+t.Duration())
		}

		ts, err := svc.accrual.Get(stake.Tier)
		if err != nil {
			return err
		}
		if _, err := svc.stakes.Settle(id, ts.Accumulator); err != nil {
			return err
		}
		if stake, err = svc.stakes.Get(id); err != nil {
			return err
		}
		if stake.Settled.Sign() == 0 {
			return reverts.ErrNothingClaimable.Withf("stake %d", id)
		}

		owed := new(big.Int).Set(stake.Settled)
		var reason string
		paid, reason, err = s.payReward(svc, caller, owed)
		if err != nil {
			return err
		}
		if paid.Sign() > 0 {
			stake.Settled = new(big.Int).Sub(stake.Settled, paid)
			if err := svc.stakes.Update(id, stake); err != nil {
				return err
			}
			svc.events.Add(events.RewardPaid{Account: caller, StakeID: id, Amount: paid})
		}
		if rest := new(big.Int).Sub(owed, paid); rest.Sign() > 0 {
			s.undistributed(svc, caller, id, rest, reason, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimDeferred pays reward deferred at exit, as far as liquidity allows.
func (s *Staker) ClaimDeferred(caller thor.Address, now uint64) (*big.Int, error) {
	var paid *big.Int
	err := s.write("claim_deferred", func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if err := ctl.check(now); err != nil {
			return err
		}
		owed, err := svc.pool.DeferredOf(caller)
		if err != nil {
			return err
		}
		if owed.Sign() == 0 {
			return reverts.ErrNothingClaimable.Withf("no deferred reward for %v", caller)
		}

		var reason string
		if paid, reason, err = s.payReward(svc, caller, owed); err != nil {
			return err
		}
		if paid.Sign() > 0 {
			if _, err := svc.pool.TakeDeferred(caller, paid); err != nil {
				return err
			}
			svc.events.Add(events.RewardPaid{Account: caller, Amount: paid})
		}
		if rest := new(big.Int).Sub(owed, paid); rest.Sign() > 0 {
			s.undistributed(svc, caller, 0, rest, reason, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimReferrerCommission pays the referrer's claimable commission across
// all grants. Commission is paid from liquidity not promised to stakers.
func (s *Staker) ClaimReferrerCommission(referrer thor.Address, now uint64) (*referral.ClaimResult, error) {
	var res *referral.ClaimResult
	err := s.write("claim_commission", func(svc *services) error {
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if err := ctl.check(now); err != nil {
			return err
		}
		if err := s.accrue(svc, now); err != nil {
			return err
		}
		ps, err := svc.pool.Get()
		if err != nil {
			return err
		}
		if res, err = svc.referral.Claim(referrer, now, ps.Available()); err != nil {
			return err
		}
		if res.Paid.Sign() > 0 {
			if err := svc.pool.PayUnpromised(res.Paid); err != nil {
				return err
			}
			if err := s.transfer(svc, s.cfg.RewardPool, referrer, res.Paid); err != nil {
				if isTransferError(err) {
					return reverts.ErrTransferFailed.Withf("%v", err)
				}
				return err
			}
		}
		if res.Unpaid.Sign() > 0 {
			s.undistributed(svc, referrer, 0, res.Unpaid, "insufficient liquidity", false)
		}
		svc.events.Add(events.CommissionClaimed{Referrer: referrer, Amount: res.Paid, Pruned: res.Pruned})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FundRewards moves amount from the funder into the reward pool. Accrual is
// brought current first, so the new liquidity only backs future emission.
func (s *Staker) FundRewards(from thor.Address, amount *big.Int, now uint64) error {
	return s.write("fund", func(svc *services) error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		if err := s.accrue(svc, now); err != nil {
			return err
		}
		if err := svc.pool.Fund(amount); err != nil {
			return err
		}
		if err := s.pull(svc, from, s.cfg.RewardPool, amount); err != nil {
			if isTransferError(err) {
				return reverts.ErrTransferFailed.Withf("%v", err)
			}
			return err
		}
		svc.events.Add(events.RewardFunded{From: from, Amount: new(big.Int).Set(amount)})
		return nil
	})
}

// Reconcile aligns the bookkeeping with the custody balances held by the
// ledger and moves value between the pools so the stake pool holds exactly
// the active principal. A shortfall the reward side cannot cover trips the
// circuit breaker.
func (s *Staker) Reconcile(now uint64) (*pool.ReconcileResult, error) {
	var res *pool.ReconcileResult
	err := s.write("reconcile", func(svc *services) error {
		if err := s.accrue(svc, now); err != nil {
			return err
		}
		actualStake, err := s.balanceOf(svc, s.cfg.StakePool)
		if err != nil {
			return err
		}
		actualReward, err := s.balanceOf(svc, s.cfg.RewardPool)
		if err != nil {
			return err
		}
		if res, err = svc.pool.Reconcile(actualStake, actualReward); err != nil {
			return err
		}

		switch res.Rebalance.Sign() {
		case 1:
			err = s.transfer(svc, s.cfg.StakePool, s.cfg.RewardPool, res.Rebalance)
		case -1:
			err = s.transfer(svc, s.cfg.RewardPool, s.cfg.StakePool, new(big.Int).Neg(res.Rebalance))
		}
		if err != nil {
			if isTransferError(err) {
				return reverts.ErrTransferFailed.Withf("%v", err)
			}
			return err
		}

		if res.Surplus.Sign() > 0 {
			svc.events.Add(events.ReconciledSurplus{Amount: res.Surplus})
		}
		if res.Shortfall.Sign() > 0 {
			logger.Warn("custody shortfall", "shortfall", res.Shortfall, "absorbed", res.Absorbed, "uncovered", res.Uncovered)
			metricShortfalls().Add(1)
			svc.events.Add(events.ReconciledShortfall{
				Shortfall: res.Shortfall,
				Absorbed:  res.Absorbed,
				Uncovered: res.Uncovered,
			})
		}
		if res.Uncovered.Sign() > 0 {
			return s.tripBreaker(svc, thor.Address{}, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
