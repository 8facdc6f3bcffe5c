// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/staker/events"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

//
// Admin operations, each requires Authorizer.IsAdmin(caller)
//

// SetTierRate overrides the annual rate of a tier, zero restores the
// configured rate. Accrual up to now is settled at the old rate.
func (s *Staker) SetTierRate(caller thor.Address, tierID uint8, rateBP uint64, now uint64) error {
	return s.write("set_tier_rate", func(svc *services) error {
		if err := s.requireAdmin(svc, caller); err != nil {
			return err
		}
		t, ok := s.tiers.Get(tierID)
		if !ok {
			return reverts.ErrUnknownTier.Withf("tier %d", tierID)
		}
		if rateBP > thor.BasisPoints {
			return reverts.ErrInvalidRate.Withf("%d bp above 100%%", rateBP)
		}
		if err := s.accrue(svc, now); err != nil {
			return err
		}
		old, err := s.rate(svc, t)
		if err != nil {
			return err
		}
		if err := svc.params.SetTierRate(tierID, rateBP); err != nil {
			return err
		}
		current, err := s.rate(svc, t)
		if err != nil {
			return err
		}
		svc.events.Add(events.TierRateChanged{Tier: tierID, OldRateBP: old, NewRateBP: current})
		return nil
	})
}

// SetPaused suspends or resumes reward affecting operations.
func (s *Staker) SetPaused(caller thor.Address, paused bool) error {
	return s.write("set_paused", func(svc *services) error {
		if err := s.requireAdmin(svc, caller); err != nil {
			return err
		}
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if ctl.Paused == paused {
			return nil
		}
		ctl.Paused = paused
		if err := svc.control.Set(ctl); err != nil {
			return errors.Wrap(err, "failed to set control")
		}
		svc.events.Add(events.PauseChanged{By: caller, Paused: paused})
		return nil
	})
}

// TripCircuitBreaker suspends reward affecting operations for the
// configured cooldown.
func (s *Staker) TripCircuitBreaker(caller thor.Address, now uint64) error {
	return s.write("trip_breaker", func(svc *services) error {
		if err := s.requireAdmin(svc, caller); err != nil {
			return err
		}
		return s.tripBreaker(svc, caller, now)
	})
}

func (s *Staker) tripBreaker(svc *services, by thor.Address, now uint64) error {
	ctl, err := svc.getControl()
	if err != nil {
		return err
	}
	ctl.BreakerUntil = now + s.cfg.CircuitBreakerCooldown
	if err := svc.control.Set(ctl); err != nil {
		return errors.Wrap(err, "failed to set control")
	}
	logger.Warn("circuit breaker tripped", "by", by, "until", ctl.BreakerUntil)
	svc.events.Add(events.CircuitBreakerTripped{By: by, Until: ctl.BreakerUntil})
	return nil
}

// ResetCircuitBreaker clears the circuit breaker before its cooldown ends.
func (s *Staker) ResetCircuitBreaker(caller thor.Address) error {
	return s.write("reset_breaker", func(svc *services) error {
		if err := s.requireAdmin(svc, caller); err != nil {
			return err
		}
		ctl, err := svc.getControl()
		if err != nil {
			return err
		}
		if ctl.BreakerUntil == 0 {
			return nil
		}
		ctl.BreakerUntil = 0
		if err := svc.control.Set(ctl); err != nil {
			return errors.Wrap(err, "failed to set control")
		}
		svc.events.Add(events.CircuitBreakerReset{By: caller})
		return nil
	})
}
