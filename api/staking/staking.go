// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/tierstake/api/utils"
	"github.com/vechain/tierstake/builtin/staker"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

// Staking serves read-only views of the staking engine.
type Staking struct {
	staker *staker.Staker
	clock  func() uint64
}

// New creates the handlers. A nil clock reads the wall clock; the "now"
// query parameter overrides it per request.
func New(s *staker.Staker, clock func() uint64) *Staking {
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Staking{staker: s, clock: clock}
}

func (s *Staking) now(req *http.Request) (uint64, error) {
	now, err := utils.ParseUint64(req.URL.Query().Get("now"), s.clock())
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "now"))
	}
	return now, nil
}

func stakeID(req *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

func address(req *http.Request) (thor.Address, error) {
	addr, err := thor.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return thor.Address{}, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	return *addr, nil
}

// toHTTP maps engine errors onto response statuses.
func toHTTP(err error) error {
	if errors.Is(err, reverts.ErrInvalidStakeID) || errors.Is(err, reverts.ErrUnknownTier) {
		return utils.NotFound(err)
	}
	return utils.RevertError(err)
}

func (s *Staking) handleGetTiers(w http.ResponseWriter, _ *http.Request) error {
	tiers := s.staker.Tiers()
	out := make([]*Tier, 0, len(tiers))
	for _, t := range tiers {
		ts, err := s.staker.TierStatus(t.ID)
		if err != nil {
			return toHTTP(err)
		}
		out = append(out, convertTier(ts))
	}
	return utils.WriteJSON(w, out)
}

func (s *Staking) handleGetTier(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["tier"], 10, 8)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "tier"))
	}
	ts, err := s.staker.TierStatus(uint8(id))
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, convertTier(ts))
}

func (s *Staking) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	now, err := s.now(req)
	if err != nil {
		return err
	}
	ps, err := s.staker.PoolStatus(now)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, convertPool(ps))
}

func (s *Staking) handleGetControl(w http.ResponseWriter, req *http.Request) error {
	now, err := s.now(req)
	if err != nil {
		return err
	}
	ctl, err := s.staker.Control(now)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, &Control{
		Paused:               ctl.Paused,
		CircuitBreakerActive: ctl.CircuitBreakerActive,
		CircuitBreakerUntil:  ctl.CircuitBreakerUntil,
	})
}

func (s *Staking) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	id, err := stakeID(req)
	if err != nil {
		return err
	}
	stake, err := s.staker.GetStake(id)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, convertStake(id, stake))
}

func (s *Staking) handleGetPending(w http.ResponseWriter, req *http.Request) error {
	id, err := stakeID(req)
	if err != nil {
		return err
	}
	now, err := s.now(req)
	if err != nil {
		return err
	}
	reward, err := s.staker.PendingReward(id, now)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, &Pending{StakeID: id, Time: now, Reward: hex(reward)})
}

func (s *Staking) handleGetPenalty(w http.ResponseWriter, req *http.Request) error {
	id, err := stakeID(req)
	if err != nil {
		return err
	}
	now, err := s.now(req)
	if err != nil {
		return err
	}
	res, err := s.staker.PenaltyPreview(id, now)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, convertPenalty(id, now, res))
}

func (s *Staking) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := address(req)
	if err != nil {
		return err
	}
	ids, err := s.staker.Stakes(addr)
	if err != nil {
		return toHTTP(err)
	}
	out := &Account{Address: addr, Stakes: make([]*Stake, 0, len(ids))}
	for _, id := range ids {
		stake, err := s.staker.GetStake(id)
		if err != nil {
			return toHTTP(err)
		}
		out.Stakes = append(out.Stakes, convertStake(id, stake))
	}
	deferred, err := s.staker.DeferredReward(addr)
	if err != nil {
		return toHTTP(err)
	}
	out.Deferred = hex(deferred)
	return utils.WriteJSON(w, out)
}

func (s *Staking) handleGetReferrer(w http.ResponseWriter, req *http.Request) error {
	addr, err := address(req)
	if err != nil {
		return err
	}
	now, err := s.now(req)
	if err != nil {
		return err
	}
	account, err := s.staker.ReferrerAccount(addr)
	if err != nil {
		return toHTTP(err)
	}
	grants, err := s.staker.Grants(addr, now)
	if err != nil {
		return toHTTP(err)
	}
	return utils.WriteJSON(w, convertReferrer(addr, account, grants))
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/tiers").
		Methods(http.MethodGet).
		Name("staking_get_tiers").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetTiers))
	sub.Path("/tiers/{tier}").
		Methods(http.MethodGet).
		Name("staking_get_tier").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetTier))
	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("staking_get_pool").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPool))
	sub.Path("/control").
		Methods(http.MethodGet).
		Name("staking_get_control").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetControl))
	sub.Path("/stakes/{id}").
		Methods(http.MethodGet).
		Name("staking_get_stake").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetStake))
	sub.Path("/stakes/{id}/pending").
		Methods(http.MethodGet).
		Name("staking_get_pending").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPending))
	sub.Path("/stakes/{id}/penalty").
		Methods(http.MethodGet).
		Name("staking_get_penalty").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPenalty))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("staking_get_account").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetAccount))
	sub.Path("/referrers/{address}").
		Methods(http.MethodGet).
		Name("staking_get_referrer").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetReferrer))
}
