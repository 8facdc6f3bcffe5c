// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package referral

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

var (
	slotGrants   = thor.BytesToBytes32([]byte("referral-grants"))
	slotAccounts = thor.BytesToBytes32([]byte("referral-accounts"))
	slotNextID   = thor.BytesToBytes32([]byte("referral-next-id"))
)

// Grant is the commission entitlement of a referrer on one referred stake.
type Grant struct {
	Referrer              thor.Address
	StakeID               uint64
	Principal             *big.Int
	Tier                  uint8
	StartTime             uint64
	Duration              uint64
	TotalCommission       *big.Int // frozen at the earned value on early exit
	Claimed               *big.Int
	NextEligibleClaimTime uint64
	Active                bool
}

func (g *Grant) normalize() {
	if g.Principal == nil {
		g.Principal = new(big.Int)
	}
	if g.TotalCommission == nil {
		g.TotalCommission = new(big.Int)
	}
	if g.Claimed == nil {
		g.Claimed = new(big.Int)
	}
}

// Earned returns the commission vested at now, linear over the lock.
func (g *Grant) Earned(now uint64) *big.Int {
	if !g.Active {
		return new(big.Int).Set(g.TotalCommission)
	}
	elapsed := uint64(0)
	if now > g.StartTime {
		elapsed = now - g.StartTime
	}
	if g.Duration == 0 || elapsed >= g.Duration {
		return new(big.Int).Set(g.TotalCommission)
	}
	return fixedpoint.MulDiv(g.TotalCommission, new(big.Int).SetUint64(elapsed), new(big.Int).SetUint64(g.Duration))
}

// Claimable returns what can be claimed at now. Nothing is claimable before
// NextEligibleClaimTime.
func (g *Grant) Claimable(now uint64) *big.Int {
	if now < g.NextEligibleClaimTime {
		return new(big.Int)
	}
	return fixedpoint.SubFloor(g.Earned(now), g.Claimed)
}

// Done returns whether the grant is inactive and fully claimed.
func (g *Grant) Done() bool {
	return !g.Active && g.Claimed.Cmp(g.TotalCommission) >= 0
}

// TierVolume is the active referred principal of one tier.
type TierVolume struct {
	Tier   uint8
	Amount *big.Int
}

// Account aggregates a referrer's grants.
type Account struct {
	TotalReferred *big.Int
	ActiveVolume  []TierVolume
	Unclaimed     *big.Int // sum of TotalCommission - Claimed over all grants
	GrantIDs      []uint64 // grants not yet done
}

func (a *Account) normalize() {
	if a.TotalReferred == nil {
		a.TotalReferred = new(big.Int)
	}
	if a.Unclaimed == nil {
		a.Unclaimed = new(big.Int)
	}
}

// Volume returns the active referred principal of a tier.
func (a *Account) Volume(tier uint8) *big.Int {
	for _, v := range a.ActiveVolume {
		if v.Tier == tier {
			return v.Amount
		}
	}
	return new(big.Int)
}

func (a *Account) addVolume(tier uint8, delta *big.Int) error {
	for i, v := range a.ActiveVolume {
		if v.Tier == tier {
			sum := new(big.Int).Add(v.Amount, delta)
			if sum.Sign() < 0 {
				return reverts.ErrInvariant.Withf("tier %d referred volume below zero", tier)
			}
			a.ActiveVolume[i].Amount = sum
			return nil
		}
	}
	if delta.Sign() < 0 {
		return reverts.ErrInvariant.Withf("tier %d referred volume below zero", tier)
	}
	a.ActiveVolume = append(a.ActiveVolume, TierVolume{Tier: tier, Amount: new(big.Int).Set(delta)})
	return nil
}

// ClaimResult describes a commission claim.
type ClaimResult struct {
	Claimable *big.Int // total claimable before the liquidity cap
	Paid      *big.Int
	Unpaid    *big.Int // claimable but not covered by liquidity
	Pruned    []uint64
}

// Service is the referral commission ledger.
type Service struct {
	grants      *solidity.Mapping[solidity.Uint64Key, *Grant]
	accounts    *solidity.Mapping[thor.Address, *Account]
	nextID      *solidity.Raw[uint64]
	claimPeriod uint64
}

func New(sctx *solidity.Context, claimPeriod uint64) *Service {
	return &Service{
		grants:      solidity.NewMapping[solidity.Uint64Key, *Grant](sctx, slotGrants),
		accounts:    solidity.NewMapping[thor.Address, *Account](sctx, slotAccounts),
		nextID:      solidity.NewRaw[uint64](sctx, slotNextID),
		claimPeriod: claimPeriod,
	}
}

// GetGrant returns a grant by id.
func (s *Service) GetGrant(id uint64) (*Grant, error) {
	g, err := s.grants.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get grant %d", id)
	}
	g.normalize()
	if g.Referrer.IsZero() {
		return nil, reverts.ErrInvariant.Withf("grant %d does not exist", id)
	}
	return g, nil
}

func (s *Service) setGrant(id uint64, g *Grant, newValue bool) error {
	if err := s.grants.Set(solidity.Uint64Key(id), g, newValue); err != nil {
		return errors.Wrapf(err, "failed to set grant %d", id)
	}
	return nil
}

// GetAccount returns the aggregate of a referrer.
func (s *Service) GetAccount(referrer thor.Address) (*Account, error) {
	a, err := s.accounts.Get(referrer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get referrer account")
	}
	a.normalize()
	return a, nil
}

func (s *Service) setAccount(referrer thor.Address, a *Account) error {
	if err := s.accounts.Set(referrer, a, false); err != nil {
		return errors.Wrap(err, "failed to set referrer account")
	}
	return nil
}

// Grants returns the referrer's grants that are not yet done, keyed by grant id.
func (s *Service) Grants(referrer thor.Address) ([]uint64, []*Grant, error) {
	a, err := s.GetAccount(referrer)
	if err != nil {
		return nil, nil, err
	}
	grants := make([]*Grant, 0, len(a.GrantIDs))
	for _, id := range a.GrantIDs {
		g, err := s.GetGrant(id)
		if err != nil {
			return nil, nil, err
		}
		grants = append(grants, g)
	}
	return a.GrantIDs, grants, nil
}

// Create opens a grant of principal * commissionPct / 100 for a referred stake.
func (s *Service) Create(referrer thor.Address, stakeID uint64, principal *big.Int, tier uint8, commissionPct, duration, now uint64) (uint64, *Grant, error) {
	commission := new(big.Int).Mul(principal, new(big.Int).SetUint64(commissionPct))
	commission.Quo(commission, big.NewInt(100))

	last, err := s.nextID.Get()
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to get next grant id")
	}
	id := last + 1
	g := &Grant{
		Referrer:              referrer,
		StakeID:               stakeID,
		Principal:             new(big.Int).Set(principal),
		Tier:                  tier,
		StartTime:             now,
		Duration:              duration,
		TotalCommission:       commission,
		Claimed:               new(big.Int),
		NextEligibleClaimTime: now + s.claimPeriod,
		Active:                true,
	}
	if err := s.setGrant(id, g, true); err != nil {
		return 0, nil, err
	}
	if err := s.nextID.Set(id); err != nil {
		return 0, nil, errors.Wrap(err, "failed to set next grant id")
	}

	a, err := s.GetAccount(referrer)
	if err != nil {
		return 0, nil, err
	}
	a.TotalReferred.Add(a.TotalReferred, principal)
	if err := a.addVolume(tier, principal); err != nil {
		return 0, nil, err
	}
	a.Unclaimed.Add(a.Unclaimed, commission)
	a.GrantIDs = append(a.GrantIDs, id)
	if err := s.setAccount(referrer, a); err != nil {
		return 0, nil, err
	}
	return id, g, nil
}

// Freeze closes a grant when its stake exits. The total is cut to what was
// earned by now. It returns the grant and the commission forfeited.
func (s *Service) Freeze(id uint64, now uint64) (*Grant, *big.Int, error) {
	g, err := s.GetGrant(id)
	if err != nil {
		return nil, nil, err
	}
	if !g.Active {
		return nil, nil, reverts.ErrInvariant.Withf("grant %d already frozen", id)
	}
	earned := g.Earned(now)
	forfeited := new(big.Int).Sub(g.TotalCommission, earned)
	g.TotalCommission = earned
	g.Active = false

	a, err := s.GetAccount(g.Referrer)
	if err != nil {
		return nil, nil, err
	}
	if err := a.addVolume(g.Tier, new(big.Int).Neg(g.Principal)); err != nil {
		return nil, nil, err
	}
	a.Unclaimed.Sub(a.Unclaimed, forfeited)
	if g.Done() {
		a.GrantIDs = removeID(a.GrantIDs, id)
	}
	if err := s.setGrant(id, g, false); err != nil {
		return nil, nil, err
	}
	if err := s.setAccount(g.Referrer, a); err != nil {
		return nil, nil, err
	}
	return g, forfeited, nil
}

// Claimable returns the referrer's total claimable commission at now.
func (s *Service) Claimable(referrer thor.Address, now uint64) (*big.Int, error) {
	_, grants, err := s.Grants(referrer)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, g := range grants {
		total.Add(total, g.Claimable(now))
	}
	return total, nil
}

// Claim pays the referrer's claimable commission across all grants, up to
// budget. Each grant that receives a payment has its eligibility advanced by
// one claim period. Done grants are pruned from the index.
func (s *Service) Claim(referrer thor.Address, now uint64, budget *big.Int) (*ClaimResult, error) {
	ids, grants, err := s.Grants(referrer)
	if err != nil {
		return nil, err
	}
	res := &ClaimResult{Claimable: new(big.Int), Paid: new(big.Int), Unpaid: new(big.Int)}
	remaining := new(big.Int).Set(budget)
	keep := make([]uint64, 0, len(ids))
	for i, g := range grants {
		id := ids[i]
		claimable := g.Claimable(now)
		if claimable.Sign() > 0 {
			res.Claimable.Add(res.Claimable, claimable)
			pay := fixedpoint.Min(claimable, remaining)
			if pay.Sign() > 0 {
				g.Claimed.Add(g.Claimed, pay)
				if g.Claimed.Cmp(g.TotalCommission) > 0 {
					return nil, reverts.ErrInvariant.Withf("grant %d claimed above total", id)
				}
				g.NextEligibleClaimTime += s.claimPeriod
				remaining.Sub(remaining, pay)
				res.Paid.Add(res.Paid, pay)
				if err := s.setGrant(id, g, false); err != nil {
					return nil, err
				}
			}
		}
		if g.Done() {
			res.Pruned = append(res.Pruned, id)
			continue
		}
		keep = append(keep, id)
	}
	if res.Claimable.Sign() == 0 {
		return nil, reverts.ErrNothingClaimable.Withf("referrer %v", referrer)
	}
	res.Unpaid.Sub(res.Claimable, res.Paid)

	a, err := s.GetAccount(referrer)
	if err != nil {
		return nil, err
	}
	a.Unclaimed.Sub(a.Unclaimed, res.Paid)
	if a.Unclaimed.Sign() < 0 {
		return nil, reverts.ErrInvariant.Withf("referrer %v unclaimed below zero", referrer)
	}
	a.GrantIDs = keep
	if err := s.setAccount(referrer, a); err != nil {
		return nil, err
	}
	return res, nil
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			last := len(ids) - 1
			ids[i] = ids[last]
			return ids[:last]
		}
	}
	return ids
}
