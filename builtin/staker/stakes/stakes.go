// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/accrual"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/thor"
)

var (
	slotStakes   = thor.BytesToBytes32([]byte("stakes"))
	slotAccounts = thor.BytesToBytes32([]byte("stakes-accounts"))
	slotNextID   = thor.BytesToBytes32([]byte("stakes-next-id"))
)

// DefaultMaxPerAccount bounds the settlement loop run on every new stake.
const DefaultMaxPerAccount = 100

// Stake is one lock of principal. Records are never removed, Active false is terminal.
type Stake struct {
	Owner          thor.Address
	Principal      *big.Int
	Tier           uint8
	StartTime      uint64
	RewardSnapshot *big.Int     // tier accumulator at last settlement
	Settled        *big.Int     // reward credited at settlement, not yet paid
	Referrer       thor.Address // zero when not referred
	GrantID        uint64       // referral grant, zero when not referred
	Active         bool
}

func (s *Stake) normalize() {
	if s.Principal == nil {
		s.Principal = new(big.Int)
	}
	if s.RewardSnapshot == nil {
		s.RewardSnapshot = new(big.Int)
	}
	if s.Settled == nil {
		s.Settled = new(big.Int)
	}
}

// IsEmpty returns whether the record was never created.
func (s *Stake) IsEmpty() bool {
	return s.Owner.IsZero() && s.Principal.Sign() == 0
}

// HasReferrer returns whether the stake was referred.
func (s *Stake) HasReferrer() bool {
	return !s.Referrer.IsZero()
}

// Pending returns the reward owed at the given tier accumulator.
func (s *Stake) Pending(accumulator *big.Int) *big.Int {
	return accrual.Pending(s.Principal, accumulator, s.RewardSnapshot, s.Settled)
}

// accountIndex holds the active stake ids of an account, unordered.
type accountIndex struct {
	IDs []uint64
}

// Service is the stake registry.
type Service struct {
	stakes   *solidity.Mapping[solidity.Uint64Key, *Stake]
	accounts *solidity.Mapping[thor.Address, *accountIndex]
	nextID   *solidity.Raw[uint64]
	accrual  *accrual.Service
	max      int
}

func New(sctx *solidity.Context, accrualService *accrual.Service, maxPerAccount int) *Service {
	if maxPerAccount <= 0 {
		maxPerAccount = DefaultMaxPerAccount
	}
	return &Service{
		stakes:   solidity.NewMapping[solidity.Uint64Key, *Stake](sctx, slotStakes),
		accounts: solidity.NewMapping[thor.Address, *accountIndex](sctx, slotAccounts),
		nextID:   solidity.NewRaw[uint64](sctx, slotNextID),
		accrual:  accrualService,
		max:      maxPerAccount,
	}
}

// Get returns the stake with the given id, or ErrInvalidStakeID.
func (s *Service) Get(id uint64) (*Stake, error) {
	if id == 0 {
		return nil, reverts.ErrInvalidStakeID.Withf("id %d", id)
	}
	stake, err := s.stakes.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get stake %d", id)
	}
	stake.normalize()
	if stake.IsEmpty() {
		return nil, reverts.ErrInvalidStakeID.Withf("id %d", id)
	}
	return stake, nil
}

// Update persists a modified stake.
func (s *Service) Update(id uint64, stake *Stake) error {
	if err := s.stakes.Set(solidity.Uint64Key(id), stake, false); err != nil {
		return errors.Wrapf(err, "failed to set stake %d", id)
	}
	return nil
}

// ActiveIDs returns the ids of an account's active stakes.
func (s *Service) ActiveIDs(owner thor.Address) ([]uint64, error) {
	idx, err := s.accounts.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account index")
	}
	return idx.IDs, nil
}

// Total returns the number of stakes ever created.
func (s *Service) Total() (uint64, error) {
	return s.nextID.Get()
}

// Create records a new active stake and adds its principal to the tier total.
// Tier membership is validated by the caller.
func (s *Service) Create(owner thor.Address, principal *big.Int, tier uint8, referrer thor.Address, now uint64, snapshot *big.Int) (uint64, *Stake, error) {
	if principal == nil || principal.Sign() <= 0 {
		return 0, nil, reverts.ErrZeroAmount
	}
	if !referrer.IsZero() && referrer == owner {
		return 0, nil, reverts.ErrSelfReferral.Withf("%v", owner)
	}
	idx, err := s.accounts.Get(owner)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to get account index")
	}
	if len(idx.IDs) >= s.max {
		return 0, nil, reverts.ErrTooManyStakes.Withf("%v has %d", owner, len(idx.IDs))
	}

	last, err := s.nextID.Get()
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to get next id")
	}
	id := last + 1
	stake := &Stake{
		Owner:          owner,
		Principal:      new(big.Int).Set(principal),
		Tier:           tier,
		StartTime:      now,
		RewardSnapshot: new(big.Int).Set(snapshot),
		Settled:        new(big.Int),
		Referrer:       referrer,
		Active:         true,
	}
	if err := s.stakes.Set(solidity.Uint64Key(id), stake, true); err != nil {
		return 0, nil, errors.Wrapf(err, "failed to set stake %d", id)
	}
	if err := s.nextID.Set(id); err != nil {
		return 0, nil, errors.Wrap(err, "failed to set next id")
	}
	idx.IDs = append(idx.IDs, id)
	if err := s.accounts.Set(owner, idx, len(idx.IDs) == 1); err != nil {
		return 0, nil, errors.Wrap(err, "failed to set account index")
	}
	if err := s.accrual.AddPrincipal(tier, principal); err != nil {
		return 0, nil, err
	}
	return id, stake, nil
}

// Deactivate flags an active stake inactive and subtracts its principal from the tier total.
func (s *Service) Deactivate(owner thor.Address, id uint64) (*Stake, error) {
	stake, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if stake.Owner != owner {
		return nil, reverts.ErrNotStakeOwner.Withf("stake %d", id)
	}
	if !stake.Active {
		return nil, reverts.ErrStakeInactive.Withf("stake %d", id)
	}

	idx, err := s.accounts.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account index")
	}
	pos := -1
	for i, v := range idx.IDs {
		if v == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, reverts.ErrInvariant.Withf("stake %d missing from account index", id)
	}
	// swap with last and pop, ids stay valid
	last := len(idx.IDs) - 1
	idx.IDs[pos] = idx.IDs[last]
	idx.IDs = idx.IDs[:last]
	if len(idx.IDs) == 0 {
		if err := s.accounts.Delete(owner); err != nil {
			return nil, errors.Wrap(err, "failed to clear account index")
		}
	} else if err := s.accounts.Set(owner, idx, false); err != nil {
		return nil, errors.Wrap(err, "failed to set account index")
	}

	stake.Active = false
	if err := s.Update(id, stake); err != nil {
		return nil, err
	}
	if err := s.accrual.SubPrincipal(stake.Tier, stake.Principal); err != nil {
		return nil, err
	}
	return stake, nil
}

// Settle credits the reward accrued since the snapshot into Settled and
// advances the snapshot to accumulator.
func (s *Service) Settle(id uint64, accumulator *big.Int) (*big.Int, error) {
	stake, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !stake.Active {
		return nil, reverts.ErrStakeInactive.Withf("stake %d", id)
	}
	credited := accrual.Pending(stake.Principal, accumulator, stake.RewardSnapshot, nil)
	if credited.Sign() == 0 && stake.RewardSnapshot.Cmp(accumulator) == 0 {
		return credited, nil
	}
	stake.Settled.Add(stake.Settled, credited)
	stake.RewardSnapshot = new(big.Int).Set(accumulator)
	if err := s.Update(id, stake); err != nil {
		return nil, err
	}
	return credited, nil
}
