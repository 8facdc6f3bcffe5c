// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/accrual"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

var (
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func newSvc(t *testing.T, max int) (*Service, *accrual.Service) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db, 0)
	require.NoError(t, err)
	sctx := solidity.NewContext(thor.BytesToAddress([]byte("stakes")), st, nil)
	acc := accrual.New(sctx)
	return New(sctx, acc, max), acc
}

func totalPrincipal(t *testing.T, acc *accrual.Service, tier uint8) string {
	st, err := acc.Get(tier)
	require.NoError(t, err)
	return st.TotalPrincipal.String()
}

func TestCreateAndGet(t *testing.T) {
	svc, acc := newSvc(t, 0)
	snap := big.NewInt(42)

	id, stake, err := svc.Create(alice, big.NewInt(1000), 1, bob, 100, snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.True(t, stake.Active)
	assert.True(t, stake.HasReferrer())

	got, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, alice, got.Owner)
	assert.Equal(t, "1000", got.Principal.String())
	assert.Equal(t, "42", got.RewardSnapshot.String())
	assert.Equal(t, uint64(100), got.StartTime)
	assert.Equal(t, "1000", totalPrincipal(t, acc, 1))

	id2, _, err := svc.Create(alice, big.NewInt(5), 2, thor.Address{}, 101, snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id2)

	ids, err := svc.ActiveIDs(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
	total, _ := svc.Total()
	assert.Equal(t, uint64(2), total)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newSvc(t, 2)
	snap := new(big.Int)

	_, _, err := svc.Create(alice, big.NewInt(0), 1, thor.Address{}, 0, snap)
	assert.True(t, errors.Is(err, reverts.ErrZeroAmount))

	_, _, err = svc.Create(alice, big.NewInt(1), 1, alice, 0, snap)
	assert.True(t, errors.Is(err, reverts.ErrSelfReferral))

	for range 2 {
		_, _, err = svc.Create(alice, big.NewInt(1), 1, thor.Address{}, 0, snap)
		require.NoError(t, err)
	}
	_, _, err = svc.Create(alice, big.NewInt(1), 1, thor.Address{}, 0, snap)
	assert.True(t, errors.Is(err, reverts.ErrTooManyStakes))

	_, err = svc.Get(0)
	assert.True(t, errors.Is(err, reverts.ErrInvalidStakeID))
	_, err = svc.Get(99)
	assert.True(t, errors.Is(err, reverts.ErrInvalidStakeID))
}

func TestDeactivate(t *testing.T) {
	svc, acc := newSvc(t, 0)
	snap := new(big.Int)
	for i := range 3 {
		_, _, err := svc.Create(alice, big.NewInt(int64(10*(i+1))), 1, thor.Address{}, 0, snap)
		require.NoError(t, err)
	}
	assert.Equal(t, "60", totalPrincipal(t, acc, 1))

	_, err := svc.Deactivate(bob, 1)
	assert.True(t, errors.Is(err, reverts.ErrNotStakeOwner))

	stake, err := svc.Deactivate(alice, 1)
	require.NoError(t, err)
	assert.False(t, stake.Active)
	assert.Equal(t, "50", totalPrincipal(t, acc, 1))

	// swap with last keeps the other ids addressable
	ids, _ := svc.ActiveIDs(alice)
	assert.Equal(t, []uint64{3, 2}, ids)
	got, err := svc.Get(1)
	require.NoError(t, err)
	assert.False(t, got.Active, "records are kept")

	_, err = svc.Deactivate(alice, 1)
	assert.True(t, errors.Is(err, reverts.ErrStakeInactive))

	_, err = svc.Deactivate(alice, 2)
	require.NoError(t, err)
	_, err = svc.Deactivate(alice, 3)
	require.NoError(t, err)
	ids, _ = svc.ActiveIDs(alice)
	assert.Empty(t, ids)
	assert.Equal(t, "0", totalPrincipal(t, acc, 1))

	// ids are never reused
	id, _, err := svc.Create(alice, big.NewInt(1), 1, thor.Address{}, 0, snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)
}

func TestSettle(t *testing.T) {
	svc, _ := newSvc(t, 0)
	id, _, err := svc.Create(alice, big.NewInt(1000), 1, thor.Address{}, 0, new(big.Int))
	require.NoError(t, err)

	acc := new(big.Int).Div(fixedpoint.Precision, big.NewInt(100)) // 0.01 per unit
	credited, err := svc.Settle(id, acc)
	require.NoError(t, err)
	assert.Equal(t, "10", credited.String())

	stake, _ := svc.Get(id)
	assert.Equal(t, "10", stake.Settled.String())
	assert.Equal(t, acc.String(), stake.RewardSnapshot.String())
	assert.Equal(t, "10", stake.Pending(acc).String())

	acc2 := new(big.Int).Mul(acc, big.NewInt(3))
	assert.Equal(t, "30", stake.Pending(acc2).String())
	_, err = svc.Settle(id, acc2)
	require.NoError(t, err)
	stake, _ = svc.Get(id)
	assert.Equal(t, "30", stake.Settled.String())
}
