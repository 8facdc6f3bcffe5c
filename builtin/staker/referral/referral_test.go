// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package referral

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

const (
	day   = thor.SecondsPerDay
	term  = 90 * day
	start = uint64(1_700_000_000)
)

var referrer = thor.BytesToAddress([]byte("referrer"))

func newSvc(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db, 0)
	require.NoError(t, err)
	return New(solidity.NewContext(thor.BytesToAddress([]byte("referral")), st, nil), day)
}

func plenty() *big.Int {
	return big.NewInt(1e18)
}

func TestCreate(t *testing.T) {
	svc := newSvc(t)
	id, g, err := svc.Create(referrer, 7, big.NewInt(100000), 1, 1, term, start)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, "1000", g.TotalCommission.String())
	assert.Equal(t, start+day, g.NextEligibleClaimTime)
	assert.True(t, g.Active)

	a, err := svc.GetAccount(referrer)
	require.NoError(t, err)
	assert.Equal(t, "100000", a.TotalReferred.String())
	assert.Equal(t, "100000", a.Volume(1).String())
	assert.Equal(t, "0", a.Volume(2).String())
	assert.Equal(t, "1000", a.Unclaimed.String())
	assert.Equal(t, []uint64{1}, a.GrantIDs)
}

func TestClaimCadence(t *testing.T) {
	svc := newSvc(t)
	_, _, err := svc.Create(referrer, 1, big.NewInt(100000), 1, 1, term, start)
	require.NoError(t, err)

	_, err = svc.Claim(referrer, start+day-1, plenty())
	assert.True(t, errors.Is(err, reverts.ErrNothingClaimable), "gated until the first claim period")

	res, err := svc.Claim(referrer, start+10*day, plenty())
	require.NoError(t, err)
	assert.Equal(t, "111", res.Paid.String())
	assert.Equal(t, "0", res.Unpaid.String())

	g, _ := svc.GetGrant(1)
	assert.Equal(t, start+2*day, g.NextEligibleClaimTime)

	_, err = svc.Claim(referrer, start+10*day, plenty())
	assert.True(t, errors.Is(err, reverts.ErrNothingClaimable))

	res, err = svc.Claim(referrer, start+20*day, plenty())
	require.NoError(t, err)
	assert.Equal(t, "111", res.Paid.String())

	// after the term the full commission is vested
	res, err = svc.Claim(referrer, start+200*day, plenty())
	require.NoError(t, err)
	assert.Equal(t, "778", res.Paid.String())
	g, _ = svc.GetGrant(1)
	assert.Equal(t, 0, g.Claimed.Cmp(g.TotalCommission))
	assert.True(t, g.Active, "grant of a live stake stays indexed")
	a, _ := svc.GetAccount(referrer)
	assert.Equal(t, "0", a.Unclaimed.String())
}

func TestFreezeAtFortyPercent(t *testing.T) {
	svc := newSvc(t)
	id, _, err := svc.Create(referrer, 1, big.NewInt(100000), 1, 1, term, start)
	require.NoError(t, err)

	exit := start + term*4/10
	g, forfeited, err := svc.Freeze(id, exit)
	require.NoError(t, err)
	assert.False(t, g.Active)
	assert.Equal(t, "400", g.TotalCommission.String())
	assert.Equal(t, "600", forfeited.String())

	a, _ := svc.GetAccount(referrer)
	assert.Equal(t, "400", a.Unclaimed.String())
	assert.Equal(t, "0", a.Volume(1).String())

	// the frozen amount stays claimable long after the exit
	claimable, err := svc.Claimable(referrer, exit+365*day)
	require.NoError(t, err)
	assert.Equal(t, "400", claimable.String())

	res, err := svc.Claim(referrer, exit+365*day, plenty())
	require.NoError(t, err)
	assert.Equal(t, "400", res.Paid.String())
	assert.Equal(t, []uint64{id}, res.Pruned)

	ids, _, _ := svc.Grants(referrer)
	assert.Empty(t, ids)

	_, _, err = svc.Freeze(id, exit)
	assert.True(t, errors.Is(err, reverts.ErrInvariant))
}

func TestClaimBudget(t *testing.T) {
	svc := newSvc(t)
	for i := range 2 {
		_, _, err := svc.Create(referrer, uint64(i+1), big.NewInt(100000), 1, 1, term, start)
		require.NoError(t, err)
	}

	res, err := svc.Claim(referrer, start+term, big.NewInt(1500))
	require.NoError(t, err)
	assert.Equal(t, "2000", res.Claimable.String())
	assert.Equal(t, "1500", res.Paid.String())
	assert.Equal(t, "500", res.Unpaid.String())

	res, err = svc.Claim(referrer, start+term+day, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "0", res.Paid.String())
	assert.Equal(t, "500", res.Unpaid.String())

	a, _ := svc.GetAccount(referrer)
	assert.Equal(t, "500", a.Unclaimed.String())
}

func TestClaimedNeverExceedsTotal(t *testing.T) {
	svc := newSvc(t)
	principals := []int64{12345, 999, 100000, 7}
	for i, p := range principals {
		_, _, err := svc.Create(referrer, uint64(i+1), big.NewInt(p), 3, 3, 365*day, start+uint64(i)*day)
		require.NoError(t, err)
	}
	_, _, err := svc.Freeze(2, start+50*day)
	require.NoError(t, err)

	for now := start + day; now < start+400*day; now += 7 * day {
		_, err := svc.Claim(referrer, now, big.NewInt(50))
		if err != nil {
			require.True(t, errors.Is(err, reverts.ErrNothingClaimable))
		}
		claimed, total := new(big.Int), new(big.Int)
		for id := uint64(1); id <= uint64(len(principals)); id++ {
			g, err := svc.GetGrant(id)
			require.NoError(t, err)
			claimed.Add(claimed, g.Claimed)
			total.Add(total, g.TotalCommission)
		}
		assert.LessOrEqual(t, claimed.Cmp(total), 0)
	}
}
