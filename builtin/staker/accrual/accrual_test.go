// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accrual

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/builtin/staker/reverts"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

var year = thor.SecondsPerYear

func newSvc(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db, 0)
	require.NoError(t, err)
	return New(solidity.NewContext(thor.BytesToAddress([]byte("accrual")), st, nil))
}

func TestComputeEmission(t *testing.T) {
	plenty := new(big.Int).Lsh(big.NewInt(1), 128)
	tests := []struct {
		name      string
		principal int64
		rateBP    uint64
		elapsed   uint64
		want      string
	}{
		{"one year at 2%", 1000, 200, year, "20"},
		{"90 days at 2%, rounded half up", 1000, 200, 90 * thor.SecondsPerDay, "5"},
		{"one second", 1e18, 1000, 1, "3170979198"},
		{"one year at 10%", 1e6, 1000, year, "100000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em, total, scaled := ComputeEmission([]Input{{Tier: 1, TotalPrincipal: big.NewInt(tt.principal), RateBP: tt.rateBP}}, tt.elapsed, plenty)
			require.Len(t, em, 1)
			assert.False(t, scaled)
			assert.Equal(t, tt.want, em[0].Reward.String())
			assert.Equal(t, tt.want, total.String())
		})
	}
}

func TestComputeEmissionEdges(t *testing.T) {
	inputs := []Input{
		{Tier: 1, TotalPrincipal: big.NewInt(0), RateBP: 200},
		{Tier: 2, TotalPrincipal: big.NewInt(1000), RateBP: 1000},
	}

	em, _, _ := ComputeEmission(inputs, 0, big.NewInt(100))
	assert.Empty(t, em, "zero elapsed is a no-op")

	em, total, scaled := ComputeEmission(inputs, year, big.NewInt(0))
	require.Len(t, em, 1, "zero principal tier skipped")
	assert.True(t, scaled)
	assert.Equal(t, "100", total.String())
	assert.Equal(t, 0, em[0].Reward.Sign(), "empty pool emits nothing")
}

func TestUpdateScarcity(t *testing.T) {
	svc := newSvc(t)
	require.NoError(t, svc.AddPrincipal(1, big.NewInt(1000)))
	require.NoError(t, svc.AddPrincipal(2, big.NewInt(2000)))
	rates := []Rate{{1, 1000}, {2, 500}}

	// naive: 100 + 100, available is half
	res, err := svc.Update(rates, year, big.NewInt(100))
	require.NoError(t, err)
	assert.True(t, res.Scaled)
	assert.Equal(t, "200", res.Naive.String())
	assert.Equal(t, "100", res.Distributed.String())

	t1, _ := svc.Get(1)
	t2, _ := svc.Get(2)
	naive1 := new(big.Int).Div(new(big.Int).Mul(big.NewInt(100), fixedpoint.Precision), big.NewInt(1000))
	naive2 := new(big.Int).Div(new(big.Int).Mul(big.NewInt(100), fixedpoint.Precision), big.NewInt(2000))
	assert.Equal(t, new(big.Int).Rsh(naive1, 1).String(), t1.Accumulator.String())
	assert.Equal(t, new(big.Int).Rsh(naive2, 1).String(), t2.Accumulator.String())
}

func TestUpdateZeroPrincipalAndPool(t *testing.T) {
	svc := newSvc(t)
	rates := []Rate{{1, 1000}, {2, 500}}

	res, err := svc.Update(rates, year, big.NewInt(1000))
	require.NoError(t, err)
	assert.Empty(t, res.Emissions)
	t1, _ := svc.Get(1)
	assert.Equal(t, 0, t1.Accumulator.Sign())

	require.NoError(t, svc.AddPrincipal(1, big.NewInt(1000)))
	res, err = svc.Update(rates, year, new(big.Int))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Distributed.Sign())
	t1, _ = svc.Get(1)
	assert.Equal(t, 0, t1.Accumulator.Sign())
}

func TestUpdateMonotonic(t *testing.T) {
	svc := newSvc(t)
	rates := []Rate{{1, 200}, {2, 500}, {3, 1000}}
	prev := map[uint8]*big.Int{1: new(big.Int), 2: new(big.Int), 3: new(big.Int)}

	steps := []struct {
		tier    uint8
		add     int64
		sub     int64
		elapsed uint64
		pool    int64
	}{
		{1, 1000, 0, 3600, 1e6},
		{2, 5000, 0, thor.SecondsPerDay, 1e6},
		{3, 77, 0, 17, 1e6},
		{1, 0, 1000, 12345, 3},
		{2, 10, 0, year, 1},
		{3, 0, 77, year, 0},
	}
	for i, s := range steps {
		if s.add > 0 {
			require.NoError(t, svc.AddPrincipal(s.tier, big.NewInt(s.add)))
		}
		if s.sub > 0 {
			require.NoError(t, svc.SubPrincipal(s.tier, big.NewInt(s.sub)))
		}
		res, err := svc.Update(rates, s.elapsed, big.NewInt(s.pool))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Distributed.Cmp(big.NewInt(s.pool)), 0, "step %d emits within the pool", i)
		for id := uint8(1); id <= 3; id++ {
			st, _ := svc.Get(id)
			assert.GreaterOrEqual(t, st.Accumulator.Cmp(prev[id]), 0, "step %d tier %d", i, id)
			prev[id] = st.Accumulator
		}
	}
}

func TestSubPrincipalUnderflow(t *testing.T) {
	svc := newSvc(t)
	require.NoError(t, svc.AddPrincipal(1, big.NewInt(10)))
	err := svc.SubPrincipal(1, big.NewInt(11))
	assert.True(t, errors.Is(err, reverts.ErrInvariant))

	st, _ := svc.Get(1)
	assert.Equal(t, "10", st.TotalPrincipal.String())
}

func TestPending(t *testing.T) {
	acc := new(big.Int).Mul(big.NewInt(3), fixedpoint.Precision)
	snap := fixedpoint.Precision
	assert.Equal(t, "2000", Pending(big.NewInt(1000), acc, snap, nil).String())
	assert.Equal(t, "2005", Pending(big.NewInt(1000), acc, snap, big.NewInt(5)).String())
	assert.Equal(t, "0", Pending(big.NewInt(1000), snap, acc, nil).String(), "never negative")
}

func TestPreviewDoesNotWrite(t *testing.T) {
	svc := newSvc(t)
	require.NoError(t, svc.AddPrincipal(1, big.NewInt(1000)))
	rates := []Rate{{1, 1000}}

	states, res, err := svc.Preview(rates, year, big.NewInt(1e6))
	require.NoError(t, err)
	assert.Equal(t, []uint8{1}, res.Touched)
	assert.Equal(t, "100000000000000000", states[1].Accumulator.String())

	st, _ := svc.Get(1)
	assert.Equal(t, 0, st.Accumulator.Sign())

	_, err = svc.Update(rates, year, big.NewInt(1e6))
	require.NoError(t, err)
	st, _ = svc.Get(1)
	assert.Equal(t, states[1].Accumulator.String(), st.Accumulator.String())
}
