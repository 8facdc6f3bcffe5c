// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/gascharger"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

type TestStruct struct {
	Field1 uint64
	Field2 *big.Int
	Addr1  thor.Address
	Bytes1 thor.Bytes32
}

// newContext returns a fresh Context with in-memory DB and unlimited gas.
func newContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db, 0)
	require.NoError(t, err)
	return NewContext(thor.Address{1}, st, gascharger.New(0))
}

func resetCharger(ctx *Context, limit uint64) {
	ctx.charger = gascharger.New(limit)
}
