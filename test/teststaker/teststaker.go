// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package teststaker wires a staking engine over an in-memory store for
// tests outside the staker package.
package teststaker

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/authority"
	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker"
	"github.com/vechain/tierstake/builtin/token"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/test/datagen"
	"github.com/vechain/tierstake/thor"
)

var (
	tokenAddr     = thor.BytesToAddress([]byte("token"))
	authorityAddr = thor.BytesToAddress([]byte("authority"))
)

type Env struct {
	Staker *staker.Staker
	State  *state.State
	Token  *token.Token
	Auth   *authority.Authority
	Config staker.Config
	Admin  thor.Address
	Funder thor.Address
}

// New builds an engine with the default config, modified by mutate.
func New(t *testing.T, mutate ...func(cfg *staker.Config)) *Env {
	cfg := staker.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := cfg.NewState(db)
	require.NoError(t, err)

	env := &Env{
		State:  st,
		Token:  token.New(solidity.NewContext(tokenAddr, st, nil)),
		Auth:   authority.New(solidity.NewContext(authorityAddr, st, nil)),
		Config: cfg,
		Admin:  datagen.RandAddress(),
		Funder: datagen.RandAddress(),
	}
	_, err = env.Auth.Add(env.Admin)
	require.NoError(t, err)
	require.NoError(t, st.Commit())

	env.Staker, err = staker.New(env.Config, st, env.Token, env.Auth)
	require.NoError(t, err)
	return env
}

// Mint credits amount to addr and approves the engine to pull it.
func (e *Env) Mint(t *testing.T, addr thor.Address, amount *big.Int) {
	require.NoError(t, e.Token.Mint(addr, amount))
	allowed, err := e.Token.Allowance(addr, e.Config.Address)
	require.NoError(t, err)
	require.NoError(t, e.Token.Approve(addr, e.Config.Address, new(big.Int).Add(allowed, amount)))
	require.NoError(t, e.State.Commit())
}

// Fund adds reward liquidity at now.
func (e *Env) Fund(t *testing.T, amount *big.Int, now uint64) {
	e.Mint(t, e.Funder, amount)
	require.NoError(t, e.Staker.FundRewards(e.Funder, amount, now))
}

// Stake mints amount to addr and stakes it.
func (e *Env) Stake(t *testing.T, addr thor.Address, amount *big.Int, tierID uint8, referrer thor.Address, now uint64) uint64 {
	e.Mint(t, addr, amount)
	id, err := e.Staker.Stake(addr, amount, tierID, referrer, now)
	require.NoError(t, err)
	return id
}
