// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/builtin/authority"
	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/builtin/staker/events"
	"github.com/vechain/tierstake/builtin/staker/tier"
	"github.com/vechain/tierstake/builtin/token"
	"github.com/vechain/tierstake/lvldb"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/test/datagen"
	"github.com/vechain/tierstake/thor"
)

var (
	tokenAddr     = thor.BytesToAddress([]byte("token"))
	authorityAddr = thor.BytesToAddress([]byte("authority"))
	t0            = uint64(1_700_000_000)
)

func tokens(n int64) *big.Int { return datagen.Tokens(n) }

type fixture struct {
	staker   *Staker
	db       *lvldb.LevelDB
	state    *state.State
	token    *token.Token
	auth     *authority.Authority
	recorder *events.Recorder
	admin    thor.Address
	funder   thor.Address
	cfg      Config
}

func newFixture(t *testing.T, mutate ...func(cfg *Config)) *fixture {
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := cfg.NewState(db)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		state:    st,
		token:    token.New(solidity.NewContext(tokenAddr, st, nil)),
		auth:     authority.New(solidity.NewContext(authorityAddr, st, nil)),
		recorder: &events.Recorder{},
		admin:    datagen.RandAddress(),
		funder:   datagen.RandAddress(),
		cfg:      cfg,
	}
	_, err = f.auth.Add(f.admin)
	require.NoError(t, err)
	require.NoError(t, st.Commit())

	f.staker, err = New(f.cfg, st, f.token, f.auth, WithEmitter(f.recorder))
	require.NoError(t, err)
	return f
}

// singleTier replaces the tiers with one tier of the given lock and rate.
func singleTier(days, rateBP, commissionPct uint64) func(cfg *Config) {
	return func(cfg *Config) {
		cfg.Tiers = []tier.Tier{{ID: 1, Days: days, RateBP: rateBP, CommissionPct: commissionPct}}
	}
}

// mint credits amount to addr and approves the engine for it.
func (f *fixture) mint(t *testing.T, addr thor.Address, amount *big.Int) {
	require.NoError(t, f.token.Mint(addr, amount))
	allowed, err := f.token.Allowance(addr, f.cfg.Address)
	require.NoError(t, err)
	require.NoError(t, f.token.Approve(addr, f.cfg.Address, new(big.Int).Add(allowed, amount)))
	require.NoError(t, f.state.Commit())
}

// fund adds reward liquidity through the engine.
func (f *fixture) fund(t *testing.T, amount *big.Int, now uint64) {
	f.mint(t, f.funder, amount)
	require.NoError(t, f.staker.FundRewards(f.funder, amount, now))
}

func (f *fixture) balance(t *testing.T, addr thor.Address) *big.Int {
	bal, err := f.token.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

func (f *fixture) pool(t *testing.T, now uint64) *PoolStatus {
	ps, err := f.staker.PoolStatus(now)
	require.NoError(t, err)
	return ps
}

type TestFunc func(t *testing.T)

// TestSequence runs a scripted series of operations against one engine.
type TestSequence struct {
	f     *fixture
	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(f *fixture) *TestSequence {
	return &TestSequence{f: f, funcs: make([]TestFunc, 0)}
}

func (st *TestSequence) AddFunc(fn TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, fn)
	return st
}

func (st *TestSequence) Mint(addr thor.Address, amount *big.Int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		st.f.mint(t, addr, amount)
	})
}

func (st *TestSequence) Fund(amount *big.Int, now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		st.f.fund(t, amount, now)
		t.Logf("funded %s rewards at %d", amount, now)
	})
}

func (st *TestSequence) Stake(addr thor.Address, amount *big.Int, tierID uint8, referrer thor.Address, now uint64, wantID uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		id, err := st.f.staker.Stake(addr, amount, tierID, referrer, now)
		if err != nil {
			t.Fatalf("failed to stake %s for %s: %v", amount, addr, err)
		}
		assert.Equal(t, wantID, id)
		t.Logf("staked %s in tier %d as %d", amount, tierID, id)
	})
}

func (st *TestSequence) Unstake(addr thor.Address, id uint64, now uint64, check func(t *testing.T, res *UnstakeResult)) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		res, err := st.f.staker.Unstake(addr, id, now)
		if err != nil {
			t.Fatalf("failed to unstake %d: %v", id, err)
		}
		t.Logf("unstaked %d: principal %s reward %s deferred %s", id, res.Principal, res.Reward, res.Deferred)
		if check != nil {
			check(t, res)
		}
	})
}

func (st *TestSequence) AssertBalance(addr thor.Address, want *big.Int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.Equal(t, want.String(), st.f.balance(t, addr).String(), "balance of %s", addr)
	})
}

func (st *TestSequence) AssertPending(id uint64, now uint64, want string) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		pending, err := st.f.staker.PendingReward(id, now)
		require.NoError(t, err)
		assert.Equal(t, want, pending.String(), "pending of stake %d", id)
	})
}

func (st *TestSequence) AssertTierPrincipal(tierID uint8, want *big.Int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		ts, err := st.f.staker.TierStatus(tierID)
		require.NoError(t, err)
		assert.Equal(t, want.String(), ts.TotalPrincipal.String(), "principal of tier %d", tierID)
	})
}

func (st *TestSequence) Run(t *testing.T) {
	for _, fn := range st.funcs {
		fn(t)
	}
}
