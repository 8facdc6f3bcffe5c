// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/test/datagen"
	"github.com/vechain/tierstake/test/teststaker"
	"github.com/vechain/tierstake/thor"
)

const t0 = uint64(1_700_000_000)

var (
	ts    *httptest.Server
	env   *teststaker.Env
	alice = datagen.RandAddress()
	bob   = datagen.RandAddress()
)

func initStakingServer(t *testing.T) {
	env = teststaker.New(t)
	env.Fund(t, datagen.Tokens(1_000_000), t0)
	env.Stake(t, alice, datagen.Tokens(1000), 3, bob, t0)

	router := mux.NewRouter()
	New(env.Staker, func() uint64 { return t0 + 146*thor.SecondsPerDay }).
		Mount(router, "/staking")
	ts = httptest.NewServer(router)
	t.Cleanup(ts.Close)
}

func TestStaking(t *testing.T) {
	initStakingServer(t)

	for name, tt := range map[string]func(*testing.T){
		"getTiers":        getTiers,
		"getTier":         getTier,
		"getStake":        getStake,
		"getPending":      getPending,
		"getPenalty":      getPenalty,
		"getPool":         getPool,
		"getControl":      getControl,
		"getAccount":      getAccount,
		"getReferrer":     getReferrer,
		"invalidRequests": invalidRequests,
	} {
		t.Run(name, tt)
	}
}

func getTiers(t *testing.T) {
	var tiers []*Tier
	httpGetJSON(t, ts.URL+"/staking/tiers", &tiers)
	require.Len(t, tiers, 3)
	assert.Equal(t, uint8(1), tiers[0].ID)
	assert.Equal(t, uint64(365), tiers[2].Days)
	assert.Equal(t, "1000000000000000000000", bigOf(tiers[2].TotalPrincipal))
	assert.Equal(t, "0", bigOf(tiers[0].TotalPrincipal))
}

func getTier(t *testing.T) {
	var tier Tier
	httpGetJSON(t, ts.URL+"/staking/tiers/2", &tier)
	assert.Equal(t, uint64(500), tier.RateBP)
	assert.Equal(t, uint64(500), tier.EffectiveRateBP)
	assert.Equal(t, uint64(2), tier.CommissionPct)
}

func getStake(t *testing.T) {
	var stake Stake
	httpGetJSON(t, ts.URL+"/staking/stakes/1", &stake)
	assert.Equal(t, uint64(1), stake.ID)
	assert.Equal(t, alice, stake.Owner)
	require.NotNil(t, stake.Referrer)
	assert.Equal(t, bob, *stake.Referrer)
	assert.Equal(t, uint64(1), stake.GrantID)
	assert.Equal(t, t0, stake.StartTime)
	assert.True(t, stake.Active)
	assert.Equal(t, "1000000000000000000000", bigOf(stake.Principal))
}

func getPending(t *testing.T) {
	var pending Pending
	httpGetJSON(t, ts.URL+"/staking/stakes/1/pending?now="+strconv.FormatUint(t0+thor.SecondsPerYear, 10), &pending)
	assert.Equal(t, t0+thor.SecondsPerYear, pending.Time)
	assert.Equal(t, "100000000000000000000", bigOf(pending.Reward))
}

func getPenalty(t *testing.T) {
	var pen Penalty
	httpGetJSON(t, ts.URL+"/staking/stakes/1/penalty", &pen)
	assert.Equal(t, t0+146*thor.SecondsPerDay, pen.Time)
	assert.Equal(t, uint64(6000), pen.RemainingBP)
	assert.Equal(t, uint64(4500), pen.RateBP)
	assert.False(t, pen.AntiCycling)
	assert.Equal(t, "0", bigOf(pen.PrincipalPenalty))
}

func getPool(t *testing.T) {
	var pool Pool
	httpGetJSON(t, ts.URL+"/staking/pool?now="+strconv.FormatUint(t0, 10), &pool)
	assert.Equal(t, "1000000000000000000000", bigOf(pool.StakeCustody))
	assert.Equal(t, "1000000000000000000000000", bigOf(pool.RewardCustody))
	assert.Equal(t, "0", bigOf(pool.PendingEmission))
	assert.Equal(t, t0, pool.LastAccrualUpdateTime)
}

func getControl(t *testing.T) {
	var ctl Control
	httpGetJSON(t, ts.URL+"/staking/control", &ctl)
	assert.False(t, ctl.Paused)
	assert.False(t, ctl.CircuitBreakerActive)
}

func getAccount(t *testing.T) {
	var account Account
	httpGetJSON(t, ts.URL+"/staking/accounts/"+alice.String(), &account)
	assert.Equal(t, alice, account.Address)
	require.Len(t, account.Stakes, 1)
	assert.Equal(t, uint64(1), account.Stakes[0].ID)
	assert.Equal(t, "0", bigOf(account.Deferred))

	var empty Account
	httpGetJSON(t, ts.URL+"/staking/accounts/"+datagen.RandAddress().String(), &empty)
	assert.Empty(t, empty.Stakes)
}

func getReferrer(t *testing.T) {
	var ref Referrer
	httpGetJSON(t, ts.URL+"/staking/referrers/"+bob.String(), &ref)
	assert.Equal(t, "30000000000000000000", bigOf(ref.Unclaimed))
	assert.Equal(t, "1000000000000000000000", bigOf(ref.TotalReferred))
	require.Len(t, ref.Grants, 1)
	assert.Equal(t, "12000000000000000000", bigOf(ref.Grants[0].Claimable))
	assert.True(t, ref.Grants[0].Active)
}

func invalidRequests(t *testing.T) {
	tests := []struct {
		path string
		code int
	}{
		{"/staking/tiers/9", http.StatusNotFound},
		{"/staking/tiers/abc", http.StatusBadRequest},
		{"/staking/tiers/300", http.StatusBadRequest},
		{"/staking/stakes/2", http.StatusNotFound},
		{"/staking/stakes/0", http.StatusNotFound},
		{"/staking/stakes/x", http.StatusBadRequest},
		{"/staking/stakes/1/pending?now=soon", http.StatusBadRequest},
		{"/staking/accounts/0xzz", http.StatusBadRequest},
		{"/staking/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		_, code := httpGet(t, ts.URL+tt.path)
		assert.Equal(t, tt.code, code, tt.path)
	}
}

func bigOf(v interface{ MarshalText() ([]byte, error) }) string {
	text, err := v.MarshalText()
	if err != nil {
		return err.Error()
	}
	n, ok := new(big.Int).SetString(string(text), 0)
	if !ok {
		return "invalid " + string(text)
	}
	return n.String()
}

func httpGetJSON(t *testing.T, url string, v any) {
	body, code := httpGet(t, url)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, v))
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	r, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}
