// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/metrics"
	"github.com/vechain/tierstake/test/teststaker"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func newServer(t *testing.T) *httptest.Server {
	env := teststaker.New(t)
	handler := New(env.Staker, Options{
		AllowedOrigins: "https://example.org",
		EnableMetrics:  true,
		Clock:          func() uint64 { return 1_700_000_000 },
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestMetricsMiddleware(t *testing.T) {
	ts := newServer(t)

	httpGet(t, ts.URL+"/staking/tiers")
	httpGet(t, ts.URL+"/staking/tiers")
	_, code := httpGet(t, ts.URL+"/staking/stakes/7")
	assert.Equal(t, http.StatusNotFound, code)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "tierstake_api_request_count" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			assert.Equal(t, http.MethodGet, labels["method"])
			counts[labels["name"]+"/"+labels["code"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), counts["staking_get_tiers/200"])
	assert.Equal(t, float64(1), counts["staking_get_stake/404"])

	body, code := httpGet(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "tierstake_api_duration_ms")
}

func TestCORS(t *testing.T) {
	ts := newServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/staking/pool", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://example.org", res.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestCompression(t *testing.T) {
	ts := newServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/staking/tiers", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))
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
