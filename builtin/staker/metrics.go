// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math"
	"math/big"
	"strconv"

	"github.com/vechain/tierstake/builtin/gascharger"
	base "github.com/vechain/tierstake/builtin/reverts"
	"github.com/vechain/tierstake/builtin/staker/fixedpoint"
	"github.com/vechain/tierstake/metrics"
)

var (
	metricOperations    = metrics.LazyLoadCounterVec("staker_operations_total", []string{"op", "status"})
	metricReverts       = metrics.LazyLoadCounterVec("staker_reverts_total", []string{"op", "kind"})
	metricOperationGas  = metrics.LazyLoadHistogramVec("staker_operation_gas", []string{"op"}, metrics.BucketGas)
	metricTierPrincipal = metrics.LazyLoadGaugeVec("staker_tier_principal", []string{"tier"})
	metricStakeCustody  = metrics.LazyLoadGauge("staker_stake_custody")
	metricRewardCustody = metrics.LazyLoadGauge("staker_reward_custody")
	metricLiabilities   = metrics.LazyLoadGauge("staker_liabilities")
	metricShortfalls    = metrics.LazyLoadCounter("staker_shortfalls_total")
	metricUndistributed = metrics.LazyLoadCounter("staker_undistributed_total")
)

func observe(op string, charger *gascharger.Charger, err error) {
	status := "ok"
	if err != nil {
		status = "reverted"
		kind := base.KindOf(err)
		label := "internal"
		if kind != 0 {
			label = kind.String()
		}
		metricReverts().AddWithLabel(1, map[string]string{"op": op, "kind": label})
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "status": status})
	if charger != nil {
		metricOperationGas().ObserveWithLabels(int64(min(charger.TotalGas(), math.MaxInt64)), map[string]string{"op": op})
	}
}

// wholeUnits converts a base-unit amount into whole tokens for gauges.
func wholeUnits(v *big.Int) int64 {
	w := new(big.Int).Quo(v, fixedpoint.Precision)
	if !w.IsInt64() {
		return math.MaxInt64
	}
	return w.Int64()
}

// publishGauges exports the committed custody and tier totals.
func (s *Staker) publishGauges() {
	svc := s.newServices(s.state, 0)
	ps, err := svc.pool.Get()
	if err != nil {
		logger.Debug("failed to read pool for metrics", "err", err)
		return
	}
	metricStakeCustody().Set(wholeUnits(ps.StakeCustody))
	metricRewardCustody().Set(wholeUnits(ps.RewardCustody))
	metricLiabilities().Set(wholeUnits(ps.Liabilities))
	for _, id := range s.tiers.IDs() {
		ts, err := svc.accrual.Get(id)
		if err != nil {
			logger.Debug("failed to read tier for metrics", "tier", id, "err", err)
			return
		}
		metricTierPrincipal().SetWithLabel(wholeUnits(ts.TotalPrincipal), map[string]string{"tier": strconv.Itoa(int(id))})
	}
}
