// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/thor"
)

var tierRatePrefix = []byte("tier-rate")

// TierRateKey returns the param key holding the rate override of a tier.
func TierRateKey(tier uint8) thor.Bytes32 {
	return thor.Blake2b(tierRatePrefix, []byte{tier})
}

// Params binder of governance-tunable parameters.
// A zero value means the parameter is not overridden.
type Params struct {
	context *solidity.Context
}

func New(context *solidity.Context) *Params {
	return &Params{context}
}

// Get native way to get param.
func (p *Params) Get(key thor.Bytes32) (*big.Int, error) {
	return solidity.NewUint256(p.context, key).Get()
}

// Set native way to set param.
func (p *Params) Set(key thor.Bytes32, value *big.Int) error {
	return solidity.NewUint256(p.context, key).Set(value)
}

// TierRate returns the rate override of a tier in basis points, and whether one is set.
func (p *Params) TierRate(tier uint8) (uint64, bool, error) {
	v, err := p.Get(TierRateKey(tier))
	if err != nil {
		return 0, false, err
	}
	if v.Sign() == 0 {
		return 0, false, nil
	}
	return v.Uint64(), true, nil
}

// SetTierRate overrides the rate of a tier.
func (p *Params) SetTierRate(tier uint8, rateBP uint64) error {
	return p.Set(TierRateKey(tier), new(big.Int).SetUint64(rateBP))
}
