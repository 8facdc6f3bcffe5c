// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fixedpoint provides the mul-div primitives used by reward accounting.
// Products are formed at 512 bits before dividing, so no precision is lost
// to intermediate overflow.
package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Precision scales per-unit accumulators.
var Precision = big.NewInt(1e18)

func toU256(x *big.Int) (*uint256.Int, bool) {
	if x.Sign() < 0 {
		return nil, false
	}
	u, overflow := uint256.FromBig(x)
	return u, !overflow
}

// MulDiv returns floor(x * y / d). It panics when d is zero.
func MulDiv(x, y, d *big.Int) *big.Int {
	if d.Sign() == 0 {
		panic("fixedpoint: division by zero")
	}
	ux, ok1 := toU256(x)
	uy, ok2 := toU256(y)
	ud, ok3 := toU256(d)
	if ok1 && ok2 && ok3 {
		if q, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud); !overflow {
			return q.ToBig()
		}
	}
	r := new(big.Int).Mul(x, y)
	return r.Quo(r, d)
}

// MulDivHalfUp returns (x * y + d/2) / d, rounding half up.
// It panics when d is zero.
func MulDivHalfUp(x, y, d *big.Int) *big.Int {
	if d.Sign() == 0 {
		panic("fixedpoint: division by zero")
	}
	ux, ok1 := toU256(x)
	uy, ok2 := toU256(y)
	ud, ok3 := toU256(d)
	if ok1 && ok2 && ok3 {
		if q, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud); !overflow {
			// the true remainder is below d, so it is exact modulo 2^256
			rem := new(uint256.Int).Mul(ux, uy)
			rem.Sub(rem, new(uint256.Int).Mul(q, ud))
			if rem.Cmp(new(uint256.Int).Sub(ud, rem)) >= 0 {
				q.AddUint64(q, 1)
			}
			return q.ToBig()
		}
	}
	r := new(big.Int).Mul(x, y)
	r.Add(r, new(big.Int).Rsh(d, 1))
	return r.Quo(r, d)
}

// Min returns a copy of the smaller of x and y.
func Min(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Set(y)
}

// SubFloor returns max(0, x - y).
func SubFloor(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(x, y)
}
