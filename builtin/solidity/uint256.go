// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/vechain/tierstake/builtin/reverts"
	"github.com/vechain/tierstake/thor"
)

// ErrUint256Underflow is returned when Sub would take the value below zero.
var ErrUint256Underflow = reverts.New(reverts.Invariant, "uint256_underflow", "uint256 underflow")

// Uint256 is a wrapper for storage and retrieval of an uint256. Similar to storing an uint256 in a smart contract.
type Uint256 struct {
	context *Context
	pos     thor.Bytes32
}

func NewUint256(context *Context, slot thor.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetRawStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	if err := u.context.UseGas(thor.SloadGas); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage), nil
}

func (u *Uint256) Set(value *big.Int) error {
	if err := u.context.UseGas(thor.SstoreResetGas); err != nil {
		return err
	}
	if value.Sign() == 0 {
		u.context.state.SetRawStorage(u.context.address, u.pos, nil)
		return nil
	}
	storage := thor.BytesToBytes32(value.Bytes())
	u.context.state.SetRawStorage(u.context.address, u.pos, storage.Bytes())
	return nil
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	return u.Set(storage.Add(storage, value))
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return ErrUint256Underflow.Withf("%v - %v", storage, value)
	}
	return u.Set(storage.Sub(storage, value))
}
