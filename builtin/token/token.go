// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token is a reference fungible value ledger living in the same
// state as the staking engine, so its balances roll back with it.
package token

import (
	"math/big"

	"github.com/vechain/tierstake/builtin/reverts"
	"github.com/vechain/tierstake/builtin/solidity"
	"github.com/vechain/tierstake/thor"
)

var (
	balancesKey  = thor.Blake2b([]byte("balances"))
	allowanceKey = thor.Blake2b([]byte("allowances"))
	supplyKey    = thor.Blake2b([]byte("total-supply"))
)

var (
	ErrInsufficientBalance   = reverts.New(reverts.State, "insufficient_balance", "insufficient balance")
	ErrInsufficientAllowance = reverts.New(reverts.State, "insufficient_allowance", "insufficient allowance")
	ErrNegativeAmount        = reverts.New(reverts.Validation, "negative_amount", "negative amount")
)

// TransferHook is invoked after every successful balance movement.
// A non-nil error fails the transfer.
type TransferHook func(from, to thor.Address, amount *big.Int) error

func approvalKey(owner, spender thor.Address) thor.Bytes32 {
	return thor.Blake2b(owner.Bytes(), spender.Bytes())
}

type Token struct {
	balances   *solidity.Mapping[thor.Address, *big.Int]
	allowances *solidity.Mapping[thor.Bytes32, *big.Int]
	supply     *solidity.Uint256
	hook       TransferHook
}

func New(context *solidity.Context) *Token {
	return &Token{
		balances:   solidity.NewMapping[thor.Address, *big.Int](context, balancesKey),
		allowances: solidity.NewMapping[thor.Bytes32, *big.Int](context, allowanceKey),
		supply:     solidity.NewUint256(context, supplyKey),
	}
}

// SetTransferHook installs the hook, nil removes it.
func (t *Token) SetTransferHook(hook TransferHook) {
	t.hook = hook
}

func (t *Token) BalanceOf(addr thor.Address) (*big.Int, error) {
	return t.balances.Get(addr)
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.supply.Get()
}

// Mint credits new value to an account.
func (t *Token) Mint(to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	bal, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, new(big.Int).Add(bal, amount), bal.Sign() == 0); err != nil {
		return err
	}
	return t.supply.Add(amount)
}

func (t *Token) Transfer(from, to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	fromBal, err := t.balances.Get(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance.Withf("%v has %v, needs %v", from, fromBal, amount)
	}
	if err := t.balances.Set(from, new(big.Int).Sub(fromBal, amount), false); err != nil {
		return err
	}
	toBal, err := t.balances.Get(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, new(big.Int).Add(toBal, amount), toBal.Sign() == 0); err != nil {
		return err
	}
	if t.hook != nil {
		return t.hook(from, to, amount)
	}
	return nil
}

func (t *Token) Approve(owner, spender thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return t.allowances.Set(approvalKey(owner, spender), new(big.Int).Set(amount), true)
}

func (t *Token) Allowance(owner, spender thor.Address) (*big.Int, error) {
	return t.allowances.Get(approvalKey(owner, spender))
}

// TransferFrom moves value on behalf of from, consuming spender's allowance.
func (t *Token) TransferFrom(spender, from, to thor.Address, amount *big.Int) error {
	allowed, err := t.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance.Withf("%v allows %v, needs %v", from, allowed, amount)
	}
	if err := t.allowances.Set(approvalKey(from, spender), new(big.Int).Sub(allowed, amount), false); err != nil {
		return err
	}
	return t.Transfer(from, to, amount)
}
