// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/tierstake/builtin/gascharger"
	"github.com/vechain/tierstake/state"
	"github.com/vechain/tierstake/thor"
)

// Context binds storage helpers to one contract address and one gas charger.
type Context struct {
	address thor.Address
	state   *state.State
	charger *gascharger.Charger
}

// NewContext creates a context. A nil charger disables metering.
func NewContext(address thor.Address, state *state.State, charger *gascharger.Charger) *Context {
	return &Context{
		address: address,
		state:   state,
		charger: charger,
	}
}

func (c *Context) Address() thor.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) Charger() *gascharger.Charger {
	return c.charger
}

// UseGas charges gas, failing once the budget is exhausted.
func (c *Context) UseGas(gas uint64) error {
	if c.charger != nil {
		return c.charger.Charge(gas)
	}
	return nil
}
