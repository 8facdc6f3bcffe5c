// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gascharger

import (
	"fmt"

	"github.com/vechain/tierstake/builtin/reverts"
	"github.com/vechain/tierstake/thor"
)

// Test hook - only used during testing
var testHook func(*Charger) = nil

// Charger meters the gas used by a single operation against a fixed limit.
type Charger struct {
	limit          uint64
	sloadOps       uint64
	sstoreSetOps   uint64
	sstoreResetOps uint64
	transferOps    uint64
	customGas      uint64
	totalGas       uint64
}

// New creates a charger. A zero limit means unlimited.
func New(limit uint64) *Charger {
	charger := &Charger{
		limit: limit,
	}

	// Call test hook if it exists
	if testHook != nil {
		testHook(charger)
	}

	return charger
}

// Charge consumes gas. Once the limit is exceeded every call fails with
// reverts.ErrOutOfGas.
func (c *Charger) Charge(gas uint64) error {
	c.totalGas += gas

	switch {
	// Handle multiples and single operations
	case gas%thor.SstoreSetGas == 0 && gas > 0:
		c.sstoreSetOps += gas / thor.SstoreSetGas

	case gas%thor.SstoreResetGas == 0 && gas > 0:
		c.sstoreResetOps += gas / thor.SstoreResetGas

	case gas%thor.TransferGas == 0 && gas > 0:
		c.transferOps += gas / thor.TransferGas

	case gas%thor.SloadGas == 0 && gas > 0:
		c.sloadOps += gas / thor.SloadGas

	default:
		// Unknown/custom gas amount
		c.customGas += gas
	}

	if c.limit > 0 && c.totalGas > c.limit {
		return reverts.ErrOutOfGas.Withf("used %d, limit %d", c.totalGas, c.limit)
	}
	return nil
}

func (c *Charger) Breakdown() string {
	return fmt.Sprintf(
		"SLOAD: %d ops (%d gas) | SSTORE_SET: %d ops (%d gas) | SSTORE_RESET: %d ops (%d gas) | TRANSFER: %d ops (%d gas) | CUSTOM: %d gas | TOTAL: %d gas",
		c.sloadOps,
		c.sloadOps*thor.SloadGas,
		c.sstoreSetOps,
		c.sstoreSetOps*thor.SstoreSetGas,
		c.sstoreResetOps,
		c.sstoreResetOps*thor.SstoreResetGas,
		c.transferOps,
		c.transferOps*thor.TransferGas,
		c.customGas,
		c.totalGas,
	)
}

func (c *Charger) TotalGas() uint64 {
	return c.totalGas
}

// Limit returns the gas limit, zero when unlimited.
func (c *Charger) Limit() uint64 {
	return c.limit
}

// Test helper functions

func SetTestHook(hook func(*Charger)) {
	testHook = hook
}

func ClearTestHook() {
	testHook = nil
}
