// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

// Time constants, in seconds.
const (
	SecondsPerHour uint64 = 3600
	SecondsPerDay  uint64 = 24 * SecondsPerHour
	SecondsPerYear uint64 = 365 * SecondsPerDay
)

// Storage costs charged by the gas charger, per 32-byte word.
const (
	SloadGas       uint64 = 200
	SstoreSetGas   uint64 = 20000
	SstoreResetGas uint64 = 5000
	TransferGas    uint64 = 2300 // charged per call into the value ledger

	// InitialOperationGasLimit caps the cost of a single staking operation.
	InitialOperationGasLimit uint64 = 10 * 1000 * 1000
)

// BasisPoints is the denominator for rates expressed in basis points.
const BasisPoints uint64 = 10000
