// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	base "github.com/vechain/tierstake/builtin/reverts"
)

type ErrRevert = base.ErrRevert

// Validation errors, raised before any mutation.
var (
	ErrZeroAmount     = base.New(base.Validation, "zero_amount", "amount must be positive")
	ErrUnknownTier    = base.New(base.Validation, "unknown_tier", "unknown tier")
	ErrSelfReferral   = base.New(base.Validation, "self_referral", "referrer cannot be the staker")
	ErrInvalidStakeID = base.New(base.Validation, "invalid_stake_id", "invalid stake id")
	ErrInvalidRate    = base.New(base.Validation, "invalid_rate", "invalid rate")
	ErrInvalidConfig  = base.New(base.Validation, "invalid_config", "invalid config")
)

// State errors, the caller must re-query before retrying.
var (
	ErrNotStakeOwner        = base.New(base.State, "not_stake_owner", "caller does not own the stake")
	ErrStakeInactive        = base.New(base.State, "stake_inactive", "stake is inactive")
	ErrTooManyStakes        = base.New(base.State, "too_many_stakes", "too many active stakes")
	ErrNothingClaimable     = base.New(base.State, "nothing_claimable", "nothing claimable")
	ErrStakeLocked          = base.New(base.State, "stake_locked", "stake is still locked")
	ErrAPYUnsatisfiable     = base.New(base.State, "apy_unsatisfiable", "projected apy below minimum")
	ErrReentrant            = base.New(base.State, "reentrant", "operation in progress")
	ErrPaused               = base.New(base.State, "paused", "staking is paused")
	ErrCircuitBreakerActive = base.New(base.State, "circuit_breaker_active", "circuit breaker is active")
	ErrPrincipalTransfer    = base.New(base.State, "principal_transfer", "principal transfer failed")
	ErrTransferFailed       = base.New(base.State, "transfer_failed", "value transfer failed")
	ErrOutOfGas             = base.ErrOutOfGas
)

var ErrUnauthorized = base.New(base.Authorization, "unauthorized", "caller is not an admin")

// ErrInvariant marks an accounting bug. Operations hitting it revert.
var ErrInvariant = base.New(base.Invariant, "invariant_violation", "invariant violation")

func IsRevertErr(err any) bool {
	return base.IsRevertErr(err)
}
