// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a revert by the caller's remedy.
type Kind uint8

const (
	// Validation means the input was rejected before any mutation, retry with corrected input.
	Validation Kind = iota + 1
	// State means the current state forbids the operation, re-query before retrying.
	State
	// Authorization means the caller lacks the required capability.
	Authorization
	// Invariant means an accounting invariant would break. It indicates a bug.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case State:
		return "state"
	case Authorization:
		return "authorization"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// ErrRevert is a named, parameterised failure. Two reverts match under
// errors.Is when their codes are equal.
type ErrRevert struct {
	kind    Kind
	code    string
	message string
}

// New creates a revert error.
func New(kind Kind, code, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		code:    code,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Kind returns the revert kind.
func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// Code returns the stable revert code.
func (e *ErrRevert) Code() string {
	return e.code
}

// Is implements errors.Is.
func (e *ErrRevert) Is(target error) bool {
	var t *ErrRevert
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// Withf returns a copy of the revert carrying the formatted detail.
func (e *ErrRevert) Withf(format string, args ...any) *ErrRevert {
	return &ErrRevert{
		kind:    e.kind,
		code:    e.code,
		message: e.message + ": " + fmt.Sprintf(format, args...),
	}
}

// ErrOutOfGas is returned when an operation exhausts its gas budget.
var ErrOutOfGas = New(State, "out_of_gas", "out of gas")

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of the revert in err's chain, or zero when there is none.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return 0
}
