// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := New(Validation, "test", "test")
	assert.Equal(t, "test", revert.message)
	assert.Equal(t, revert.Error(), revert.message)

	assert.True(t, IsRevertErr(revert))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func Test_Withf(t *testing.T) {
	base := New(State, "stake_inactive", "stake is inactive")
	err := base.Withf("id %d", 7)

	assert.Equal(t, "stake is inactive: id 7", err.Error())
	assert.Equal(t, State, err.Kind())
	assert.Equal(t, "stake_inactive", err.Code())
	assert.True(t, errors.Is(err, base))
	assert.False(t, errors.Is(err, New(State, "other", "stake is inactive")))

	wrapped := pkgerrors.Wrap(err, "unstake")
	assert.True(t, errors.Is(wrapped, base))
	assert.Equal(t, State, KindOf(wrapped))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func Test_KindString(t *testing.T) {
	assert.Equal(t, "validation", Validation.String())
	assert.Equal(t, "state", State.String())
	assert.Equal(t, "authorization", Authorization.String())
	assert.Equal(t, "invariant", Invariant.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
