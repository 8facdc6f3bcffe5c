// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tierstake/thor"
)

func TestDefaultSet(t *testing.T) {
	set, err := NewSet(Default())
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3}, set.IDs())

	t1, ok := set.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 90*thor.SecondsPerDay, t1.Duration())

	_, ok = set.Get(4)
	assert.False(t, ok)
	assert.Len(t, set.All(), 3)
}

func TestNewSetInvalid(t *testing.T) {
	tests := []struct {
		name  string
		tiers []Tier
	}{
		{"empty", nil},
		{"zero id", []Tier{{ID: 0, Days: 1}}},
		{"zero days", []Tier{{ID: 1}}},
		{"rate", []Tier{{ID: 1, Days: 1, RateBP: 10001}}},
		{"commission", []Tier{{ID: 1, Days: 1, CommissionPct: 101}}},
		{"duplicate", []Tier{{ID: 1, Days: 1}, {ID: 1, Days: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.tiers)
			assert.Error(t, err)
		})
	}
}

func TestIDsOrdered(t *testing.T) {
	set, err := NewSet([]Tier{{ID: 3, Days: 3}, {ID: 1, Days: 1}, {ID: 2, Days: 2}})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3}, set.IDs())
	assert.Equal(t, uint8(1), set.All()[0].ID)
}
