// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	var (
		buf Buffer
		rec Recorder
	)
	buf.Add(Staked{StakeID: 1, Amount: big.NewInt(1)})
	buf.Add(RewardPaid{StakeID: 1, Amount: big.NewInt(2)})
	assert.Equal(t, 2, buf.Len())

	buf.Discard()
	assert.Equal(t, 0, buf.Len())
	buf.Flush(&rec)
	assert.Empty(t, rec.Events())

	buf.Add(Staked{StakeID: 2})
	buf.Add(Unstaked{StakeID: 2})
	buf.Flush(Multi(&rec, Logger(log.Root())))
	assert.Equal(t, 0, buf.Len())

	evs := rec.Events()
	assert.Len(t, evs, 2)
	assert.Equal(t, "Staked", evs[0].EventName())
	assert.Equal(t, "Unstaked", evs[1].EventName())
	assert.Len(t, rec.Named("Unstaked"), 1)

	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestNop(t *testing.T) {
	var buf Buffer
	buf.Add(PauseChanged{Paused: true})
	buf.Flush(Nop)
	assert.Equal(t, 0, buf.Len())
}
