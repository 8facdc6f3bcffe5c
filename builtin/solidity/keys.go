// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import "encoding/binary"

// Key is anything that can address a mapping entry. thor.Address satisfies it.
type Key interface {
	Bytes() []byte
}

// Uint64Key is a mapping key for numeric ids.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Uint8Key is a mapping key for small enumerations such as tiers.
type Uint8Key uint8

func (k Uint8Key) Bytes() []byte {
	return []byte{byte(k)}
}
