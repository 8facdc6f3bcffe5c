// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tierstake/thor"
)

// Mapping is a key/value storage abstraction for built-in contracts, similar to the mapping in Solidity.
// Entry positions are derived as Blake2b(key, basePos).
type Mapping[K Key, V any] struct {
	context *Context
	basePos thor.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos thor.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) thor.Bytes32 {
	return thor.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value for key, or the zero value when unset.
// Pointer values are allocated so callers can always dereference.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if err := m.context.UseGas(toWordSize(len(raw)) * thor.SloadGas); err != nil {
			return err
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores value. newValue selects the cost of filling an empty slot
// instead of resetting an occupied one.
func (m *Mapping[K, V]) Set(key K, value V, newValue bool) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		val, err := rlp.EncodeToBytes(value)
		if err != nil {
			return nil, err
		}
		slots := toWordSize(len(val))
		if newValue {
			err = m.context.UseGas(slots * thor.SstoreSetGas)
		} else {
			err = m.context.UseGas(slots * thor.SstoreResetGas)
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
}

// Delete clears the entry.
func (m *Mapping[K, V]) Delete(key K) error {
	if err := m.context.UseGas(thor.SstoreResetGas); err != nil {
		return err
	}
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
	return nil
}
