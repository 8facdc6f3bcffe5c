// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tierstake/cache"
	"github.com/vechain/tierstake/kv"
	"github.com/vechain/tierstake/stackedmap"
	"github.com/vechain/tierstake/thor"
)

const (
	storageBucket = kv.Bucket("s")

	// DefaultCacheSize is the number of committed storage slots kept in memory.
	DefaultCacheSize = 16384
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

func (k storageKey) bytes() []byte {
	b := make([]byte, 0, thor.AddressLength+32)
	return append(append(b, k.addr[:]...), k.key[:]...)
}

// State manages contract storage on top of a kv store.
// Writes are journaled in memory and only reach the store on Commit.
type State struct {
	store kv.Store
	cache *cache.LRU // committed values, nil means absent
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object.
func New(store kv.Store, cacheSize int) (*State, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := cache.NewLRU(cacheSize)
	if err != nil {
		return nil, err
	}
	s := &State{
		store: storageBucket.NewStore(store),
		cache: c,
	}
	s.reset()
	return s, nil
}

// Committed returns a view of the committed storage. The view shares the
// store and cache but never sees journaled writes, so it may be read while
// another goroutine writes through s. It must not be read during Commit.
func (s *State) Committed() *State {
	v := &State{store: s.store, cache: s.cache}
	v.reset()
	return v
}

func (s *State) reset() {
	s.sm = stackedmap.New(s.committedGetter)
}

// committedGetter implements stackedmap.MapGetter.
func (s *State) committedGetter(key storageKey) (rlp.RawValue, bool, error) {
	v, err := s.cache.GetOrLoad(key, func(any) (any, error) {
		raw, err := s.store.Get(key.bytes())
		if err != nil {
			if s.store.IsNotFound(err) {
				return rlp.RawValue(nil), nil
			}
			return nil, err
		}
		return rlp.RawValue(raw), nil
	})
	if err != nil {
		return nil, false, err
	}
	raw := v.(rlp.RawValue)
	return raw, len(raw) > 0, nil
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	raw, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return raw, nil
}

// SetRawStorage set storage value in rlp raw.
// An empty value deletes the slot.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, bytes.Clone(raw))
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Dirty returns the count of slots written since last commit.
func (s *State) Dirty() int {
	n := 0
	s.sm.Journal(func(storageKey, rlp.RawValue) bool {
		n++
		return true
	})
	return n
}

// Commit flushes all journaled writes to the store in one bulk.
// Checkpoints are dropped on success.
func (s *State) Commit() error {
	bulk := s.store.Bulk()
	var (
		err     error
		written []storageKey
		values  []rlp.RawValue
	)
	s.sm.Journal(func(k storageKey, v rlp.RawValue) bool {
		if len(v) == 0 {
			err = bulk.Delete(k.bytes())
		} else {
			err = bulk.Put(k.bytes(), v)
		}
		written = append(written, k)
		values = append(values, v)
		return err == nil
	})
	if err != nil {
		return &Error{err}
	}
	if err := bulk.Write(); err != nil {
		return &Error{err}
	}
	for i, k := range written {
		s.cache.Add(k, values[i])
	}
	s.reset()
	return nil
}
