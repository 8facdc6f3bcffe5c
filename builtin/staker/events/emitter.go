// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Emitter receives committed events.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Nop discards events.
var Nop Emitter = EmitterFunc(func(Event) {})

// Buffer holds the events of an operation until it commits.
type Buffer struct {
	events []Event
}

func (b *Buffer) Add(ev Event) {
	b.events = append(b.events, ev)
}

func (b *Buffer) Len() int {
	return len(b.events)
}

// Flush publishes buffered events in order and empties the buffer.
func (b *Buffer) Flush(to Emitter) {
	for _, ev := range b.events {
		to.Emit(ev)
	}
	b.events = nil
}

// Discard drops buffered events.
func (b *Buffer) Discard() {
	b.events = nil
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans events out to several emitters.
func Multi(emitters ...Emitter) Emitter {
	return EmitterFunc(func(ev Event) {
		for _, e := range emitters {
			e.Emit(ev)
		}
	})
}

// Logger writes events to logger at debug level.
func Logger(logger log.Logger) Emitter {
	return EmitterFunc(func(ev Event) {
		logger.Debug("event", "name", ev.EventName(), "event", ev)
	})
}
