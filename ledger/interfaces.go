package ledger

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-survival/inter"
)

// Bank is the fungible token component backing every stake and reward.
// Snapshot and RevertToSnapshot follow the StateDB contract: a revert undoes
// every balance change made after the snapshot was taken.
type Bank interface {
	Transfer(from, to common.Address, amount *big.Int) error
	Burn(from common.Address, amount *big.Int) error
	BalanceOf(addr common.Address) *big.Int
	Snapshot() int
	RevertToSnapshot(id int)
}

// Committer is implemented by banks that can drop their undo history once an
// operation committed.
type Committer interface {
	Commit()
}

// Environment supplies the execution context of an operation: one
// timestamp, the current height and a short-lived platform seed.
type Environment interface {
	Now() inter.Timestamp
	Height() idx.Block
	RandomSeed() common.Hash
}

// Emitter receives committed events, in order. Emit is called after the
// operation that produced the events completed, never for a reverted one.
type Emitter interface {
	Emit(ev inter.Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev inter.Event)

func (f EmitterFunc) Emit(ev inter.Event) { f(ev) }

// MultiEmitter fans events out to several emitters.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ev inter.Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(inter.Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	Events []inter.Event
}

func (r *Recorder) Emit(ev inter.Event) {
	r.Events = append(r.Events, ev)
}

// Of returns the recorded events of the given kind.
func (r *Recorder) Of(kind inter.EventKind) []inter.Event {
	var res []inter.Event
	for _, ev := range r.Events {
		if ev.Kind() == kind {
			res = append(res, ev)
		}
	}
	return res
}

// Reset forgets the recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}
