package store

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
)

// eventRecord is the stored form of one committed event.
type eventRecord struct {
	Kind    string
	Payload []byte
}

// AppendEvent stores ev under the next sequence number and returns it.
func (s *Store) AppendEvent(ev inter.Event) (uint64, error) {
	payload, err := rlp.EncodeToBytes(ev)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	bz, err := rlp.EncodeToBytes(&eventRecord{Kind: string(ev.Kind()), Payload: payload})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(eventKey(seq), bz); err != nil {
		return 0, err
	}
	if err := b.Set(seqKey, bigendian.Uint64ToBytes(seq+1)); err != nil {
		return 0, err
	}
	if err := b.Write(); err != nil {
		return 0, err
	}
	s.seq++
	return seq, nil
}

// EventCount returns the number of journaled events.
func (s *Store) EventCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Events calls fn for every event with a sequence number of at least from,
// in order, until fn returns false.
func (s *Store) Events(from uint64, fn func(seq uint64, ev inter.Event) bool) error {
	it, err := s.db.Iterator(eventKey(from), eventKey(1<<63))
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		seq := bigendian.BytesToUint64(it.Key()[len(eventPrefix):])
		var rec eventRecord
		if err := rlp.DecodeBytes(it.Value(), &rec); err != nil {
			return fmt.Errorf("event %d: %w", seq, err)
		}
		ev, ok := inter.NewEvent(inter.EventKind(rec.Kind))
		if !ok {
			return fmt.Errorf("event %d: unknown kind %q", seq, rec.Kind)
		}
		if err := rlp.DecodeBytes(rec.Payload, ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", seq, rec.Kind, err)
		}
		if !fn(seq, ev) {
			return nil
		}
	}
	return it.Error()
}

// JournalEmitter appends every event it receives to a Store. Emitters
// cannot fail the operation that produced the event, so write errors are
// logged.
type JournalEmitter struct {
	Store *Store
	Log   logrus.FieldLogger
}

// Emit implements ledger.Emitter.
func (j *JournalEmitter) Emit(ev inter.Event) {
	if _, err := j.Store.AppendEvent(ev); err != nil {
		j.Log.WithError(err).WithField("kind", ev.Kind()).Error("Failed to journal event")
	}
}
