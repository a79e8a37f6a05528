// Package store persists ledger state on a tm-db database: periodic full
// snapshots of the ledger and an append-only journal of committed events.
//
// Layout:
//   - "s" + height    -> rlp(inter.LedgerState)
//   - "b" + height    -> rlp(token balances at the snapshot)
//   - "e" + sequence  -> rlp(eventRecord)
//   - "latest"        -> height of the newest snapshot
//   - "seq"           -> next event sequence number
//
// Heights and sequence numbers are big-endian so keys iterate in order.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
	dbm "github.com/tendermint/tm-db"

	"github.com/rony4d/go-survival/inter"
)

var (
	snapshotPrefix = []byte("s")
	eventPrefix    = []byte("e")
	latestKey      = []byte("latest")
	seqKey         = []byte("seq")
)

// ErrNotFound is returned when no snapshot exists at the requested height.
var ErrNotFound = errors.New("snapshot not found")

// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db dbm.DB

	mu  sync.Mutex
	seq uint64
}

// Open creates or opens the database name in dir with the given backend.
func Open(name string, backend string, dir string) (*Store, error) {
	db, err := dbm.NewDB(name, dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", backend, err)
	}
	return New(db)
}

// New wraps an open database.
func New(db dbm.DB) (*Store, error) {
	s := &Store{db: db}
	bz, err := db.Get(seqKey)
	if err != nil {
		return nil, err
	}
	if len(bz) == 8 {
		s.seq = bigendian.BytesToUint64(bz)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(height idx.Block) []byte {
	return append(append([]byte{}, snapshotPrefix...), bigendian.Uint64ToBytes(uint64(height))...)
}

func eventKey(seq uint64) []byte {
	return append(append([]byte{}, eventPrefix...), bigendian.Uint64ToBytes(seq)...)
}

// SaveSnapshot stores st as the state at height and makes it the latest.
func (s *Store) SaveSnapshot(height idx.Block, st inter.LedgerState) error {
	bz, err := rlp.EncodeToBytes(&st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(snapshotKey(height), bz); err != nil {
		return err
	}
	if err := b.Set(latestKey, bigendian.Uint64ToBytes(uint64(height))); err != nil {
		return err
	}
	return b.WriteSync()
}

// LoadSnapshot returns the state stored at height.
func (s *Store) LoadSnapshot(height idx.Block) (inter.LedgerState, error) {
	var st inter.LedgerState
	bz, err := s.db.Get(snapshotKey(height))
	if err != nil {
		return st, err
	}
	if len(bz) == 0 {
		return st, fmt.Errorf("%w: height %d", ErrNotFound, height)
	}
	if err := rlp.DecodeBytes(bz, &st); err != nil {
		return st, fmt.Errorf("decode snapshot %d: %w", height, err)
	}
	return st, nil
}

// LatestSnapshot returns the newest snapshot and its height.
func (s *Store) LatestSnapshot() (idx.Block, inter.LedgerState, error) {
	bz, err := s.db.Get(latestKey)
	if err != nil {
		return 0, inter.LedgerState{}, err
	}
	if len(bz) != 8 {
		return 0, inter.LedgerState{}, ErrNotFound
	}
	height := idx.Block(bigendian.BytesToUint64(bz))
	st, err := s.LoadSnapshot(height)
	return height, st, err
}

// PruneSnapshots deletes every snapshot below height together with its
// balances and returns the number of snapshots removed.
func (s *Store) PruneSnapshots(height idx.Block) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.keys(snapshotKey(0), snapshotKey(height))
	if err != nil {
		return 0, err
	}
	balances, err := s.keys(balancesKey(0), balancesKey(height))
	if err != nil {
		return 0, err
	}

	b := s.db.NewBatch()
	defer b.Close()
	for _, k := range append(snapshots, balances...) {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(snapshots), b.Write()
}

func (s *Store) keys(start, end []byte) ([][]byte, error) {
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	return keys, it.Error()
}
