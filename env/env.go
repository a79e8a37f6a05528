// Package env provides execution environments for the ledger: a manually
// driven one for simulations and tests, and one bound to the wall clock.
package env

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-survival/inter"
)

// Sim is a deterministic environment. Time only moves when told to, every
// move produces a new block height, and the platform seed is derived from
// a fixed salt and the height so runs are reproducible.
type Sim struct {
	mu     sync.Mutex
	now    inter.Timestamp
	height idx.Block
	salt   common.Hash
	seed   *common.Hash
}

// NewSim starts a simulated environment at genesis.
func NewSim(genesis inter.Timestamp, salt common.Hash) *Sim {
	return &Sim{now: genesis, height: 1, salt: salt}
}

func (s *Sim) Now() inter.Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) Height() idx.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// RandomSeed returns the seed of the current block.
func (s *Sim) RandomSeed() common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seed != nil {
		return *s.seed
	}
	return crypto.Keccak256Hash(s.salt.Bytes(), bigendian.Uint64ToBytes(uint64(s.height)))
}

// Advance moves time forward by d and seals a new block.
func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += inter.Timestamp(d)
	s.height++
	s.seed = nil
}

// Set jumps to t, which must not be in the past, and seals a new block.
func (s *Sim) Set(t inter.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < s.now {
		panic("env: time moved backwards")
	}
	s.now = t
	s.height++
	s.seed = nil
}

// SetSeed pins the platform seed until the next block.
func (s *Sim) SetSeed(seed common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = &seed
}

// Wall follows the system clock. Heights advance once per BlockTime, and
// the platform seed is drawn from crypto/rand once per height so it stays
// stable within a block and unpredictable across blocks.
type Wall struct {
	mu        sync.Mutex
	genesis   time.Time
	blockTime time.Duration
	base      idx.Block
	last      inter.Timestamp

	seedHeight idx.Block
	seed       common.Hash

	clock func() time.Time
}

// NewWall creates a wall-clock environment with the given block time.
func NewWall(blockTime time.Duration) *Wall {
	if blockTime <= 0 {
		blockTime = time.Second
	}
	w := &Wall{blockTime: blockTime, clock: time.Now}
	w.genesis = w.clock()
	return w
}

// Now returns the current time. It never goes backwards, even if the
// system clock does.
func (w *Wall) Now() inter.Timestamp {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now()
}

func (w *Wall) now() inter.Timestamp {
	t := inter.FromTime(w.clock())
	if t < w.last {
		t = w.last
	}
	w.last = t
	return t
}

func (w *Wall) Height() idx.Block {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height()
}

func (w *Wall) height() idx.Block {
	elapsed := w.now().Time().Sub(w.genesis)
	if elapsed < 0 {
		elapsed = 0
	}
	return w.base + idx.Block(elapsed/w.blockTime) + 1
}

// Resume continues the height sequence after height, restarting the block
// count from now. Heights of a restored ledger never repeat.
func (w *Wall) Resume(height idx.Block) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.genesis = w.now().Time()
	w.base = height
	w.seedHeight = 0
}

func (w *Wall) RandomSeed() common.Hash {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.height()
	if h != w.seedHeight {
		if _, err := rand.Read(w.seed[:]); err != nil {
			panic(err)
		}
		w.seedHeight = h
	}
	return w.seed
}
