package env

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-survival/inter"
)

func TestSimAdvance(t *testing.T) {
	genesis := inter.FromUnix(1608600000)
	s := NewSim(genesis, common.HexToHash("0x01"))

	seed := s.RandomSeed()
	require.Equal(t, seed, s.RandomSeed(), "seed is stable within a block")

	s.Advance(time.Minute)
	require.Equal(t, genesis+inter.Timestamp(time.Minute), s.Now())
	require.EqualValues(t, 2, s.Height())
	require.NotEqual(t, seed, s.RandomSeed())

	pinned := common.HexToHash("0xbeef")
	s.SetSeed(pinned)
	require.Equal(t, pinned, s.RandomSeed())
	s.Set(s.Now() + 1)
	require.NotEqual(t, pinned, s.RandomSeed())
	require.Panics(t, func() { s.Set(genesis) })
}

func TestSimDeterministic(t *testing.T) {
	a := NewSim(0, common.HexToHash("0x02"))
	b := NewSim(0, common.HexToHash("0x02"))
	a.Advance(time.Second)
	b.Advance(time.Second)
	require.Equal(t, a.RandomSeed(), b.RandomSeed())
}

func TestWallMonotonic(t *testing.T) {
	w := NewWall(time.Second)
	base := time.Unix(1608600000, 0)
	current := base
	w.genesis = base
	w.clock = func() time.Time { return current }

	require.EqualValues(t, 1, w.Height())
	first := w.Now()
	seed := w.RandomSeed()

	current = base.Add(-time.Hour)
	require.Equal(t, first, w.Now(), "clock going backwards is ignored")
	require.Equal(t, seed, w.RandomSeed())

	current = base.Add(3 * time.Second)
	require.EqualValues(t, 4, w.Height())
	require.NotEqual(t, seed, w.RandomSeed())
}

func TestWallResume(t *testing.T) {
	w := NewWall(time.Second)
	base := time.Unix(1608600000, 0)
	current := base
	w.genesis = base
	w.clock = func() time.Time { return current }

	w.Resume(41)
	require.EqualValues(t, 42, w.Height())
	current = base.Add(2 * time.Second)
	require.EqualValues(t, 44, w.Height())
}
