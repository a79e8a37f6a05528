package bank

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func TestMemoryGenesis(t *testing.T) {
	m := NewMemory(map[common.Address]*big.Int{
		alice: big.NewInt(100),
		bob:   big.NewInt(50),
	})
	require.Equal(t, int64(100), m.BalanceOf(alice).Int64())
	require.Equal(t, int64(150), m.TotalSupply().Int64())
	require.Equal(t, int64(0), m.BalanceOf(common.Address{}).Int64())
}

func TestMemoryTransfer(t *testing.T) {
	m := NewMemory(map[common.Address]*big.Int{alice: big.NewInt(100)})

	require.NoError(t, m.Transfer(alice, bob, big.NewInt(30)))
	assert.Equal(t, int64(70), m.BalanceOf(alice).Int64())
	assert.Equal(t, int64(30), m.BalanceOf(bob).Int64())

	err := m.Transfer(bob, alice, big.NewInt(31))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.ErrorIs(t, m.Transfer(alice, bob, big.NewInt(-1)), ErrNegativeAmount)
	assert.Equal(t, int64(100), m.TotalSupply().Int64())
}

func TestMemoryBurn(t *testing.T) {
	m := NewMemory(map[common.Address]*big.Int{alice: big.NewInt(100)})
	require.NoError(t, m.Burn(alice, big.NewInt(40)))
	require.Equal(t, int64(60), m.TotalSupply().Int64())
	require.ErrorIs(t, m.Burn(alice, big.NewInt(61)), ErrInsufficientBalance)
}

func TestMemoryRevert(t *testing.T) {
	m := NewMemory(map[common.Address]*big.Int{alice: big.NewInt(100)})

	outer := m.Snapshot()
	require.NoError(t, m.Transfer(alice, bob, big.NewInt(10)))
	inner := m.Snapshot()
	require.NoError(t, m.Burn(bob, big.NewInt(5)))
	require.NoError(t, m.Mint(alice, big.NewInt(7)))

	m.RevertToSnapshot(inner)
	require.Equal(t, int64(90), m.BalanceOf(alice).Int64())
	require.Equal(t, int64(10), m.BalanceOf(bob).Int64())
	require.Equal(t, int64(100), m.TotalSupply().Int64())

	m.RevertToSnapshot(outer)
	require.Equal(t, int64(100), m.BalanceOf(alice).Int64())
	require.Equal(t, int64(0), m.BalanceOf(bob).Int64())
	require.NotContains(t, m.Accounts(), bob)

	require.Panics(t, func() { m.RevertToSnapshot(inner) })
}

func TestMemoryCommit(t *testing.T) {
	m := NewMemory(map[common.Address]*big.Int{alice: big.NewInt(100)})
	snap := m.Snapshot()
	require.NoError(t, m.Transfer(alice, bob, big.NewInt(10)))
	m.Commit()

	require.Panics(t, func() { m.RevertToSnapshot(snap) })
	require.Equal(t, int64(10), m.BalanceOf(bob).Int64())
}
