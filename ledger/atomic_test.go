package ledger

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-survival/bank"
	"github.com/rony4d/go-survival/inter"
)

// reentrantBank calls back into the ledger from inside a transfer.
type reentrantBank struct {
	*bank.Memory
	l     *Ledger
	inner error
	done  bool
}

func (b *reentrantBank) Transfer(from, to common.Address, amount *big.Int) error {
	if b.l != nil && !b.done {
		b.done = true
		b.inner = b.l.Withdraw(from)
	}
	return b.Memory.Transfer(from, to, amount)
}

func TestReentryRefused(t *testing.T) {
	rb := &reentrantBank{}
	f := newFixtureWithBank(t, func(m *bank.Memory) Bank {
		rb.Memory = m
		return rb
	})
	a := f.join(0, tokens(10), 1)
	rb.l = f.l

	require.NoError(t, f.l.AddStake(a, tokens(5)))
	require.ErrorIs(t, rb.inner, ErrReentrant)
	requireBig(t, tokens(15), f.tier(1).TotalStake)
	f.invariants()
}

// emitters run after the operation completes and may use the ledger
func TestEmitterMayCallBack(t *testing.T) {
	f := newFixture(t)
	var pending *big.Int
	f.l.emitter = EmitterFunc(func(ev inter.Event) {
		if j, ok := ev.(*inter.Joined); ok {
			pending = f.l.PendingReward(j.Participant)
			require.ErrorIs(t, f.l.Join(j.Participant, tokens(1), 1), ErrPositionExists)
		}
	})
	f.join(0, tokens(10), 1)
	require.NotNil(t, pending)
	require.Zero(t, pending.Sign())
}

// failingBank delegates to a memory bank but lets a test refuse burns.
type failingBank struct {
	mock.Mock
	*bank.Memory
}

func (b *failingBank) Burn(from common.Address, amount *big.Int) error {
	if err := b.Called(from, amount).Error(0); err != nil {
		return err
	}
	return b.Memory.Burn(from, amount)
}

func TestFailedBurnRollsBackFinalize(t *testing.T) {
	fb := &failingBank{}
	f := newFixtureWithBank(t, func(m *bank.Memory) Bank {
		fb.Memory = m
		return fb
	})
	doomed := f.join(0, tokens(100), 3)
	survivor := f.join(1, tokens(100), 3)
	f.advanceTo(3)
	f.seedFor(3, []common.Address{doomed}, []common.Address{survivor})
	require.NoError(t, f.l.StartScan(3))
	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed})
	require.NoError(t, err)
	f.advance(30 * time.Second)

	refused := errors.New("burn refused")
	fb.On("Burn", custody, mock.Anything).Return(refused).Once()

	state := f.l.Export()
	custodyBefore := f.balance(custody)
	treasuryBefore := f.balance(treasury)
	f.rec.Reset()

	err = f.l.FinalizeScan(3)
	require.ErrorIs(t, err, refused)
	require.Equal(t, ClassExternal, Class(err))
	require.Equal(t, state, f.l.Export())
	require.Empty(t, f.rec.Events)
	requireBig(t, custodyBefore, f.balance(custody))
	requireBig(t, treasuryBefore, f.balance(treasury), "protocol share is not paid when the burn fails")
	fb.AssertExpectations(t)

	// the next attempt goes through
	fb.On("Burn", custody, mock.Anything).Return(nil)
	require.NoError(t, f.l.FinalizeScan(3))
	require.Len(t, f.rec.Of(inter.KindScanFinalized), 1)
	f.invariants()
}

// panickingBank panics on its first transfer once armed.
type panickingBank struct {
	*bank.Memory
	armed bool
}

func (b *panickingBank) Transfer(from, to common.Address, amount *big.Int) error {
	if b.armed {
		b.armed = false
		panic("transfer exploded")
	}
	return b.Memory.Transfer(from, to, amount)
}

func TestPanicRollsBack(t *testing.T) {
	pb := &panickingBank{}
	f := newFixtureWithBank(t, func(m *bank.Memory) Bank {
		pb.Memory = m
		return pb
	})
	a := f.join(0, tokens(10), 2)
	state := f.l.Export()

	pb.armed = true
	require.Panics(t, func() { _ = f.l.AddStake(a, tokens(1)) })
	require.Equal(t, state, f.l.Export())

	// the ledger is usable afterwards
	require.NoError(t, f.l.AddStake(a, tokens(1)))
	requireBig(t, tokens(11), f.tier(2).TotalStake)
}

func TestExecutorSerializes(t *testing.T) {
	f := newFixture(t)
	ex := NewExecutor(f.l)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ex.Do(func(l *Ledger) error {
				return l.Join(who(i), tokens(int64(i+1)), inter.Tier(i%inter.NumTiers+1))
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var live int
	ex.View(func(l *Ledger) {
		for _, tier := range inter.AllTiers() {
			live += len(l.LivePositions(tier))
		}
		require.NoError(t, l.CheckInvariants())
	})
	require.Equal(t, 16, live)
}
