// Package bank provides the in-memory fungible token component the ledger
// moves stakes and rewards through.
//
// Balances follow the journaling scheme of go-ethereum's StateDB: every
// change appends an undo record, and a snapshot is just a position in that
// journal. Reverting to a snapshot replays the undo records after it. This
// lets the ledger make an operation and all of its transfers atomic.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNegativeAmount is returned for amounts below zero.
	ErrNegativeAmount = errors.New("negative amount")
)

type change struct {
	addr   common.Address
	prev   *big.Int // nil if the account did not exist
	supply *big.Int
}

type revision struct {
	id           int
	journalIndex int
}

// Memory is a journaled in-memory token ledger.
//
// It is safe for concurrent use, but snapshots are only meaningful when one
// caller drives them, which is how the ledger uses it.
type Memory struct {
	mu sync.Mutex

	balances map[common.Address]*big.Int
	supply   *big.Int

	journal        []change
	validRevisions []revision
	nextRevisionID int
}

// NewMemory creates a bank pre-funded with the given genesis balances.
//
// Parameters:
//   - balances: initial balance per account, copied. May be nil.
//
// Returns:
//   - *Memory: the bank, with total supply equal to the sum of balances
func NewMemory(balances map[common.Address]*big.Int) *Memory {
	m := &Memory{
		balances: make(map[common.Address]*big.Int, len(balances)),
		supply:   new(big.Int),
	}
	for addr, bal := range balances {
		m.balances[addr] = new(big.Int).Set(bal)
		m.supply.Add(m.supply, bal)
	}
	return m
}

// BalanceOf returns a copy of the balance of addr.
func (m *Memory) BalanceOf(addr common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(addr)
}

// TotalSupply returns the sum of all balances.
func (m *Memory) TotalSupply() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.supply)
}

// Mint creates amount new tokens for addr.
func (m *Memory) Mint(to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(to, new(big.Int).Add(m.balance(to), amount), new(big.Int).Add(m.supply, amount))
	return nil
}

// Transfer moves amount from one account to another.
func (m *Memory) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balance(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	if from == to || amount.Sign() == 0 {
		return nil
	}
	m.set(from, bal.Sub(bal, amount), m.supply)
	m.set(to, new(big.Int).Add(m.balance(to), amount), m.supply)
	return nil
}

// Burn destroys amount tokens of from.
func (m *Memory) Burn(from common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balance(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, burns %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	m.set(from, bal.Sub(bal, amount), new(big.Int).Sub(m.supply, amount))
	return nil
}

// Snapshot returns an identifier for the current balance state.
func (m *Memory) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextRevisionID
	m.nextRevisionID++
	m.validRevisions = append(m.validRevisions, revision{id, len(m.journal)})
	return id
}

// RevertToSnapshot undoes every change made after snapshot id was taken.
// Snapshots taken after id become invalid.
func (m *Memory) RevertToSnapshot(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := sort.Search(len(m.validRevisions), func(i int) bool {
		return m.validRevisions[i].id >= id
	})
	if idx == len(m.validRevisions) || m.validRevisions[idx].id != id {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	snapshot := m.validRevisions[idx].journalIndex

	for i := len(m.journal) - 1; i >= snapshot; i-- {
		c := m.journal[i]
		if c.prev == nil {
			delete(m.balances, c.addr)
		} else {
			m.balances[c.addr] = c.prev
		}
		m.supply = c.supply
	}
	m.journal = m.journal[:snapshot]
	m.validRevisions = m.validRevisions[:idx]
}

// Commit makes every change final: the journal is cleared and all
// outstanding snapshots become invalid.
func (m *Memory) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = m.journal[:0]
	m.validRevisions = m.validRevisions[:0]
}

// Accounts returns a copy of every account with a balance record.
func (m *Memory) Accounts() map[common.Address]*big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[common.Address]*big.Int, len(m.balances))
	for addr, bal := range m.balances {
		res[addr] = new(big.Int).Set(bal)
	}
	return res
}

func (m *Memory) balance(addr common.Address) *big.Int {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (m *Memory) set(addr common.Address, bal, supply *big.Int) {
	var prev *big.Int
	if old, ok := m.balances[addr]; ok {
		prev = old
	}
	m.journal = append(m.journal, change{addr: addr, prev: prev, supply: m.supply})
	m.balances[addr] = bal
	m.supply = supply
}
