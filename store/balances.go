package store

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var balancesPrefix = []byte("b")

type account struct {
	Addr    common.Address
	Balance *big.Int
}

func balancesKey(height idx.Block) []byte {
	return append(append([]byte{}, balancesPrefix...), bigendian.Uint64ToBytes(uint64(height))...)
}

// SaveBalances stores the token balances that go with the snapshot at height.
func (s *Store) SaveBalances(height idx.Block, balances map[common.Address]*big.Int) error {
	accounts := make([]account, 0, len(balances))
	for addr, bal := range balances {
		accounts = append(accounts, account{Addr: addr, Balance: bal})
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i].Addr.Bytes(), accounts[j].Addr.Bytes()) < 0
	})
	bz, err := rlp.EncodeToBytes(accounts)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.SetSync(balancesKey(height), bz)
}

// LoadBalances returns the balances stored at height.
func (s *Store) LoadBalances(height idx.Block) (map[common.Address]*big.Int, error) {
	bz, err := s.db.Get(balancesKey(height))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, fmt.Errorf("%w: balances at height %d", ErrNotFound, height)
	}
	var accounts []account
	if err := rlp.DecodeBytes(bz, &accounts); err != nil {
		return nil, fmt.Errorf("decode balances %d: %w", height, err)
	}
	res := make(map[common.Address]*big.Int, len(accounts))
	for _, a := range accounts {
		res[a.Addr] = a.Balance
	}
	return res, nil
}
