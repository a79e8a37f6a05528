package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// ResetEpoch records one global system reset. Positions compare their
// LastSettledEpoch against the current epoch number and absorb every missed
// epoch, in order, on their next settling operation.
type ResetEpoch struct {
	// Number is the epoch counter after the reset. Epoch zero is genesis.
	Number idx.Epoch

	// Timestamp is when the reset was triggered.
	Timestamp Timestamp

	// PenaltyBps is the fraction of stake, in basis points, every position loses.
	PenaltyBps uint64

	// Beneficiary is the most recent depositor at trigger time. It receives
	// the depositor share of every penalty collected for this epoch.
	Beneficiary common.Address

	// AccSnapshot holds each tier's AccRewardPerShare at trigger time, indexed
	// by Tier.Index. Rewards before the reset accrue on the pre-penalty stake.
	AccSnapshot []*big.Int
}

// Copy returns a deep copy of the epoch record.
func (e ResetEpoch) Copy() ResetEpoch {
	cp := e
	cp.AccSnapshot = make([]*big.Int, len(e.AccSnapshot))
	for i, v := range e.AccSnapshot {
		cp.AccSnapshot[i] = new(big.Int).Set(v)
	}
	return cp
}

// NonceKey marks one boost nonce as spent for one participant.
type NonceKey struct {
	Participant common.Address
	Nonce       common.Hash
}
