package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// LedgerMeta holds the global, non-tier state of the ledger.
type LedgerMeta struct {
	// Epoch is the current reset epoch number.
	Epoch idx.Epoch

	// ResetDeadline is when triggerReset becomes callable.
	ResetDeadline Timestamp

	// LastDepositor is the most recent depositor above the negligible threshold.
	LastDepositor common.Address

	// SeedNonce is mixed into every scan seed.
	SeedNonce uint64

	// LastScanID is the id of the newest scan ever started.
	LastScanID ScanID

	// CullNonce salts culling draws.
	CullNonce uint64

	// Burned and ProtocolPaid total the capital destroyed and routed to the treasury.
	Burned       *big.Int
	ProtocolPaid *big.Int
}

// Copy returns a deep copy of the meta record.
func (m LedgerMeta) Copy() LedgerMeta {
	cp := m
	cp.Burned = new(big.Int).Set(m.Burned)
	cp.ProtocolPaid = new(big.Int).Set(m.ProtocolPaid)
	return cp
}

// LedgerState is a complete, order-stable export of the ledger. Maps are
// flattened into sorted slices so the snapshot encodes deterministically.
type LedgerState struct {
	Meta       LedgerMeta
	Tiers      []TierState
	Positions  []*Position
	Scans      []*Scan
	Processed  []ClaimKey
	Epochs     []ResetEpoch
	UsedNonces []NonceKey
}
