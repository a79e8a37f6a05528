package inter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ScanID identifies a scan. Ids are global, monotonic and never reused, so
// per-scan records can be keyed by id without ever being deleted.
type ScanID uint64

// ScanPhase is the lifecycle phase of a Scan. A tier with no Active scan is Idle.
type ScanPhase uint8

const (
	PhaseActive    ScanPhase = 1
	PhaseFinalized ScanPhase = 2
)

func (p ScanPhase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseFinalized:
		return "finalized"
	default:
		return "idle"
	}
}

// Scan is one elimination attempt for a tier: created by start, mutated by
// any number of death-claim batches, closed by finalize.
type Scan struct {
	ID          ScanID
	Tier        Tier
	Seed        common.Hash
	StartedAt   Timestamp
	FinalizedAt Timestamp

	// DeadCapital is the stake of every position killed during the scan.
	DeadCapital *big.Int
	DeathCount  uint64
	Phase       ScanPhase
}

// Active reports whether the scan still accepts death claims.
func (s *Scan) Active() bool {
	return s.Phase == PhaseActive
}

// Finalized reports whether the scan was closed.
func (s *Scan) Finalized() bool {
	return s.Phase == PhaseFinalized
}

// Copy returns a deep copy of the scan.
func (s *Scan) Copy() *Scan {
	cp := *s
	cp.DeadCapital = new(big.Int).Set(s.DeadCapital)
	return &cp
}

// ClaimKey scopes a processed death claim to one participant in one scan of
// one tier. Entries of old scans are never looked up again and are left in
// place: growth is bounded by the number of deaths ever recorded.
type ClaimKey struct {
	Tier        Tier
	Scan        ScanID
	Participant common.Address
}
