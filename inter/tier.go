package inter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NumTiers is the number of risk tiers the ledger runs.
const NumTiers = 5

// Tier identifies one risk level. Tier 1 is the lowest risk, Tier 5 the highest.
// Tiers of strictly lower number are "upstream" of a tier and receive a share of
// the capital eliminated from it.
type Tier uint8

// Valid reports whether t names one of the configured tiers.
func (t Tier) Valid() bool {
	return t >= 1 && t <= NumTiers
}

// Index returns the zero-based slot of the tier in per-tier arrays.
func (t Tier) Index() int {
	return int(t) - 1
}

// Upstream lists the tiers of strictly lower risk than t, lowest risk first.
func (t Tier) Upstream() []Tier {
	if !t.Valid() || t == 1 {
		return nil
	}
	up := make([]Tier, 0, t-1)
	for u := Tier(1); u < t; u++ {
		up = append(up, u)
	}
	return up
}

func (t Tier) String() string {
	return fmt.Sprintf("tier-%d", uint8(t))
}

// AllTiers returns every tier in ascending risk order.
func AllTiers() []Tier {
	tiers := make([]Tier, NumTiers)
	for i := range tiers {
		tiers[i] = Tier(i + 1)
	}
	return tiers
}

// TierState holds the mutable aggregates of one tier. The static parameters
// (rates, intervals, capacity) live in rules.TierRules.
type TierState struct {
	// Tier is the tier these aggregates belong to.
	Tier Tier

	// TotalStake is the sum of Stake over all live positions in the tier.
	// Every mutating ledger operation keeps it exact.
	TotalStake *big.Int

	// LiveCount is the number of live positions in the tier.
	LiveCount uint64

	// AccRewardPerShare is the accumulated reward per unit of stake, scaled by
	// the ledger's fixed-point SCALE. It never decreases.
	AccRewardPerShare *big.Int

	// NextScanTime is the earliest time the next scan of this tier may start.
	NextScanTime Timestamp

	// FinalizedScans counts the scans of this tier that reached finalization.
	// Streaks are derived from it lazily.
	FinalizedScans uint64

	// ActiveScan is the id of the scan currently accepting claims, or zero.
	ActiveScan ScanID

	// LastSeed is the seed of the most recent scan of this tier. Culling draws
	// mix it with entrant-specific salt.
	LastSeed common.Hash
}

// NewTierState returns zeroed aggregates for tier t.
func NewTierState(t Tier, nextScan Timestamp) TierState {
	return TierState{
		Tier:              t,
		TotalStake:        new(big.Int),
		AccRewardPerShare: new(big.Int),
		NextScanTime:      nextScan,
	}
}

// Copy returns a deep copy so the big.Int aggregates are not shared.
func (ts TierState) Copy() TierState {
	cp := ts
	cp.TotalStake = new(big.Int).Set(ts.TotalStake)
	cp.AccRewardPerShare = new(big.Int).Set(ts.AccRewardPerShare)
	return cp
}
