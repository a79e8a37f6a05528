package inter

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// BoostKind selects what a boost modifies.
type BoostKind uint8

const (
	// BoostDeathRate lowers the elimination rate of the position by Magnitude basis points.
	BoostDeathRate BoostKind = 1
	// BoostYield raises claimed rewards by Magnitude basis points.
	BoostYield BoostKind = 2
)

// Valid reports whether k is a known boost kind.
func (k BoostKind) Valid() bool {
	return k == BoostDeathRate || k == BoostYield
}

func (k BoostKind) String() string {
	switch k {
	case BoostDeathRate:
		return "death-rate"
	case BoostYield:
		return "yield"
	default:
		return fmt.Sprintf("boost-%d", uint8(k))
	}
}

// Boost is a temporary, externally signed modifier attached to a position.
type Boost struct {
	Kind      BoostKind
	Magnitude uint64 // basis points
	Applied   Timestamp
	Expiry    Timestamp
}

// ActiveAt reports whether the boost applies at time t: it must have been
// attached no later than t and expire after it. A boost bought after a scan
// started therefore never changes that scan's verdicts.
func (b Boost) ActiveAt(t Timestamp) bool {
	return b.Applied <= t && b.Expiry > t
}

// Position is a participant's stake record within one risk tier.
//
// Lifecycle: created on the first join, removed on withdrawal. An eliminated
// or culled position stays in the store with Alive=false and its last Stake
// until the owner claims what is owed to it or joins again.
type Position struct {
	// Owner is the participant holding the position.
	Owner common.Address

	// Stake is the locked balance. It only changes inside an explicit
	// settlement step (deposit, lazy penalty, elimination).
	Stake *big.Int

	// Tier is fixed for the lifetime of the position.
	Tier Tier

	// EntryTime is when the position was admitted.
	EntryTime Timestamp

	// EntryScan is the newest scan id at admission. Only later scans can
	// claim the position, even one started at the same timestamp.
	EntryScan ScanID

	// LastAddTime is the last time stake was added.
	LastAddTime Timestamp

	// RewardCheckpoint is Stake*AccRewardPerShare/SCALE at the last settlement.
	// Pending reward is the current product minus this value.
	RewardCheckpoint *big.Int

	// Owed holds settled rewards that were not yet paid out.
	Owed *big.Int

	// Alive is false once the position was eliminated or culled.
	Alive bool

	// StreakOrigin is the tier's FinalizedScans value from which survivals count.
	StreakOrigin uint64

	// Streak is the survival count materialized at the last settlement.
	Streak uint64

	// LastSettledEpoch is the reset epoch this position has absorbed.
	LastSettledEpoch idx.Epoch

	// Boosts are the unexpired modifiers, in the order they were applied.
	Boosts []Boost
}

// NewPosition creates a live position for owner with the given stake.
func NewPosition(owner common.Address, tier Tier, stake *big.Int, now Timestamp, epoch idx.Epoch) *Position {
	return &Position{
		Owner:            owner,
		Stake:            new(big.Int).Set(stake),
		Tier:             tier,
		EntryTime:        now,
		LastAddTime:      now,
		RewardCheckpoint: new(big.Int),
		Owed:             new(big.Int),
		Alive:            true,
		LastSettledEpoch: epoch,
	}
}

// Copy returns a deep copy of the position.
func (p *Position) Copy() *Position {
	cp := *p
	cp.Stake = new(big.Int).Set(p.Stake)
	cp.RewardCheckpoint = new(big.Int).Set(p.RewardCheckpoint)
	cp.Owed = new(big.Int).Set(p.Owed)
	if p.Boosts != nil {
		cp.Boosts = make([]Boost, len(p.Boosts))
		copy(cp.Boosts, p.Boosts)
	}
	return &cp
}

// ActiveBoosts returns the boosts of kind k that still apply at t.
func (p *Position) ActiveBoosts(k BoostKind, t Timestamp) []Boost {
	var res []Boost
	for _, b := range p.Boosts {
		if b.Kind == k && b.ActiveAt(t) {
			res = append(res, b)
		}
	}
	return res
}

// BoostTotal sums the magnitudes of the boosts of kind k active at t.
func (p *Position) BoostTotal(k BoostKind, t Timestamp) uint64 {
	var sum uint64
	for _, b := range p.ActiveBoosts(k, t) {
		sum += b.Magnitude
	}
	return sum
}
