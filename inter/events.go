package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// EventKind names an event type in logs, metrics and the event journal.
type EventKind string

const (
	KindJoined             EventKind = "joined"
	KindStakeAdded         EventKind = "stake_added"
	KindWithdrawn          EventKind = "withdrawn"
	KindRewardClaimed      EventKind = "reward_claimed"
	KindBoostApplied       EventKind = "boost_applied"
	KindScanStarted        EventKind = "scan_started"
	KindDeathRecorded      EventKind = "death_recorded"
	KindScanFinalized      EventKind = "scan_finalized"
	KindCascadeDistributed EventKind = "cascade_distributed"
	KindCulled             EventKind = "culled"
	KindResetTriggered     EventKind = "reset_triggered"
	KindPenaltySettled     EventKind = "penalty_settled"
	KindEmissionAdded      EventKind = "emission_added"
	KindDeadlineExtended   EventKind = "deadline_extended"
)

// Event is emitted by the ledger for every committed state change. Events
// carry enough detail to rebuild the operation externally; there is no other
// history API.
type Event interface {
	Kind() EventKind
}

// NewEvent returns an empty event of the given kind, for decoding.
func NewEvent(kind EventKind) (Event, bool) {
	switch kind {
	case KindJoined:
		return &Joined{}, true
	case KindStakeAdded:
		return &StakeAdded{}, true
	case KindWithdrawn:
		return &Withdrawn{}, true
	case KindRewardClaimed:
		return &RewardClaimed{}, true
	case KindBoostApplied:
		return &BoostApplied{}, true
	case KindScanStarted:
		return &ScanStarted{}, true
	case KindDeathRecorded:
		return &DeathRecorded{}, true
	case KindScanFinalized:
		return &ScanFinalized{}, true
	case KindCascadeDistributed:
		return &CascadeDistributed{}, true
	case KindCulled:
		return &Culled{}, true
	case KindResetTriggered:
		return &ResetTriggered{}, true
	case KindPenaltySettled:
		return &PenaltySettled{}, true
	case KindEmissionAdded:
		return &EmissionAdded{}, true
	case KindDeadlineExtended:
		return &DeadlineExtended{}, true
	}
	return nil, false
}

// Joined is emitted when a position is admitted.
type Joined struct {
	Participant     common.Address
	Tier            Tier
	Amount          *big.Int
	TierTotalBefore *big.Int
	TierTotalAfter  *big.Int
	LiveCount       uint64
}

// StakeAdded is emitted when a live position deposits more stake.
type StakeAdded struct {
	Participant     common.Address
	Tier            Tier
	Amount          *big.Int
	SettledReward   *big.Int
	StakeAfter      *big.Int
	TierTotalBefore *big.Int
	TierTotalAfter  *big.Int
}

// Withdrawn is emitted when a live position exits with its stake and rewards.
type Withdrawn struct {
	Participant     common.Address
	Tier            Tier
	Stake           *big.Int
	Reward          *big.Int
	TierTotalBefore *big.Int
	TierTotalAfter  *big.Int
}

// RewardClaimed is emitted when owed rewards are paid out. Closed is set when
// the claim removed a dead position record.
type RewardClaimed struct {
	Participant common.Address
	Tier        Tier
	Reward      *big.Int
	Bonus       *big.Int
	Closed      bool
}

// BoostApplied is emitted when a signed boost is attached to a position.
type BoostApplied struct {
	Participant common.Address
	BoostKind   BoostKind
	Magnitude   uint64
	Expiry      Timestamp
	Nonce       common.Hash
}

// ScanStarted is emitted when a scan seed is generated.
type ScanStarted struct {
	Tier         Tier
	Scan         ScanID
	Seed         common.Hash
	StartedAt    Timestamp
	NextScanTime Timestamp
}

// DeathRecorded is emitted for every accepted death claim.
type DeathRecorded struct {
	Tier            Tier
	Scan            ScanID
	Participant     common.Address
	Submitter       common.Address
	Stake           *big.Int
	Roll            uint64
	Rate            uint64
	TierTotalBefore *big.Int
	TierTotalAfter  *big.Int
}

// ScanFinalized is emitted when a scan closes.
type ScanFinalized struct {
	Tier           Tier
	Scan           ScanID
	DeathCount     uint64
	DeadCapital    *big.Int
	FinalizedScans uint64
}

// CascadeDistributed is emitted whenever dead capital is split. Source is
// "scan" or "cull".
type CascadeDistributed struct {
	Tier           Tier
	Source         string
	DeadCapital    *big.Int
	SameTier       *big.Int
	Upstream       *big.Int
	Burn           *big.Int
	Protocol       *big.Int
	UpstreamByTier []*big.Int
	AccBefore      *big.Int
	AccAfter       *big.Int
}

// Culled is emitted when a position is evicted to admit a new entrant.
type Culled struct {
	Tier     Tier
	Victim   common.Address
	Entrant  common.Address
	Stake    *big.Int
	Penalty  *big.Int
	Refund   *big.Int
	PoolSize uint64
}

// ResetTriggered is emitted when the global countdown elapses. Exposure is
// the penalty each tier will yield once all of its positions reconcile.
type ResetTriggered struct {
	Epoch        idx.Epoch
	PenaltyBps   uint64
	Beneficiary  common.Address
	Exposure     []*big.Int
	NextDeadline Timestamp
}

// PenaltySettled is emitted when a position absorbs one reset epoch.
type PenaltySettled struct {
	Participant    common.Address
	Tier           Tier
	Epoch          idx.Epoch
	StakeBefore    *big.Int
	Penalty        *big.Int
	DepositorShare *big.Int
	Burn           *big.Int
	Protocol       *big.Int
}

// EmissionAdded is emitted when the rewards distributor funds a tier.
type EmissionAdded struct {
	Tier      Tier
	Amount    *big.Int
	AccBefore *big.Int
	AccAfter  *big.Int
}

// DeadlineExtended is emitted when a deposit pushes the reset deadline out.
type DeadlineExtended struct {
	Depositor      common.Address
	Amount         *big.Int
	DeadlineBefore Timestamp
	DeadlineAfter  Timestamp
}

func (*Joined) Kind() EventKind             { return KindJoined }
func (*StakeAdded) Kind() EventKind         { return KindStakeAdded }
func (*Withdrawn) Kind() EventKind          { return KindWithdrawn }
func (*RewardClaimed) Kind() EventKind      { return KindRewardClaimed }
func (*BoostApplied) Kind() EventKind       { return KindBoostApplied }
func (*ScanStarted) Kind() EventKind        { return KindScanStarted }
func (*DeathRecorded) Kind() EventKind      { return KindDeathRecorded }
func (*ScanFinalized) Kind() EventKind      { return KindScanFinalized }
func (*CascadeDistributed) Kind() EventKind { return KindCascadeDistributed }
func (*Culled) Kind() EventKind             { return KindCulled }
func (*ResetTriggered) Kind() EventKind     { return KindResetTriggered }
func (*PenaltySettled) Kind() EventKind     { return KindPenaltySettled }
func (*EmissionAdded) Kind() EventKind      { return KindEmissionAdded }
func (*DeadlineExtended) Kind() EventKind   { return KindDeadlineExtended }
