package ledger

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-survival/inter"
)

// project returns a copy of p reconciled with every reset epoch it missed,
// without touching ledger state.
func (l *Ledger) project(p *inter.Position) *inter.Position {
	cp := p.Copy()
	for cp.LastSettledEpoch < l.meta.Epoch {
		applyEpoch(cp, l.epochs[cp.LastSettledEpoch+1])
	}
	return cp
}

func (l *Ledger) effectiveStake(p *inter.Position) *big.Int {
	if p.LastSettledEpoch == l.meta.Epoch {
		return new(big.Int).Set(p.Stake)
	}
	return l.project(p).Stake
}

// Position returns a copy of the record of addr as the next settling
// operation would see it, with every missed reset already applied.
func (l *Ledger) Position(addr common.Address) (*inter.Position, bool) {
	p, ok := l.positions[addr]
	if !ok {
		return nil, false
	}
	cp := l.project(p)
	if cp.Alive {
		cp.Streak = streak(cp, l.tiers[cp.Tier.Index()])
	}
	return cp, true
}

// StoredPosition returns a copy of the record of addr exactly as stored.
func (l *Ledger) StoredPosition(addr common.Address) (*inter.Position, bool) {
	p, ok := l.positions[addr]
	if !ok {
		return nil, false
	}
	return p.Copy(), true
}

// EffectiveStake returns the stake of addr after pending reset penalties,
// or zero for an unknown or dead position.
func (l *Ledger) EffectiveStake(addr common.Address) *big.Int {
	p, ok := l.positions[addr]
	if !ok || !p.Alive {
		return new(big.Int)
	}
	return l.effectiveStake(p)
}

// PendingReward returns everything addr could claim now.
func (l *Ledger) PendingReward(addr common.Address) *big.Int {
	p, ok := l.positions[addr]
	if !ok {
		return new(big.Int)
	}
	cp := l.project(p)
	if !cp.Alive {
		return cp.Owed
	}
	return new(big.Int).Add(cp.Owed, pendingReward(cp, l.tiers[cp.Tier.Index()].AccRewardPerShare))
}

// Streak returns the number of scans addr survived in its tier.
func (l *Ledger) Streak(addr common.Address) uint64 {
	p, ok := l.positions[addr]
	if !ok {
		return 0
	}
	if !p.Alive {
		return p.Streak
	}
	return streak(p, l.tiers[p.Tier.Index()])
}

// Tier returns a copy of the aggregates of t.
func (l *Ledger) Tier(t inter.Tier) (inter.TierState, error) {
	if err := checkTier(t); err != nil {
		return inter.TierState{}, err
	}
	return l.tiers[t.Index()].Copy(), nil
}

// Scan returns a copy of scan id.
func (l *Ledger) Scan(id inter.ScanID) (*inter.Scan, bool) {
	s, ok := l.scans[id]
	if !ok {
		return nil, false
	}
	return s.Copy(), true
}

// ActiveScan returns the scan currently open in tier t.
func (l *Ledger) ActiveScan(t inter.Tier) (*inter.Scan, bool) {
	if !t.Valid() || l.tiers[t.Index()].ActiveScan == 0 {
		return nil, false
	}
	return l.Scan(l.tiers[t.Index()].ActiveScan)
}

// Processed reports whether the death of participant was recorded in
// the scan id of tier t.
func (l *Ledger) Processed(t inter.Tier, id inter.ScanID, participant common.Address) bool {
	_, ok := l.processed[inter.ClaimKey{Tier: t, Scan: id, Participant: participant}]
	return ok
}

// NonceUsed reports whether the boost nonce of participant was consumed.
func (l *Ledger) NonceUsed(participant common.Address, nonce *big.Int) bool {
	_, ok := l.usedNonces[inter.NonceKey{Participant: participant, Nonce: common.BigToHash(nonce)}]
	return ok
}

// Doomed lists the live positions the active scan of t may claim, in
// address order. It runs the same verdict as SubmitDeathClaims.
func (l *Ledger) Doomed(t inter.Tier) []common.Address {
	if _, ok := l.ActiveScan(t); !ok {
		return nil
	}
	var res []common.Address
	for _, addr := range l.LivePositions(t) {
		if _, die := l.doomed(l.positions[addr]); die {
			res = append(res, addr)
		}
	}
	return res
}

// LivePositions lists the live positions of t in address order.
func (l *Ledger) LivePositions(t inter.Tier) []common.Address {
	if !t.Valid() {
		return nil
	}
	res := make([]common.Address, 0, len(l.live[t.Index()]))
	for addr := range l.live[t.Index()] {
		res = append(res, addr)
	}
	sortAddresses(res)
	return res
}

// Meta returns a copy of the global record.
func (l *Ledger) Meta() inter.LedgerMeta {
	return l.meta.Copy()
}

// Epoch returns the reset epoch record n.
func (l *Ledger) Epoch(n idx.Epoch) (inter.ResetEpoch, bool) {
	e, ok := l.epochs[n]
	if !ok {
		return inter.ResetEpoch{}, false
	}
	return e.Copy(), true
}

// ResetDue reports whether TriggerReset would succeed now.
func (l *Ledger) ResetDue() bool {
	return l.env.Now() >= l.meta.ResetDeadline
}

// Locked reports whether withdrawals from t are inside the pre-scan lock window.
func (l *Ledger) Locked(t inter.Tier) bool {
	if !t.Valid() {
		return false
	}
	return l.locked(l.tiers[t.Index()], l.env.Now())
}

// CheckInvariants verifies that every tier aggregate matches the sum of its
// live positions.
func (l *Ledger) CheckInvariants() error {
	sums := make([]*big.Int, inter.NumTiers)
	counts := make([]uint64, inter.NumTiers)
	for i := range sums {
		sums[i] = new(big.Int)
	}
	for _, p := range l.positions {
		if !p.Alive {
			continue
		}
		if _, ok := l.live[p.Tier.Index()][p.Owner]; !ok {
			return fmt.Errorf("live position %s missing from %s index", p.Owner.Hex(), p.Tier)
		}
		sums[p.Tier.Index()].Add(sums[p.Tier.Index()], p.Stake)
		counts[p.Tier.Index()]++
	}
	for i, ts := range l.tiers {
		if ts.TotalStake.Cmp(sums[i]) != 0 {
			return fmt.Errorf("%s total stake %s, positions sum to %s", ts.Tier, ts.TotalStake, sums[i])
		}
		if ts.LiveCount != counts[i] || uint64(len(l.live[i])) != counts[i] {
			return fmt.Errorf("%s live count %d, found %d", ts.Tier, ts.LiveCount, counts[i])
		}
	}
	return nil
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
