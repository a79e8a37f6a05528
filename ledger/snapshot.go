package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/rony4d/go-survival/inter"
)

// Export returns a deep, order-stable copy of the full ledger state.
func (l *Ledger) Export() inter.LedgerState {
	st := inter.LedgerState{
		Meta:       l.meta.Copy(),
		Tiers:      make([]inter.TierState, 0, inter.NumTiers),
		Positions:  make([]*inter.Position, 0, len(l.positions)),
		Scans:      make([]*inter.Scan, 0, len(l.scans)),
		Processed:  make([]inter.ClaimKey, 0, len(l.processed)),
		Epochs:     make([]inter.ResetEpoch, 0, len(l.epochs)),
		UsedNonces: make([]inter.NonceKey, 0, len(l.usedNonces)),
	}
	for _, ts := range l.tiers {
		st.Tiers = append(st.Tiers, ts.Copy())
	}
	for _, p := range l.positions {
		st.Positions = append(st.Positions, p.Copy())
	}
	sort.Slice(st.Positions, func(i, j int) bool {
		return bytes.Compare(st.Positions[i].Owner.Bytes(), st.Positions[j].Owner.Bytes()) < 0
	})
	for _, s := range l.scans {
		st.Scans = append(st.Scans, s.Copy())
	}
	sort.Slice(st.Scans, func(i, j int) bool { return st.Scans[i].ID < st.Scans[j].ID })
	for k := range l.processed {
		st.Processed = append(st.Processed, k)
	}
	sort.Slice(st.Processed, func(i, j int) bool {
		a, b := st.Processed[i], st.Processed[j]
		if a.Scan != b.Scan {
			return a.Scan < b.Scan
		}
		return bytes.Compare(a.Participant.Bytes(), b.Participant.Bytes()) < 0
	})
	for _, e := range l.epochs {
		st.Epochs = append(st.Epochs, e.Copy())
	}
	sort.Slice(st.Epochs, func(i, j int) bool { return st.Epochs[i].Number < st.Epochs[j].Number })
	for k := range l.usedNonces {
		st.UsedNonces = append(st.UsedNonces, k)
	}
	sort.Slice(st.UsedNonces, func(i, j int) bool {
		a, b := st.UsedNonces[i], st.UsedNonces[j]
		if c := bytes.Compare(a.Participant.Bytes(), b.Participant.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Nonce.Bytes(), b.Nonce.Bytes()) < 0
	})
	return st
}

// Import replaces the ledger state with st. The state is checked for
// consistency first; a rejected state leaves the ledger unchanged.
func (l *Ledger) Import(st inter.LedgerState) error {
	if l.entered {
		return ErrReentrant
	}
	if len(st.Tiers) != inter.NumTiers {
		return fmt.Errorf("%w: %d tiers in snapshot", ErrInvalidConfig, len(st.Tiers))
	}
	for i := uint64(1); i <= uint64(st.Meta.Epoch); i++ {
		if !epochPresent(st.Epochs, i) {
			return fmt.Errorf("%w: epoch %d missing from snapshot", ErrInvalidConfig, i)
		}
	}

	saved := *l
	l.reset(st.Meta.Copy())
	for i, ts := range st.Tiers {
		if ts.Tier.Index() != i {
			*l = saved
			return fmt.Errorf("%w: tier %d out of order", ErrInvalidConfig, ts.Tier)
		}
		cp := ts.Copy()
		l.tiers[i] = &cp
	}
	for _, p := range st.Positions {
		if !p.Tier.Valid() {
			*l = saved
			return fmt.Errorf("%w: position %s", ErrInvalidTier, p.Owner.Hex())
		}
		l.positions[p.Owner] = p.Copy()
		if p.Alive {
			l.live[p.Tier.Index()][p.Owner] = struct{}{}
		}
	}
	for _, s := range st.Scans {
		l.scans[s.ID] = s.Copy()
	}
	for _, k := range st.Processed {
		l.processed[k] = struct{}{}
	}
	for _, e := range st.Epochs {
		l.epochs[e.Number] = e.Copy()
	}
	for _, k := range st.UsedNonces {
		l.usedNonces[k] = struct{}{}
	}
	if err := l.CheckInvariants(); err != nil {
		*l = saved
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func epochPresent(epochs []inter.ResetEpoch, n uint64) bool {
	for _, e := range epochs {
		if uint64(e.Number) == n {
			return len(e.AccSnapshot) == inter.NumTiers
		}
	}
	return false
}
