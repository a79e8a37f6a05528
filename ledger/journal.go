package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-survival/inter"
)

// journal records undo closures for every write made inside an operation
// frame. Entries are replayed in reverse order on revert. Positions, tiers,
// scans and the meta record are saved once per frame, on first touch.
type journal struct {
	entries []func()

	positions map[common.Address]struct{}
	tiers     map[inter.Tier]struct{}
	scans     map[inter.ScanID]struct{}
	meta      bool
}

func newJournal() *journal {
	j := &journal{}
	j.reset()
	return j
}

func (j *journal) append(undo func()) {
	j.entries = append(j.entries, undo)
}

func (j *journal) revert() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i]()
	}
	j.reset()
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
	j.positions = make(map[common.Address]struct{})
	j.tiers = make(map[inter.Tier]struct{})
	j.scans = make(map[inter.ScanID]struct{})
	j.meta = false
}

// touchPosition returns the live record of addr for mutation, saving its
// current value first. It returns nil when no record exists.
func (l *Ledger) touchPosition(addr common.Address) *inter.Position {
	p, ok := l.positions[addr]
	if !ok {
		return nil
	}
	if _, seen := l.journal.positions[addr]; !seen {
		l.journal.positions[addr] = struct{}{}
		saved := p.Copy()
		l.journal.append(func() {
			*l.positions[addr] = *saved
		})
	}
	return p
}

// putPosition stores a new record for addr.
func (l *Ledger) putPosition(p *inter.Position) {
	addr := p.Owner
	prev, had := l.positions[addr]
	l.positions[addr] = p
	l.journal.positions[addr] = struct{}{}
	l.journal.append(func() {
		if had {
			l.positions[addr] = prev
		} else {
			delete(l.positions, addr)
		}
	})
}

// deletePosition removes the record of addr.
func (l *Ledger) deletePosition(addr common.Address) {
	prev, had := l.positions[addr]
	if !had {
		return
	}
	delete(l.positions, addr)
	l.journal.append(func() {
		l.positions[addr] = prev
	})
}

// setLive adds or removes addr from the live index of tier t.
func (l *Ledger) setLive(t inter.Tier, addr common.Address, live bool) {
	set := l.live[t.Index()]
	_, was := set[addr]
	if was == live {
		return
	}
	if live {
		set[addr] = struct{}{}
	} else {
		delete(set, addr)
	}
	l.journal.append(func() {
		if was {
			set[addr] = struct{}{}
		} else {
			delete(set, addr)
		}
	})
}

// touchTier returns the aggregates of t for mutation.
func (l *Ledger) touchTier(t inter.Tier) *inter.TierState {
	ts := l.tiers[t.Index()]
	if _, seen := l.journal.tiers[t]; !seen {
		l.journal.tiers[t] = struct{}{}
		saved := ts.Copy()
		l.journal.append(func() {
			*l.tiers[t.Index()] = saved
		})
	}
	return ts
}

// touchMeta returns the global record for mutation.
func (l *Ledger) touchMeta() *inter.LedgerMeta {
	if !l.journal.meta {
		l.journal.meta = true
		saved := l.meta.Copy()
		l.journal.append(func() {
			l.meta = saved
		})
	}
	return &l.meta
}

// touchScan returns scan id for mutation.
func (l *Ledger) touchScan(id inter.ScanID) *inter.Scan {
	s, ok := l.scans[id]
	if !ok {
		return nil
	}
	if _, seen := l.journal.scans[id]; !seen {
		l.journal.scans[id] = struct{}{}
		saved := s.Copy()
		l.journal.append(func() {
			*l.scans[id] = *saved
		})
	}
	return s
}

func (l *Ledger) putScan(s *inter.Scan) {
	id := s.ID
	l.scans[id] = s
	l.journal.scans[id] = struct{}{}
	l.journal.append(func() {
		delete(l.scans, id)
	})
}

func (l *Ledger) markProcessed(key inter.ClaimKey) {
	l.processed[key] = struct{}{}
	l.journal.append(func() {
		delete(l.processed, key)
	})
}

func (l *Ledger) putEpoch(e inter.ResetEpoch) {
	n := e.Number
	l.epochs[n] = e
	l.journal.append(func() {
		delete(l.epochs, n)
	})
}

func (l *Ledger) markNonce(key inter.NonceKey) {
	l.usedNonces[key] = struct{}{}
	l.journal.append(func() {
		delete(l.usedNonces, key)
	})
}

// emit buffers ev until the frame commits.
func (l *Ledger) emit(ev inter.Event) {
	l.pending = append(l.pending, ev)
}
