package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/rand"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mroth/weightedrand"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

// maxCullWeight bounds a single draw weight so the chooser's running sum
// cannot overflow.
const maxCullWeight = 1 << 32

// Candidate is a live position considered for culling.
type Candidate struct {
	Addr  common.Address
	Stake *big.Int
}

// CullPool returns the culling pool of a tier: the smallest
// ceil(len*bottomBps/10000) candidates by stake, at least one, ties broken by
// address. The input slice is reordered.
func CullPool(candidates []Candidate, bottomBps uint64) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if c := candidates[i].Stake.Cmp(candidates[j].Stake); c != 0 {
			return c < 0
		}
		return bytes.Compare(candidates[i].Addr.Bytes(), candidates[j].Addr.Bytes()) < 0
	})
	n := (uint64(len(candidates))*bottomBps + rules.BasisPoints - 1) / rules.BasisPoints
	if n < 1 {
		n = 1
	}
	if n > uint64(len(candidates)) {
		n = uint64(len(candidates))
	}
	return candidates[:n]
}

// CullWeights weights pool members inversely to their stake: the largest
// stake in the pool gets 10000, a stake half its size twice that.
func CullWeights(pool []Candidate) []weightedrand.Choice {
	maxStake := new(big.Int)
	for _, c := range pool {
		if c.Stake.Cmp(maxStake) > 0 {
			maxStake = c.Stake
		}
	}
	numerator := new(big.Int).Mul(maxStake, basisPoints)
	choices := make([]weightedrand.Choice, len(pool))
	for i, c := range pool {
		w := uint64(maxCullWeight)
		if c.Stake.Sign() > 0 {
			q, r := new(big.Int).QuoRem(numerator, c.Stake, new(big.Int))
			if r.Sign() > 0 {
				q.Add(q, common.Big1)
			}
			if q.IsUint64() && q.Uint64() < maxCullWeight {
				w = q.Uint64()
			}
		}
		if w == 0 {
			w = 1
		}
		choices[i] = weightedrand.NewChoice(c.Addr, uint(w))
	}
	return choices
}

// cullSource derives the deterministic randomness of one culling draw.
func cullSource(lastSeed common.Hash, entrant common.Address, nonce uint64) *rand.Rand {
	h := crypto.Keccak256(lastSeed.Bytes(), entrant.Bytes(), bigendian.Uint64ToBytes(nonce))
	return rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(h[:8]))))
}

// cull evicts one small position of a full tier to admit entrant. The
// victim pays the cull penalty into the cascade and gets the rest of its
// stake back together with its owed rewards. Positions the active scan has
// condemned are left out: they are owed to the scan at full loss.
func (l *Ledger) cull(tier inter.Tier, entrant common.Address, now inter.Timestamp) error {
	candidates := make([]Candidate, 0, len(l.live[tier.Index()]))
	for addr := range l.live[tier.Index()] {
		if addr == entrant {
			continue
		}
		p := l.positions[addr]
		if _, doomed := l.doomed(p); doomed {
			continue
		}
		candidates = append(candidates, Candidate{Addr: addr, Stake: l.effectiveStake(p)})
	}
	tr := l.rules.Tier(tier)
	pool := CullPool(candidates, tr.CullBottomBps)
	if len(pool) == 0 {
		return fmt.Errorf("%w: tier full with no cull candidates", ErrEmptyTier)
	}
	chooser, err := weightedrand.NewChooser(CullWeights(pool)...)
	if err != nil {
		return fmt.Errorf("cull draw: %w", err)
	}

	meta := l.touchMeta()
	meta.CullNonce++
	src := cullSource(l.tiers[tier.Index()].LastSeed, entrant, meta.CullNonce)
	victim := chooser.PickSource(src).(common.Address)

	p := l.touchPosition(victim)
	if err := l.settleEpochs(p); err != nil {
		return err
	}
	ts := l.touchTier(tier)
	settleRewards(p, ts.AccRewardPerShare)

	stake := p.Stake
	penalty := bps(stake, tr.CullPenaltyBps)
	refund := new(big.Int).Sub(stake, penalty)
	p.Alive = false
	p.Streak = streak(p, ts)
	ts.TotalStake = new(big.Int).Sub(ts.TotalStake, stake)
	ts.LiveCount--
	l.setLive(tier, victim, false)

	if penalty.Sign() > 0 {
		if err := l.cascade(tier, penalty, "cull"); err != nil {
			return err
		}
	}
	if err := l.pay(victim, refund); err != nil {
		return err
	}
	if _, _, err := l.payReward(p, now); err != nil {
		return err
	}

	l.emit(&inter.Culled{
		Tier:     tier,
		Victim:   victim,
		Entrant:  entrant,
		Stake:    new(big.Int).Set(stake),
		Penalty:  penalty,
		Refund:   refund,
		PoolSize: uint64(len(pool)),
	})
	return nil
}
