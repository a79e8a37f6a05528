package ledger

import (
	"math/big"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

// Split is the division of one amount of dead capital.
type Split struct {
	SameTier *big.Int
	Upstream *big.Int
	Burn     *big.Int
	Protocol *big.Int

	// UpstreamByTier holds each upstream tier's part of Upstream, indexed by
	// Tier.Index. Entries of the source tier and of tiers above it are zero.
	UpstreamByTier [inter.NumTiers]*big.Int
}

// Total returns the sum of the four shares.
func (s Split) Total() *big.Int {
	v := new(big.Int).Add(s.SameTier, s.Upstream)
	v.Add(v, s.Burn)
	return v.Add(v, s.Protocol)
}

// SplitDeadCapital divides dead capital eliminated from tier using the
// current tier totals. The protocol share absorbs every rounding remainder,
// so the four shares always sum to dead exactly.
//
// With no upstream stake the upstream share joins the same-tier share. With
// no survivors in the tier the same-tier share goes to the protocol.
func SplitDeadCapital(c rules.CascadeRules, tier inter.Tier, dead *big.Int, totals [inter.NumTiers]*big.Int) Split {
	s := Split{
		SameTier: bps(dead, c.SameTierBps),
		Upstream: bps(dead, c.UpstreamBps),
		Burn:     bps(dead, c.BurnBps),
	}
	for i := range s.UpstreamByTier {
		s.UpstreamByTier[i] = new(big.Int)
	}

	upTotal := new(big.Int)
	var holders []inter.Tier
	for _, u := range tier.Upstream() {
		if totals[u.Index()].Sign() > 0 {
			upTotal.Add(upTotal, totals[u.Index()])
			holders = append(holders, u)
		}
	}
	if len(holders) == 0 {
		s.SameTier.Add(s.SameTier, s.Upstream)
		s.Upstream = new(big.Int)
	} else {
		rest := new(big.Int).Set(s.Upstream)
		for _, u := range holders {
			part := new(big.Int).Mul(s.Upstream, totals[u.Index()])
			part.Quo(part, upTotal)
			s.UpstreamByTier[u.Index()] = part
			rest.Sub(rest, part)
		}
		// holders is ordered lowest risk first
		first := holders[0].Index()
		s.UpstreamByTier[first].Add(s.UpstreamByTier[first], rest)
	}
	if totals[tier.Index()].Sign() == 0 {
		s.SameTier = new(big.Int)
	}

	s.Protocol = new(big.Int).Sub(dead, s.SameTier)
	s.Protocol.Sub(s.Protocol, s.Upstream)
	s.Protocol.Sub(s.Protocol, s.Burn)
	return s
}

// cascade distributes dead capital eliminated from tier: survivor shares
// raise the reward accumulators, the rest is burned or sent to the treasury.
func (l *Ledger) cascade(tier inter.Tier, dead *big.Int, source string) error {
	var totals [inter.NumTiers]*big.Int
	for i, ts := range l.tiers {
		totals[i] = ts.TotalStake
	}
	s := SplitDeadCapital(l.rules.Cascade, tier, dead, totals)

	ts := l.touchTier(tier)
	accBefore := new(big.Int).Set(ts.AccRewardPerShare)
	if s.SameTier.Sign() > 0 {
		addReward(ts, s.SameTier)
	}
	byTier := make([]*big.Int, inter.NumTiers)
	for i, part := range s.UpstreamByTier {
		byTier[i] = part
		if part.Sign() > 0 {
			addReward(l.touchTier(inter.Tier(i+1)), part)
		}
	}
	if err := l.burn(s.Burn); err != nil {
		return err
	}
	if err := l.payProtocol(s.Protocol); err != nil {
		return err
	}

	l.emit(&inter.CascadeDistributed{
		Tier:           tier,
		Source:         source,
		DeadCapital:    new(big.Int).Set(dead),
		SameTier:       s.SameTier,
		Upstream:       s.Upstream,
		Burn:           s.Burn,
		Protocol:       s.Protocol,
		UpstreamByTier: byTier,
		AccBefore:      accBefore,
		AccAfter:       new(big.Int).Set(ts.AccRewardPerShare),
	})
	return nil
}
