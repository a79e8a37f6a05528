package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

func totalsOf(stakes ...int64) [inter.NumTiers]*big.Int {
	var res [inter.NumTiers]*big.Int
	for i := range res {
		res[i] = new(big.Int)
		if i < len(stakes) {
			res[i] = tokens(stakes[i])
		}
	}
	return res
}

func TestSplitDeadCapital(t *testing.T) {
	c := rules.DefaultCascadeRules()

	tests := []struct {
		name     string
		tier     inter.Tier
		totals   [inter.NumTiers]*big.Int
		same     *big.Int
		upstream *big.Int
		protocol *big.Int
	}{
		{"reference", 3, totalsOf(100, 100, 850), tokens(45), tokens(45), tokens(15)},
		{"no upstream stake", 3, totalsOf(0, 0, 850), tokens(90), new(big.Int), tokens(15)},
		{"lowest tier", 1, totalsOf(850, 100), tokens(90), new(big.Int), tokens(15)},
		{"no survivors", 3, totalsOf(100, 0, 0), new(big.Int), tokens(45), tokens(60)},
		{"nobody left", 2, totalsOf(), new(big.Int), new(big.Int), tokens(105)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SplitDeadCapital(c, tt.tier, tokens(150), tt.totals)
			requireBig(t, tt.same, s.SameTier)
			requireBig(t, tt.upstream, s.Upstream)
			requireBig(t, tokens(45), s.Burn)
			requireBig(t, tt.protocol, s.Protocol)
			requireBig(t, tokens(150), s.Total())
		})
	}
}

func TestSplitUpstreamRemainder(t *testing.T) {
	c := rules.DefaultCascadeRules()
	totals := totalsOf(0, 0, 0, 10)
	totals[0] = big.NewInt(1)
	totals[1] = big.NewInt(1)
	totals[2] = big.NewInt(1)

	s := SplitDeadCapital(c, 4, big.NewInt(100), totals)
	require.EqualValues(t, 30, s.Upstream.Int64())
	require.EqualValues(t, 10, s.UpstreamByTier[0].Int64())
	require.EqualValues(t, 10, s.UpstreamByTier[1].Int64())
	require.EqualValues(t, 10, s.UpstreamByTier[2].Int64())

	s = SplitDeadCapital(c, 4, big.NewInt(101), totals)
	// 30 of 101 split three ways; nothing left over for tier 1
	require.EqualValues(t, 30, s.Upstream.Int64())
	s = SplitDeadCapital(c, 4, big.NewInt(110), totals)
	require.EqualValues(t, 33, s.Upstream.Int64())
	require.EqualValues(t, 11, s.UpstreamByTier[0].Int64())

	totals[1] = big.NewInt(2)
	s = SplitDeadCapital(c, 4, big.NewInt(110), totals)
	// 33 over weights 1:2:1 is 8.25/16.5/8.25, floors 8/16/8, remainder to tier 1
	require.EqualValues(t, 9, s.UpstreamByTier[0].Int64())
	require.EqualValues(t, 16, s.UpstreamByTier[1].Int64())
	require.EqualValues(t, 8, s.UpstreamByTier[2].Int64())
	require.Zero(t, s.UpstreamByTier[3].Sign())
}

func TestSplitConservesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		same := rapid.Uint64Range(0, 10000).Draw(t, "same").(uint64)
		up := rapid.Uint64Range(0, 10000-same).Draw(t, "up").(uint64)
		burn := rapid.Uint64Range(0, 10000-same-up).Draw(t, "burn").(uint64)
		c := rules.CascadeRules{SameTierBps: same, UpstreamBps: up, BurnBps: burn, ProtocolBps: 10000 - same - up - burn}

		tier := inter.Tier(rapid.IntRange(1, inter.NumTiers).Draw(t, "tier").(int))
		var totals [inter.NumTiers]*big.Int
		for i := range totals {
			totals[i] = new(big.Int).SetUint64(rapid.Uint64Range(0, 1<<40).Draw(t, "total").(uint64))
		}
		dead := new(big.Int).SetUint64(rapid.Uint64Range(0, 1<<50).Draw(t, "dead").(uint64))

		s := SplitDeadCapital(c, tier, dead, totals)
		if s.Total().Cmp(dead) != 0 {
			t.Fatalf("shares sum to %s, want %s", s.Total(), dead)
		}
		for _, v := range []*big.Int{s.SameTier, s.Upstream, s.Burn, s.Protocol} {
			if v.Sign() < 0 {
				t.Fatalf("negative share %s", v)
			}
		}
		sumUp := new(big.Int)
		for i, v := range s.UpstreamByTier {
			sumUp.Add(sumUp, v)
			if v.Sign() > 0 && (i >= tier.Index() || totals[i].Sign() == 0) {
				t.Fatalf("tier %d got %s without being an upstream holder", i+1, v)
			}
		}
		if sumUp.Cmp(s.Upstream) != 0 {
			t.Fatalf("upstream parts sum to %s, want %s", sumUp, s.Upstream)
		}
		if totals[tier.Index()].Sign() == 0 && s.SameTier.Sign() != 0 {
			t.Fatalf("same-tier share %s with no survivors", s.SameTier)
		}
	})
}
