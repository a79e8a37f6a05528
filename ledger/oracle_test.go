package ledger

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

func TestVerdictDeterministic(t *testing.T) {
	seed := common.HexToHash("0xabcdef")
	addr := who(7)
	roll, die := Verdict(seed, addr, 10000)
	require.True(t, die)
	require.Less(t, roll, uint64(10000))

	again, _ := Verdict(seed, addr, 0)
	require.Equal(t, roll, again)
	_, die = Verdict(seed, addr, 0)
	require.False(t, die)

	_, die = Verdict(seed, addr, roll)
	require.False(t, die, "roll equal to the rate survives")
	_, die = Verdict(seed, addr, roll+1)
	require.True(t, die)
}

func TestEffectiveRate(t *testing.T) {
	r := rules.FakeNetRules()
	p := inter.NewPosition(who(0), 3, tokens(10), 0, 0)
	require.EqualValues(t, 2500, EffectiveRate(r, p, 100))

	p.Boosts = []inter.Boost{
		{Kind: inter.BoostDeathRate, Magnitude: 1000, Applied: 50, Expiry: 200},
		{Kind: inter.BoostYield, Magnitude: 1000, Applied: 50, Expiry: 200},
	}
	require.EqualValues(t, 1500, EffectiveRate(r, p, 100))
	require.EqualValues(t, 2500, EffectiveRate(r, p, 40), "boost applied after the time does not count")
	require.EqualValues(t, 2500, EffectiveRate(r, p, 200), "expired boost does not count")

	p.Boosts = append(p.Boosts, inter.Boost{Kind: inter.BoostDeathRate, Magnitude: 5000, Applied: 0, Expiry: 200})
	require.Zero(t, EffectiveRate(r, p, 100))
}

// scenario builds the reference layout: 100 tokens in each of tiers 1 and
// 2, and 1000 tokens in tier 3 of which the first position, holding 150,
// is doomed in the first tier-3 scan.
func scenario(t *testing.T, mutate ...func(r *rules.Rules)) (f *fixture, doomed common.Address, survivors []common.Address) {
	f = newFixture(t, mutate...)
	f.join(0, tokens(100), 1)
	f.join(1, tokens(100), 2)
	doomed = f.join(2, tokens(150), 3)
	survivors = []common.Address{
		f.join(3, tokens(300), 3),
		f.join(4, tokens(250), 3),
		f.join(5, tokens(300), 3),
	}
	f.advanceTo(3)
	f.seedFor(3, []common.Address{doomed}, survivors)
	require.NoError(t, f.l.StartScan(3))
	return f, doomed, survivors
}

func TestCascadeScenario(t *testing.T) {
	f, doomed, survivors := scenario(t)
	supply := f.bank.TotalSupply()
	treasuryBefore := f.balance(treasury)

	res, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed})
	require.NoError(t, err)
	require.Equal(t, []common.Address{doomed}, res.Recorded)
	requireBig(t, tokens(850), f.tier(3).TotalStake)
	require.EqualValues(t, 3, f.tier(3).LiveCount)

	require.ErrorIs(t, f.l.FinalizeScan(3), ErrWindowOpen)
	f.advance(30 * time.Second)
	require.NoError(t, f.l.FinalizeScan(3))

	ev := f.rec.Of(inter.KindCascadeDistributed)[0].(*inter.CascadeDistributed)
	require.Equal(t, "scan", ev.Source)
	requireBig(t, tokens(150), ev.DeadCapital)
	requireBig(t, tokens(45), ev.SameTier)
	requireBig(t, tokens(45), ev.Upstream)
	requireBig(t, tokens(45), ev.Burn)
	requireBig(t, tokens(15), ev.Protocol)
	requireBig(t, fraction(45, 2), ev.UpstreamByTier[0])
	requireBig(t, fraction(45, 2), ev.UpstreamByTier[1])

	wantAcc := new(big.Int).Quo(new(big.Int).Mul(tokens(45), Scale), tokens(850))
	requireBig(t, wantAcc, f.tier(3).AccRewardPerShare)
	requireBig(t, new(big.Int).Sub(supply, tokens(45)), f.bank.TotalSupply())
	requireBig(t, new(big.Int).Add(treasuryBefore, tokens(15)), f.balance(treasury))

	for _, s := range survivors {
		p, _ := f.l.Position(s)
		requireBig(t, accrued(p.Stake, wantAcc), f.l.PendingReward(s))
		require.EqualValues(t, 1, f.l.Streak(s))
	}
	requireBig(t, fraction(45, 2), f.l.PendingReward(who(0)))

	scan, _ := f.l.Scan(1)
	require.True(t, scan.Finalized())
	require.EqualValues(t, 1, scan.DeathCount)
	require.EqualValues(t, 1, f.tier(3).FinalizedScans)
	require.Zero(t, f.tier(3).ActiveScan)
	f.invariants()
}

func TestDeadPositionKeepsRecord(t *testing.T) {
	f, doomed, _ := scenario(t)
	require.NoError(t, f.l.AddEmissionReward(distributor, 3, tokens(10)))
	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed})
	require.NoError(t, err)

	p, ok := f.l.Position(doomed)
	require.True(t, ok)
	require.False(t, p.Alive)
	requireBig(t, tokens(150), p.Stake)
	requireBig(t, fraction(15, 10), p.Owed)
	require.ErrorIs(t, f.l.Withdraw(doomed), ErrPositionNotAlive)
	require.ErrorIs(t, f.l.AddStake(doomed, tokens(1)), ErrPositionNotAlive)

	before := f.balance(doomed)
	require.NoError(t, f.l.Claim(doomed))
	requireBig(t, new(big.Int).Add(before, fraction(15, 10)), f.balance(doomed))
	_, ok = f.l.Position(doomed)
	require.False(t, ok)
	require.True(t, f.rec.Of(inter.KindRewardClaimed)[0].(*inter.RewardClaimed).Closed)
}

func TestRejoinClearsDeadRecord(t *testing.T) {
	f, doomed, _ := scenario(t)
	require.NoError(t, f.l.AddEmissionReward(distributor, 3, tokens(10)))
	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed})
	require.NoError(t, err)

	require.NoError(t, f.l.Join(doomed, tokens(5), 1))
	p, _ := f.l.Position(doomed)
	require.True(t, p.Alive)
	require.Equal(t, inter.Tier(1), p.Tier)
	requireBig(t, tokens(5), p.Stake)
	requireBig(t, new(big.Int), p.Owed)
	f.invariants()
}

func TestDuplicateClaimIsNoop(t *testing.T) {
	f, doomed, _ := scenario(t)
	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed, doomed})
	require.NoError(t, err)
	require.Len(t, f.rec.Of(inter.KindDeathRecorded), 1)

	state := f.l.Export()
	f.rec.Reset()
	res, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed})
	require.NoError(t, err)
	require.Empty(t, res.Recorded)
	require.Equal(t, []common.Address{doomed}, res.Skipped)
	require.Empty(t, f.rec.Events)
	require.Equal(t, state, f.l.Export())

	scan, _ := f.l.ActiveScan(3)
	requireBig(t, tokens(150), scan.DeadCapital)
	require.True(t, f.l.Processed(3, scan.ID, doomed))
}

func TestVerdictMismatchRejectsClaim(t *testing.T) {
	f, doomed, survivors := scenario(t)
	state := f.l.Export()
	custodyBefore := f.balance(custody)
	f.rec.Reset()

	res, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{survivors[0]})
	require.ErrorIs(t, err, ErrVerdictMismatch)
	require.Equal(t, ClassConsistency, Class(err))
	require.Empty(t, res.Recorded)
	require.Len(t, res.Rejected, 1)
	require.Equal(t, state, f.l.Export())
	require.Empty(t, f.rec.Events)
	requireBig(t, custodyBefore, f.balance(custody))

	p, _ := f.l.Position(doomed)
	require.True(t, p.Alive)
}

func TestMixedBatchRecordsCorrectClaims(t *testing.T) {
	f, doomed, survivors := scenario(t)
	scan, _ := f.l.ActiveScan(3)

	res, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{survivors[0], doomed, who(30)})
	require.NoError(t, err)
	require.Equal(t, []common.Address{doomed}, res.Recorded)
	require.Len(t, res.Rejected, 2)
	require.Equal(t, survivors[0], res.Rejected[0].Participant)
	require.ErrorIs(t, res.Rejected[0].Err, ErrVerdictMismatch)
	require.Equal(t, who(30), res.Rejected[1].Participant)
	require.ErrorIs(t, res.Rejected[1].Err, ErrPositionNotFound)

	require.True(t, f.l.Processed(3, scan.ID, doomed))
	require.False(t, f.l.Processed(3, scan.ID, survivors[0]))
	p, _ := f.l.Position(survivors[0])
	require.True(t, p.Alive)
	requireBig(t, tokens(850), f.tier(3).TotalStake)
	require.Len(t, f.rec.Of(inter.KindDeathRecorded), 1)

	// with nothing new to record the rejection surfaces as the error
	state := f.l.Export()
	res, err = f.l.SubmitDeathClaims(outsider, 3, []common.Address{doomed, survivors[1]})
	require.ErrorIs(t, err, ErrVerdictMismatch)
	require.Empty(t, res.Recorded)
	require.Len(t, res.Rejected, 1)
	require.Equal(t, survivors[1], res.Rejected[0].Participant)
	require.Equal(t, state, f.l.Export())
	f.invariants()
}

func TestClaimValidation(t *testing.T) {
	f, doomed, _ := scenario(t)
	other := who(0) // tier 1

	tests := []struct {
		name  string
		tier  inter.Tier
		batch []common.Address
		want  error
	}{
		{"empty batch", 3, nil, ErrBatchSize},
		{"oversized batch", 3, make([]common.Address, 17), ErrBatchSize},
		{"idle tier", 2, []common.Address{who(1)}, ErrNoActiveScan},
		{"invalid tier", 7, []common.Address{doomed}, ErrInvalidTier},
		{"unknown position", 3, []common.Address{who(30)}, ErrPositionNotFound},
		{"wrong tier", 3, []common.Address{other}, ErrWrongTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.l.SubmitDeathClaims(outsider, tt.tier, tt.batch)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLateJoinerNotEligible(t *testing.T) {
	f, _, _ := scenario(t)
	f.advance(time.Second)
	late := f.join(10, tokens(5), 3)

	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{late})
	require.ErrorIs(t, err, ErrNotEligible)
	require.NotContains(t, f.l.Doomed(3), late)

	// the late joiner has no survival to count for the running scan
	f.advance(30 * time.Second)
	require.NoError(t, f.l.FinalizeScan(3))
	require.Zero(t, f.l.Streak(late))
}

func TestJoinerAtScanStartNotEligible(t *testing.T) {
	f, _, _ := scenario(t)
	scan, _ := f.l.ActiveScan(3)
	same := f.join(10, tokens(5), 3)
	p, _ := f.l.Position(same)
	require.Equal(t, scan.StartedAt, p.EntryTime)
	require.Equal(t, scan.ID, p.EntryScan)

	_, err := f.l.SubmitDeathClaims(outsider, 3, []common.Address{same})
	require.ErrorIs(t, err, ErrNotEligible)
	require.NotContains(t, f.l.Doomed(3), same)

	// the next scan may claim it
	f.advance(30 * time.Second)
	require.NoError(t, f.l.FinalizeScan(3))
	f.advanceTo(3)
	require.NoError(t, f.l.StartScan(3))
	next, _ := f.l.ActiveScan(3)
	p, _ = f.l.Position(same)
	require.True(t, f.l.eligible(p, next))
}

func TestDoomedCannotWithdraw(t *testing.T) {
	f, doomed, survivors := scenario(t)
	require.Equal(t, []common.Address{doomed}, f.l.Doomed(3))

	require.ErrorIs(t, f.l.Withdraw(doomed), ErrDoomed)
	require.NoError(t, f.l.Withdraw(survivors[0]))
	f.invariants()
}

func TestStartScanRules(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.l.StartScan(1), ErrScanNotDue)
	require.ErrorIs(t, f.l.StartScan(0), ErrInvalidTier)
	require.ErrorIs(t, f.l.FinalizeScan(1), ErrNoActiveScan)

	f.advanceTo(1)
	require.NoError(t, f.l.StartScan(1))
	require.ErrorIs(t, f.l.StartScan(1), ErrScanActive)

	started := f.rec.Of(inter.KindScanStarted)[0].(*inter.ScanStarted)
	require.Equal(t, f.env.Now()+f.l.rules.Tier(1).ScanInterval, started.NextScanTime)
	require.Equal(t, started.Seed, f.tier(1).LastSeed)

	// an empty scan finalizes without a cascade
	f.advance(30 * time.Second)
	require.NoError(t, f.l.FinalizeScan(1))
	require.Empty(t, f.rec.Of(inter.KindCascadeDistributed))
	require.ErrorIs(t, f.l.StartScan(1), ErrScanNotDue)
}

func TestSeedsDiffer(t *testing.T) {
	f := newFixture(t)
	f.advanceTo(5)
	require.NoError(t, f.l.StartScan(5))
	f.advance(30 * time.Second)
	require.NoError(t, f.l.FinalizeScan(5))
	f.advanceTo(5)
	require.NoError(t, f.l.StartScan(5))

	seeds := f.rec.Of(inter.KindScanStarted)
	require.Len(t, seeds, 2)
	require.NotEqual(t, seeds[0].(*inter.ScanStarted).Seed, seeds[1].(*inter.ScanStarted).Seed)
}
