package ledger

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-survival/bank"
	"github.com/rony4d/go-survival/env"
	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

var (
	genesis     = inter.FromUnix(1608600000)
	custody     = common.HexToAddress("0x5afe000000000000000000000000000000000001")
	treasury    = common.HexToAddress("0x5afe000000000000000000000000000000000002")
	distributor = common.HexToAddress("0x5afe000000000000000000000000000000000003")
	outsider    = common.HexToAddress("0x5afe000000000000000000000000000000000004")
)

func tokens(n int64) *big.Int {
	return rules.Tokens(n)
}

// fraction returns n/d tokens.
func fraction(n, d int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(n), rules.Unit)
	return v.Quo(v, big.NewInt(d))
}

func who(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + n)))
}

type fixture struct {
	t      *testing.T
	l      *Ledger
	bank   *bank.Memory
	env    *env.Sim
	rec    *Recorder
	signer *ecdsa.PrivateKey
	hook   *test.Hook
}

func newFixture(t *testing.T, mutate ...func(r *rules.Rules)) *fixture {
	return newFixtureWithBank(t, nil, mutate...)
}

func newFixtureWithBank(t *testing.T, wrap func(*bank.Memory) Bank, mutate ...func(r *rules.Rules)) *fixture {
	r := rules.FakeNetRules()
	for _, m := range mutate {
		m(&r)
	}
	balances := map[common.Address]*big.Int{
		distributor: tokens(1_000_000),
		treasury:    tokens(1_000),
	}
	for i := 0; i < 32; i++ {
		balances[who(i)] = tokens(10_000)
	}
	b := bank.NewMemory(balances)
	var collaborator Bank = b
	if wrap != nil {
		collaborator = wrap(b)
	}
	sim := env.NewSim(genesis, common.HexToHash("0x5eed"))
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	rec := &Recorder{}

	l, err := New(Config{
		Rules:       r,
		Self:        custody,
		Treasury:    treasury,
		Distributor: distributor,
		Signer:      crypto.PubkeyToAddress(key.PublicKey),
		Genesis:     genesis,
		Log:         logger,
	}, sim, collaborator, rec)
	require.NoError(t, err)
	return &fixture{t: t, l: l, bank: b, env: sim, rec: rec, signer: key, hook: hook}
}

func (f *fixture) join(n int, amount *big.Int, tier inter.Tier) common.Address {
	f.t.Helper()
	addr := who(n)
	require.NoError(f.t, f.l.Join(addr, amount, tier))
	return addr
}

func (f *fixture) tier(t inter.Tier) inter.TierState {
	f.t.Helper()
	ts, err := f.l.Tier(t)
	require.NoError(f.t, err)
	return ts
}

// advanceTo moves the clock to the next scan time of tier.
func (f *fixture) advanceTo(t inter.Tier) {
	f.env.Set(inter.MaxTimestamp(f.env.Now(), f.tier(t).NextScanTime))
}

func (f *fixture) advance(d time.Duration) {
	f.env.Advance(d)
}

// seedFor searches a platform seed whose scan of tier kills exactly the
// positions in die and spares the ones in live, and pins it.
func (f *fixture) seedFor(tier inter.Tier, die, live []common.Address) {
	f.t.Helper()
	now := f.env.Now()
	height := uint64(f.env.Height())
	nonce := f.l.meta.SeedNonce + 1
	for i := int64(0); i < 1_000_000; i++ {
		platform := common.BigToHash(big.NewInt(i))
		seed := scanSeed(platform, now, height, tier, nonce)
		if f.verdicts(seed, die, true) && f.verdicts(seed, live, false) {
			f.env.SetSeed(platform)
			return
		}
	}
	f.t.Fatal("no seed found")
}

func (f *fixture) verdicts(seed common.Hash, addrs []common.Address, want bool) bool {
	for _, a := range addrs {
		p := f.l.positions[a]
		if _, die := Verdict(seed, a, f.l.effectiveRate(p, f.env.Now())); die != want {
			return false
		}
	}
	return true
}

func (f *fixture) balance(addr common.Address) *big.Int {
	return f.bank.BalanceOf(addr)
}

func (f *fixture) invariants() {
	f.t.Helper()
	require.NoError(f.t, f.l.CheckInvariants())
}

func requireBig(t *testing.T, want, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, 0, want.Cmp(got), append([]interface{}{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func TestNewRejectsBadConfig(t *testing.T) {
	sim := env.NewSim(genesis, common.Hash{})
	b := bank.NewMemory(nil)

	_, err := New(Config{Rules: rules.FakeNetRules(), Treasury: treasury}, sim, b, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Rules: rules.FakeNetRules(), Self: custody, Treasury: custody}, sim, b, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	broken := rules.FakeNetRules()
	broken.Cascade.BurnBps = 0
	_, err = New(Config{Rules: broken, Self: custody, Treasury: treasury}, sim, b, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Equal(t, ClassValidation, Class(err))
}

func TestGenesisState(t *testing.T) {
	f := newFixture(t)
	r := rules.FakeNetRules()
	require.Equal(t, genesis+r.Reset.Countdown, f.l.Meta().ResetDeadline)
	for _, tier := range inter.AllTiers() {
		ts := f.tier(tier)
		require.Equal(t, genesis+r.Tier(tier).ScanInterval, ts.NextScanTime)
		require.Zero(t, ts.TotalStake.Sign())
	}
	_, err := f.l.Tier(0)
	require.ErrorIs(t, err, ErrInvalidTier)
}

func TestErrorClass(t *testing.T) {
	require.Equal(t, ClassNone, Class(nil))
	require.Equal(t, ClassPrecondition, Class(ErrLockWindow))
	require.Equal(t, ClassConsistency, Class(ErrVerdictMismatch))
	require.Equal(t, ClassAuthorization, Class(ErrNonceUsed))
	require.Equal(t, ClassExternal, Class(bank.ErrInsufficientBalance))
}
