// Package rules defines the parameters a survival ledger deployment runs with.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Per-tier rules: elimination rate, scan interval, minimum stake, capacity
//   - Scan rules: submission window, pre-scan lock window, claim batch size
//   - Cascade split of eliminated capital
//   - System reset countdown, penalty and deadline extension steps
//   - Boost signature domain and limits
//
// The Rules type is the single configuration structure handed to the ledger.
// Every value in it is consensus-critical for a deployment: two ledgers with
// different Rules compute different verdicts and payouts.

package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rony4d/go-survival/inter"
)

// Network identification constants. The chain id is part of the boost
// signature domain, so signatures never verify across networks.
const (
	MainNetworkID uint64 = 0x5e1
	TestNetworkID uint64 = 0x5e2
	FakeNetworkID uint64 = 0x5e3

	// BasisPoints is the denominator of every rate and fraction in Rules.
	BasisPoints uint64 = 10000
)

// Unit is one whole token in base units (18 decimals).
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Tokens returns n whole tokens in base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

// Rules describes the complete configuration of one ledger deployment.
//
// Note: Copy() must deep-copy every *big.Int field.
type Rules struct {
	Name    string // Network name (e.g., "main", "test", "fake")
	ChainID uint64 // Chain id bound into the boost signature domain

	// Tiers holds the per-tier rules indexed by inter.Tier.Index().
	Tiers [inter.NumTiers]TierRules

	Scan    ScanRules
	Cascade CascadeRules
	Reset   ResetRules
	Boost   BoostRules
}

// TierRules are the static parameters of one risk tier.
type TierRules struct {
	// BaseRateBps is the chance, in basis points, that a position dies in a scan.
	BaseRateBps uint64

	// ScanInterval is the time between the start of two scans of the tier.
	ScanInterval inter.Timestamp

	// MinStake is the smallest amount a position can be opened with.
	MinStake *big.Int

	// MaxPositions caps the live positions in the tier. Zero means no cap.
	MaxPositions uint64

	// CullBottomBps is the share of live positions, smallest stakes first,
	// eligible for eviction when the tier is full.
	CullBottomBps uint64

	// CullPenaltyBps is the share of a culled position's stake sent into the cascade.
	CullPenaltyBps uint64
}

// ScanRules control the elimination protocol timing.
type ScanRules struct {
	// SubmissionWindow is how long after start death claims are accepted
	// before the scan may be finalized.
	SubmissionWindow inter.Timestamp

	// LockWindow is the interval before NextScanTime during which withdrawal
	// is refused.
	LockWindow inter.Timestamp

	// MaxBatch is the largest number of participants in one claim batch.
	MaxBatch int
}

// CascadeRules split eliminated capital. The four shares sum to BasisPoints.
type CascadeRules struct {
	SameTierBps uint64 // to survivors of the same tier
	UpstreamBps uint64 // to tiers of strictly lower risk
	BurnBps     uint64 // destroyed
	ProtocolBps uint64 // to the treasury; absorbs rounding remainder
}

// ExtensionStep extends the reset deadline by Extension for deposits of at
// least MinDeposit.
type ExtensionStep struct {
	MinDeposit *big.Int
	Extension  inter.Timestamp
}

// ResetRules control the global penalty countdown.
type ResetRules struct {
	// Countdown is the deadline distance set at genesis and after each reset.
	Countdown inter.Timestamp

	// MaxHorizon caps how far past the current time the deadline may extend.
	MaxHorizon inter.Timestamp

	// PenaltyBps is the share of stake every position loses per reset.
	PenaltyBps uint64

	// Split of each collected penalty. The three shares sum to BasisPoints.
	DepositorBps uint64
	BurnBps      uint64
	ProtocolBps  uint64

	// DepositorThreshold is the smallest deposit that becomes the last depositor.
	DepositorThreshold *big.Int

	// Steps are ordered by MinDeposit, largest first. The first step a deposit
	// reaches decides the extension.
	Steps []ExtensionStep
}

// BoostRules bound signed boosts.
type BoostRules struct {
	DomainName    string
	DomainVersion string

	// MaxBoosts is the number of unexpired boosts a position may carry.
	MaxBoosts int

	// MaxMagnitude caps a single boost, in basis points.
	MaxMagnitude uint64
}

// Tier returns the rules of tier t. The caller must pass a valid tier.
func (r Rules) Tier(t inter.Tier) TierRules {
	return r.Tiers[t.Index()]
}

// Extension returns how far a deposit of amount pushes the reset deadline.
func (r ResetRules) Extension(amount *big.Int) inter.Timestamp {
	for _, s := range r.Steps {
		if amount.Cmp(s.MinDeposit) >= 0 {
			return s.Extension
		}
	}
	return 0
}

// MainNetRules returns the production configuration.
func MainNetRules() Rules {
	return Rules{
		Name:    "main",
		ChainID: MainNetworkID,
		Tiers:   DefaultTierRules(),
		Scan:    DefaultScanRules(),
		Cascade: DefaultCascadeRules(),
		Reset:   DefaultResetRules(),
		Boost:   DefaultBoostRules(),
	}
}

// TestNetRules returns the testnet configuration; same economics as mainnet.
func TestNetRules() Rules {
	r := MainNetRules()
	r.Name = "test"
	r.ChainID = TestNetworkID
	return r
}

// FakeNetRules returns accelerated rules for local networks and simulations:
//   - Scan intervals in minutes instead of hours
//   - One-token minimum stakes
//   - Small tier capacity so culling is exercised
//   - A one hour reset countdown
func FakeNetRules() Rules {
	return Rules{
		Name:    "fake",
		ChainID: FakeNetworkID,
		Tiers:   FakeTierRules(),
		Scan:    FakeScanRules(),
		Cascade: DefaultCascadeRules(),
		Reset:   FakeResetRules(),
		Boost:   DefaultBoostRules(),
	}
}

// ByName returns the rules of a named network: "main", "test" or "fake".
func ByName(name string) (Rules, error) {
	switch name {
	case "main":
		return MainNetRules(), nil
	case "test":
		return TestNetRules(), nil
	case "fake":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("unknown network %q (valid: main, test, fake)", name)
}

// DefaultTierRules returns the mainnet tiers, lowest risk first.
func DefaultTierRules() [inter.NumTiers]TierRules {
	tier := func(rate uint64, interval time.Duration, minTokens int64) TierRules {
		return TierRules{
			BaseRateBps:    rate,
			ScanInterval:   inter.Timestamp(interval),
			MinStake:       Tokens(minTokens),
			MaxPositions:   1000,
			CullBottomBps:  2000, // bottom 20% by stake
			CullPenaltyBps: 5000, // culled positions lose half
		}
	}
	return [inter.NumTiers]TierRules{
		tier(500, 24*time.Hour, 100),
		tier(1500, 12*time.Hour, 50),
		tier(2500, 6*time.Hour, 25),
		tier(4000, 2*time.Hour, 10),
		tier(6000, 30*time.Minute, 5),
	}
}

// FakeTierRules returns accelerated tiers for local networks.
func FakeTierRules() [inter.NumTiers]TierRules {
	tiers := DefaultTierRules()
	for i := range tiers {
		tiers[i].ScanInterval /= 60 // hours become minutes
		tiers[i].MinStake = Tokens(1)
		tiers[i].MaxPositions = 8
	}
	return tiers
}

// DefaultScanRules returns the mainnet scan timing.
func DefaultScanRules() ScanRules {
	return ScanRules{
		SubmissionWindow: inter.Timestamp(10 * time.Minute),
		LockWindow:       inter.Timestamp(1 * time.Minute),
		MaxBatch:         100,
	}
}

// FakeScanRules shortens the submission window for local networks.
func FakeScanRules() ScanRules {
	cfg := DefaultScanRules()
	cfg.SubmissionWindow = inter.Timestamp(30 * time.Second)
	cfg.LockWindow = inter.Timestamp(5 * time.Second)
	cfg.MaxBatch = 16
	return cfg
}

// DefaultCascadeRules returns the 30/30/30/10 split.
func DefaultCascadeRules() CascadeRules {
	return CascadeRules{
		SameTierBps: 3000,
		UpstreamBps: 3000,
		BurnBps:     3000,
		ProtocolBps: 1000,
	}
}

// DefaultResetRules returns the mainnet countdown.
func DefaultResetRules() ResetRules {
	return ResetRules{
		Countdown:          inter.Timestamp(24 * time.Hour),
		MaxHorizon:         inter.Timestamp(72 * time.Hour),
		PenaltyBps:         2500,
		DepositorBps:       5000,
		BurnBps:            3000,
		ProtocolBps:        2000,
		DepositorThreshold: new(big.Int).Div(Unit, big.NewInt(100)), // 0.01 token
		Steps: []ExtensionStep{
			{MinDeposit: Tokens(100), Extension: inter.Timestamp(6 * time.Hour)},
			{MinDeposit: Tokens(10), Extension: inter.Timestamp(1 * time.Hour)},
			{MinDeposit: Tokens(1), Extension: inter.Timestamp(10 * time.Minute)},
		},
	}
}

// FakeResetRules returns a short countdown for local networks.
func FakeResetRules() ResetRules {
	cfg := DefaultResetRules()
	cfg.Countdown = inter.Timestamp(1 * time.Hour)
	cfg.MaxHorizon = inter.Timestamp(3 * time.Hour)
	return cfg
}

// DefaultBoostRules returns the boost domain shared by all networks. The
// chain id keeps the domains apart.
func DefaultBoostRules() BoostRules {
	return BoostRules{
		DomainName:    "SurvivalLedger",
		DomainVersion: "1",
		MaxBoosts:     4,
		MaxMagnitude:  5000,
	}
}

var errRules = errors.New("invalid rules")

// Validate checks the internal consistency of the rules.
func (r Rules) Validate() error {
	for i, t := range r.Tiers {
		if t.BaseRateBps > BasisPoints || t.CullBottomBps > BasisPoints || t.CullPenaltyBps > BasisPoints {
			return fmt.Errorf("%w: tier %d fraction above %d bps", errRules, i+1, BasisPoints)
		}
		if t.ScanInterval == 0 {
			return fmt.Errorf("%w: tier %d has no scan interval", errRules, i+1)
		}
		if t.MinStake == nil || t.MinStake.Sign() <= 0 {
			return fmt.Errorf("%w: tier %d minimum stake must be positive", errRules, i+1)
		}
	}
	c := r.Cascade
	if c.SameTierBps+c.UpstreamBps+c.BurnBps+c.ProtocolBps != BasisPoints {
		return fmt.Errorf("%w: cascade shares must sum to %d bps", errRules, BasisPoints)
	}
	rs := r.Reset
	if rs.DepositorBps+rs.BurnBps+rs.ProtocolBps != BasisPoints {
		return fmt.Errorf("%w: penalty shares must sum to %d bps", errRules, BasisPoints)
	}
	if rs.PenaltyBps > BasisPoints {
		return fmt.Errorf("%w: reset penalty above %d bps", errRules, BasisPoints)
	}
	if rs.Countdown == 0 || rs.MaxHorizon < rs.Countdown {
		return fmt.Errorf("%w: reset horizon shorter than countdown", errRules)
	}
	if rs.DepositorThreshold == nil || rs.DepositorThreshold.Sign() < 0 {
		return fmt.Errorf("%w: depositor threshold must be set", errRules)
	}
	for i, s := range rs.Steps {
		if s.MinDeposit == nil || s.MinDeposit.Sign() < 0 {
			return fmt.Errorf("%w: extension step %d has no minimum deposit", errRules, i)
		}
	}
	for i := 1; i < len(rs.Steps); i++ {
		if rs.Steps[i].MinDeposit.Cmp(rs.Steps[i-1].MinDeposit) >= 0 {
			return fmt.Errorf("%w: extension steps must be ordered largest first", errRules)
		}
	}
	if r.Scan.MaxBatch <= 0 {
		return fmt.Errorf("%w: claim batch size must be positive", errRules)
	}
	if r.Scan.SubmissionWindow == 0 {
		return fmt.Errorf("%w: submission window must be positive", errRules)
	}
	if r.Boost.MaxBoosts <= 0 || r.Boost.MaxMagnitude > BasisPoints {
		return fmt.Errorf("%w: boost limits out of range", errRules)
	}
	return nil
}

// Copy creates a deep copy of Rules. The *big.Int fields would otherwise be
// shared between copies.
func (r Rules) Copy() Rules {
	cp := r
	for i := range cp.Tiers {
		cp.Tiers[i].MinStake = new(big.Int).Set(r.Tiers[i].MinStake)
	}
	cp.Reset.DepositorThreshold = new(big.Int).Set(r.Reset.DepositorThreshold)
	cp.Reset.Steps = make([]ExtensionStep, len(r.Reset.Steps))
	for i, s := range r.Reset.Steps {
		cp.Reset.Steps[i] = ExtensionStep{MinDeposit: new(big.Int).Set(s.MinDeposit), Extension: s.Extension}
	}
	return cp
}

// String returns a JSON representation of the rules for logs and config dumps.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
