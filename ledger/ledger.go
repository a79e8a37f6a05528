// Package ledger implements the survival staking ledger: tiered stake
// positions that earn rewards, periodic elimination scans whose verdicts
// anyone can recompute, the cascade that redistributes eliminated capital,
// capacity culling, a global lazily applied reset penalty and signed boosts.
//
// Every exported mutating method is one atomic operation. It either commits
// all of its state changes, token transfers and events, or returns an error
// and leaves no trace. The Ledger itself is not safe for concurrent use; wrap
// it in an Executor to serialize callers.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

// Config wires a Ledger to its collaborators and privileged addresses.
type Config struct {
	Rules rules.Rules

	// Self is the custody address holding all staked and reward tokens. It is
	// also the verifying address bound into boost signatures.
	Self common.Address

	// Treasury receives the protocol share of every split and funds yield boosts.
	Treasury common.Address

	// Distributor is the only caller allowed to add emission rewards.
	Distributor common.Address

	// Signer is the address whose signatures authorize boosts. The zero
	// address disables boosts.
	Signer common.Address

	// Genesis is the starting time of the reset countdown and of the first
	// scans. Zero means the environment's time at construction.
	Genesis inter.Timestamp

	Log logrus.FieldLogger
}

// Ledger is the survival staking state machine.
type Ledger struct {
	rules   rules.Rules
	env     Environment
	bank    Bank
	emitter Emitter
	log     logrus.FieldLogger

	self        common.Address
	treasury    common.Address
	distributor common.Address
	signer      common.Address
	domain      common.Hash

	meta       inter.LedgerMeta
	tiers      [inter.NumTiers]*inter.TierState
	positions  map[common.Address]*inter.Position
	live       [inter.NumTiers]map[common.Address]struct{}
	scans      map[inter.ScanID]*inter.Scan
	processed  map[inter.ClaimKey]struct{}
	epochs     map[idx.Epoch]inter.ResetEpoch
	usedNonces map[inter.NonceKey]struct{}

	journal *journal
	pending []inter.Event
	entered bool
}

// New creates an empty ledger at genesis.
func New(cfg Config, env Environment, bank Bank, emitter Emitter) (*Ledger, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Self == (common.Address{}) || cfg.Treasury == (common.Address{}) {
		return nil, fmt.Errorf("%w: custody and treasury addresses are required", ErrInvalidConfig)
	}
	if cfg.Self == cfg.Treasury {
		return nil, fmt.Errorf("%w: treasury must differ from custody", ErrInvalidConfig)
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	l := &Ledger{
		rules:       cfg.Rules.Copy(),
		env:         env,
		bank:        bank,
		emitter:     emitter,
		log:         log.WithField("module", "ledger"),
		self:        cfg.Self,
		treasury:    cfg.Treasury,
		distributor: cfg.Distributor,
		signer:      cfg.Signer,
		journal:     newJournal(),
	}
	l.domain = DomainSeparator(l.rules.Boost, l.rules.ChainID, l.self)

	genesis := cfg.Genesis
	if genesis == 0 {
		genesis = env.Now()
	}
	l.reset(inter.LedgerMeta{
		ResetDeadline: genesis + l.rules.Reset.Countdown,
		Burned:        new(big.Int),
		ProtocolPaid:  new(big.Int),
	})
	for _, t := range inter.AllTiers() {
		ts := inter.NewTierState(t, genesis+l.rules.Tier(t).ScanInterval)
		l.tiers[t.Index()] = &ts
	}
	return l, nil
}

func (l *Ledger) reset(meta inter.LedgerMeta) {
	l.meta = meta
	l.positions = make(map[common.Address]*inter.Position)
	for i := range l.live {
		l.live[i] = make(map[common.Address]struct{})
	}
	l.scans = make(map[inter.ScanID]*inter.Scan)
	l.processed = make(map[inter.ClaimKey]struct{})
	l.epochs = make(map[idx.Epoch]inter.ResetEpoch)
	l.usedNonces = make(map[inter.NonceKey]struct{})
}

// Rules returns a copy of the ledger's rules.
func (l *Ledger) Rules() rules.Rules {
	return l.rules.Copy()
}

// Address returns the custody address.
func (l *Ledger) Address() common.Address {
	return l.self
}

// Treasury returns the protocol sink address.
func (l *Ledger) Treasury() common.Address {
	return l.treasury
}

// execute runs fn as one atomic operation. Ledger writes are undone through
// the journal and token movements through a bank snapshot when fn fails or
// panics. Events are delivered only after a successful commit.
func (l *Ledger) execute(op string, fn func(now inter.Timestamp) error) (err error) {
	if l.entered {
		return ErrReentrant
	}
	l.entered = true
	l.journal.reset()
	l.pending = l.pending[:0]
	snap := l.bank.Snapshot()

	defer func() {
		if r := recover(); r != nil {
			l.rollback(snap)
			l.entered = false
			panic(r)
		}
	}()

	if err = fn(l.env.Now()); err != nil {
		l.rollback(snap)
		l.entered = false
		l.log.WithError(err).WithFields(logrus.Fields{
			"op":    op,
			"class": Class(err),
		}).Debug("Operation rejected")
		return err
	}

	events := l.pending
	l.pending = nil
	l.journal.reset()
	if c, ok := l.bank.(Committer); ok {
		c.Commit()
	}
	l.entered = false

	for _, ev := range events {
		l.emitter.Emit(ev)
	}
	return nil
}

func (l *Ledger) rollback(snap int) {
	l.journal.revert()
	l.bank.RevertToSnapshot(snap)
	l.pending = nil
}

// pay moves amount from custody to addr, skipping zero amounts.
func (l *Ledger) pay(to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.bank.Transfer(l.self, to, amount); err != nil {
		return fmt.Errorf("pay %s: %w", to.Hex(), err)
	}
	return nil
}

// pull moves amount from addr into custody.
func (l *Ledger) pull(from common.Address, amount *big.Int) error {
	if err := l.bank.Transfer(from, l.self, amount); err != nil {
		return fmt.Errorf("pull from %s: %w", from.Hex(), err)
	}
	return nil
}

// burn destroys amount held in custody.
func (l *Ledger) burn(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.bank.Burn(l.self, amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	meta := l.touchMeta()
	meta.Burned = new(big.Int).Add(meta.Burned, amount)
	return nil
}

// payProtocol routes amount from custody to the treasury.
func (l *Ledger) payProtocol(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.pay(l.treasury, amount); err != nil {
		return err
	}
	meta := l.touchMeta()
	meta.ProtocolPaid = new(big.Int).Add(meta.ProtocolPaid, amount)
	return nil
}

func checkTier(t inter.Tier) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTier, t)
	}
	return nil
}
