package ledger

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

// Roll returns the elimination roll of participant under seed, in [0, 10000).
func Roll(seed common.Hash, participant common.Address) uint64 {
	h := crypto.Keccak256(seed.Bytes(), participant.Bytes())
	v := new(big.Int).SetBytes(h)
	return v.Mod(v, basisPoints).Uint64()
}

// Verdict decides whether participant dies under seed at the given rate.
// Anyone holding the public seed gets the same answer.
func Verdict(seed common.Hash, participant common.Address, rate uint64) (roll uint64, die bool) {
	roll = Roll(seed, participant)
	return roll, roll < rate
}

// EffectiveRate returns the elimination rate of p at time at: the base
// rate lowered by every death-rate boost active then, floored at zero.
func EffectiveRate(r rules.Rules, p *inter.Position, at inter.Timestamp) uint64 {
	rate := r.Tier(p.Tier).BaseRateBps
	if rate > rules.BasisPoints {
		rate = rules.BasisPoints
	}
	if reduction := p.BoostTotal(inter.BoostDeathRate, at); reduction < rate {
		return rate - reduction
	}
	return 0
}

func (l *Ledger) effectiveRate(p *inter.Position, at inter.Timestamp) uint64 {
	return EffectiveRate(l.rules, p, at)
}

// eligible reports whether scan may claim p: p must be alive in the scan's
// tier and admitted before the scan started.
func (l *Ledger) eligible(p *inter.Position, scan *inter.Scan) bool {
	return p.Alive && p.Tier == scan.Tier && p.EntryScan < scan.ID
}

// doomed reports whether the active scan of p's tier condemns p and has not
// recorded its death yet.
func (l *Ledger) doomed(p *inter.Position) (inter.ScanID, bool) {
	id := l.tiers[p.Tier.Index()].ActiveScan
	if id == 0 {
		return 0, false
	}
	scan := l.scans[id]
	if !l.eligible(p, scan) {
		return 0, false
	}
	_, die := Verdict(scan.Seed, p.Owner, l.effectiveRate(p, scan.StartedAt))
	return id, die
}

// scanSeed mixes the platform seed with the call context and a counter.
func scanSeed(platform common.Hash, now inter.Timestamp, height uint64, tier inter.Tier, nonce uint64) common.Hash {
	return crypto.Keccak256Hash(
		platform.Bytes(),
		bigendian.Uint64ToBytes(uint64(now)),
		bigendian.Uint64ToBytes(height),
		[]byte{byte(tier)},
		bigendian.Uint64ToBytes(nonce),
	)
}

// StartScan opens an elimination scan of tier once its interval elapsed.
func (l *Ledger) StartScan(tier inter.Tier) error {
	return l.execute("startScan", func(now inter.Timestamp) error {
		if err := checkTier(tier); err != nil {
			return err
		}
		ts := l.touchTier(tier)
		if ts.ActiveScan != 0 {
			return fmt.Errorf("%w: scan %d", ErrScanActive, ts.ActiveScan)
		}
		if now < ts.NextScanTime {
			return fmt.Errorf("%w: next at %s", ErrScanNotDue, ts.NextScanTime)
		}

		meta := l.touchMeta()
		meta.SeedNonce++
		meta.LastScanID++
		seed := scanSeed(l.env.RandomSeed(), now, uint64(l.env.Height()), tier, meta.SeedNonce)
		scan := &inter.Scan{
			ID:          meta.LastScanID,
			Tier:        tier,
			Seed:        seed,
			StartedAt:   now,
			DeadCapital: new(big.Int),
			Phase:       inter.PhaseActive,
		}
		l.putScan(scan)
		ts.ActiveScan = scan.ID
		ts.LastSeed = seed
		ts.NextScanTime = now + l.rules.Tier(tier).ScanInterval

		l.emit(&inter.ScanStarted{
			Tier:         tier,
			Scan:         scan.ID,
			Seed:         seed,
			StartedAt:    now,
			NextScanTime: ts.NextScanTime,
		})
		return nil
	})
}

// ClaimReport is the outcome of one death-claim batch.
type ClaimReport struct {
	// Recorded lists the deaths this batch recorded, in batch order.
	Recorded []common.Address
	// Skipped lists entries already recorded in the scan.
	Skipped []common.Address
	// Rejected lists entries that could not be claimed. They had no effect.
	Rejected []RejectedClaim
}

// RejectedClaim is one batch entry refused with the reason.
type RejectedClaim struct {
	Participant common.Address
	Err         error
}

// SubmitDeathClaims records the deaths of participants in the active scan
// of tier. Each entry is checked on its own against the recomputed verdict:
// a wrong entry is rejected with no effect while the correct ones commit.
// Entries already recorded in this scan are skipped. When nothing was
// recorded and some entry was rejected, the first rejection is returned as
// the error. Batch size, tier and scan phase errors reject the whole batch.
func (l *Ledger) SubmitDeathClaims(submitter common.Address, tier inter.Tier, participants []common.Address) (ClaimReport, error) {
	var rep ClaimReport
	err := l.execute("submitDeathClaims", func(now inter.Timestamp) error {
		rep = ClaimReport{}
		if err := checkTier(tier); err != nil {
			return err
		}
		if len(participants) == 0 || len(participants) > l.rules.Scan.MaxBatch {
			return fmt.Errorf("%w: %d entries", ErrBatchSize, len(participants))
		}
		id := l.tiers[tier.Index()].ActiveScan
		if id == 0 {
			return ErrNoActiveScan
		}
		scan := l.scans[id]

		seen := make(map[common.Address]struct{}, len(participants))
		claims := make([]verifiedClaim, 0, len(participants))
		for _, addr := range participants {
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			if _, done := l.processed[inter.ClaimKey{Tier: tier, Scan: id, Participant: addr}]; done {
				rep.Skipped = append(rep.Skipped, addr)
				continue
			}
			c, err := l.verifyClaim(scan, addr)
			if err != nil {
				rep.Rejected = append(rep.Rejected, RejectedClaim{Participant: addr, Err: err})
				continue
			}
			claims = append(claims, c)
		}
		if len(claims) == 0 && len(rep.Rejected) > 0 {
			return rep.Rejected[0].Err
		}

		scan = l.touchScan(id)
		for _, c := range claims {
			p := l.touchPosition(c.addr)
			if err := l.settleEpochs(p); err != nil {
				return err
			}
			ts := l.touchTier(tier)
			settleRewards(p, ts.AccRewardPerShare)

			stake := p.Stake
			before := ts.TotalStake
			p.Alive = false
			p.Streak = streak(p, ts)
			ts.TotalStake = new(big.Int).Sub(ts.TotalStake, stake)
			ts.LiveCount--
			l.setLive(tier, c.addr, false)

			scan.DeadCapital = new(big.Int).Add(scan.DeadCapital, stake)
			scan.DeathCount++
			l.markProcessed(inter.ClaimKey{Tier: tier, Scan: id, Participant: c.addr})
			rep.Recorded = append(rep.Recorded, c.addr)

			l.emit(&inter.DeathRecorded{
				Tier:            tier,
				Scan:            id,
				Participant:     c.addr,
				Submitter:       submitter,
				Stake:           new(big.Int).Set(stake),
				Roll:            c.roll,
				Rate:            c.rate,
				TierTotalBefore: before,
				TierTotalAfter:  ts.TotalStake,
			})
		}
		for _, r := range rep.Rejected {
			l.log.WithFields(logrus.Fields{
				"tier":        tier,
				"scan":        id,
				"participant": r.Participant.Hex(),
				"submitter":   submitter.Hex(),
			}).WithError(r.Err).Warn("Death claim rejected")
		}
		return nil
	})
	if err != nil {
		return ClaimReport{Rejected: rep.Rejected}, err
	}
	return rep, nil
}

type verifiedClaim struct {
	addr common.Address
	roll uint64
	rate uint64
}

// verifyClaim recomputes the verdict of addr in scan.
func (l *Ledger) verifyClaim(scan *inter.Scan, addr common.Address) (verifiedClaim, error) {
	p, ok := l.positions[addr]
	switch {
	case !ok:
		return verifiedClaim{}, fmt.Errorf("%w: %s", ErrPositionNotFound, addr.Hex())
	case p.Tier != scan.Tier:
		return verifiedClaim{}, fmt.Errorf("%w: %s in %s", ErrWrongTier, addr.Hex(), p.Tier)
	case !p.Alive:
		return verifiedClaim{}, fmt.Errorf("%w: %s", ErrPositionNotAlive, addr.Hex())
	case !l.eligible(p, scan):
		return verifiedClaim{}, fmt.Errorf("%w: %s joined after scan start", ErrNotEligible, addr.Hex())
	}
	rate := l.effectiveRate(p, scan.StartedAt)
	roll, die := Verdict(scan.Seed, addr, rate)
	if !die {
		return verifiedClaim{}, fmt.Errorf("%w: %s rolled %d against rate %d", ErrVerdictMismatch, addr.Hex(), roll, rate)
	}
	return verifiedClaim{addr: addr, roll: roll, rate: rate}, nil
}

// FinalizeScan closes the active scan of tier after its submission window
// and cascades the capital it eliminated.
func (l *Ledger) FinalizeScan(tier inter.Tier) error {
	return l.execute("finalizeScan", func(now inter.Timestamp) error {
		if err := checkTier(tier); err != nil {
			return err
		}
		id := l.tiers[tier.Index()].ActiveScan
		if id == 0 {
			return ErrNoActiveScan
		}
		scan := l.touchScan(id)
		if closes := scan.StartedAt + l.rules.Scan.SubmissionWindow; now < closes {
			return fmt.Errorf("%w: closes at %s", ErrWindowOpen, closes)
		}
		if scan.DeadCapital.Sign() > 0 {
			if err := l.cascade(tier, scan.DeadCapital, "scan"); err != nil {
				return err
			}
		}
		scan.Phase = inter.PhaseFinalized
		scan.FinalizedAt = now

		ts := l.touchTier(tier)
		ts.ActiveScan = 0
		ts.FinalizedScans++

		l.log.WithFields(logrus.Fields{
			"tier":   tier,
			"scan":   id,
			"deaths": scan.DeathCount,
			"dead":   scan.DeadCapital,
		}).Info("Scan finalized")

		l.emit(&inter.ScanFinalized{
			Tier:           tier,
			Scan:           id,
			DeathCount:     scan.DeathCount,
			DeadCapital:    new(big.Int).Set(scan.DeadCapital),
			FinalizedScans: ts.FinalizedScans,
		})
		return nil
	})
}

// streak returns the survivals of a live p in its tier.
func streak(p *inter.Position, ts *inter.TierState) uint64 {
	if ts.FinalizedScans < p.StreakOrigin {
		return 0
	}
	return ts.FinalizedScans - p.StreakOrigin
}
