package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/inter"
)

// TriggerReset applies the global penalty once the reset deadline passed.
// It only records the epoch: each position absorbs the penalty on its next
// settling operation, so the cost here does not depend on the position count.
func (l *Ledger) TriggerReset() error {
	return l.execute("triggerReset", func(now inter.Timestamp) error {
		if now < l.meta.ResetDeadline {
			return fmt.Errorf("%w: deadline %s", ErrResetNotDue, l.meta.ResetDeadline)
		}
		meta := l.touchMeta()
		epoch := inter.ResetEpoch{
			Number:      meta.Epoch + 1,
			Timestamp:   now,
			PenaltyBps:  l.rules.Reset.PenaltyBps,
			Beneficiary: meta.LastDepositor,
			AccSnapshot: make([]*big.Int, inter.NumTiers),
		}
		exposure := make([]*big.Int, inter.NumTiers)
		for i, ts := range l.tiers {
			epoch.AccSnapshot[i] = new(big.Int).Set(ts.AccRewardPerShare)
			exposure[i] = bps(ts.TotalStake, epoch.PenaltyBps)
		}
		l.putEpoch(epoch)

		meta.Epoch = epoch.Number
		meta.ResetDeadline = now + l.rules.Reset.Countdown
		meta.LastDepositor = common.Address{}

		l.log.WithFields(logrus.Fields{
			"epoch":       epoch.Number,
			"beneficiary": epoch.Beneficiary.Hex(),
			"exposure":    exposure,
		}).Info("Reset triggered")

		l.emit(&inter.ResetTriggered{
			Epoch:        epoch.Number,
			PenaltyBps:   epoch.PenaltyBps,
			Beneficiary:  epoch.Beneficiary,
			Exposure:     exposure,
			NextDeadline: meta.ResetDeadline,
		})
		return nil
	})
}

// applyEpoch reconciles p with one reset epoch: rewards accrue up to the
// epoch's snapshot on the old stake, then the stake shrinks by the penalty.
// It returns the penalty taken. Dead positions are past penalties and only
// advance their epoch marker.
func applyEpoch(p *inter.Position, e inter.ResetEpoch) *big.Int {
	p.LastSettledEpoch = e.Number
	if !p.Alive {
		return new(big.Int)
	}
	acc := e.AccSnapshot[p.Tier.Index()]
	settleRewards(p, acc)
	penalty := bps(p.Stake, e.PenaltyBps)
	if penalty.Sign() > 0 {
		p.Stake = new(big.Int).Sub(p.Stake, penalty)
		p.RewardCheckpoint = accrued(p.Stake, acc)
	}
	return penalty
}

// settleEpochs brings p up to the current epoch, collecting every missed
// penalty. The tier aggregate shrinks by exactly what the position loses,
// and each penalty is paid out as it is collected.
func (l *Ledger) settleEpochs(p *inter.Position) error {
	for p.LastSettledEpoch < l.meta.Epoch {
		e := l.epochs[p.LastSettledEpoch+1]
		before := new(big.Int).Set(p.Stake)
		penalty := applyEpoch(p, e)
		if penalty.Sign() == 0 {
			continue
		}
		ts := l.touchTier(p.Tier)
		ts.TotalStake = new(big.Int).Sub(ts.TotalStake, penalty)

		r := l.rules.Reset
		depositor := bps(penalty, r.DepositorBps)
		burn := bps(penalty, r.BurnBps)
		protocol := new(big.Int).Sub(penalty, depositor)
		protocol.Sub(protocol, burn)
		if e.Beneficiary == (common.Address{}) {
			protocol.Add(protocol, depositor)
			depositor = new(big.Int)
		}
		if err := l.pay(e.Beneficiary, depositor); err != nil {
			return err
		}
		if err := l.burn(burn); err != nil {
			return err
		}
		if err := l.payProtocol(protocol); err != nil {
			return err
		}
		l.emit(&inter.PenaltySettled{
			Participant:    p.Owner,
			Tier:           p.Tier,
			Epoch:          e.Number,
			StakeBefore:    before,
			Penalty:        penalty,
			DepositorShare: depositor,
			Burn:           burn,
			Protocol:       protocol,
		})
	}
	return nil
}

// noteDeposit records a deposit for the reset countdown: a deposit above
// the threshold becomes the last depositor and pushes the deadline out.
func (l *Ledger) noteDeposit(depositor common.Address, amount *big.Int, now inter.Timestamp) {
	r := l.rules.Reset
	if amount.Cmp(r.DepositorThreshold) < 0 {
		return
	}
	meta := l.touchMeta()
	meta.LastDepositor = depositor

	ext := r.Extension(amount)
	if ext == 0 {
		return
	}
	before := meta.ResetDeadline
	after := inter.MinTimestamp(before+ext, now+r.MaxHorizon)
	if after <= before {
		return
	}
	meta.ResetDeadline = after
	l.emit(&inter.DeadlineExtended{
		Depositor:      depositor,
		Amount:         new(big.Int).Set(amount),
		DeadlineBefore: before,
		DeadlineAfter:  after,
	})
}
