package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-survival/inter"
)

// Join opens a position of amount in tier for participant. A full tier
// culls one of its smallest positions first. A dead record left by an
// earlier elimination is closed, paying what it is still owed.
func (l *Ledger) Join(participant common.Address, amount *big.Int, tier inter.Tier) error {
	return l.execute("join", func(now inter.Timestamp) error {
		if err := checkTier(tier); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return ErrZeroAmount
		}
		tr := l.rules.Tier(tier)
		if amount.Cmp(tr.MinStake) < 0 {
			return fmt.Errorf("%w: %s < %s", ErrBelowMinimum, amount, tr.MinStake)
		}
		if old, ok := l.positions[participant]; ok {
			if old.Alive {
				return ErrPositionExists
			}
			if err := l.closeDead(participant, now); err != nil {
				return err
			}
		}
		if tr.MaxPositions > 0 && l.tiers[tier.Index()].LiveCount >= tr.MaxPositions {
			if err := l.cull(tier, participant, now); err != nil {
				return err
			}
		}
		if err := l.pull(participant, amount); err != nil {
			return err
		}

		ts := l.touchTier(tier)
		before := ts.TotalStake
		p := inter.NewPosition(participant, tier, amount, now, l.meta.Epoch)
		p.RewardCheckpoint = accrued(p.Stake, ts.AccRewardPerShare)
		p.EntryScan = l.meta.LastScanID
		p.StreakOrigin = ts.FinalizedScans
		if ts.ActiveScan != 0 {
			// the running scan cannot claim this position, so it is not a survival either
			p.StreakOrigin++
		}
		l.putPosition(p)
		l.setLive(tier, participant, true)
		ts.TotalStake = new(big.Int).Add(ts.TotalStake, amount)
		ts.LiveCount++

		l.noteDeposit(participant, amount, now)
		l.emit(&inter.Joined{
			Participant:     participant,
			Tier:            tier,
			Amount:          new(big.Int).Set(amount),
			TierTotalBefore: before,
			TierTotalAfter:  ts.TotalStake,
			LiveCount:       ts.LiveCount,
		})
		return nil
	})
}

// AddStake deposits amount into the live position of participant, settling
// its pending reward first.
func (l *Ledger) AddStake(participant common.Address, amount *big.Int) error {
	return l.execute("addStake", func(now inter.Timestamp) error {
		if amount == nil || amount.Sign() <= 0 {
			return ErrZeroAmount
		}
		p, err := l.settleLive(participant)
		if err != nil {
			return err
		}
		ts := l.touchTier(p.Tier)
		settled := settleRewards(p, ts.AccRewardPerShare)
		if err := l.pull(participant, amount); err != nil {
			return err
		}

		before := ts.TotalStake
		p.Stake = new(big.Int).Add(p.Stake, amount)
		p.LastAddTime = now
		p.RewardCheckpoint = accrued(p.Stake, ts.AccRewardPerShare)
		ts.TotalStake = new(big.Int).Add(ts.TotalStake, amount)

		l.noteDeposit(participant, amount, now)
		l.emit(&inter.StakeAdded{
			Participant:     participant,
			Tier:            p.Tier,
			Amount:          new(big.Int).Set(amount),
			SettledReward:   settled,
			StakeAfter:      p.Stake,
			TierTotalBefore: before,
			TierTotalAfter:  ts.TotalStake,
		})
		return nil
	})
}

// Withdraw closes the live position of participant, returning its stake and
// all owed rewards. Withdrawal is refused inside the lock window before a
// scan and, while a scan is active, for a position the scan has doomed.
func (l *Ledger) Withdraw(participant common.Address) error {
	return l.execute("withdraw", func(now inter.Timestamp) error {
		p, err := l.settleLive(participant)
		if err != nil {
			return err
		}
		ts := l.touchTier(p.Tier)
		if l.locked(ts, now) {
			return fmt.Errorf("%w: next scan at %s", ErrLockWindow, ts.NextScanTime)
		}
		if id, doomed := l.doomed(p); doomed {
			return fmt.Errorf("%w: scan %d", ErrDoomed, id)
		}

		settleRewards(p, ts.AccRewardPerShare)
		stake := p.Stake
		before := ts.TotalStake
		ts.TotalStake = new(big.Int).Sub(ts.TotalStake, stake)
		ts.LiveCount--
		l.setLive(p.Tier, participant, false)
		l.deletePosition(participant)

		if err := l.pay(participant, stake); err != nil {
			return err
		}
		reward, bonus, err := l.payReward(p, now)
		if err != nil {
			return err
		}
		l.emit(&inter.Withdrawn{
			Participant:     participant,
			Tier:            p.Tier,
			Stake:           stake,
			Reward:          new(big.Int).Add(reward, bonus),
			TierTotalBefore: before,
			TierTotalAfter:  ts.TotalStake,
		})
		return nil
	})
}

// Claim pays the owed rewards of participant without touching a live
// stake. On a dead record it pays what was settled at death and removes
// the record.
func (l *Ledger) Claim(participant common.Address) error {
	return l.execute("claim", func(now inter.Timestamp) error {
		p := l.touchPosition(participant)
		if p == nil {
			return ErrPositionNotFound
		}
		if !p.Alive {
			reward, bonus, err := l.payReward(p, now)
			if err != nil {
				return err
			}
			l.deletePosition(participant)
			l.emit(&inter.RewardClaimed{
				Participant: participant,
				Tier:        p.Tier,
				Reward:      reward,
				Bonus:       bonus,
				Closed:      true,
			})
			return nil
		}

		if err := l.settleEpochs(p); err != nil {
			return err
		}
		settleRewards(p, l.tiers[p.Tier.Index()].AccRewardPerShare)
		if p.Owed.Sign() == 0 {
			return ErrNothingToClaim
		}
		reward, bonus, err := l.payReward(p, now)
		if err != nil {
			return err
		}
		l.emit(&inter.RewardClaimed{
			Participant: participant,
			Tier:        p.Tier,
			Reward:      reward,
			Bonus:       bonus,
		})
		return nil
	})
}

// settleLive touches the live position of addr and reconciles it with any
// reset epochs it missed.
func (l *Ledger) settleLive(addr common.Address) (*inter.Position, error) {
	p := l.touchPosition(addr)
	if p == nil {
		return nil, ErrPositionNotFound
	}
	if !p.Alive {
		return nil, ErrPositionNotAlive
	}
	if err := l.settleEpochs(p); err != nil {
		return nil, err
	}
	return p, nil
}

// closeDead pays out and removes the dead record of addr.
func (l *Ledger) closeDead(addr common.Address, now inter.Timestamp) error {
	p := l.touchPosition(addr)
	reward, bonus, err := l.payReward(p, now)
	if err != nil {
		return err
	}
	l.deletePosition(addr)
	if reward.Sign() > 0 {
		l.emit(&inter.RewardClaimed{
			Participant: addr,
			Tier:        p.Tier,
			Reward:      reward,
			Bonus:       bonus,
			Closed:      true,
		})
	}
	return nil
}

// locked reports whether now falls in the pre-scan lock window of ts.
func (l *Ledger) locked(ts *inter.TierState, now inter.Timestamp) bool {
	next := ts.NextScanTime
	lock := l.rules.Scan.LockWindow
	start := inter.Timestamp(0)
	if next > lock {
		start = next - lock
	}
	return now >= start && now < next
}
