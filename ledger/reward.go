package ledger

import (
	"math/big"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

// Scale is the fixed-point precision of AccRewardPerShare.
var Scale = big.NewInt(1e12)

var basisPoints = new(big.Int).SetUint64(rules.BasisPoints)

// accrued returns stake*acc/Scale.
func accrued(stake, acc *big.Int) *big.Int {
	v := new(big.Int).Mul(stake, acc)
	return v.Quo(v, Scale)
}

// bps returns floor(amount*rate/10000).
func bps(amount *big.Int, rate uint64) *big.Int {
	v := new(big.Int).Mul(amount, new(big.Int).SetUint64(rate))
	return v.Quo(v, basisPoints)
}

// perShare returns floor(amount*Scale/total). total must be positive.
func perShare(amount, total *big.Int) *big.Int {
	v := new(big.Int).Mul(amount, Scale)
	return v.Quo(v, total)
}

// pendingReward is the reward a position earned since its last checkpoint.
// It never goes negative: the checkpoint is always taken against an
// accumulator that only grows.
func pendingReward(p *inter.Position, acc *big.Int) *big.Int {
	v := accrued(p.Stake, acc)
	v.Sub(v, p.RewardCheckpoint)
	if v.Sign() < 0 {
		v.SetUint64(0)
	}
	return v
}

// settleRewards folds the pending reward of p against acc into Owed and
// moves the checkpoint. It returns the amount folded.
func settleRewards(p *inter.Position, acc *big.Int) *big.Int {
	reward := pendingReward(p, acc)
	if reward.Sign() > 0 {
		p.Owed = new(big.Int).Add(p.Owed, reward)
	}
	p.RewardCheckpoint = accrued(p.Stake, acc)
	return reward
}

// addReward credits amount to the stakers of tier ts. The caller guarantees
// the tier holds stake.
func addReward(ts *inter.TierState, amount *big.Int) {
	ts.AccRewardPerShare = new(big.Int).Add(ts.AccRewardPerShare, perShare(amount, ts.TotalStake))
}

// payReward pays owed rewards of p to its owner together with any yield
// boost bonus, which the treasury funds up to its current balance.
func (l *Ledger) payReward(p *inter.Position, now inter.Timestamp) (reward, bonus *big.Int, err error) {
	reward = new(big.Int).Set(p.Owed)
	bonus = new(big.Int)
	p.Owed = new(big.Int)
	if reward.Sign() == 0 {
		return reward, bonus, nil
	}
	if err = l.pay(p.Owner, reward); err != nil {
		return nil, nil, err
	}
	if yield := p.BoostTotal(inter.BoostYield, now); yield > 0 {
		bonus = bps(reward, yield)
		if avail := l.bank.BalanceOf(l.treasury); bonus.Cmp(avail) > 0 {
			bonus = new(big.Int).Set(avail)
		}
		if bonus.Sign() > 0 {
			if err = l.bank.Transfer(l.treasury, p.Owner, bonus); err != nil {
				return nil, nil, err
			}
		}
	}
	return reward, bonus, nil
}
