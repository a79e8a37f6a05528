package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-survival/inter"
)

// AddEmissionReward credits amount to the stakers of tier. Only the
// configured distributor may call it; the tokens are pulled from it.
func (l *Ledger) AddEmissionReward(caller common.Address, tier inter.Tier, amount *big.Int) error {
	return l.execute("addEmissionReward", func(now inter.Timestamp) error {
		if l.distributor == (common.Address{}) || caller != l.distributor {
			return fmt.Errorf("%w: %s is not the distributor", ErrUnauthorized, caller.Hex())
		}
		if err := checkTier(tier); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return ErrZeroAmount
		}
		ts := l.touchTier(tier)
		if ts.TotalStake.Sign() == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyTier, tier)
		}
		if err := l.pull(caller, amount); err != nil {
			return err
		}
		before := ts.AccRewardPerShare
		addReward(ts, amount)
		l.emit(&inter.EmissionAdded{
			Tier:      tier,
			Amount:    new(big.Int).Set(amount),
			AccBefore: before,
			AccAfter:  ts.AccRewardPerShare,
		})
		return nil
	})
}
