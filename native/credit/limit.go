package credit

import (
	"github.com/holiman/uint256"

	"lendcore/native/common"
)

var hundred = uint256.NewInt(100)

// LimitFor derives the credit limit from score:
//
//	score <= initial: limit = base
//	otherwise:        pct   = (score - initial) * multiplier / 100
//	                  limit = base + base * pct / 100
//
// Both divisions truncate. The double truncation is part of the published
// limit schedule and must not be collapsed into one division.
func LimitFor(score uint64, p Parameters) (*uint256.Int, error) {
	base := common.Clone(p.BaseCreditLimit)
	if score <= p.InitialScore {
		return base, nil
	}
	above := uint256.NewInt(score - p.InitialScore)
	multiplierPct, err := common.MulDiv(above, uint256.NewInt(p.CreditLimitMultiplier), hundred)
	if err != nil {
		return nil, err
	}
	bonus, err := common.MulDiv(base, multiplierPct, hundred)
	if err != nil {
		return nil, err
	}
	return common.Add(base, bonus)
}
