package credit

import (
	"fmt"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// Parameters is the credit configuration snapshot read by every borrower
// computation. Callers take one snapshot per action and pass it by value.
type Parameters struct {
	BaseCreditLimit             *uint256.Int `json:"baseCreditLimit"`
	InitialScore                uint64       `json:"initialScore"`
	MinScore                    uint64       `json:"minScore"`
	MaxScore                    uint64       `json:"maxScore"`
	ScoreIncreasePerRepayment   uint64       `json:"scoreIncreasePerRepayment"`
	ScoreDecreasePerLatePayment uint64       `json:"scoreDecreasePerLatePayment"`
	// CreditLimitMultiplier is a percentage applied per point above the
	// initial score.
	CreditLimitMultiplier uint64 `json:"creditLimitMultiplier"`
}

// DefaultParameters mirrors the protocol launch configuration.
func DefaultParameters() Parameters {
	return Parameters{
		BaseCreditLimit:             common.Units(100),
		InitialScore:                500,
		MinScore:                    300,
		MaxScore:                    850,
		ScoreIncreasePerRepayment:   10,
		ScoreDecreasePerLatePayment: 50,
		CreditLimitMultiplier:       2,
	}
}

// Clone returns a deep copy of the parameters.
func (p Parameters) Clone() Parameters {
	clone := p
	clone.BaseCreditLimit = common.Clone(p.BaseCreditLimit)
	return clone
}

// Validate rejects configurations that would put scores or limits out of
// range. The limit at MaxScore must be representable.
func (p Parameters) Validate() error {
	if p.BaseCreditLimit == nil {
		return fmt.Errorf("%w: baseCreditLimit must be set", common.ErrParameterOutOfRange)
	}
	if p.MinScore > p.MaxScore {
		return fmt.Errorf("%w: minScore %d exceeds maxScore %d", common.ErrParameterOutOfRange, p.MinScore, p.MaxScore)
	}
	if p.InitialScore < p.MinScore || p.InitialScore > p.MaxScore {
		return fmt.Errorf("%w: initialScore %d outside [%d, %d]", common.ErrParameterOutOfRange, p.InitialScore, p.MinScore, p.MaxScore)
	}
	if _, err := LimitFor(p.MaxScore, p); err != nil {
		return fmt.Errorf("%w: limit at maxScore: %v", common.ErrParameterOutOfRange, err)
	}
	return nil
}
