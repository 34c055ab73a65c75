package xp

import (
	"fmt"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// Multiplier scales the base rate by Num/Den. The product is truncated, so a
// 1.5x tier is applied as rate*3/2.
type Multiplier struct {
	Num uint64 `json:"num"`
	Den uint64 `json:"den"`
}

// Tier raises the accrual rate for deposits at or above Threshold.
type Tier struct {
	Threshold  *uint256.Int `json:"threshold"`
	Multiplier Multiplier   `json:"multiplier"`
}

// TierTable maps deposit amounts to XP accrual rates. BaseRate is the XP
// (18 decimals) earned per second per whole unit of deposit. Deposits below
// the first threshold accrue at BaseRate.
type TierTable struct {
	BaseRate *uint256.Int `json:"baseRate"`
	Tiers    []Tier       `json:"tiers"`
}

// DefaultTierTable accrues one XP per deposited unit per day, with 1.5x, 2x
// and 3x tiers from 1,000, 5,000 and 10,000 units.
func DefaultTierTable() TierTable {
	return TierTable{
		BaseRate: new(uint256.Int).Div(common.Scale(), uint256.NewInt(86_400)),
		Tiers: []Tier{
			{Threshold: common.Units(1_000), Multiplier: Multiplier{Num: 3, Den: 2}},
			{Threshold: common.Units(5_000), Multiplier: Multiplier{Num: 2, Den: 1}},
			{Threshold: common.Units(10_000), Multiplier: Multiplier{Num: 3, Den: 1}},
		},
	}
}

// Clone returns a deep copy of the table.
func (t TierTable) Clone() TierTable {
	clone := TierTable{BaseRate: common.Clone(t.BaseRate)}
	if len(t.Tiers) > 0 {
		clone.Tiers = make([]Tier, len(t.Tiers))
		for i, tier := range t.Tiers {
			clone.Tiers[i] = Tier{Threshold: common.Clone(tier.Threshold), Multiplier: tier.Multiplier}
		}
	}
	return clone
}

// Validate enforces strictly increasing thresholds and non-decreasing
// multipliers of at least 1x so the rate is monotone in the deposit.
func (t TierTable) Validate() error {
	if common.IsZero(t.BaseRate) {
		return fmt.Errorf("%w: xp base rate must be positive", common.ErrParameterOutOfRange)
	}
	prevThreshold := new(uint256.Int)
	prev := Multiplier{Num: 1, Den: 1}
	for i, tier := range t.Tiers {
		m := tier.Multiplier
		if m.Den == 0 {
			return fmt.Errorf("%w: tier %d multiplier denominator is zero", common.ErrParameterOutOfRange, i)
		}
		if m.Num < m.Den {
			return fmt.Errorf("%w: tier %d multiplier %d/%d below 1x", common.ErrParameterOutOfRange, i, m.Num, m.Den)
		}
		if common.IsZero(tier.Threshold) || !tier.Threshold.Gt(prevThreshold) {
			return fmt.Errorf("%w: tier %d threshold must exceed the previous tier", common.ErrParameterOutOfRange, i)
		}
		// m >= prev  <=>  m.Num*prev.Den >= prev.Num*m.Den
		lhs := new(uint256.Int).Mul(uint256.NewInt(m.Num), uint256.NewInt(prev.Den))
		rhs := new(uint256.Int).Mul(uint256.NewInt(prev.Num), uint256.NewInt(m.Den))
		if lhs.Lt(rhs) {
			return fmt.Errorf("%w: tier %d multiplier decreases", common.ErrParameterOutOfRange, i)
		}
		if _, err := t.scaled(m); err != nil {
			return fmt.Errorf("%w: tier %d rate: %v", common.ErrParameterOutOfRange, i, err)
		}
		prevThreshold = tier.Threshold
		prev = m
	}
	return nil
}

// Rate returns the accrual rate that applies to depositAmount.
func (t TierTable) Rate(depositAmount *uint256.Int) (*uint256.Int, error) {
	amount := common.Clone(depositAmount)
	for i := len(t.Tiers) - 1; i >= 0; i-- {
		tier := t.Tiers[i]
		if tier.Threshold != nil && !amount.Lt(tier.Threshold) {
			return t.scaled(tier.Multiplier)
		}
	}
	return common.Clone(t.BaseRate), nil
}

func (t TierTable) scaled(m Multiplier) (*uint256.Int, error) {
	return common.MulDiv(t.BaseRate, uint256.NewInt(m.Num), uint256.NewInt(m.Den))
}
