package credit

import (
	"fmt"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// BorrowerProfile is the per-account credit record. Limit is a cache of
// LimitFor(Score, params) and is rewritten by every transition below.
type BorrowerProfile struct {
	Score  uint64
	Limit  *uint256.Int
	Debt   *uint256.Int
	Paused bool
}

// Clone returns a deep copy of the profile.
func (b *BorrowerProfile) Clone() *BorrowerProfile {
	if b == nil {
		return nil
	}
	return &BorrowerProfile{
		Score:  b.Score,
		Limit:  common.Clone(b.Limit),
		Debt:   common.Clone(b.Debt),
		Paused: b.Paused,
	}
}

// Available returns the unused part of the limit, floored at zero.
func (b *BorrowerProfile) Available() *uint256.Int {
	if b == nil {
		return new(uint256.Int)
	}
	available, _ := common.SubFloor(b.Limit, b.Debt)
	return available
}

// NewProfile registers a borrower at the initial score.
func NewProfile(p Parameters) (*BorrowerProfile, error) {
	limit, err := LimitFor(p.InitialScore, p)
	if err != nil {
		return nil, err
	}
	return &BorrowerProfile{Score: p.InitialScore, Limit: limit, Debt: new(uint256.Int)}, nil
}

// Refresh recomputes the cached limit from the current score, e.g. after a
// parameter update.
func Refresh(profile *BorrowerProfile, p Parameters) (*BorrowerProfile, error) {
	if profile == nil {
		return nil, ErrBorrowerNotFound
	}
	next := profile.Clone()
	limit, err := LimitFor(next.Score, p)
	if err != nil {
		return nil, err
	}
	next.Limit = limit
	return next, nil
}

// Repay settles amount of outstanding debt and counts one on-time repayment.
func Repay(profile *BorrowerProfile, amount *uint256.Int, p Parameters) (*BorrowerProfile, error) {
	if profile == nil {
		return nil, ErrBorrowerNotFound
	}
	if common.IsZero(amount) {
		return nil, fmt.Errorf("%w: repayment must be positive", common.ErrInvalidAmount)
	}
	debt := common.Clone(profile.Debt)
	if amount.Gt(debt) {
		return nil, fmt.Errorf("%w: owed %s, paid %s", ErrRepaymentExceedsDebt, debt.Dec(), amount.Dec())
	}
	next := profile.Clone()
	next.Debt = debt.Sub(debt, amount)
	next.Score = OnRepayment(next.Score, p)
	return Refresh(next, p)
}

// ReportLate applies a late-payment report to the score.
func ReportLate(profile *BorrowerProfile, p Parameters) (*BorrowerProfile, error) {
	if profile == nil {
		return nil, ErrBorrowerNotFound
	}
	next := profile.Clone()
	next.Score = OnLatePayment(next.Score, p)
	return Refresh(next, p)
}

// Spend draws amount against the credit limit.
func Spend(profile *BorrowerProfile, amount *uint256.Int, p Parameters) (*BorrowerProfile, error) {
	next, err := Refresh(profile, p)
	if err != nil {
		return nil, err
	}
	if next.Paused {
		return nil, ErrBorrowerPaused
	}
	if common.IsZero(amount) {
		return nil, fmt.Errorf("%w: spend must be positive", common.ErrInvalidAmount)
	}
	debt, err := common.Add(next.Debt, amount)
	if err != nil {
		return nil, err
	}
	if debt.Gt(next.Limit) {
		return nil, fmt.Errorf("%w: limit %s, requested total %s", ErrCreditLimitExceeded, next.Limit.Dec(), debt.Dec())
	}
	next.Debt = debt
	return next, nil
}

// SetPaused toggles the borrower's spend switch.
func SetPaused(profile *BorrowerProfile, paused bool) (*BorrowerProfile, error) {
	if profile == nil {
		return nil, ErrBorrowerNotFound
	}
	next := profile.Clone()
	next.Paused = paused
	return next, nil
}
