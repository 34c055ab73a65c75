package yield

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// ApplyDeposit returns a copy of pos with amount added to both principal and
// custodian shares. The deposit timestamp is set when the position opens.
func ApplyDeposit(pos *LenderPosition, amount *uint256.Int, now time.Time) (*LenderPosition, error) {
	if common.IsZero(amount) {
		return nil, fmt.Errorf("%w: deposit must be positive", common.ErrInvalidAmount)
	}
	next := pos.Clone()
	opening := next.IsEmpty()
	principal, err := common.Add(next.Principal, amount)
	if err != nil {
		return nil, err
	}
	shares, err := common.Add(next.CustodianShares, amount)
	if err != nil {
		return nil, err
	}
	next.Principal = principal
	next.CustodianShares = shares
	if opening {
		next.DepositTimestamp = now
	}
	return next, nil
}

// ProportionalDeposit returns the share of principal redeemed by withdrawing
// requested out of custodianBalance: floor(principal * requested / balance).
func ProportionalDeposit(pos *LenderPosition, requested, custodianBalance *uint256.Int) (*uint256.Int, error) {
	if pos.IsEmpty() || common.IsZero(custodianBalance) {
		return nil, ErrNoPosition
	}
	if common.Clone(requested).Gt(custodianBalance) {
		return nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, common.Clone(requested).Dec(), custodianBalance.Dec())
	}
	return common.MulDiv(pos.Principal, requested, custodianBalance)
}

// ApplyWithdrawal returns the position left after req has been settled with
// split. The treasury fee is pulled from the pool on top of the requested
// assets, so the lender's shares drop by exactly the requested amount. A
// position whose shares reach zero is reset.
func ApplyWithdrawal(pos *LenderPosition, req WithdrawalRequest, split *WithdrawalSplit) (*LenderPosition, error) {
	if split == nil {
		return nil, fmt.Errorf("yield: nil withdrawal split")
	}
	next := pos.Clone()
	principal, err := common.Sub(next.Principal, req.ProportionalDeposit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProportional, err)
	}
	shares, err := common.Sub(req.CustodianBalance, req.RequestedAssets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	if shares.IsZero() {
		reset := NewPosition()
		reset.Class = next.Class
		return reset, nil
	}
	next.Principal = principal
	next.CustodianShares = shares
	return next, nil
}
