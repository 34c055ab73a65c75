package yield

import (
	"fmt"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// ComputeWithdrawal splits a withdrawal of req.RequestedAssets into the part
// paid to the lender and the fees owed to the treasury.
//
// The yield fee is charged on realised yield only (requested assets above the
// redeemed principal) and never on principal. Merchant accounts additionally
// pay fees.MerchantFeeBps on the full requested amount. Every division
// truncates. When the requested assets are below the redeemed principal the
// yield is clamped to zero and the difference is reported in Shortfall.
func ComputeWithdrawal(req WithdrawalRequest, fees FeeSchedule) (*WithdrawalSplit, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	principal := common.Clone(req.Principal)
	proportional := common.Clone(req.ProportionalDeposit)
	requested := common.Clone(req.RequestedAssets)
	available := common.Clone(req.CustodianBalance)

	if requested.Gt(available) {
		return nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, requested.Dec(), available.Dec())
	}
	if proportional.Gt(principal) {
		return nil, fmt.Errorf("%w: proportional %s, principal %s", ErrInvalidProportional, proportional.Dec(), principal.Dec())
	}

	realised, shortfall := common.SubFloor(requested, proportional)

	treasuryFee, err := common.ApplyBps(realised, fees.YieldFeeBps)
	if err != nil {
		return nil, err
	}
	merchantFee := new(uint256.Int)
	if req.Class == ClassMerchant && fees.MerchantFeeBps > 0 {
		merchantFee, err = common.ApplyBps(requested, fees.MerchantFeeBps)
		if err != nil {
			return nil, err
		}
	}

	totalPulled, err := common.Add(requested, treasuryFee)
	if err != nil {
		return nil, err
	}
	deductions, err := common.Add(treasuryFee, merchantFee)
	if err != nil {
		return nil, err
	}
	if deductions.Gt(requested) {
		return nil, fmt.Errorf("%w: fees %s exceed withdrawal %s", common.ErrParameterOutOfRange, deductions.Dec(), requested.Dec())
	}

	return &WithdrawalSplit{
		Yield:                    realised,
		TreasuryFee:              treasuryFee,
		MerchantFee:              merchantFee,
		UserReceives:             new(uint256.Int).Sub(requested, deductions),
		TotalPulledFromCustodian: totalPulled,
		Shortfall:                shortfall,
	}, nil
}
