package yield

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// AccountClass selects which withdrawal fees apply to a lender.
type AccountClass uint8

const (
	ClassStandard AccountClass = iota
	// ClassMerchant pays the flat merchant fee on top of the yield fee.
	ClassMerchant
)

func (c AccountClass) String() string {
	switch c {
	case ClassMerchant:
		return "merchant"
	default:
		return "standard"
	}
}

// ParseAccountClass maps "standard" and "merchant" (case-insensitive) to an
// AccountClass. The empty string selects ClassStandard.
func ParseAccountClass(value string) (AccountClass, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "standard":
		return ClassStandard, nil
	case "merchant":
		return ClassMerchant, nil
	default:
		return ClassStandard, fmt.Errorf("yield: unknown account class %q", value)
	}
}

// FeeSchedule carries the withdrawal fee rates in basis points.
type FeeSchedule struct {
	YieldFeeBps    uint64 `json:"yieldFeeBps"`
	MerchantFeeBps uint64 `json:"merchantFeeBps"`
}

// DefaultFeeSchedule charges 1% of realised yield and 0.5% of merchant
// withdrawals.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{YieldFeeBps: 100, MerchantFeeBps: 50}
}

// Validate rejects rates above 100%.
func (f FeeSchedule) Validate() error {
	if f.YieldFeeBps > common.BpsDenominator {
		return fmt.Errorf("%w: yieldFeeBps %d exceeds %d", common.ErrParameterOutOfRange, f.YieldFeeBps, common.BpsDenominator)
	}
	if f.MerchantFeeBps > common.BpsDenominator {
		return fmt.Errorf("%w: merchantFeeBps %d exceeds %d", common.ErrParameterOutOfRange, f.MerchantFeeBps, common.BpsDenominator)
	}
	return nil
}

// WithdrawalRequest groups the inputs of a single withdrawal computation.
type WithdrawalRequest struct {
	Principal           *uint256.Int
	ProportionalDeposit *uint256.Int
	RequestedAssets     *uint256.Int
	CustodianBalance    *uint256.Int
	Class               AccountClass
}

// WithdrawalSplit is the outcome of ComputeWithdrawal. All amounts are
// fixed-point with 18 decimals.
type WithdrawalSplit struct {
	Yield                    *uint256.Int
	TreasuryFee              *uint256.Int
	MerchantFee              *uint256.Int
	UserReceives             *uint256.Int
	TotalPulledFromCustodian *uint256.Int
	// Shortfall is how far the requested assets fell below the principal
	// they redeem. A non-zero value means the custodian reported a loss.
	Shortfall *uint256.Int
}

// HasShortfall reports whether the custodian balance dropped below the
// principal being withdrawn.
func (s *WithdrawalSplit) HasShortfall() bool {
	return s != nil && !common.IsZero(s.Shortfall)
}

// LenderPosition is the per-account deposit record.
type LenderPosition struct {
	Principal        *uint256.Int
	DepositTimestamp time.Time
	// CustodianShares is the balance last reported by (or deposited into)
	// the custodian for this account.
	CustodianShares *uint256.Int
	Class           AccountClass
}

// NewPosition returns an empty standard-class position.
func NewPosition() *LenderPosition {
	return &LenderPosition{Principal: new(uint256.Int), CustodianShares: new(uint256.Int)}
}

// Clone returns a deep copy of the position.
func (p *LenderPosition) Clone() *LenderPosition {
	if p == nil {
		return NewPosition()
	}
	return &LenderPosition{
		Principal:        common.Clone(p.Principal),
		DepositTimestamp: p.DepositTimestamp,
		CustodianShares:  common.Clone(p.CustodianShares),
		Class:            p.Class,
	}
}

// IsEmpty reports whether the position holds neither principal nor shares.
func (p *LenderPosition) IsEmpty() bool {
	return p == nil || (common.IsZero(p.Principal) && common.IsZero(p.CustodianShares))
}
