package events

import (
	"github.com/holiman/uint256"

	"lendcore/core/types"
	"lendcore/crypto"
)

const (
	// TypeLenderDeposited is emitted when principal is added to a lender
	// position.
	TypeLenderDeposited = "lend.deposit"
	// TypeLenderWithdrew is emitted after a withdrawal split is settled.
	TypeLenderWithdrew = "lend.withdraw"
	// TypeYieldShortfall is emitted when the custodian balance fell below the
	// principal backing a withdrawal.
	TypeYieldShortfall = "yield.shortfall"
)

// LenderDeposited captures a deposit into a lender position.
type LenderDeposited struct {
	Account   crypto.Address
	Amount    *uint256.Int
	Principal *uint256.Int
	Class     string
}

// EventType implements the Event interface.
func (LenderDeposited) EventType() string { return TypeLenderDeposited }

// Event converts the deposit into the generic event payload.
func (e LenderDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeLenderDeposited,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"amount":    amountString(e.Amount),
			"principal": amountString(e.Principal),
			"class":     e.Class,
		},
	}
}

// LenderWithdrew captures the settled amounts of a withdrawal.
type LenderWithdrew struct {
	Account      crypto.Address
	Requested    *uint256.Int
	Yield        *uint256.Int
	TreasuryFee  *uint256.Int
	MerchantFee  *uint256.Int
	UserReceives *uint256.Int
	TotalPulled  *uint256.Int
	Principal    *uint256.Int
}

// EventType implements the Event interface.
func (LenderWithdrew) EventType() string { return TypeLenderWithdrew }

// Event converts the withdrawal into the generic event payload.
func (e LenderWithdrew) Event() *types.Event {
	return &types.Event{
		Type: TypeLenderWithdrew,
		Attributes: map[string]string{
			"account":       e.Account.String(),
			"requested":     amountString(e.Requested),
			"yield":         amountString(e.Yield),
			"treasury_fee":  amountString(e.TreasuryFee),
			"merchant_fee":  amountString(e.MerchantFee),
			"user_receives": amountString(e.UserReceives),
			"total_pulled":  amountString(e.TotalPulled),
			"principal":     amountString(e.Principal),
		},
	}
}

// YieldShortfall reports the principal loss detected on withdrawal.
type YieldShortfall struct {
	Account             crypto.Address
	ProportionalDeposit *uint256.Int
	Requested           *uint256.Int
	Shortfall           *uint256.Int
}

// EventType implements the Event interface.
func (YieldShortfall) EventType() string { return TypeYieldShortfall }

// Event converts the shortfall into the generic event payload.
func (e YieldShortfall) Event() *types.Event {
	return &types.Event{
		Type: TypeYieldShortfall,
		Attributes: map[string]string{
			"account":              e.Account.String(),
			"proportional_deposit": amountString(e.ProportionalDeposit),
			"requested":            amountString(e.Requested),
			"shortfall":            amountString(e.Shortfall),
		},
	}
}
