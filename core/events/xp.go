package events

import (
	"github.com/holiman/uint256"

	"lendcore/core/types"
	"lendcore/crypto"
)

const (
	// TypeXPAccrued is emitted when elapsed time is folded into the
	// unclaimed balance.
	TypeXPAccrued = "xp.accrued"
	// TypeXPRateChanged is emitted when a deposit change moves the accrual
	// rate.
	TypeXPRateChanged = "xp.rate.changed"
	// TypeXPClaimed is emitted when unclaimed XP moves into the ledger.
	TypeXPClaimed = "xp.claimed"
	// TypeXPAwarded is emitted on administrative XP credits.
	TypeXPAwarded = "xp.awarded"
	// TypeXPBurned is emitted on administrative XP debits.
	TypeXPBurned = "xp.burned"
)

// XPAccrued captures an accrual flush.
type XPAccrued struct {
	Account   crypto.Address
	Delta     *uint256.Int
	Unclaimed *uint256.Int
}

// EventType implements the Event interface.
func (XPAccrued) EventType() string { return TypeXPAccrued }

// Event converts the accrual into the generic event payload.
func (e XPAccrued) Event() *types.Event {
	return &types.Event{
		Type: TypeXPAccrued,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"delta":     amountString(e.Delta),
			"unclaimed": amountString(e.Unclaimed),
		},
	}
}

// XPRateChanged captures the rate now in force for an account.
type XPRateChanged struct {
	Account crypto.Address
	Deposit *uint256.Int
	OldRate *uint256.Int
	NewRate *uint256.Int
}

// EventType implements the Event interface.
func (XPRateChanged) EventType() string { return TypeXPRateChanged }

// Event converts the rate change into the generic event payload.
func (e XPRateChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeXPRateChanged,
		Attributes: map[string]string{
			"account":  e.Account.String(),
			"deposit":  amountString(e.Deposit),
			"old_rate": amountString(e.OldRate),
			"new_rate": amountString(e.NewRate),
		},
	}
}

// XPBalanceChanged captures a movement on the claimed XP ledger. Kind is
// one of the claim, award or burn event types.
type XPBalanceChanged struct {
	Kind    string
	Account crypto.Address
	Amount  *uint256.Int
	Balance *uint256.Int
}

// EventType implements the Event interface.
func (e XPBalanceChanged) EventType() string { return e.Kind }

// Event converts the ledger movement into the generic event payload.
func (e XPBalanceChanged) Event() *types.Event {
	return &types.Event{
		Type: e.Kind,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  amountString(e.Amount),
			"balance": amountString(e.Balance),
		},
	}
}
