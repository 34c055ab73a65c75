package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"lendcore/core/types"
	"lendcore/crypto"
)

const (
	// TypeBorrowerRegistered is emitted when a borrower profile is created.
	TypeBorrowerRegistered = "credit.registered"
	// TypeCreditScoreChanged is emitted whenever a borrower's score moves.
	TypeCreditScoreChanged = "credit.score.changed"
	// TypeCreditLimitChanged is emitted whenever the cached limit moves.
	TypeCreditLimitChanged = "credit.limit.changed"
	// TypeCreditSpent is emitted when a borrower draws on their limit.
	TypeCreditSpent = "credit.spent"
	// TypeCreditRepaid is emitted when outstanding debt is repaid.
	TypeCreditRepaid = "credit.repaid"
	// TypeBorrowerPauseChanged is emitted when a borrower is paused or
	// resumed.
	TypeBorrowerPauseChanged = "credit.pause.changed"
)

// Reasons attached to score changes.
const (
	ScoreReasonRepayment   = "repayment"
	ScoreReasonLatePayment = "late_payment"
)

// BorrowerRegistered captures a new borrower profile.
type BorrowerRegistered struct {
	Account crypto.Address
	Score   uint64
	Limit   *uint256.Int
}

// EventType implements the Event interface.
func (BorrowerRegistered) EventType() string { return TypeBorrowerRegistered }

// Event converts the registration into the generic event payload.
func (e BorrowerRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowerRegistered,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"score":   uintString(e.Score),
			"limit":   amountString(e.Limit),
		},
	}
}

// CreditScoreChanged captures a score transition.
type CreditScoreChanged struct {
	Account  crypto.Address
	OldScore uint64
	NewScore uint64
	Reason   string
}

// EventType implements the Event interface.
func (CreditScoreChanged) EventType() string { return TypeCreditScoreChanged }

// Event converts the score change into the generic event payload.
func (e CreditScoreChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditScoreChanged,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"old_score": uintString(e.OldScore),
			"new_score": uintString(e.NewScore),
			"reason":    e.Reason,
		},
	}
}

// CreditLimitChanged captures a limit transition.
type CreditLimitChanged struct {
	Account  crypto.Address
	OldLimit *uint256.Int
	NewLimit *uint256.Int
}

// EventType implements the Event interface.
func (CreditLimitChanged) EventType() string { return TypeCreditLimitChanged }

// Event converts the limit change into the generic event payload.
func (e CreditLimitChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditLimitChanged,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"old_limit": amountString(e.OldLimit),
			"new_limit": amountString(e.NewLimit),
		},
	}
}

// CreditDebtChanged captures a spend or repayment. Kind selects the event
// type.
type CreditDebtChanged struct {
	Kind    string
	Account crypto.Address
	Amount  *uint256.Int
	Debt    *uint256.Int
}

// EventType implements the Event interface.
func (e CreditDebtChanged) EventType() string { return e.Kind }

// Event converts the debt movement into the generic event payload.
func (e CreditDebtChanged) Event() *types.Event {
	return &types.Event{
		Type: e.Kind,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  amountString(e.Amount),
			"debt":    amountString(e.Debt),
		},
	}
}

// BorrowerPauseChanged captures a borrower pause toggle.
type BorrowerPauseChanged struct {
	Account crypto.Address
	Paused  bool
}

// EventType implements the Event interface.
func (BorrowerPauseChanged) EventType() string { return TypeBorrowerPauseChanged }

// Event converts the toggle into the generic event payload.
func (e BorrowerPauseChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowerPauseChanged,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"paused":  strconv.FormatBool(e.Paused),
		},
	}
}
