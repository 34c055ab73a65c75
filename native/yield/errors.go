package yield

import "errors"

var (
	// ErrInsufficientBalance is returned when a withdrawal asks for more than
	// the custodian reports for the account.
	ErrInsufficientBalance = errors.New("yield: insufficient custodian balance")
	// ErrInvalidProportional is returned when the principal portion of a
	// withdrawal exceeds the recorded principal.
	ErrInvalidProportional = errors.New("yield: proportional deposit exceeds principal")
	// ErrNoPosition marks withdrawals against an account without a deposit.
	ErrNoPosition = errors.New("yield: no open position")
)
