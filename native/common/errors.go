package common

import "errors"

var (
	// ErrArithmeticOverflow marks an intermediate or final value that does
	// not fit the 256-bit fixed-point representation. Actions hitting it must
	// abort without applying any state.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrParameterOutOfRange marks a configuration value that would make a
	// computation leave its documented bounds.
	ErrParameterOutOfRange = errors.New("parameter out of range")
	// ErrDivisionByZero is returned by the scaled helpers when the divisor is
	// zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidAmount marks amounts that failed to parse or were required to
	// be positive.
	ErrInvalidAmount = errors.New("invalid amount")
)
