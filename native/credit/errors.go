package credit

import "errors"

var (
	ErrBorrowerPaused       = errors.New("credit: borrower paused")
	ErrCreditLimitExceeded  = errors.New("credit: spend exceeds credit limit")
	ErrRepaymentExceedsDebt = errors.New("credit: repayment exceeds outstanding debt")
	ErrBorrowerNotFound     = errors.New("credit: borrower not registered")
	ErrBorrowerExists       = errors.New("credit: borrower already registered")
)
