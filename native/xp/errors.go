package xp

import "errors"

var (
	// ErrClockRegression is returned when an accrual is requested for an
	// instant earlier than the entry's last update. It indicates a caller or
	// clock bug and is never clamped.
	ErrClockRegression = errors.New("xp: clock regression")
	// ErrInsufficientXP is returned when a debit exceeds the account balance.
	ErrInsufficientXP = errors.New("xp: insufficient balance")
	// ErrLedgerUnavailable marks a ledger without a backing store.
	ErrLedgerUnavailable = errors.New("xp: ledger storage unavailable")
)
