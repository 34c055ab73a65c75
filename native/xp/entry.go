package xp

import (
	"time"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// State is the accrual state of a ledger entry.
type State uint8

const (
	StateInactive State = iota
	StateAccruing
)

func (s State) String() string {
	if s == StateAccruing {
		return "accruing"
	}
	return "inactive"
}

// Entry is the per-account XP accrual record.
type Entry struct {
	DepositAmount *uint256.Int
	// Rate is always TierTable.Rate(DepositAmount) as of the last deposit
	// change.
	Rate       *uint256.Int
	LastUpdate time.Time
	Unclaimed  *uint256.Int
}

// NewEntry returns an inactive entry with no clock.
func NewEntry() *Entry {
	return &Entry{
		DepositAmount: new(uint256.Int),
		Rate:          new(uint256.Int),
		Unclaimed:     new(uint256.Int),
	}
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return NewEntry()
	}
	return &Entry{
		DepositAmount: common.Clone(e.DepositAmount),
		Rate:          common.Clone(e.Rate),
		LastUpdate:    e.LastUpdate,
		Unclaimed:     common.Clone(e.Unclaimed),
	}
}

// State reports whether the entry is accruing.
func (e *Entry) State() State {
	if e == nil || common.IsZero(e.DepositAmount) {
		return StateInactive
	}
	return StateAccruing
}
