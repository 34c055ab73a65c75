package xp

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"lendcore/native/common"
)

// Accrue flushes the XP earned since entry.LastUpdate into Unclaimed and
// moves the clock to now. It returns the updated copy and the amount flushed:
//
//	delta = elapsedSeconds * Rate * DepositAmount / 1e18
//
// The product is evaluated in 256 bits with the final division widened to
// 512 bits; a result that does not fit fails with ErrArithmeticOverflow.
// Elapsed time is counted in whole seconds between Unix timestamps, so
// successive accruals telescope without losing partial seconds.
func Accrue(entry *Entry, now time.Time) (*Entry, *uint256.Int, error) {
	next := entry.Clone()
	if next.LastUpdate.IsZero() {
		next.LastUpdate = now
		return next, new(uint256.Int), nil
	}
	if now.Before(next.LastUpdate) {
		return nil, nil, fmt.Errorf("%w: now %s before last update %s", ErrClockRegression,
			now.UTC().Format(time.RFC3339Nano), next.LastUpdate.UTC().Format(time.RFC3339Nano))
	}
	elapsed := uint64(now.Unix() - next.LastUpdate.Unix())
	delta := new(uint256.Int)
	if elapsed > 0 && next.State() == StateAccruing && !common.IsZero(next.Rate) {
		perUnit, err := common.Mul(uint256.NewInt(elapsed), next.Rate)
		if err != nil {
			return nil, nil, err
		}
		delta, err = common.MulDiv(perUnit, next.DepositAmount, common.Scale())
		if err != nil {
			return nil, nil, err
		}
	}
	unclaimed, err := common.Add(next.Unclaimed, delta)
	if err != nil {
		return nil, nil, err
	}
	next.Unclaimed = unclaimed
	next.LastUpdate = now
	return next, delta, nil
}

// OnDepositChanged settles accrual at the old rate up to now, then switches
// the entry to newDeposit and its tier rate. The flush and the rate change
// are a single step so a new rate never applies to time already elapsed.
func OnDepositChanged(entry *Entry, newDeposit *uint256.Int, now time.Time, table TierTable) (*Entry, *uint256.Int, error) {
	next, flushed, err := Accrue(entry, now)
	if err != nil {
		return nil, nil, err
	}
	rate, err := table.Rate(newDeposit)
	if err != nil {
		return nil, nil, err
	}
	next.DepositAmount = common.Clone(newDeposit)
	next.Rate = rate
	next.LastUpdate = now
	return next, flushed, nil
}

// Claim flushes accrual up to now and releases the whole unclaimed balance.
// A second claim at the same instant releases zero.
func Claim(entry *Entry, now time.Time) (*Entry, *uint256.Int, error) {
	next, _, err := Accrue(entry, now)
	if err != nil {
		return nil, nil, err
	}
	claimed := next.Unclaimed
	next.Unclaimed = new(uint256.Int)
	return next, claimed, nil
}
