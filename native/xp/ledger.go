package xp

import (
	"fmt"

	"github.com/holiman/uint256"

	"lendcore/crypto"
	"lendcore/native/common"
)

// BalanceStore persists claimed XP balances keyed by account.
type BalanceStore interface {
	XPBalance(addr crypto.Address) (*uint256.Int, error)
	SetXPBalance(addr crypto.Address, amount *uint256.Int) error
}

// Ledger holds claimed, non-transferable XP. Balances change only through
// Credit (claims and admin awards) and Debit (redemptions and admin burns).
// No operation names two accounts.
type Ledger struct {
	store BalanceStore
}

// NewLedger binds a ledger to store.
func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

// Balance returns the claimed XP held by addr.
func (l *Ledger) Balance(addr crypto.Address) (*uint256.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrLedgerUnavailable
	}
	balance, err := l.store.XPBalance(addr)
	if err != nil {
		return nil, err
	}
	return common.Clone(balance), nil
}

// Credit mints amount into addr and returns the new balance.
func (l *Ledger) Credit(addr crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	balance, err := l.Balance(addr)
	if err != nil {
		return nil, err
	}
	if common.IsZero(amount) {
		return balance, nil
	}
	updated, err := common.Add(balance, amount)
	if err != nil {
		return nil, err
	}
	if err := l.store.SetXPBalance(addr, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Debit burns amount from addr and returns the new balance.
func (l *Ledger) Debit(addr crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	balance, err := l.Balance(addr)
	if err != nil {
		return nil, err
	}
	if common.IsZero(amount) {
		return balance, nil
	}
	if amount.Gt(balance) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientXP, balance.Dec(), amount.Dec())
	}
	updated := new(uint256.Int).Sub(balance, amount)
	if err := l.store.SetXPBalance(addr, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
