package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"lendcore/core/types"
	"lendcore/crypto"
	"lendcore/native/common"
	"lendcore/native/yield"
)

// ActionType names an engine action.
type ActionType string

const (
	ActionRegister ActionType = "register"
	ActionDeposit  ActionType = "deposit"
	ActionWithdraw ActionType = "withdraw"
	ActionRepay    ActionType = "repay"
	ActionLate     ActionType = "late"
	ActionSpend    ActionType = "spend"
	ActionClaim    ActionType = "claim"
	ActionAward    ActionType = "award"
	ActionBurn     ActionType = "burn"
	ActionPause    ActionType = "pause"
	ActionUnpause  ActionType = "unpause"
)

var actionModules = map[ActionType]string{
	ActionRegister: common.ModuleCredit,
	ActionDeposit:  common.ModuleYield,
	ActionWithdraw: common.ModuleYield,
	ActionRepay:    common.ModuleCredit,
	ActionLate:     common.ModuleCredit,
	ActionSpend:    common.ModuleCredit,
	ActionClaim:    common.ModuleXP,
	ActionAward:    common.ModuleXP,
	ActionBurn:     common.ModuleXP,
	// Borrower pause toggles stay available while the credit module is
	// halted.
	ActionPause:   "",
	ActionUnpause: "",
}

// ParseActionType maps a CLI or config string onto an ActionType.
func ParseActionType(value string) (ActionType, error) {
	action := ActionType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := actionModules[action]; !ok {
		return "", fmt.Errorf("unknown action %q", value)
	}
	return action, nil
}

// Module returns the engine module guarding the action.
func (a ActionType) Module() string { return actionModules[a] }

func (a ActionType) needsAmount() bool {
	switch a {
	case ActionDeposit, ActionWithdraw, ActionRepay, ActionSpend, ActionAward, ActionBurn:
		return true
	}
	return false
}

// Action is one externally triggered state change for a single account.
type Action struct {
	Type    ActionType
	Account crypto.Address
	Amount  *uint256.Int
	// Class applies to the first deposit of a lender position.
	Class yield.AccountClass
	// CustodianBalance overrides the oracle for withdrawals.
	CustodianBalance *uint256.Int
	// Now overrides the processor clock.
	Now time.Time
}

// Receipt summarises a committed action.
type Receipt struct {
	ID        string         `json:"id"`
	Action    ActionType     `json:"action"`
	Account   string         `json:"account"`
	Timestamp time.Time      `json:"timestamp"`
	Events    []*types.Event `json:"events"`
	Digest    string         `json:"digest"`
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// CustodianOracle reports the custodian-held balance attributable to an
// account.
type CustodianOracle interface {
	BalanceOf(ctx context.Context, addr crypto.Address) (*uint256.Int, error)
}

// CustodianFunc adapts a function to CustodianOracle.
type CustodianFunc func(ctx context.Context, addr crypto.Address) (*uint256.Int, error)

// BalanceOf implements CustodianOracle.
func (f CustodianFunc) BalanceOf(ctx context.Context, addr crypto.Address) (*uint256.Int, error) {
	return f(ctx, addr)
}
