package common

import "errors"

// Module names consulted by Guard.
const (
	ModuleYield  = "yield"
	ModuleXP     = "xp"
	ModuleCredit = "credit"
)

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether an engine module is currently halted by an
// operator.
type PauseView interface {
	IsPaused(module string) bool
}

// PauseSet is a static PauseView keyed by module name.
type PauseSet map[string]bool

// IsPaused implements PauseView.
func (s PauseSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s[module]
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
