package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"lendcore/native/common"
)

const pausesKey = "system/pauses"

// Reader exposes the minimal parameter store capabilities required to inspect pause toggles.
type Reader interface {
	ParamStoreGet(name string) ([]byte, bool, error)
}

// ModulePaused reports whether the named engine module is paused.
func ModulePaused(reader Reader, module string) (bool, error) {
	if reader == nil {
		return false, fmt.Errorf("params: reader not configured")
	}
	raw, ok, err := reader.ParamStoreGet(pausesKey)
	if err != nil {
		return false, fmt.Errorf("params: load pauses: %w", err)
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	var payload map[string]bool
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("params: decode pauses: %w", err)
	}
	return payload[module], nil
}

// PauseView adapts a Reader to common.PauseView. Read failures are treated
// as paused so a corrupt toggle never silently re-enables a module.
type PauseView struct {
	Reader Reader
}

// IsPaused implements common.PauseView.
func (v PauseView) IsPaused(module string) bool {
	paused, err := ModulePaused(v.Reader, module)
	if err != nil {
		return true
	}
	return paused
}

var _ common.PauseView = PauseView{}
