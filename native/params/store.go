package params

import (
	"bytes"
	"encoding/json"
	"fmt"

	"lendcore/native/credit"
	"lendcore/native/xp"
	"lendcore/native/yield"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Snapshot is the complete parameter set consulted by one engine action.
type Snapshot struct {
	Credit credit.Parameters `json:"credit"`
	XP     xp.TierTable      `json:"xp"`
	Fees   yield.FeeSchedule `json:"fees"`
}

// DefaultSnapshot returns the launch parameters.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Credit: credit.DefaultParameters(),
		XP:     xp.DefaultTierTable(),
		Fees:   yield.DefaultFeeSchedule(),
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Credit: s.Credit.Clone(), XP: s.XP.Clone(), Fees: s.Fees}
}

// Validate checks every section; the first failure is returned.
func (s Snapshot) Validate() error {
	if err := s.Credit.Validate(); err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	if err := s.XP.Validate(); err != nil {
		return fmt.Errorf("xp: %w", err)
	}
	if err := s.Fees.Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	return nil
}

// Pauses holds the operator switches for each engine module.
type Pauses struct {
	Yield  bool `json:"yield"`
	XP     bool `json:"xp"`
	Credit bool `json:"credit"`
}

// Store provides typed accessors for governance-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// Snapshot loads the current engine parameters. When nothing has been stored
// yet the defaults are returned. The result is a private copy.
func (s *Store) Snapshot() (Snapshot, error) {
	state, err := s.withState()
	if err != nil {
		return Snapshot{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyEngine)
	if err != nil {
		return Snapshot{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return DefaultSnapshot(), nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("params: decode engine: %w", err)
	}
	return snap, nil
}

// Update validates snap as a whole and persists it. A rejected update leaves
// the stored parameters untouched.
func (s *Store) Update(snap Snapshot) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("params: encode engine: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyEngine, encoded)
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}
