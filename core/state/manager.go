package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"lendcore/crypto"
	"lendcore/native/credit"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/storage"
)

// Manager reads engine records from a storage backend. All mutations go
// through a Journal so that a single action lands in one batch.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a journal on top of the committed state.
func (m *Manager) Begin() *Journal {
	return &Journal{m: m, pending: make(map[string]storage.Write)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, fmt.Errorf("state: database not configured")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// LenderPosition loads the committed position of addr.
func (m *Manager) LenderPosition(addr crypto.Address) (*yield.LenderPosition, bool, error) {
	return m.Begin().LenderPosition(addr)
}

// XPEntry loads the committed accrual entry of addr.
func (m *Manager) XPEntry(addr crypto.Address) (*xp.Entry, error) {
	return m.Begin().XPEntry(addr)
}

// XPBalance loads the committed claimed XP of addr.
func (m *Manager) XPBalance(addr crypto.Address) (*uint256.Int, error) {
	return m.Begin().XPBalance(addr)
}

// BorrowerProfile loads the committed borrower profile of addr.
func (m *Manager) BorrowerProfile(addr crypto.Address) (*credit.BorrowerProfile, bool, error) {
	return m.Begin().BorrowerProfile(addr)
}

// ParamStoreGet reads a committed parameter value.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	return m.Begin().ParamStoreGet(name)
}

// ParamStoreSet writes a parameter value in its own batch.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	j := m.Begin()
	if err := j.ParamStoreSet(name, value); err != nil {
		return err
	}
	return j.Commit()
}

func decodeRecord(data []byte, out interface{}) error {
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("state: decode record: %w", err)
	}
	return nil
}
