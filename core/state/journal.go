package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"lendcore/crypto"
	"lendcore/native/credit"
	"lendcore/native/params"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/storage"
)

// Journal stages writes over the committed state. Reads see staged values
// first. Nothing reaches the database until Commit, which applies every
// staged write in one batch.
type Journal struct {
	m       *Manager
	pending map[string]storage.Write
	done    bool
}

func (j *Journal) get(key []byte) ([]byte, bool, error) {
	if w, ok := j.pending[string(kvKey(key))]; ok {
		if w.Delete {
			return nil, false, nil
		}
		return append([]byte(nil), w.Value...), true, nil
	}
	return j.m.get(key)
}

func (j *Journal) put(key []byte, value interface{}) error {
	if j.done {
		return fmt.Errorf("state: journal already closed")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return j.putRaw(key, encoded)
}

func (j *Journal) putRaw(key []byte, value []byte) error {
	if j.done {
		return fmt.Errorf("state: journal already closed")
	}
	hashed := kvKey(key)
	j.pending[string(hashed)] = storage.Write{Key: hashed, Value: append([]byte(nil), value...)}
	return nil
}

func (j *Journal) delete(key []byte) error {
	if j.done {
		return fmt.Errorf("state: journal already closed")
	}
	hashed := kvKey(key)
	j.pending[string(hashed)] = storage.Write{Key: hashed, Delete: true}
	return nil
}

// Pending reports the number of staged writes.
func (j *Journal) Pending() int { return len(j.pending) }

// Commit flushes the staged writes atomically. The journal cannot be reused
// afterwards.
func (j *Journal) Commit() error {
	if j.done {
		return fmt.Errorf("state: journal already closed")
	}
	j.done = true
	if len(j.pending) == 0 {
		return nil
	}
	writes := make([]storage.Write, 0, len(j.pending))
	for _, w := range j.pending {
		writes = append(writes, w)
	}
	sort.Slice(writes, func(a, b int) bool { return bytes.Compare(writes[a].Key, writes[b].Key) < 0 })
	return j.m.db.WriteBatch(writes)
}

// Discard drops every staged write.
func (j *Journal) Discard() {
	j.pending = make(map[string]storage.Write)
	j.done = true
}

// LenderPosition returns the position of addr. A missing record yields an
// empty standard-class position and false.
func (j *Journal) LenderPosition(addr crypto.Address) (*yield.LenderPosition, bool, error) {
	data, ok, err := j.get(LenderPositionKey(addr))
	if err != nil || !ok {
		return yield.NewPosition(), false, err
	}
	var rec lenderRecord
	if err := decodeRecord(data, &rec); err != nil {
		return nil, false, err
	}
	return rec.position(), true, nil
}

// SetLenderPosition stages pos for addr.
func (j *Journal) SetLenderPosition(addr crypto.Address, pos *yield.LenderPosition) error {
	return j.put(LenderPositionKey(addr), newLenderRecord(pos))
}

// XPEntry returns the accrual entry of addr, or an inactive entry when none
// is stored.
func (j *Journal) XPEntry(addr crypto.Address) (*xp.Entry, error) {
	data, ok, err := j.get(XPEntryKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return xp.NewEntry(), nil
	}
	var rec xpRecord
	if err := decodeRecord(data, &rec); err != nil {
		return nil, err
	}
	return rec.entry(), nil
}

// SetXPEntry stages entry for addr.
func (j *Journal) SetXPEntry(addr crypto.Address, entry *xp.Entry) error {
	return j.put(XPEntryKey(addr), newXPRecord(entry))
}

// XPBalance implements xp.BalanceStore.
func (j *Journal) XPBalance(addr crypto.Address) (*uint256.Int, error) {
	data, ok, err := j.get(XPBalanceKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	balance := new(uint256.Int)
	if err := decodeRecord(data, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetXPBalance implements xp.BalanceStore.
func (j *Journal) SetXPBalance(addr crypto.Address, amount *uint256.Int) error {
	return j.put(XPBalanceKey(addr), nonNil(amount))
}

// BorrowerProfile returns the profile of addr and whether it is registered.
func (j *Journal) BorrowerProfile(addr crypto.Address) (*credit.BorrowerProfile, bool, error) {
	data, ok, err := j.get(BorrowerKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec borrowerRecord
	if err := decodeRecord(data, &rec); err != nil {
		return nil, false, err
	}
	return rec.profile(), true, nil
}

// SetBorrowerProfile stages profile for addr.
func (j *Journal) SetBorrowerProfile(addr crypto.Address, profile *credit.BorrowerProfile) error {
	if profile == nil {
		return j.delete(BorrowerKey(addr))
	}
	return j.put(BorrowerKey(addr), newBorrowerRecord(profile))
}

// ParamStoreGet implements params.StoreState.
func (j *Journal) ParamStoreGet(name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("state: parameter name must not be empty")
	}
	return j.get(ParamKey(name))
}

// ParamStoreSet implements params.StoreState.
func (j *Journal) ParamStoreSet(name string, value []byte) error {
	if name == "" {
		return fmt.Errorf("state: parameter name must not be empty")
	}
	return j.putRaw(ParamKey(name), value)
}

var (
	_ xp.BalanceStore   = (*Journal)(nil)
	_ params.StoreState = (*Journal)(nil)
	_ params.StoreState = (*Manager)(nil)
)
