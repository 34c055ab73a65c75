package state

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"lendcore/crypto"
)

type accountSnapshot struct {
	Account    []byte
	Position   lenderRecord
	Entry      xpRecord
	Balance    *uint256.Int
	Registered bool
	Borrower   borrowerRecord
}

// Digest is a commitment to every record held for one account.
type Digest [32]byte

// Hex returns the 0x-less hex encoding of the digest.
func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

// AccountDigest hashes the account's position, accrual entry, claimed XP and
// borrower profile as seen through the journal.
func (j *Journal) AccountDigest(addr crypto.Address) (Digest, error) {
	pos, _, err := j.LenderPosition(addr)
	if err != nil {
		return Digest{}, err
	}
	entry, err := j.XPEntry(addr)
	if err != nil {
		return Digest{}, err
	}
	balance, err := j.XPBalance(addr)
	if err != nil {
		return Digest{}, err
	}
	profile, registered, err := j.BorrowerProfile(addr)
	if err != nil {
		return Digest{}, err
	}
	snap := accountSnapshot{
		Account:    addr.Bytes(),
		Position:   newLenderRecord(pos),
		Entry:      newXPRecord(entry),
		Balance:    nonNil(balance),
		Registered: registered,
		Borrower:   newBorrowerRecord(profile),
	}
	encoded, err := rlp.EncodeToBytes(snap)
	if err != nil {
		return Digest{}, fmt.Errorf("state: encode digest: %w", err)
	}
	return Digest(blake3.Sum256(encoded)), nil
}

// AccountDigest hashes the committed records of addr.
func (m *Manager) AccountDigest(addr crypto.Address) (Digest, error) {
	return m.Begin().AccountDigest(addr)
}
