package state

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"lendcore/crypto"
	"lendcore/native/common"
	"lendcore/native/credit"
	"lendcore/native/params"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	return NewManager(db), db
}

func TestJournalRoundTripsRecords(t *testing.T) {
	m, _ := newTestManager(t)
	addr := crypto.DeriveAddress("alice")
	now := time.Unix(1_700_000_000, 123).UTC()

	j := m.Begin()
	pos := &yield.LenderPosition{
		Principal:        common.Units(1000),
		DepositTimestamp: now,
		CustodianShares:  common.Units(1000),
		Class:            yield.ClassMerchant,
	}
	require.NoError(t, j.SetLenderPosition(addr, pos))
	entry := &xp.Entry{
		DepositAmount: common.Units(1000),
		Rate:          uint256.NewInt(17_361_111_111_111),
		LastUpdate:    now,
		Unclaimed:     uint256.NewInt(42),
	}
	require.NoError(t, j.SetXPEntry(addr, entry))
	require.NoError(t, j.SetXPBalance(addr, uint256.NewInt(7)))
	profile := &credit.BorrowerProfile{Score: 720, Limit: common.Units(104), Debt: common.Units(3), Paused: true}
	require.NoError(t, j.SetBorrowerProfile(addr, profile))
	require.NoError(t, j.Commit())

	gotPos, ok, err := m.LenderPosition(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pos.Principal, gotPos.Principal)
	require.Equal(t, pos.CustodianShares, gotPos.CustodianShares)
	require.True(t, now.Equal(gotPos.DepositTimestamp))
	require.Equal(t, yield.ClassMerchant, gotPos.Class)

	gotEntry, err := m.XPEntry(addr)
	require.NoError(t, err)
	require.Equal(t, entry.Rate, gotEntry.Rate)
	require.Equal(t, entry.Unclaimed, gotEntry.Unclaimed)
	require.Equal(t, now.Unix(), gotEntry.LastUpdate.Unix())

	balance, err := m.XPBalance(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(7), balance.Uint64())

	gotProfile, ok, err := m.BorrowerProfile(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(720), gotProfile.Score)
	require.Equal(t, profile.Limit, gotProfile.Limit)
	require.True(t, gotProfile.Paused)
}

func TestMissingRecordsReturnDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	addr := crypto.DeriveAddress("nobody")

	pos, ok, err := m.LenderPosition(addr)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, pos.IsEmpty())

	entry, err := m.XPEntry(addr)
	require.NoError(t, err)
	require.Equal(t, xp.StateInactive, entry.State())
	require.True(t, entry.LastUpdate.IsZero())

	balance, err := m.XPBalance(addr)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	profile, ok, err := m.BorrowerProfile(addr)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, profile)
}

func TestJournalIsolatedUntilCommit(t *testing.T) {
	m, db := newTestManager(t)
	addr := crypto.DeriveAddress("bob")

	j := m.Begin()
	require.NoError(t, j.SetXPBalance(addr, uint256.NewInt(5)))
	staged, err := j.XPBalance(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(5), staged.Uint64())

	committed, err := m.XPBalance(addr)
	require.NoError(t, err)
	require.True(t, committed.IsZero())
	require.Equal(t, 0, db.Len())

	j.Discard()
	require.Error(t, j.Commit())
	committed, err = m.XPBalance(addr)
	require.NoError(t, err)
	require.True(t, committed.IsZero())
}

type failingDB struct {
	*storage.MemDB
}

func (failingDB) WriteBatch([]storage.Write) error { return errors.New("disk full") }

func TestCommitFailureLeavesStateUntouched(t *testing.T) {
	mem := storage.NewMemDB()
	m := NewManager(failingDB{mem})
	addr := crypto.DeriveAddress("carol")

	j := m.Begin()
	require.NoError(t, j.SetXPBalance(addr, uint256.NewInt(5)))
	require.NoError(t, j.SetBorrowerProfile(addr, &credit.BorrowerProfile{Score: 500, Limit: common.Units(101), Debt: common.Zero()}))
	require.Equal(t, 2, j.Pending())
	require.Error(t, j.Commit())
	require.Equal(t, 0, mem.Len())
}

func TestParamStoreThroughManager(t *testing.T) {
	m, _ := newTestManager(t)
	store := params.NewStore(m)

	snap, err := store.Snapshot()
	require.NoError(t, err)
	require.Equal(t, params.DefaultSnapshot().Fees, snap.Fees)

	snap.Fees.YieldFeeBps = 250
	require.NoError(t, store.Update(snap))

	reloaded, err := params.NewStore(m).Snapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(250), reloaded.Fees.YieldFeeBps)

	_, _, err = m.ParamStoreGet("")
	require.Error(t, err)
}

func TestAccountDigestTracksChanges(t *testing.T) {
	m, _ := newTestManager(t)
	alice := crypto.DeriveAddress("alice")
	bob := crypto.DeriveAddress("bob")

	emptyAlice, err := m.AccountDigest(alice)
	require.NoError(t, err)
	emptyBob, err := m.AccountDigest(bob)
	require.NoError(t, err)
	require.NotEqual(t, emptyAlice, emptyBob)

	again, err := m.AccountDigest(alice)
	require.NoError(t, err)
	require.Equal(t, emptyAlice, again)

	j := m.Begin()
	require.NoError(t, j.SetXPBalance(alice, uint256.NewInt(1)))
	staged, err := j.AccountDigest(alice)
	require.NoError(t, err)
	require.NotEqual(t, emptyAlice, staged)
	require.Len(t, staged.Hex(), 64)
	require.NoError(t, j.Commit())

	committed, err := m.AccountDigest(alice)
	require.NoError(t, err)
	require.Equal(t, staged, committed)
}
