package state

import (
	"time"

	"github.com/holiman/uint256"

	"lendcore/native/common"
	"lendcore/native/credit"
	"lendcore/native/xp"
	"lendcore/native/yield"
)

type lenderRecord struct {
	Principal        *uint256.Int
	DepositTimestamp uint64
	CustodianShares  *uint256.Int
	Class            uint8
}

type xpRecord struct {
	Deposit    *uint256.Int
	Rate       *uint256.Int
	LastUpdate uint64
	Unclaimed  *uint256.Int
}

type borrowerRecord struct {
	Score  uint64
	Limit  *uint256.Int
	Debt   *uint256.Int
	Paused bool
}

// The zero time.Time round-trips as 0.
func encodeTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}

func decodeTime(v uint64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(v)).UTC()
}

func nonNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return common.Clone(v)
}

func newLenderRecord(pos *yield.LenderPosition) lenderRecord {
	if pos == nil {
		pos = yield.NewPosition()
	}
	return lenderRecord{
		Principal:        nonNil(pos.Principal),
		DepositTimestamp: encodeTime(pos.DepositTimestamp),
		CustodianShares:  nonNil(pos.CustodianShares),
		Class:            uint8(pos.Class),
	}
}

func (r lenderRecord) position() *yield.LenderPosition {
	return &yield.LenderPosition{
		Principal:        nonNil(r.Principal),
		DepositTimestamp: decodeTime(r.DepositTimestamp),
		CustodianShares:  nonNil(r.CustodianShares),
		Class:            yield.AccountClass(r.Class),
	}
}

func newXPRecord(entry *xp.Entry) xpRecord {
	if entry == nil {
		entry = xp.NewEntry()
	}
	return xpRecord{
		Deposit:    nonNil(entry.DepositAmount),
		Rate:       nonNil(entry.Rate),
		LastUpdate: encodeTime(entry.LastUpdate),
		Unclaimed:  nonNil(entry.Unclaimed),
	}
}

func (r xpRecord) entry() *xp.Entry {
	return &xp.Entry{
		DepositAmount: nonNil(r.Deposit),
		Rate:          nonNil(r.Rate),
		LastUpdate:    decodeTime(r.LastUpdate),
		Unclaimed:     nonNil(r.Unclaimed),
	}
}

func newBorrowerRecord(profile *credit.BorrowerProfile) borrowerRecord {
	if profile == nil {
		return borrowerRecord{Limit: new(uint256.Int), Debt: new(uint256.Int)}
	}
	return borrowerRecord{
		Score:  profile.Score,
		Limit:  nonNil(profile.Limit),
		Debt:   nonNil(profile.Debt),
		Paused: profile.Paused,
	}
}

func (r borrowerRecord) profile() *credit.BorrowerProfile {
	return &credit.BorrowerProfile{
		Score:  r.Score,
		Limit:  nonNil(r.Limit),
		Debt:   nonNil(r.Debt),
		Paused: r.Paused,
	}
}
