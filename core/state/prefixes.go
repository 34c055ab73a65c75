package state

import "lendcore/crypto"

var (
	lenderPositionPrefix = []byte("lend/position/")
	xpEntryPrefix        = []byte("xp/entry/")
	xpBalancePrefix      = []byte("xp/balance/")
	borrowerPrefix       = []byte("credit/borrower/")
	paramsPrefix         = []byte("params/")
)

func accountKey(prefix []byte, addr crypto.Address) []byte {
	raw := addr.Bytes()
	buf := make([]byte, len(prefix)+len(raw))
	copy(buf, prefix)
	copy(buf[len(prefix):], raw)
	return buf
}

// LenderPositionKey returns the unhashed key of a lender position.
func LenderPositionKey(addr crypto.Address) []byte { return accountKey(lenderPositionPrefix, addr) }

// XPEntryKey returns the unhashed key of an XP accrual entry.
func XPEntryKey(addr crypto.Address) []byte { return accountKey(xpEntryPrefix, addr) }

// XPBalanceKey returns the unhashed key of a claimed XP balance.
func XPBalanceKey(addr crypto.Address) []byte { return accountKey(xpBalancePrefix, addr) }

// BorrowerKey returns the unhashed key of a borrower profile.
func BorrowerKey(addr crypto.Address) []byte { return accountKey(borrowerPrefix, addr) }

// ParamKey returns the unhashed key of a named parameter.
func ParamKey(name string) []byte {
	buf := make([]byte, len(paramsPrefix)+len(name))
	copy(buf, paramsPrefix)
	copy(buf[len(paramsPrefix):], name)
	return buf
}
