package events

import (
	"strconv"

	"github.com/holiman/uint256"
)

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
