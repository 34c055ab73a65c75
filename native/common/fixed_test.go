package common

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"1049.5", "1049.5"},
		{"0.5", "0.5"},
		{".25", "0.25"},
		{"007.010", "7.01"},
		{"0.000000000000000001", "0.000000000000000001"},
	}
	for _, tc := range cases {
		amount, err := ParseAmount(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, FormatAmount(amount), tc.in)
	}

	half, err := ParseAmount("0.5")
	require.NoError(t, err)
	require.Equal(t, "500000000000000000", half.Dec())
}

func TestParseAmountRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", " ", "-1", "1e18", "1.0000000000000000001", "abc", ".", "0.", "12.", "1.2.3"} {
		_, err := ParseAmount(in)
		require.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	max := new(uint256.Int).SetAllOne()

	_, err := Add(max, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = Mul(max, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = Sub(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = MulDiv(uint256.NewInt(1), uint256.NewInt(1), nil)
	require.True(t, errors.Is(err, ErrDivisionByZero))

	// The 512-bit intermediate keeps max*2/4 representable.
	got, err := MulDiv(max, uint256.NewInt(2), uint256.NewInt(4))
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Rsh(max, 1), got)

	_, err = MulDiv(max, uint256.NewInt(4), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestSubFloor(t *testing.T) {
	diff, deficit := SubFloor(uint256.NewInt(10), uint256.NewInt(3))
	require.Equal(t, uint64(7), diff.Uint64())
	require.True(t, deficit.IsZero())

	diff, deficit = SubFloor(uint256.NewInt(3), uint256.NewInt(10))
	require.True(t, diff.IsZero())
	require.Equal(t, uint64(7), deficit.Uint64())
}

func TestApplyBpsTruncates(t *testing.T) {
	fee, err := ApplyBps(uint256.NewInt(199), 50)
	require.NoError(t, err)
	require.Equal(t, uint64(0), fee.Uint64())

	fee, err = ApplyBps(Units(50), 100)
	require.NoError(t, err)
	require.Equal(t, "0.5", FormatAmount(fee))
}

func TestSaturatingHelpers(t *testing.T) {
	require.Equal(t, uint64(850), SaturatingAdd(845, 10, 850))
	require.Equal(t, uint64(850), SaturatingAdd(850, 10, 850))
	require.Equal(t, uint64(850), SaturatingAdd(1, math.MaxUint64, 850))
	require.Equal(t, uint64(510), SaturatingAdd(500, 10, 850))

	require.Equal(t, uint64(300), SaturatingSub(320, 50, 300))
	require.Equal(t, uint64(300), SaturatingSub(300, 50, 300))
	require.Equal(t, uint64(300), SaturatingSub(math.MaxUint64, math.MaxUint64, 300))
	require.Equal(t, uint64(450), SaturatingSub(500, 50, 300))
}

func TestGuard(t *testing.T) {
	require.NoError(t, Guard(nil, ModuleXP))
	pauses := PauseSet{ModuleCredit: true}
	require.NoError(t, Guard(pauses, ModuleXP))
	require.ErrorIs(t, Guard(pauses, ModuleCredit), ErrModulePaused)
}
