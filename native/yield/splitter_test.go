package yield

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"lendcore/native/common"
)

func mustAmount(t *testing.T, value string) *uint256.Int {
	t.Helper()
	amount, err := common.ParseAmount(value)
	require.NoError(t, err)
	return amount
}

func TestComputeWithdrawalReportScenario(t *testing.T) {
	req := WithdrawalRequest{
		Principal:           mustAmount(t, "1000"),
		ProportionalDeposit: mustAmount(t, "1000"),
		RequestedAssets:     mustAmount(t, "1050"),
		CustodianBalance:    mustAmount(t, "1050"),
	}
	split, err := ComputeWithdrawal(req, FeeSchedule{YieldFeeBps: 100})
	require.NoError(t, err)
	require.Equal(t, "50", common.FormatAmount(split.Yield))
	require.Equal(t, "0.5", common.FormatAmount(split.TreasuryFee))
	require.Equal(t, "1049.5", common.FormatAmount(split.UserReceives))
	require.Equal(t, "1050.5", common.FormatAmount(split.TotalPulledFromCustodian))
	require.True(t, split.MerchantFee.IsZero())
	require.False(t, split.HasShortfall())
}

func TestComputeWithdrawalNoYieldNoFee(t *testing.T) {
	req := WithdrawalRequest{
		Principal:           mustAmount(t, "1000"),
		ProportionalDeposit: mustAmount(t, "400"),
		RequestedAssets:     mustAmount(t, "400"),
		CustodianBalance:    mustAmount(t, "1000"),
	}
	split, err := ComputeWithdrawal(req, FeeSchedule{YieldFeeBps: 10_000})
	require.NoError(t, err)
	require.True(t, split.Yield.IsZero())
	require.True(t, split.TreasuryFee.IsZero())
	require.Equal(t, "400", common.FormatAmount(split.UserReceives))
}

func TestComputeWithdrawalMerchantFeeStacks(t *testing.T) {
	req := WithdrawalRequest{
		Principal:           mustAmount(t, "1000"),
		ProportionalDeposit: mustAmount(t, "1000"),
		RequestedAssets:     mustAmount(t, "1050"),
		CustodianBalance:    mustAmount(t, "1050"),
		Class:               ClassMerchant,
	}
	split, err := ComputeWithdrawal(req, FeeSchedule{YieldFeeBps: 100, MerchantFeeBps: 50})
	require.NoError(t, err)
	require.Equal(t, "0.5", common.FormatAmount(split.TreasuryFee))
	require.Equal(t, "5.25", common.FormatAmount(split.MerchantFee))
	require.Equal(t, "1044.25", common.FormatAmount(split.UserReceives))
	require.Equal(t, "1050.5", common.FormatAmount(split.TotalPulledFromCustodian))
}

func TestComputeWithdrawalShortfallIsSignalled(t *testing.T) {
	req := WithdrawalRequest{
		Principal:           mustAmount(t, "1000"),
		ProportionalDeposit: mustAmount(t, "1000"),
		RequestedAssets:     mustAmount(t, "990"),
		CustodianBalance:    mustAmount(t, "990"),
	}
	split, err := ComputeWithdrawal(req, DefaultFeeSchedule())
	require.NoError(t, err)
	require.True(t, split.Yield.IsZero())
	require.True(t, split.TreasuryFee.IsZero())
	require.True(t, split.HasShortfall())
	require.Equal(t, "10", common.FormatAmount(split.Shortfall))
	require.Equal(t, "990", common.FormatAmount(split.UserReceives))
}

func TestComputeWithdrawalErrors(t *testing.T) {
	_, err := ComputeWithdrawal(WithdrawalRequest{
		Principal:           mustAmount(t, "10"),
		ProportionalDeposit: mustAmount(t, "10"),
		RequestedAssets:     mustAmount(t, "11"),
		CustodianBalance:    mustAmount(t, "10.5"),
	}, DefaultFeeSchedule())
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = ComputeWithdrawal(WithdrawalRequest{
		Principal:           mustAmount(t, "10"),
		ProportionalDeposit: mustAmount(t, "10.000000000000000001"),
		RequestedAssets:     mustAmount(t, "10"),
		CustodianBalance:    mustAmount(t, "10"),
	}, DefaultFeeSchedule())
	require.ErrorIs(t, err, ErrInvalidProportional)

	_, err = ComputeWithdrawal(WithdrawalRequest{}, FeeSchedule{YieldFeeBps: 10_001})
	require.ErrorIs(t, err, common.ErrParameterOutOfRange)

	_, err = ComputeWithdrawal(WithdrawalRequest{
		Principal:           new(uint256.Int),
		ProportionalDeposit: new(uint256.Int),
		RequestedAssets:     mustAmount(t, "10"),
		CustodianBalance:    mustAmount(t, "10"),
		Class:               ClassMerchant,
	}, FeeSchedule{YieldFeeBps: 10_000, MerchantFeeBps: 10_000})
	require.ErrorIs(t, err, common.ErrParameterOutOfRange)
}

func TestFeeNeverExceedsYield(t *testing.T) {
	principal := mustAmount(t, "1000")
	for _, bps := range []uint64{0, 1, 33, 100, 2_500, 9_999, 10_000} {
		for extra := uint64(0); extra < 2_000; extra += 37 {
			requested := new(uint256.Int).Add(principal, uint256.NewInt(extra))
			split, err := ComputeWithdrawal(WithdrawalRequest{
				Principal:           principal,
				ProportionalDeposit: principal,
				RequestedAssets:     requested,
				CustodianBalance:    requested,
			}, FeeSchedule{YieldFeeBps: bps})
			require.NoError(t, err)
			require.False(t, split.TreasuryFee.Gt(split.Yield), "bps=%d extra=%d", bps, extra)
			sum := new(uint256.Int).Add(split.UserReceives, split.TreasuryFee)
			require.Equal(t, requested, sum)
		}
	}
}
