package config

import (
	"fmt"
	"strings"

	"lendcore/native/common"
	"lendcore/native/credit"
	"lendcore/native/params"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/storage"
)

// Validate rejects unusable storage settings and any engine parameters the
// parameter store would refuse.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case storage.BackendMemory:
	case storage.BackendLevelDB, storage.BackendBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("config: DataDir required for %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.SampleRatio %v outside [0, 1]", common.ErrParameterOutOfRange, c.Telemetry.SampleRatio)
	}
	_, err := c.Snapshot()
	return err
}

// Snapshot converts the engine sections into a validated parameter
// snapshot.
func (c *Config) Snapshot() (params.Snapshot, error) {
	base, err := common.ParseAmount(c.Credit.BaseCreditLimit)
	if err != nil {
		return params.Snapshot{}, fmt.Errorf("credit.BaseCreditLimit: %w", err)
	}
	rate, err := common.ParseAmount(c.XP.BaseRate)
	if err != nil {
		return params.Snapshot{}, fmt.Errorf("xp.BaseRate: %w", err)
	}
	table := xp.TierTable{BaseRate: rate, Tiers: make([]xp.Tier, 0, len(c.XP.Tiers))}
	for i, tier := range c.XP.Tiers {
		threshold, err := common.ParseAmount(tier.Threshold)
		if err != nil {
			return params.Snapshot{}, fmt.Errorf("xp.Tiers[%d].Threshold: %w", i, err)
		}
		table.Tiers = append(table.Tiers, xp.Tier{
			Threshold:  threshold,
			Multiplier: xp.Multiplier{Num: tier.Num, Den: tier.Den},
		})
	}
	snap := params.Snapshot{
		Credit: credit.Parameters{
			BaseCreditLimit:             base,
			InitialScore:                c.Credit.InitialScore,
			MinScore:                    c.Credit.MinScore,
			MaxScore:                    c.Credit.MaxScore,
			ScoreIncreasePerRepayment:   c.Credit.ScoreIncreasePerRepayment,
			ScoreDecreasePerLatePayment: c.Credit.ScoreDecreasePerLatePayment,
			CreditLimitMultiplier:       c.Credit.CreditLimitMultiplier,
		},
		XP: table,
		Fees: yield.FeeSchedule{
			YieldFeeBps:    c.Fees.YieldFeeBps,
			MerchantFeeBps: c.Fees.MerchantFeeBps,
		},
	}
	if err := snap.Validate(); err != nil {
		return params.Snapshot{}, err
	}
	return snap, nil
}

// ModulePauses returns the startup pause toggles in parameter store form.
func (c *Config) ModulePauses() params.Pauses {
	return params.Pauses{Yield: c.Pauses.Yield, XP: c.Pauses.XP, Credit: c.Pauses.Credit}
}
