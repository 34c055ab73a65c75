package config

// Logging selects the log level and an optional rotated log file.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `toml:"Compress" yaml:"compress"`
}

// Credit mirrors credit.Parameters with the base limit as a decimal token
// string.
type Credit struct {
	BaseCreditLimit             string `toml:"BaseCreditLimit" yaml:"baseCreditLimit"`
	InitialScore                uint64 `toml:"InitialScore" yaml:"initialScore"`
	MinScore                    uint64 `toml:"MinScore" yaml:"minScore"`
	MaxScore                    uint64 `toml:"MaxScore" yaml:"maxScore"`
	ScoreIncreasePerRepayment   uint64 `toml:"ScoreIncreasePerRepayment" yaml:"scoreIncreasePerRepayment"`
	ScoreDecreasePerLatePayment uint64 `toml:"ScoreDecreasePerLatePayment" yaml:"scoreDecreasePerLatePayment"`
	CreditLimitMultiplier       uint64 `toml:"CreditLimitMultiplier" yaml:"creditLimitMultiplier"`
}

// Tier is one XP band. Threshold is a decimal token amount; the multiplier
// is Num/Den.
type Tier struct {
	Threshold string `toml:"Threshold" yaml:"threshold"`
	Num       uint64 `toml:"Num" yaml:"num"`
	Den       uint64 `toml:"Den" yaml:"den"`
}

// XP configures the accrual tier table. BaseRate is XP per second per whole
// deposited unit, as a decimal token string.
type XP struct {
	BaseRate string `toml:"BaseRate" yaml:"baseRate"`
	Tiers    []Tier `toml:"Tiers" yaml:"tiers"`
}

// Fees holds the withdrawal fee schedule in basis points.
type Fees struct {
	YieldFeeBps    uint64 `toml:"YieldFeeBps" yaml:"yieldFeeBps"`
	MerchantFeeBps uint64 `toml:"MerchantFeeBps" yaml:"merchantFeeBps"`
}

// Pauses are the operator module switches applied at startup.
type Pauses struct {
	Yield  bool `toml:"Yield" yaml:"yield"`
	XP     bool `toml:"XP" yaml:"xp"`
	Credit bool `toml:"Credit" yaml:"credit"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Headers     string  `toml:"Headers" yaml:"headers"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sampleRatio"`
}
