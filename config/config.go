package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"lendcore/native/common"
	"lendcore/native/params"
	"lendcore/storage"
)

type Config struct {
	Service     string    `toml:"Service" yaml:"service"`
	Environment string    `toml:"Environment" yaml:"environment"`
	DataDir     string    `toml:"DataDir" yaml:"dataDir"`
	Backend     string    `toml:"Backend" yaml:"backend"`
	Logging     Logging   `toml:"logging" yaml:"logging"`
	Credit      Credit    `toml:"credit" yaml:"credit"`
	XP          XP        `toml:"xp" yaml:"xp"`
	Fees        Fees      `toml:"fees" yaml:"fees"`
	Pauses      Pauses    `toml:"pauses" yaml:"pauses"`
	Telemetry   Telemetry `toml:"telemetry" yaml:"telemetry"`
}

// Default returns the launch configuration.
func Default() *Config {
	snap := params.DefaultSnapshot()
	cfg := &Config{
		Service:     "lendcore",
		Environment: "local",
		DataDir:     "./lend-data",
		Backend:     storage.BackendLevelDB,
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Credit: Credit{
			BaseCreditLimit:             common.FormatAmount(snap.Credit.BaseCreditLimit),
			InitialScore:                snap.Credit.InitialScore,
			MinScore:                    snap.Credit.MinScore,
			MaxScore:                    snap.Credit.MaxScore,
			ScoreIncreasePerRepayment:   snap.Credit.ScoreIncreasePerRepayment,
			ScoreDecreasePerLatePayment: snap.Credit.ScoreDecreasePerLatePayment,
			CreditLimitMultiplier:       snap.Credit.CreditLimitMultiplier,
		},
		XP: XP{
			BaseRate: common.FormatAmount(snap.XP.BaseRate),
			Tiers:    make([]Tier, 0, len(snap.XP.Tiers)),
		},
		Fees: Fees{
			YieldFeeBps:    snap.Fees.YieldFeeBps,
			MerchantFeeBps: snap.Fees.MerchantFeeBps,
		},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4318",
			SampleRatio: 1,
		},
	}
	for _, tier := range snap.XP.Tiers {
		cfg.XP.Tiers = append(cfg.XP.Tiers, Tier{
			Threshold: common.FormatAmount(tier.Threshold),
			Num:       tier.Multiplier.Num,
			Den:       tier.Multiplier.Den,
		})
	}
	return cfg
}

// Load loads the configuration from the given path. The format follows the
// extension: .toml, .yaml or .yml. A missing file is created with defaults.
// Keys the schema does not know are rejected.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	switch format(path) {
	case "toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
		}
	case "yaml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config file %s: unsupported extension", path)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Service = strings.TrimSpace(c.Service)
	if c.Service == "" {
		c.Service = "lendcore"
	}
	c.Environment = strings.TrimSpace(c.Environment)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = storage.BackendLevelDB
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format implied by the extension.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	kind := format(path)
	if kind == "" {
		return fmt.Errorf("config file %s: unsupported extension", path)
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if kind == "yaml" {
		encoder := yaml.NewEncoder(f)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	}
	return toml.NewEncoder(f).Encode(cfg)
}
