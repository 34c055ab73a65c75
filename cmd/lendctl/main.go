package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"lendcore/config"
	"lendcore/core"
	"lendcore/core/state"
	"lendcore/crypto"
	"lendcore/native/common"
	"lendcore/native/yield"
	"lendcore/observability"
	"lendcore/observability/logging"
	lendotel "lendcore/observability/otel"
	"lendcore/storage"
)

const (
	defaultConfig     = "./lend.toml"
	showCommand       = "show"
	paramsCommand     = "params"
	initParamsCommand = "init-params"
	pauseModule       = "pause-module"
	resumeModule      = "resume-module"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]
	var err error
	switch command {
	case showCommand:
		err = runShow(os.Args[2:])
	case paramsCommand:
		err = runParams(os.Args[2:])
	case initParamsCommand:
		err = runInitParams(os.Args[2:])
	case pauseModule, resumeModule:
		err = runModulePause(command, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		action, parseErr := core.ParseActionType(command)
		if parseErr != nil {
			usage()
			os.Exit(1)
		}
		err = runAction(action, os.Args[2:])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lendctl <command> [flags]

Actions:
  register | deposit | withdraw | repay | late | spend
  claim | award | burn | pause | unpause

Other commands:
  %s           print every record held for an account
  %s         print the parameter snapshot in force
  %s    store the engine sections and pauses from the config file
  %s   halt a module (yield, xp, credit)
  %s  resume a module

Run "lendctl <command> -h" for flags.
`, showCommand, paramsCommand, initParamsCommand, pauseModule, resumeModule)
}

type session struct {
	cfg      *config.Config
	db       storage.Database
	proc     *core.Processor
	shutdown func(context.Context) error
	logger   *slog.Logger
}

func (r *session) Close() {
	if r.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.shutdown(ctx); err != nil {
			r.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("close storage failed", slog.Any("error", err))
		}
	}
}

func open(configPath string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	opts := logging.Options{Level: logging.ParseLevel(cfg.Logging.Level)}
	if strings.TrimSpace(cfg.Logging.File) != "" {
		opts.File = &logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	} else {
		// Receipts go to stdout; keep it clean.
		opts.Output = os.Stderr
	}
	logger := logging.SetupWithOptions(cfg.Service, cfg.Environment, opts)

	rt := &session{cfg: cfg, logger: logger}
	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		headers := lendotel.ParseHeaders(cfg.Telemetry.Headers)
		shutdown, err := lendotel.Init(context.Background(), lendotel.Config{
			ServiceName: cfg.Service,
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     headers,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		rt.shutdown = shutdown
		logger.Debug("telemetry enabled",
			slog.String("component", "otel"),
			logging.MaskField("headers", cfg.Telemetry.Headers))
	}

	db, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	rt.db = db
	logger.Debug("storage opened", slog.String("backend", cfg.Backend))
	rt.proc = core.NewProcessor(state.NewManager(db),
		core.WithLogger(logger),
		core.WithMetrics(observability.Engine()),
	)
	return rt, nil
}

func resolveAccount(value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("-account is required")
	}
	if strings.HasPrefix(trimmed, string(crypto.AccountPrefix)+"1") {
		return crypto.DecodeAddress(trimmed)
	}
	// Anything else is treated as a label.
	return crypto.DeriveAddress(trimmed), nil
}

func parseOptionalAmount(value string) (*uint256.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return common.ParseAmount(value)
}

func parseNow(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAction(actionType core.ActionType, args []string) error {
	fs := flag.NewFlagSet(string(actionType), flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the lendctl config file (.toml or .yaml)")
	account := fs.String("account", "", "Account address (lend1...) or a label to derive one from")
	amount := fs.String("amount", "", "Amount as a decimal token string, e.g. 1049.5")
	class := fs.String("class", "standard", "Account class for a first deposit: standard or merchant")
	custodian := fs.String("custodian-balance", "", "Custodian balance for withdrawals; defaults to the recorded shares")
	nowFlag := fs.String("now", "", "Override the action time (RFC3339)")
	fs.Parse(args)

	addr, err := resolveAccount(*account)
	if err != nil {
		return err
	}
	amt, err := parseOptionalAmount(*amount)
	if err != nil {
		return err
	}
	cls, err := yield.ParseAccountClass(*class)
	if err != nil {
		return err
	}
	balance, err := parseOptionalAmount(*custodian)
	if err != nil {
		return err
	}
	now, err := parseNow(*nowFlag)
	if err != nil {
		return err
	}

	rt, err := open(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if actionType == core.ActionWithdraw && balance == nil {
		view, err := rt.proc.Account(addr, now)
		if err != nil {
			return err
		}
		balance = view.Position.CustodianShares
	}
	receipt, err := rt.proc.Apply(context.Background(), core.Action{
		Type:             actionType,
		Account:          addr,
		Amount:           amt,
		Class:            cls,
		CustodianBalance: balance,
		Now:              now,
	})
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func runShow(args []string) error {
	fs := flag.NewFlagSet(showCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the lendctl config file (.toml or .yaml)")
	account := fs.String("account", "", "Account address (lend1...) or a label to derive one from")
	nowFlag := fs.String("now", "", "Preview pending XP at this time (RFC3339)")
	fs.Parse(args)

	addr, err := resolveAccount(*account)
	if err != nil {
		return err
	}
	now, err := parseNow(*nowFlag)
	if err != nil {
		return err
	}
	rt, err := open(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	view, err := rt.proc.Account(addr, now)
	if err != nil {
		return err
	}
	return printJSON(view)
}

func runParams(args []string) error {
	fs := flag.NewFlagSet(paramsCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the lendctl config file (.toml or .yaml)")
	fs.Parse(args)

	rt, err := open(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.proc.Parameters()
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func runInitParams(args []string) error {
	fs := flag.NewFlagSet(initParamsCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the lendctl config file (.toml or .yaml)")
	fs.Parse(args)

	rt, err := open(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.cfg.Snapshot()
	if err != nil {
		return err
	}
	if err := rt.proc.UpdateParameters(context.Background(), snap); err != nil {
		return err
	}
	pauses := rt.cfg.ModulePauses()
	for module, paused := range map[string]bool{
		common.ModuleYield:  pauses.Yield,
		common.ModuleXP:     pauses.XP,
		common.ModuleCredit: pauses.Credit,
	} {
		if err := rt.proc.SetModulePaused(module, paused); err != nil {
			return err
		}
	}
	return printJSON(snap)
}

func runModulePause(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the lendctl config file (.toml or .yaml)")
	module := fs.String("module", "", "Module to toggle: yield, xp or credit")
	fs.Parse(args)

	rt, err := open(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.proc.SetModulePaused(strings.ToLower(strings.TrimSpace(*module)), command == pauseModule)
}
