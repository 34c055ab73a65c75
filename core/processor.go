package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	coreerrors "lendcore/core/errors"
	"lendcore/core/events"
	"lendcore/core/state"
	"lendcore/core/types"
	"lendcore/crypto"
	"lendcore/native/common"
	"lendcore/native/credit"
	"lendcore/native/params"
	paramsstate "lendcore/native/params/state"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/observability"
	"lendcore/observability/logging"
	lendotel "lendcore/observability/otel"
)

// Processor applies actions to account state. Actions on one account are
// serialised; actions on different accounts run in parallel. Every action
// reads one parameter snapshot and either commits all of its records in a
// single batch or leaves storage untouched.
type Processor struct {
	state     *state.Manager
	params    *params.Store
	clock     Clock
	custodian CustodianOracle
	pauses    common.PauseView
	emitter   events.Emitter
	metrics   *observability.EngineMetrics
	logger    *slog.Logger
	tracer    trace.Tracer
	counter   metric.Int64Counter
	locks     *accountLocks
}

// Option customises a Processor.
type Option func(*Processor)

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithCustodian sets the oracle consulted by withdrawals.
func WithCustodian(oracle CustodianOracle) Option {
	return func(p *Processor) { p.custodian = oracle }
}

// WithPauses overrides the module pause view. By default the toggles stored
// under the parameter store are consulted.
func WithPauses(view common.PauseView) Option {
	return func(p *Processor) {
		if view != nil {
			p.pauses = view
		}
	}
}

// WithEmitter forwards committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(p *Processor) {
		if emitter != nil {
			p.emitter = emitter
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(metrics *observability.EngineMetrics) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer overrides the tracer used for action spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewProcessor wires a processor over the supplied state manager.
func NewProcessor(manager *state.Manager, opts ...Option) *Processor {
	p := &Processor{
		state:   manager,
		params:  params.NewStore(manager),
		clock:   SystemClock{},
		pauses:  paramsstate.PauseView{Reader: manager},
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		tracer:  lendotel.Tracer(),
		locks:   newAccountLocks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if counter, err := lendotel.ActionCounter(); err == nil {
		p.counter = counter
	}
	return p
}

// execution carries the state of one action between its phases.
type execution struct {
	action   Action
	now      time.Time
	snap     params.Snapshot
	journal  *state.Journal
	recorder *events.Recorder

	entry      *xp.Entry
	profile    *credit.BorrowerProfile
	registered bool
	priorLimit *uint256.Int
	shortfall  *uint256.Int
	fees       [2]*uint256.Int
	xpMoved    map[string]*uint256.Int
}

// Apply executes action and returns its receipt. On error no state is
// written and no event is emitted.
func (p *Processor) Apply(ctx context.Context, action Action) (receipt *Receipt, err error) {
	if p == nil || p.state == nil {
		return nil, coreerrors.ErrProcessorClosed
	}
	if _, ok := actionModules[action.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", coreerrors.ErrUnknownAction, action.Type)
	}
	if action.Account.IsZero() {
		return nil, coreerrors.ErrInvalidAccount
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := p.tracer.Start(ctx, "lend."+string(action.Type),
		trace.WithAttributes(attribute.String("lend.action", string(action.Type))))
	started := time.Now()
	defer func() {
		p.metrics.ObserveAction(string(action.Type), err, time.Since(started))
		if p.counter != nil {
			p.counter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("action", string(action.Type)),
				attribute.Bool("ok", err == nil)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock := p.locks.lock(action.Account)
	defer unlock()

	receipt, exec, err := p.execute(ctx, action)
	if err != nil {
		p.logger.Info("lend: action rejected",
			slog.String("action", string(action.Type)),
			logging.MaskField("account", action.Account.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", action.Type, err)
	}
	p.afterCommit(exec, receipt)
	return receipt, nil
}

func (p *Processor) execute(ctx context.Context, action Action) (*Receipt, *execution, error) {
	if err := common.Guard(p.pauses, action.Type.Module()); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, action.Type.Module())
	}
	if action.Type.needsAmount() && common.IsZero(action.Amount) {
		return nil, nil, fmt.Errorf("%w: %s requires a positive amount", common.ErrInvalidAmount, action.Type)
	}
	snap, err := p.params.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	now := action.Now
	if now.IsZero() {
		now = p.clock.Now()
	}
	exec := &execution{
		action:   action,
		now:      now,
		snap:     snap,
		journal:  p.state.Begin(),
		recorder: &events.Recorder{},
		xpMoved:  make(map[string]*uint256.Int),
	}
	defer func() {
		// Commit closes the journal; anything left staged is dropped.
		exec.journal.Discard()
	}()

	if err := p.load(exec); err != nil {
		return nil, nil, err
	}
	if err := p.flushAccrual(exec); err != nil {
		return nil, nil, err
	}
	if err := p.dispatch(ctx, exec); err != nil {
		return nil, nil, err
	}
	if err := p.refreshLimit(exec); err != nil {
		return nil, nil, err
	}
	if err := exec.journal.SetXPEntry(action.Account, exec.entry); err != nil {
		return nil, nil, err
	}
	if exec.registered {
		if err := exec.journal.SetBorrowerProfile(action.Account, exec.profile); err != nil {
			return nil, nil, err
		}
	}
	digest, err := exec.journal.AccountDigest(action.Account)
	if err != nil {
		return nil, nil, err
	}
	if err := exec.journal.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return &Receipt{
		ID:        uuid.NewString(),
		Action:    action.Type,
		Account:   action.Account.String(),
		Timestamp: now,
		Events:    exec.recorder.Events(),
		Digest:    digest.Hex(),
	}, exec, nil
}

func (p *Processor) load(exec *execution) error {
	addr := exec.action.Account
	entry, err := exec.journal.XPEntry(addr)
	if err != nil {
		return err
	}
	exec.entry = entry
	profile, ok, err := exec.journal.BorrowerProfile(addr)
	if err != nil {
		return err
	}
	if ok {
		exec.profile = profile
		exec.registered = true
		exec.priorLimit = common.Clone(profile.Limit)
	}
	return nil
}

// flushAccrual settles XP up to now before the action runs.
func (p *Processor) flushAccrual(exec *execution) error {
	next, delta, err := xp.Accrue(exec.entry, exec.now)
	if err != nil {
		return err
	}
	exec.entry = next
	p.recordAccrual(exec, delta)
	return nil
}

func (p *Processor) recordAccrual(exec *execution, delta *uint256.Int) {
	if common.IsZero(delta) {
		return
	}
	exec.xpMoved["accrued"] = delta
	exec.recorder.Emit(events.XPAccrued{
		Account:   exec.action.Account,
		Delta:     delta,
		Unclaimed: common.Clone(exec.entry.Unclaimed),
	})
}

func (p *Processor) dispatch(ctx context.Context, exec *execution) error {
	switch exec.action.Type {
	case ActionRegister:
		return p.register(exec)
	case ActionDeposit:
		return p.deposit(exec)
	case ActionWithdraw:
		return p.withdraw(ctx, exec)
	case ActionRepay:
		return p.repay(exec)
	case ActionLate:
		return p.late(exec)
	case ActionSpend:
		return p.spend(exec)
	case ActionClaim:
		return p.claim(exec)
	case ActionAward, ActionBurn:
		return p.adjustXP(exec)
	case ActionPause, ActionUnpause:
		return p.setPaused(exec)
	default:
		return fmt.Errorf("%w: %q", coreerrors.ErrUnknownAction, exec.action.Type)
	}
}

func (p *Processor) register(exec *execution) error {
	if exec.registered {
		return credit.ErrBorrowerExists
	}
	profile, err := credit.NewProfile(exec.snap.Credit)
	if err != nil {
		return err
	}
	exec.profile = profile
	exec.registered = true
	exec.priorLimit = common.Clone(profile.Limit)
	exec.recorder.Emit(events.BorrowerRegistered{
		Account: exec.action.Account,
		Score:   profile.Score,
		Limit:   common.Clone(profile.Limit),
	})
	return nil
}

func (p *Processor) deposit(exec *execution) error {
	addr := exec.action.Account
	pos, _, err := exec.journal.LenderPosition(addr)
	if err != nil {
		return err
	}
	if pos.IsEmpty() {
		pos.Class = exec.action.Class
	}
	next, err := yield.ApplyDeposit(pos, exec.action.Amount, exec.now)
	if err != nil {
		return err
	}
	if err := p.changeDeposit(exec, next.Principal); err != nil {
		return err
	}
	if err := exec.journal.SetLenderPosition(addr, next); err != nil {
		return err
	}
	exec.recorder.Emit(events.LenderDeposited{
		Account:   addr,
		Amount:    common.Clone(exec.action.Amount),
		Principal: common.Clone(next.Principal),
		Class:     next.Class.String(),
	})
	return nil
}

func (p *Processor) withdraw(ctx context.Context, exec *execution) error {
	addr := exec.action.Account
	pos, _, err := exec.journal.LenderPosition(addr)
	if err != nil {
		return err
	}
	if pos.IsEmpty() {
		return yield.ErrNoPosition
	}
	balance, err := p.custodianBalance(ctx, exec.action)
	if err != nil {
		return err
	}
	requested := common.Clone(exec.action.Amount)
	proportional, err := yield.ProportionalDeposit(pos, requested, balance)
	if err != nil {
		return err
	}
	req := yield.WithdrawalRequest{
		Principal:           common.Clone(pos.Principal),
		ProportionalDeposit: proportional,
		RequestedAssets:     requested,
		CustodianBalance:    balance,
		Class:               pos.Class,
	}
	split, err := yield.ComputeWithdrawal(req, exec.snap.Fees)
	if err != nil {
		return err
	}
	next, err := yield.ApplyWithdrawal(pos, req, split)
	if err != nil {
		return err
	}
	if err := p.changeDeposit(exec, next.Principal); err != nil {
		return err
	}
	if err := exec.journal.SetLenderPosition(addr, next); err != nil {
		return err
	}
	if split.HasShortfall() {
		exec.shortfall = common.Clone(split.Shortfall)
		exec.recorder.Emit(events.YieldShortfall{
			Account:             addr,
			ProportionalDeposit: common.Clone(proportional),
			Requested:           common.Clone(requested),
			Shortfall:           common.Clone(split.Shortfall),
		})
	}
	exec.fees = [2]*uint256.Int{common.Clone(split.TreasuryFee), common.Clone(split.MerchantFee)}
	exec.recorder.Emit(events.LenderWithdrew{
		Account:      addr,
		Requested:    requested,
		Yield:        common.Clone(split.Yield),
		TreasuryFee:  common.Clone(split.TreasuryFee),
		MerchantFee:  common.Clone(split.MerchantFee),
		UserReceives: common.Clone(split.UserReceives),
		TotalPulled:  common.Clone(split.TotalPulledFromCustodian),
		Principal:    common.Clone(next.Principal),
	})
	return nil
}

func (p *Processor) custodianBalance(ctx context.Context, action Action) (*uint256.Int, error) {
	if action.CustodianBalance != nil {
		return common.Clone(action.CustodianBalance), nil
	}
	if p.custodian == nil {
		return nil, coreerrors.ErrCustodianUnavailable
	}
	balance, err := p.custodian.BalanceOf(ctx, action.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrCustodianUnavailable, err)
	}
	if balance == nil {
		return nil, coreerrors.ErrCustodianUnavailable
	}
	return common.Clone(balance), nil
}

// changeDeposit moves the XP entry onto the new principal. Accrual was
// already flushed, so the composite step only switches the rate.
func (p *Processor) changeDeposit(exec *execution, principal *uint256.Int) error {
	oldRate := common.Clone(exec.entry.Rate)
	next, flushed, err := xp.OnDepositChanged(exec.entry, principal, exec.now, exec.snap.XP)
	if err != nil {
		return err
	}
	exec.entry = next
	p.recordAccrual(exec, flushed)
	if !oldRate.Eq(next.Rate) {
		exec.recorder.Emit(events.XPRateChanged{
			Account: exec.action.Account,
			Deposit: common.Clone(next.DepositAmount),
			OldRate: oldRate,
			NewRate: common.Clone(next.Rate),
		})
	}
	return nil
}

func (p *Processor) borrower(exec *execution) (*credit.BorrowerProfile, error) {
	if !exec.registered {
		return nil, credit.ErrBorrowerNotFound
	}
	return exec.profile, nil
}

func (p *Processor) repay(exec *execution) error {
	profile, err := p.borrower(exec)
	if err != nil {
		return err
	}
	next, err := credit.Repay(profile, exec.action.Amount, exec.snap.Credit)
	if err != nil {
		return err
	}
	p.scoreChanged(exec, profile.Score, next.Score, events.ScoreReasonRepayment)
	exec.profile = next
	exec.recorder.Emit(events.CreditDebtChanged{
		Kind:    events.TypeCreditRepaid,
		Account: exec.action.Account,
		Amount:  common.Clone(exec.action.Amount),
		Debt:    common.Clone(next.Debt),
	})
	return nil
}

func (p *Processor) late(exec *execution) error {
	profile, err := p.borrower(exec)
	if err != nil {
		return err
	}
	next, err := credit.ReportLate(profile, exec.snap.Credit)
	if err != nil {
		return err
	}
	p.scoreChanged(exec, profile.Score, next.Score, events.ScoreReasonLatePayment)
	exec.profile = next
	return nil
}

func (p *Processor) scoreChanged(exec *execution, oldScore, newScore uint64, reason string) {
	if oldScore == newScore {
		return
	}
	exec.recorder.Emit(events.CreditScoreChanged{
		Account:  exec.action.Account,
		OldScore: oldScore,
		NewScore: newScore,
		Reason:   reason,
	})
}

func (p *Processor) spend(exec *execution) error {
	profile, err := p.borrower(exec)
	if err != nil {
		return err
	}
	next, err := credit.Spend(profile, exec.action.Amount, exec.snap.Credit)
	if err != nil {
		return err
	}
	exec.profile = next
	exec.recorder.Emit(events.CreditDebtChanged{
		Kind:    events.TypeCreditSpent,
		Account: exec.action.Account,
		Amount:  common.Clone(exec.action.Amount),
		Debt:    common.Clone(next.Debt),
	})
	return nil
}

func (p *Processor) setPaused(exec *execution) error {
	profile, err := p.borrower(exec)
	if err != nil {
		return err
	}
	paused := exec.action.Type == ActionPause
	next, err := credit.SetPaused(profile, paused)
	if err != nil {
		return err
	}
	exec.profile = next
	if profile.Paused != paused {
		exec.recorder.Emit(events.BorrowerPauseChanged{Account: exec.action.Account, Paused: paused})
	}
	return nil
}

func (p *Processor) claim(exec *execution) error {
	next, claimed, err := xp.Claim(exec.entry, exec.now)
	if err != nil {
		return err
	}
	exec.entry = next
	balance, err := xp.NewLedger(exec.journal).Credit(exec.action.Account, claimed)
	if err != nil {
		return err
	}
	exec.xpMoved["claimed"] = claimed
	exec.recorder.Emit(events.XPBalanceChanged{
		Kind:    events.TypeXPClaimed,
		Account: exec.action.Account,
		Amount:  common.Clone(claimed),
		Balance: balance,
	})
	return nil
}

func (p *Processor) adjustXP(exec *execution) error {
	ledger := xp.NewLedger(exec.journal)
	amount := common.Clone(exec.action.Amount)
	var (
		balance *uint256.Int
		err     error
		kind    = events.TypeXPAwarded
		label   = "awarded"
	)
	if exec.action.Type == ActionBurn {
		kind, label = events.TypeXPBurned, "burned"
		balance, err = ledger.Debit(exec.action.Account, amount)
	} else {
		balance, err = ledger.Credit(exec.action.Account, amount)
	}
	if err != nil {
		return err
	}
	exec.xpMoved[label] = amount
	exec.recorder.Emit(events.XPBalanceChanged{
		Kind:    kind,
		Account: exec.action.Account,
		Amount:  amount,
		Balance: balance,
	})
	return nil
}

// refreshLimit recomputes the cached limit from the score under the current
// snapshot. It runs after every action so parameter updates reach existing
// borrowers on their next action.
func (p *Processor) refreshLimit(exec *execution) error {
	if !exec.registered {
		return nil
	}
	next, err := credit.Refresh(exec.profile, exec.snap.Credit)
	if err != nil {
		return err
	}
	exec.profile = next
	if exec.priorLimit != nil && !exec.priorLimit.Eq(next.Limit) {
		exec.recorder.Emit(events.CreditLimitChanged{
			Account:  exec.action.Account,
			OldLimit: common.Clone(exec.priorLimit),
			NewLimit: common.Clone(next.Limit),
		})
	}
	return nil
}

// committedEvent re-wraps a rendered event for downstream emitters.
type committedEvent struct {
	payload *types.Event
}

func (c committedEvent) EventType() string { return c.payload.Type }
func (c committedEvent) Event() *types.Event { return c.payload }

func (p *Processor) afterCommit(exec *execution, receipt *Receipt) {
	for _, evt := range exec.recorder.Events() {
		p.emitter.Emit(committedEvent{evt})
	}
	if exec.shortfall != nil {
		p.metrics.RecordShortfall(exec.shortfall)
		p.logger.Warn("lend: custodian balance below principal",
			slog.String("action", string(exec.action.Type)),
			logging.MaskField("account", exec.action.Account.String()),
			slog.String("shortfall", exec.shortfall.Dec()),
			slog.String("receipt", receipt.ID))
	}
	p.metrics.RecordFee("treasury", exec.fees[0])
	p.metrics.RecordFee("merchant", exec.fees[1])
	for kind, amount := range exec.xpMoved {
		p.metrics.RecordXP(kind, amount)
	}
	p.logger.Info("lend: action applied",
		slog.String("action", string(exec.action.Type)),
		logging.MaskField("account", exec.action.Account.String()),
		slog.String("receipt", receipt.ID),
		slog.Int("events", len(receipt.Events)))
}

// UpdateParameters validates and stores a new parameter snapshot. A rejected
// snapshot leaves the current one in force. Existing borrower limits follow
// on their next action.
func (p *Processor) UpdateParameters(ctx context.Context, snap params.Snapshot) error {
	if p == nil || p.params == nil {
		return coreerrors.ErrProcessorClosed
	}
	_, span := p.tracer.Start(ctx, "lend.params.update")
	defer span.End()
	if err := p.params.Update(snap); err != nil {
		span.RecordError(err)
		return err
	}
	p.logger.Info("lend: parameters updated", slog.String("component", "params"))
	return nil
}

// SetModulePaused toggles an operator pause for module.
func (p *Processor) SetModulePaused(module string, paused bool) error {
	if p == nil || p.params == nil {
		return coreerrors.ErrProcessorClosed
	}
	current, err := p.params.Pauses()
	if err != nil {
		return err
	}
	switch module {
	case common.ModuleYield:
		current.Yield = paused
	case common.ModuleXP:
		current.XP = paused
	case common.ModuleCredit:
		current.Credit = paused
	default:
		return fmt.Errorf("%w: unknown module %q", common.ErrParameterOutOfRange, module)
	}
	if err := p.params.SetPauses(current); err != nil {
		return err
	}
	p.metrics.SetPaused(module, paused)
	p.logger.Info("lend: module pause changed", slog.String("module", module), slog.Bool("paused", paused))
	return nil
}

// Parameters returns the snapshot currently in force.
func (p *Processor) Parameters() (params.Snapshot, error) {
	return p.params.Snapshot()
}

// AccountView is a read-only projection of every record held for an
// account.
type AccountView struct {
	Account    string                  `json:"account"`
	Position   *yield.LenderPosition   `json:"position"`
	XP         *xp.Entry               `json:"xp"`
	PendingXP  *uint256.Int            `json:"pendingXp"`
	ClaimedXP  *uint256.Int            `json:"claimedXp"`
	Borrower   *credit.BorrowerProfile `json:"borrower,omitempty"`
	Registered bool                    `json:"registered"`
	Digest     string                  `json:"digest"`
}

// Account reads the committed records of addr. PendingXP previews what a
// claim at now would release without writing anything, and the borrower
// limit is evaluated against the parameters currently in force. A now
// earlier than the last accrual fails with xp.ErrClockRegression.
func (p *Processor) Account(addr crypto.Address, now time.Time) (*AccountView, error) {
	if p == nil || p.state == nil {
		return nil, coreerrors.ErrProcessorClosed
	}
	if now.IsZero() {
		now = p.clock.Now()
	}
	unlock := p.locks.lock(addr)
	defer unlock()

	view := p.state.Begin()
	defer view.Discard()
	pos, _, err := view.LenderPosition(addr)
	if err != nil {
		return nil, err
	}
	entry, err := view.XPEntry(addr)
	if err != nil {
		return nil, err
	}
	preview, _, err := xp.Accrue(entry, now)
	if err != nil {
		return nil, err
	}
	pending := preview.Unclaimed
	claimed, err := view.XPBalance(addr)
	if err != nil {
		return nil, err
	}
	profile, registered, err := view.BorrowerProfile(addr)
	if err != nil {
		return nil, err
	}
	if registered {
		snap, err := p.params.Snapshot()
		if err != nil {
			return nil, err
		}
		// The stored limit may predate the last parameter update.
		if profile, err = credit.Refresh(profile, snap.Credit); err != nil {
			return nil, err
		}
	}
	digest, err := view.AccountDigest(addr)
	if err != nil {
		return nil, err
	}
	return &AccountView{
		Account:    addr.String(),
		Position:   pos,
		XP:         entry,
		PendingXP:  pending,
		ClaimedXP:  claimed,
		Borrower:   profile,
		Registered: registered,
		Digest:     digest.Hex(),
	}, nil
}
