package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"lendcore/core/events"
	"lendcore/core/state"
	"lendcore/core/types"
	"lendcore/crypto"
	"lendcore/native/common"
	"lendcore/native/credit"
	"lendcore/native/xp"
	"lendcore/native/yield"
	"lendcore/storage"
)

var t0 = time.Unix(1_700_000_000, 0).UTC()

type harness struct {
	proc     *Processor
	manager  *state.Manager
	recorder *events.Recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	rec := &events.Recorder{}
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return t0 })),
		WithEmitter(rec),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	}
	return &harness{
		proc:     NewProcessor(manager, append(base, opts...)...),
		manager:  manager,
		recorder: rec,
	}
}

func (h *harness) apply(t *testing.T, action Action) *Receipt {
	t.Helper()
	receipt, err := h.proc.Apply(context.Background(), action)
	require.NoError(t, err)
	return receipt
}

func findEvent(evts []*types.Event, kind string) *types.Event {
	for _, evt := range evts {
		if evt.Type == kind {
			return evt
		}
	}
	return nil
}

func TestDepositWithdrawSplitsYield(t *testing.T) {
	h := newHarness(t)
	alice := crypto.DeriveAddress("alice")

	dep := h.apply(t, Action{Type: ActionDeposit, Account: alice, Amount: common.Units(1000), Now: t0})
	require.NotEmpty(t, dep.ID)
	require.Equal(t, alice.String(), dep.Account)
	require.NotNil(t, findEvent(dep.Events, events.TypeLenderDeposited))
	require.NotNil(t, findEvent(dep.Events, events.TypeXPRateChanged))

	later := t0.Add(24 * time.Hour)
	wd := h.apply(t, Action{
		Type:             ActionWithdraw,
		Account:          alice,
		Amount:           common.Units(1050),
		CustodianBalance: common.Units(1050),
		Now:              later,
	})
	split := findEvent(wd.Events, events.TypeLenderWithdrew)
	require.NotNil(t, split)
	half := new(uint256.Int).Div(common.Units(1), uint256.NewInt(2))
	require.Equal(t, half.Dec(), split.Attr("treasury_fee"))
	expectedUser, err := common.Sub(common.Units(1050), half)
	require.NoError(t, err)
	require.Equal(t, expectedUser.Dec(), split.Attr("user_receives"))
	require.Equal(t, "0", split.Attr("principal"))
	require.Nil(t, findEvent(wd.Events, events.TypeYieldShortfall))

	// A full day at the 1,000-unit tier is flushed before the rate drops.
	rate, err := xp.DefaultTierTable().Rate(common.Units(1000))
	require.NoError(t, err)
	expectedXP := new(uint256.Int).Mul(rate, uint256.NewInt(86_400*1000))
	accrued := findEvent(wd.Events, events.TypeXPAccrued)
	require.NotNil(t, accrued)
	require.Equal(t, expectedXP.Dec(), accrued.Attr("delta"))

	view, err := h.proc.Account(alice, later)
	require.NoError(t, err)
	require.True(t, view.Position.IsEmpty())
	require.Equal(t, xp.StateInactive, view.XP.State())
	require.Equal(t, expectedXP, view.PendingXP)
	require.Equal(t, wd.Digest, view.Digest)
}

func TestMerchantWithdrawalChargesFlatFee(t *testing.T) {
	h := newHarness(t)
	shop := crypto.DeriveAddress("shop")
	h.apply(t, Action{Type: ActionDeposit, Account: shop, Amount: common.Units(1000), Class: yield.ClassMerchant})

	wd := h.apply(t, Action{Type: ActionWithdraw, Account: shop, Amount: common.Units(1050), CustodianBalance: common.Units(1050)})
	split := findEvent(wd.Events, events.TypeLenderWithdrew)
	require.NotNil(t, split)
	merchantFee, err := common.ApplyBps(common.Units(1050), 50)
	require.NoError(t, err)
	require.Equal(t, merchantFee.Dec(), split.Attr("merchant_fee"))
}

func TestWithdrawalShortfallIsSurfaced(t *testing.T) {
	h := newHarness(t)
	bob := crypto.DeriveAddress("bob")
	h.apply(t, Action{Type: ActionDeposit, Account: bob, Amount: common.Units(1000)})

	wd := h.apply(t, Action{Type: ActionWithdraw, Account: bob, Amount: common.Units(900), CustodianBalance: common.Units(900)})
	shortfall := findEvent(wd.Events, events.TypeYieldShortfall)
	require.NotNil(t, shortfall)
	require.Equal(t, common.Units(100).Dec(), shortfall.Attr("shortfall"))
	split := findEvent(wd.Events, events.TypeLenderWithdrew)
	require.Equal(t, "0", split.Attr("treasury_fee"))
	require.Equal(t, common.Units(900).Dec(), split.Attr("user_receives"))
}

func TestWithdrawUsesCustodianOracle(t *testing.T) {
	calls := 0
	oracle := CustodianFunc(func(_ context.Context, _ crypto.Address) (*uint256.Int, error) {
		calls++
		return common.Units(2000), nil
	})
	h := newHarness(t, WithCustodian(oracle))
	carol := crypto.DeriveAddress("carol")
	h.apply(t, Action{Type: ActionDeposit, Account: carol, Amount: common.Units(1000)})

	wd := h.apply(t, Action{Type: ActionWithdraw, Account: carol, Amount: common.Units(1000)})
	require.Equal(t, 1, calls)
	split := findEvent(wd.Events, events.TypeLenderWithdrew)
	require.Equal(t, common.Units(500).Dec(), split.Attr("yield"))
	require.Equal(t, common.Units(500).Dec(), split.Attr("principal"))

	noOracle := newHarness(t)
	noOracle.apply(t, Action{Type: ActionDeposit, Account: carol, Amount: common.Units(1)})
	_, err := noOracle.proc.Apply(context.Background(), Action{Type: ActionWithdraw, Account: carol, Amount: common.Units(1)})
	require.Error(t, err)
}

func TestRejectedActionLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	dave := crypto.DeriveAddress("dave")
	h.apply(t, Action{Type: ActionRegister, Account: dave})
	h.apply(t, Action{Type: ActionSpend, Account: dave, Amount: common.Units(100)})
	before, err := h.proc.Account(dave, t0)
	require.NoError(t, err)
	emitted := len(h.recorder.Events())

	_, err = h.proc.Apply(context.Background(), Action{Type: ActionSpend, Account: dave, Amount: common.Units(1)})
	require.ErrorIs(t, err, credit.ErrCreditLimitExceeded)

	after, err := h.proc.Account(dave, t0)
	require.NoError(t, err)
	require.Equal(t, before.Digest, after.Digest)
	require.Len(t, h.recorder.Events(), emitted)
}

func TestCreditLifecycleRecomputesLimit(t *testing.T) {
	h := newHarness(t)
	erin := crypto.DeriveAddress("erin")
	reg := h.apply(t, Action{Type: ActionRegister, Account: erin})
	registered := findEvent(reg.Events, events.TypeBorrowerRegistered)
	require.Equal(t, "500", registered.Attr("score"))
	require.Equal(t, common.Units(100).Dec(), registered.Attr("limit"))

	_, err := h.proc.Apply(context.Background(), Action{Type: ActionRegister, Account: erin})
	require.ErrorIs(t, err, credit.ErrBorrowerExists)

	snap, err := h.proc.Parameters()
	require.NoError(t, err)
	snap.Credit.ScoreIncreasePerRepayment = 220
	require.NoError(t, h.proc.UpdateParameters(context.Background(), snap))

	h.apply(t, Action{Type: ActionSpend, Account: erin, Amount: common.Units(10)})
	repaid := h.apply(t, Action{Type: ActionRepay, Account: erin, Amount: common.Units(10)})
	score := findEvent(repaid.Events, events.TypeCreditScoreChanged)
	require.NotNil(t, score)
	require.Equal(t, "720", score.Attr("new_score"))
	limit := findEvent(repaid.Events, events.TypeCreditLimitChanged)
	require.NotNil(t, limit)
	require.Equal(t, common.Units(104).Dec(), limit.Attr("new_limit"))

	late := h.apply(t, Action{Type: ActionLate, Account: erin})
	require.Equal(t, "670", findEvent(late.Events, events.TypeCreditScoreChanged).Attr("new_score"))

	_, err = h.proc.Apply(context.Background(), Action{Type: ActionRepay, Account: erin, Amount: common.Units(1)})
	require.ErrorIs(t, err, credit.ErrRepaymentExceedsDebt)

	_, err = h.proc.Apply(context.Background(), Action{Type: ActionLate, Account: crypto.DeriveAddress("stranger")})
	require.ErrorIs(t, err, credit.ErrBorrowerNotFound)
}

func TestParameterUpdateReachesExistingBorrowers(t *testing.T) {
	h := newHarness(t)
	fay := crypto.DeriveAddress("fay")
	h.apply(t, Action{Type: ActionRegister, Account: fay})

	snap, err := h.proc.Parameters()
	require.NoError(t, err)
	snap.Credit.BaseCreditLimit = common.Units(200)
	require.NoError(t, h.proc.UpdateParameters(context.Background(), snap))

	view, err := h.proc.Account(fay, t0)
	require.NoError(t, err)
	want, err := credit.LimitFor(view.Borrower.Score, snap.Credit)
	require.NoError(t, err)
	require.Equal(t, want, view.Borrower.Limit)
	require.Equal(t, common.Units(200), view.Borrower.Limit)

	receipt := h.apply(t, Action{Type: ActionUnpause, Account: fay})
	limit := findEvent(receipt.Events, events.TypeCreditLimitChanged)
	require.NotNil(t, limit)
	require.Equal(t, common.Units(200).Dec(), limit.Attr("new_limit"))
}

func TestRejectedParameterUpdateKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	snap, err := h.proc.Parameters()
	require.NoError(t, err)
	snap.Credit.MinScore = 900
	snap.Fees.YieldFeeBps = 500
	err = h.proc.UpdateParameters(context.Background(), snap)
	require.ErrorIs(t, err, common.ErrParameterOutOfRange)

	current, err := h.proc.Parameters()
	require.NoError(t, err)
	require.Equal(t, uint64(300), current.Credit.MinScore)
	require.Equal(t, uint64(100), current.Fees.YieldFeeBps)
}

func TestPausedBorrowerCannotSpend(t *testing.T) {
	h := newHarness(t)
	gus := crypto.DeriveAddress("gus")
	h.apply(t, Action{Type: ActionRegister, Account: gus})
	paused := h.apply(t, Action{Type: ActionPause, Account: gus})
	require.Equal(t, "true", findEvent(paused.Events, events.TypeBorrowerPauseChanged).Attr("paused"))

	_, err := h.proc.Apply(context.Background(), Action{Type: ActionSpend, Account: gus, Amount: common.Units(1)})
	require.ErrorIs(t, err, credit.ErrBorrowerPaused)

	h.apply(t, Action{Type: ActionUnpause, Account: gus})
	h.apply(t, Action{Type: ActionSpend, Account: gus, Amount: common.Units(1)})
}

func TestClaimIsIdempotentAtSameInstant(t *testing.T) {
	h := newHarness(t)
	hal := crypto.DeriveAddress("hal")
	h.apply(t, Action{Type: ActionDeposit, Account: hal, Amount: common.Units(100), Now: t0})

	at := t0.Add(time.Hour)
	first := h.apply(t, Action{Type: ActionClaim, Account: hal, Now: at})
	claimed := findEvent(first.Events, events.TypeXPClaimed)
	require.NotNil(t, claimed)
	require.NotEqual(t, "0", claimed.Attr("amount"))
	require.Equal(t, claimed.Attr("amount"), claimed.Attr("balance"))

	second := h.apply(t, Action{Type: ActionClaim, Account: hal, Now: at})
	again := findEvent(second.Events, events.TypeXPClaimed)
	require.Equal(t, "0", again.Attr("amount"))
	require.Equal(t, claimed.Attr("balance"), again.Attr("balance"))
}

func TestClockRegressionIsFatal(t *testing.T) {
	h := newHarness(t)
	ivy := crypto.DeriveAddress("ivy")
	h.apply(t, Action{Type: ActionDeposit, Account: ivy, Amount: common.Units(10), Now: t0})
	before, err := h.proc.Account(ivy, t0)
	require.NoError(t, err)

	_, err = h.proc.Apply(context.Background(), Action{Type: ActionDeposit, Account: ivy, Amount: common.Units(10), Now: t0.Add(-time.Second)})
	require.ErrorIs(t, err, xp.ErrClockRegression)

	after, err := h.proc.Account(ivy, t0)
	require.NoError(t, err)
	require.Equal(t, before.Digest, after.Digest)
}

func TestAccountViewRejectsClockRegression(t *testing.T) {
	h := newHarness(t)
	lou := crypto.DeriveAddress("lou")
	h.apply(t, Action{Type: ActionDeposit, Account: lou, Amount: common.Units(10), Now: t0.Add(time.Hour)})

	_, err := h.proc.Account(lou, t0)
	require.ErrorIs(t, err, xp.ErrClockRegression)

	view, err := h.proc.Account(lou, t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, view.PendingXP.IsZero())
}

func TestAwardAndBurnUseLedger(t *testing.T) {
	h := newHarness(t)
	jo := crypto.DeriveAddress("jo")
	awarded := h.apply(t, Action{Type: ActionAward, Account: jo, Amount: uint256.NewInt(500)})
	require.Equal(t, "500", findEvent(awarded.Events, events.TypeXPAwarded).Attr("balance"))

	burned := h.apply(t, Action{Type: ActionBurn, Account: jo, Amount: uint256.NewInt(200)})
	require.Equal(t, "300", findEvent(burned.Events, events.TypeXPBurned).Attr("balance"))

	_, err := h.proc.Apply(context.Background(), Action{Type: ActionBurn, Account: jo, Amount: uint256.NewInt(301)})
	require.ErrorIs(t, err, xp.ErrInsufficientXP)

	view, err := h.proc.Account(jo, t0)
	require.NoError(t, err)
	require.Equal(t, uint64(300), view.ClaimedXP.Uint64())
}

func TestModulePauseBlocksActions(t *testing.T) {
	h := newHarness(t)
	kim := crypto.DeriveAddress("kim")
	require.NoError(t, h.proc.SetModulePaused(common.ModuleYield, true))

	_, err := h.proc.Apply(context.Background(), Action{Type: ActionDeposit, Account: kim, Amount: common.Units(1)})
	require.ErrorIs(t, err, common.ErrModulePaused)
	h.apply(t, Action{Type: ActionRegister, Account: kim})

	require.NoError(t, h.proc.SetModulePaused(common.ModuleYield, false))
	h.apply(t, Action{Type: ActionDeposit, Account: kim, Amount: common.Units(1)})

	require.Error(t, h.proc.SetModulePaused("bogus", true))
}

func TestStaticPauseViewOverride(t *testing.T) {
	h := newHarness(t, WithPauses(common.PauseSet{common.ModuleXP: true}))
	_, err := h.proc.Apply(context.Background(), Action{Type: ActionClaim, Account: crypto.DeriveAddress("lee")})
	require.ErrorIs(t, err, common.ErrModulePaused)
}

func TestApplyValidatesInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.proc.Apply(context.Background(), Action{Type: "teleport", Account: crypto.DeriveAddress("x")})
	require.Error(t, err)
	_, err = h.proc.Apply(context.Background(), Action{Type: ActionDeposit})
	require.Error(t, err)
	_, err = h.proc.Apply(context.Background(), Action{Type: ActionDeposit, Account: crypto.DeriveAddress("x")})
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

type brokenBatchDB struct {
	*storage.MemDB
	fail bool
}

func (db *brokenBatchDB) WriteBatch(writes []storage.Write) error {
	if db.fail {
		return errors.New("disk full")
	}
	return db.MemDB.WriteBatch(writes)
}

func TestCommitFailureEmitsNothing(t *testing.T) {
	db := &brokenBatchDB{MemDB: storage.NewMemDB()}
	rec := &events.Recorder{}
	proc := NewProcessor(state.NewManager(db),
		WithEmitter(rec),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	mo := crypto.DeriveAddress("mo")

	db.fail = true
	_, err := proc.Apply(context.Background(), Action{Type: ActionRegister, Account: mo, Now: t0})
	require.Error(t, err)
	require.Empty(t, rec.Events())
	require.Equal(t, 0, db.Len())

	db.fail = false
	_, err = proc.Apply(context.Background(), Action{Type: ActionRegister, Account: mo, Now: t0})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Events())
}

func TestConcurrentDepositsSerialisePerAccount(t *testing.T) {
	h := newHarness(t)
	nia := crypto.DeriveAddress("nia")
	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.proc.Apply(context.Background(), Action{Type: ActionDeposit, Account: nia, Amount: common.Units(1), Now: t0})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := h.proc.Account(nia, t0)
	require.NoError(t, err)
	require.Equal(t, common.Units(workers), view.Position.Principal)
	require.Equal(t, 0, h.proc.locks.size())
}
