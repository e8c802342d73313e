package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/amqp"
	"finwise/internal/auth"
	"finwise/internal/cache"
	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/ports"
	"finwise/internal/storage/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []amqp.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg amqp.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.EventType()
	}
	return out
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Format: "text", Output: &bytes.Buffer{}})
}

type fixture struct {
	store   *memory.Store
	budgets *BudgetService
	ledger  *LedgerService
	pub     *fakePublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	budgets := NewBudgetService(store, core.DefaultThresholds(), quietLogger())
	ledger := NewLedgerService(store, budgets, quietLogger(),
		WithPublisher(pub),
		WithReportCache(cache.NewLRUCache[core.Report](16, time.Minute)))
	return fixture{store: store, budgets: budgets, ledger: ledger, pub: pub}
}

func input(amount, category, kind string) core.TransactionInput {
	return core.TransactionInput{Amount: core.MustAmount(amount), Category: category, Kind: kind}
}

type brokenBudgets struct {
	*memory.Store
}

func (brokenBudgets) ListBudgets(context.Context, int64) ([]core.CategoryLimit, error) {
	return nil, errors.New("budget table unavailable")
}

func TestRecordKeepsSavedTransactionWhenBudgetCheckFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	budgets := NewBudgetService(brokenBudgets{store}, core.DefaultThresholds(), quietLogger())
	ledger := NewLedgerService(store, budgets, quietLogger(), WithPublisher(pub))

	res, err := ledger.Record(ctx, 1, input("30", "food", "expense"))
	if err != nil {
		t.Fatalf("Record returned %v after the transaction was saved", err)
	}
	if res.Budget != nil {
		t.Fatalf("Budget = %+v, want nil", res.Budget)
	}
	if res.Transaction.ID == 0 || res.Transaction.Category != "food" {
		t.Fatalf("unexpected transaction: %+v", res.Transaction)
	}

	txns, err := ledger.Transactions(ctx, 1)
	if err != nil || len(txns) != 1 || txns[0].ID != res.Transaction.ID {
		t.Fatalf("ledger = %v, %v", txns, err)
	}
	if got := pub.types(); len(got) != 1 || got[0] != amqp.EventTransactionRecorded {
		t.Fatalf("published %v", got)
	}
}

func TestLedgerRecordScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.budgets.Set(ctx, 1, "food", core.MustAmount("200")); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	steps := []struct {
		in   core.TransactionInput
		want core.Status
	}{
		{input("100", "salary", "Income"), ""},
		{input("40", "food", "expense"), core.WithinBudget},
		{input("20", "food", "EXPENSE"), core.WithinBudget},
		{input("15", "transport", "expense"), core.Unmonitored},
		{input("125", "food", "expense"), core.NearBudget},
		{input("30", "food", "expense"), core.OverBudget},
	}
	for i, step := range steps {
		res, err := f.ledger.Record(ctx, 1, step.in)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if step.want == "" {
			if res.Budget != nil {
				t.Fatalf("step %d: income must not be budget-checked", i)
			}
			continue
		}
		if res.Budget == nil || res.Budget.Status != step.want {
			t.Fatalf("step %d: status = %+v, want %s", i, res.Budget, step.want)
		}
	}

	report, err := f.ledger.Report(ctx, 1)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !report.TotalExpenses.Equal(core.MustAmount("230")) || !report.NetSavings.Equal(decimal.NewFromInt(-130)) {
		t.Fatalf("unexpected report: %+v", report)
	}

	types := f.pub.types()
	alerts := 0
	for _, ty := range types {
		if ty == amqp.EventBudgetAlert {
			alerts++
		}
	}
	if len(types) != 8 || alerts != 2 {
		t.Fatalf("events = %v", types)
	}
	last := f.pub.msgs[len(f.pub.msgs)-1].(*amqp.BudgetAlertMessage)
	if last.Status != "over_budget" || !last.Overage.Equal(core.MustAmount("15")) {
		t.Fatalf("unexpected alert: %+v", last)
	}
}

func TestLedgerRecordValidation(t *testing.T) {
	f := newFixture(t)
	cases := []core.TransactionInput{
		{Amount: decimal.Zero, Category: "food", Kind: "expense"},
		{Amount: decimal.NewFromInt(-5), Category: "food", Kind: "expense"},
		{Amount: decimal.NewFromInt(5), Category: "  ", Kind: "expense"},
		{Amount: decimal.NewFromInt(5), Category: "food", Kind: "refund"},
	}
	for _, in := range cases {
		if _, err := f.ledger.Record(context.Background(), 1, in); !core.IsValidation(err) {
			t.Fatalf("%+v: expected validation error, got %v", in, err)
		}
	}
	txns, _ := f.ledger.Transactions(context.Background(), 1)
	if len(txns) != 0 || len(f.pub.types()) != 0 {
		t.Fatalf("rejected input must not be stored or published")
	}
}

func TestLedgerPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	if _, err := f.ledger.Record(context.Background(), 1, input("5", "food", "expense")); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	txns, _ := f.ledger.Transactions(context.Background(), 1)
	if len(txns) != 1 {
		t.Fatalf("transaction must still be stored")
	}
}

func TestLedgerReportCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.ledger.Record(ctx, 1, input("10", "food", "expense"))
	r1, _ := f.ledger.Report(ctx, 1)
	_, _ = f.ledger.Record(ctx, 1, input("5", "food", "expense"))
	r2, _ := f.ledger.Report(ctx, 1)
	if !r1.TotalExpenses.Equal(decimal.NewFromInt(10)) || !r2.TotalExpenses.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("stale report: %s then %s", r1.TotalExpenses, r2.TotalExpenses)
	}

	n, err := f.ledger.Clear(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("clear: %d %v", n, err)
	}
	r3, _ := f.ledger.Report(ctx, 1)
	if !r3.TotalExpenses.IsZero() {
		t.Fatalf("report after clear = %s", r3.TotalExpenses)
	}
	types := f.pub.types()
	if types[len(types)-1] != amqp.EventLedgerCleared {
		t.Fatalf("expected ledger.cleared event, got %v", types)
	}
}

func TestLedgerRowsAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.budgets.Set(ctx, 1, "food", core.MustAmount("50"))
	_, _ = f.ledger.Record(ctx, 1, core.TransactionInput{Amount: core.MustAmount("60"), Category: "food", Description: " dinner ", Kind: "expense"})

	rows, err := f.ledger.Rows(ctx, 1)
	if err != nil || len(rows) != 1 || rows[0].Description != "dinner" {
		t.Fatalf("rows: %+v %v", rows, err)
	}
	st, err := f.ledger.Status(ctx, 1, "food")
	if err != nil || st.Status != core.OverBudget || !st.Overage.Equal(decimal.NewFromInt(10)) || !st.Spend.IsZero() {
		t.Fatalf("status: %+v %v", st, err)
	}
}

func TestBudgetServiceDurability(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	first := NewBudgetService(store, core.DefaultThresholds(), quietLogger())
	got, err := first.Set(ctx, 1, "  food ", core.MustAmount("200"))
	if err != nil || got.Category != "food" {
		t.Fatalf("set: %+v %v", got, err)
	}

	// A fresh service over the same store sees the limit.
	second := NewBudgetService(store, core.DefaultThresholds(), quietLogger())
	limit, ok, err := second.Get(ctx, 1, "food")
	if err != nil || !ok || !limit.Equal(core.MustAmount("200")) {
		t.Fatalf("get: %s %v %v", limit, ok, err)
	}
	if _, ok, _ := second.Get(ctx, 2, "food"); ok {
		t.Fatalf("budgets must be per user")
	}
}

func TestBudgetServiceRejectsBadLimits(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewBudgetService(store, core.DefaultThresholds(), quietLogger())
	if _, err := s.Set(ctx, 1, "food", decimal.Zero); !errors.Is(err, core.ErrInvalidLimit) {
		t.Fatalf("expected invalid limit, got %v", err)
	}
	list, _ := store.ListBudgets(ctx, 1)
	if len(list) != 0 {
		t.Fatalf("invalid limit persisted: %v", list)
	}
}

func TestBudgetServiceCorruptStoredLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.SaveBudget(ctx, 1, "food", decimal.NewFromInt(-1))
	s := NewBudgetService(store, core.DefaultThresholds(), quietLogger())
	if _, err := s.Check(ctx, 1, "food", decimal.NewFromInt(1), decimal.NewFromInt(1)); !errors.Is(err, core.ErrCorruptLimit) {
		t.Fatalf("expected corrupt limit error, got %v", err)
	}
}

func TestBudgetServiceImport(t *testing.T) {
	ctx := context.Background()
	s := NewBudgetService(memory.New(), core.DefaultThresholds(), quietLogger())

	_, err := s.Import(ctx, 1, []core.CategoryLimit{
		{Category: "food", Limit: core.MustAmount("100")},
		{Category: "fun", Limit: decimal.Zero},
	})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if list, _ := s.List(ctx, 1); len(list) != 0 {
		t.Fatalf("partial import applied: %v", list)
	}

	n, err := s.Import(ctx, 1, []core.CategoryLimit{
		{Category: "food", Limit: core.MustAmount("100")},
		{Category: "books", Limit: core.MustAmount("20")},
	})
	if err != nil || n != 2 {
		t.Fatalf("import: %d %v", n, err)
	}
	list, _ := s.List(ctx, 1)
	if len(list) != 2 || list[0].Category != "books" {
		t.Fatalf("list: %v", list)
	}
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	issuer := auth.NewIssuer("0123456789abcdef", time.Hour)
	s := NewAccountService(memory.New(), issuer, quietLogger())

	if _, err := s.Register(ctx, "al", "secret1", ""); !errors.Is(err, ErrUsernameLength) || !core.IsValidation(err) {
		t.Fatalf("expected username validation, got %v", err)
	}
	if _, err := s.Register(ctx, "alice", "123", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected password validation, got %v", err)
	}
	u, err := s.Register(ctx, " alice ", "secret1", "alice@example.com")
	if err != nil || u.Username != "alice" || u.PasswordHash == "secret1" {
		t.Fatalf("register: %+v %v", u, err)
	}
	if _, err := s.Register(ctx, "alice", "secret2", ""); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := s.Authenticate(ctx, "alice", "wrong!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}

	token, got, err := s.Login(ctx, "alice", "secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login: %+v %v", got, err)
	}
	claims, err := issuer.Parse(token)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("token: %+v %v", claims, err)
	}
}
