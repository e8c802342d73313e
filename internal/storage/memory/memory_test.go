package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/ports"
)

func TestMemoryStoreLedger(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.AddTransaction(ctx, 1, core.Transaction{Amount: core.MustAmount("10"), Category: "food", Kind: core.Expense})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != 1 || first.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp assigned, got %+v", first)
	}
	_, _ = s.AddTransaction(ctx, 1, core.Transaction{Amount: core.MustAmount("5"), Category: "salary", Kind: core.Income})
	_, _ = s.AddTransaction(ctx, 2, core.Transaction{Amount: core.MustAmount("7"), Category: "food", Kind: core.Expense})

	got, _ := s.ListTransactions(ctx, 1)
	if len(got) != 2 || got[0].Category != "food" || got[1].Category != "salary" {
		t.Fatalf("unexpected ledger: %+v", got)
	}

	if _, err := s.AddTransaction(ctx, 1, core.Transaction{Amount: decimal.Zero, Category: "x", Kind: core.Expense}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	n, _ := s.ClearTransactions(ctx, 1)
	if n != 2 {
		t.Fatalf("cleared %d, want 2", n)
	}
	got, _ = s.ListTransactions(ctx, 1)
	other, _ := s.ListTransactions(ctx, 2)
	if len(got) != 0 || len(other) != 1 {
		t.Fatalf("clear must only touch one user: %v / %v", got, other)
	}
}

func TestMemoryStoreBudgets(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.SaveBudget(ctx, 1, "food", core.MustAmount("200"))
	_ = s.SaveBudget(ctx, 1, "books", core.MustAmount("20"))
	_ = s.SaveBudget(ctx, 1, "food", core.MustAmount("150"))

	list, _ := s.ListBudgets(ctx, 1)
	if len(list) != 2 || list[0].Category != "books" || !list[1].Limit.Equal(core.MustAmount("150")) {
		t.Fatalf("unexpected budgets: %v", list)
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, err := s.CreateUser(ctx, core.User{Username: "alice", PasswordHash: "h", Email: "a@example.com"})
	if err != nil || u.ID == 0 {
		t.Fatalf("create: %+v %v", u, err)
	}
	if _, err := s.CreateUser(ctx, core.User{Username: "alice"}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict on username, got %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Username: "bob", Email: "A@example.com"}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
	if got, err := s.GetUserByUsername(ctx, "alice"); err != nil || got.ID != u.ID {
		t.Fatalf("lookup: %+v %v", got, err)
	}
	if _, err := s.GetUser(ctx, 99); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
