package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"finwise/internal/core"
	"finwise/internal/ports"
)

func TestTransactionRowToCore(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	got, err := transactionRow{ID: 7, Amount: "19.9900", Category: "food", Kind: "expense", CreatedAt: ts}.toCore()
	if err != nil {
		t.Fatalf("toCore: %v", err)
	}
	if !got.Amount.Equal(core.MustAmount("19.99")) || got.Kind != core.Expense || got.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected transaction: %+v", got)
	}

	bad := []transactionRow{
		{ID: 1, Amount: "abc", Category: "food", Kind: "expense", CreatedAt: ts},
		{ID: 2, Amount: "1", Category: "food", Kind: "refund", CreatedAt: ts},
		{ID: 3, Amount: "0", Category: "food", Kind: "expense", CreatedAt: ts},
		{ID: 4, Amount: "1", Category: "", Kind: "income", CreatedAt: ts},
	}
	for _, row := range bad {
		if _, err := row.toCore(); err == nil {
			t.Fatalf("row %d: expected error", row.ID)
		}
	}
}

// TestRepositoryAgainstDatabase needs a disposable database in FINWISE_TEST_DATABASE_URL.
func TestRepositoryAgainstDatabase(t *testing.T) {
	url := os.Getenv("FINWISE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FINWISE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	name := "pgtest_" + time.Now().Format("150405.000000")
	u, err := repo.CreateUser(ctx, core.User{Username: name, PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Username: name, PasswordHash: "h"}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := repo.AddTransaction(ctx, u.ID, core.Transaction{Amount: core.MustAmount("0.10"), Category: "coffee", Kind: core.Expense}); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := repo.ListTransactions(ctx, u.ID)
	if err != nil || len(list) != 1 || !list[0].Amount.Equal(core.MustAmount("0.1")) {
		t.Fatalf("list: %+v %v", list, err)
	}

	_ = repo.SaveBudget(ctx, u.ID, "coffee", core.MustAmount("5"))
	_ = repo.SaveBudget(ctx, u.ID, "coffee", core.MustAmount("6"))
	budgets, _ := repo.ListBudgets(ctx, u.ID)
	if len(budgets) != 1 || !budgets[0].Limit.Equal(core.MustAmount("6")) {
		t.Fatalf("budgets: %+v", budgets)
	}

	if n, _ := repo.ClearTransactions(ctx, u.ID); n != 1 {
		t.Fatalf("cleared %d", n)
	}
}
