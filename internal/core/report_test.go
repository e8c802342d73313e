package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func txn(amount string, category string, kind Kind) Transaction {
	return Transaction{Amount: MustAmount(amount), Category: category, Kind: kind}
}

func sumCategories(r Report) decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.CategoryExpenses {
		total = total.Add(v)
	}
	return total
}

func TestAggregateScenario(t *testing.T) {
	r := Aggregate([]Transaction{
		txn("100", "salary", Income),
		txn("40", "food", Expense),
		txn("20", "food", Expense),
		txn("15", "transport", Expense),
	})

	if !r.TotalIncome.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("income = %s", r.TotalIncome)
	}
	if !r.TotalExpenses.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expenses = %s", r.TotalExpenses)
	}
	if !r.NetSavings.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("net = %s", r.NetSavings)
	}
	if len(r.CategoryExpenses) != 2 {
		t.Fatalf("categories = %v", r.CategoryExpenses)
	}
	if !r.CategoryExpenses["food"].Equal(decimal.NewFromInt(60)) || !r.CategoryExpenses["transport"].Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected breakdown: %v", r.CategoryExpenses)
	}
	if _, ok := r.CategoryExpenses["salary"]; ok {
		t.Fatalf("income category leaked into expenses")
	}
	if !sumCategories(r).Equal(r.TotalExpenses) {
		t.Fatalf("categories do not add up to total expenses")
	}
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil)
	if !r.TotalIncome.IsZero() || !r.TotalExpenses.IsZero() || !r.NetSavings.IsZero() {
		t.Fatalf("expected zero totals, got %+v", r)
	}
	if r.CategoryExpenses == nil || len(r.CategoryExpenses) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", r.CategoryExpenses)
	}
	if got := r.Categories(); len(got) != 0 {
		t.Fatalf("expected no categories, got %v", got)
	}
}

func TestAggregateIncomeOnly(t *testing.T) {
	r := Aggregate([]Transaction{
		txn("1000", "salary", Income),
		txn("250.75", "freelance", Income),
	})
	if !r.TotalExpenses.IsZero() || len(r.CategoryExpenses) != 0 {
		t.Fatalf("expected no expenses, got %+v", r)
	}
	if !r.NetSavings.Equal(r.TotalIncome) {
		t.Fatalf("net %s != income %s", r.NetSavings, r.TotalIncome)
	}
	if !r.Percentage("salary").IsZero() {
		t.Fatalf("percentage must be zero without expenses")
	}
}

func TestAggregateNegativeNetAndExactSums(t *testing.T) {
	var txns []Transaction
	for i := 0; i < 10; i++ {
		txns = append(txns, txn("0.10", "coffee", Expense))
	}
	txns = append(txns, txn("0.20", "snacks", Expense), txn("0.50", "gift", Income))

	r := Aggregate(txns)
	if !r.TotalExpenses.Equal(MustAmount("1.20")) {
		t.Fatalf("expenses = %s", r.TotalExpenses)
	}
	if !r.NetSavings.Equal(decimal.RequireFromString("-0.70")) {
		t.Fatalf("net = %s", r.NetSavings)
	}
	if !sumCategories(r).Equal(r.TotalExpenses) {
		t.Fatalf("drift between categories and total")
	}
}

func TestReportPercentageAndOrdering(t *testing.T) {
	r := Aggregate([]Transaction{
		txn("25", "b", Expense),
		txn("50", "c", Expense),
		txn("25", "a", Expense),
	})
	if !r.Percentage("c").Equal(decimal.NewFromInt(50)) {
		t.Fatalf("percentage(c) = %s", r.Percentage("c"))
	}
	if !r.Percentage("missing").IsZero() {
		t.Fatalf("percentage(missing) = %s", r.Percentage("missing"))
	}

	cats := r.Categories()
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if cats[i].Name != name {
			t.Fatalf("position %d: got %q, want %q (%v)", i, cats[i].Name, name, cats)
		}
	}
	if !cats[1].Percentage.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("percentage(a) = %s", cats[1].Percentage)
	}
}

func TestRows(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := Rows([]Transaction{
		{Amount: MustAmount("9.99"), Category: "books", Description: "novel", Kind: Expense, Timestamp: ts},
		{Amount: MustAmount("100"), Category: "salary", Kind: Income, Timestamp: ts.Add(time.Hour)},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Category != "books" || rows[0].Kind != Expense || !rows[0].Date.Equal(ts) || rows[0].Description != "novel" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Kind != Income {
		t.Fatalf("order not preserved: %+v", rows)
	}
}
