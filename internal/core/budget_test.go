package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheckBudgetTiers(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	if err := e.SetBudget("food", d("200")); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	cases := []struct {
		name    string
		spend   string
		total   string
		want    Status
		overage string
	}{
		{"within", "50", "150", WithinBudget, "0"},
		{"ninety percent is still within", "10", "180", WithinBudget, "0"},
		{"near", "10", "190", NearBudget, "0"},
		{"exactly at limit", "10", "200", NearBudget, "0"},
		{"over", "80", "230", OverBudget, "30"},
		{"barely over", "0.01", "200.01", OverBudget, "0.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := e.CheckBudget("food", d(tc.spend), d(tc.total))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.Status != tc.want {
				t.Fatalf("status = %s, want %s", st.Status, tc.want)
			}
			if !st.Overage.Equal(d(tc.overage)) {
				t.Fatalf("overage = %s, want %s", st.Overage, tc.overage)
			}
			if !st.Limit.Equal(d("200")) {
				t.Fatalf("limit = %s", st.Limit)
			}
		})
	}
}

func TestCheckBudgetUnmonitored(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	st, err := e.CheckBudget("rent", d("900"), d("5000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != Unmonitored || st.Status.Alerting() {
		t.Fatalf("status = %s", st.Status)
	}
}

func TestBudgetLookupTrimsCategory(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	if err := e.SetBudget(" food ", d("200")); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	for _, name := range []string{"food", " food ", "\tfood"} {
		if limit, ok := e.GetBudget(name); !ok || !limit.Equal(d("200")) {
			t.Errorf("GetBudget(%q) = %s, %v", name, limit, ok)
		}
	}
	st, err := e.CheckBudget(" food ", d("80"), d("230"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Category != "food" || st.Status != OverBudget || !st.Overage.Equal(d("30")) {
		t.Fatalf("status = %+v", st)
	}

	r := Report{CategoryExpenses: map[string]decimal.Decimal{"food": d("230")}}
	if got := r.RunningTotal(" food"); !got.Equal(d("230")) {
		t.Fatalf("RunningTotal = %s", got)
	}
}

func TestCheckBudgetWithoutNearTier(t *testing.T) {
	e := NewEvaluator(Thresholds{})
	_ = e.SetBudget("fun", d("100"))
	st, _ := e.CheckBudget("fun", d("1"), d("99"))
	if st.Status != WithinBudget {
		t.Fatalf("status = %s, want within_budget when near tier disabled", st.Status)
	}
}

func TestCheckBudgetCorruptLimit(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	e.limits["food"] = decimal.Zero
	_, err := e.CheckBudget("food", d("1"), d("1"))
	if !errors.Is(err, ErrCorruptLimit) {
		t.Fatalf("expected ErrCorruptLimit, got %v", err)
	}
}

func TestSetBudgetValidationAndOverwrite(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	for _, limit := range []string{"0", "-10"} {
		err := e.SetBudget("food", d(limit))
		if !errors.Is(err, ErrInvalidLimit) || !IsValidation(err) {
			t.Fatalf("limit %s: expected validation error, got %v", limit, err)
		}
	}
	if err := e.SetBudget(" ", d("10")); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected empty category error, got %v", err)
	}
	if _, ok := e.GetBudget("food"); ok {
		t.Fatalf("rejected limit must not be stored")
	}

	_ = e.SetBudget("food", d("200"))
	_ = e.SetBudget("food", d("120"))
	got, ok := e.GetBudget("food")
	if !ok || !got.Equal(d("120")) {
		t.Fatalf("expected overwrite to 120, got %s (ok=%v)", got, ok)
	}
}

func TestBudgetsSorted(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	_ = e.SetBudget("transport", d("50"))
	_ = e.SetBudget("food", d("200"))
	_ = e.SetBudget("books", d("30"))
	list := e.Budgets()
	if len(list) != 3 || list[0].Category != "books" || list[2].Category != "transport" {
		t.Fatalf("unexpected listing: %v", list)
	}
}

func TestCheckReport(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	_ = e.SetBudget("food", d("50"))
	r := Aggregate([]Transaction{
		txn("40", "food", Expense),
		txn("20", "food", Expense),
	})
	st, err := e.CheckReport(r, "food", d("20"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != OverBudget || !st.Overage.Equal(d("10")) || !st.RunningTotal.Equal(d("60")) {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestEvaluatorConcurrentAccess(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = e.SetBudget(fmt.Sprintf("c%d", i%5), decimal.NewFromInt(int64(i+1)))
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, err := e.CheckBudget(fmt.Sprintf("c%d", i%5), d("1"), d("1")); err != nil {
				t.Errorf("check: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if n := len(e.Budgets()); n != 5 {
		t.Fatalf("expected 5 budgets, got %d", n)
	}
}
