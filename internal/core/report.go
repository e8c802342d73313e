package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryAmount represents an expense total aggregated by category name.
type CategoryAmount struct {
	Name       string
	Amount     decimal.Decimal
	Percentage decimal.Decimal // share of total expenses, 0..100
}

// Report is a read-only summary of a ledger snapshot. It is recomputed on
// demand and never stored.
type Report struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	NetSavings       decimal.Decimal
	CategoryExpenses map[string]decimal.Decimal
}

// Aggregate folds the transactions into a Report in a single pass.
// Only expenses contribute to CategoryExpenses. It never fails: an empty
// ledger yields zero totals and an empty map.
func Aggregate(txns []Transaction) Report {
	r := Report{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		CategoryExpenses: make(map[string]decimal.Decimal),
	}
	for _, t := range txns {
		switch t.Kind {
		case Income:
			r.TotalIncome = r.TotalIncome.Add(t.Amount)
		case Expense:
			r.TotalExpenses = r.TotalExpenses.Add(t.Amount)
			r.CategoryExpenses[t.Category] = r.CategoryExpenses[t.Category].Add(t.Amount)
		}
	}
	r.NetSavings = r.TotalIncome.Sub(r.TotalExpenses)
	return r
}

// Percentage returns the category's share of total expenses in percent.
// It is 0 when there are no expenses at all.
func (r Report) Percentage(category string) decimal.Decimal {
	if !r.TotalExpenses.IsPositive() {
		return decimal.Zero
	}
	return r.CategoryExpenses[category].Div(r.TotalExpenses).Mul(hundred)
}

// RunningTotal is the cumulative expense amount recorded for category.
func (r Report) RunningTotal(category string) decimal.Decimal {
	return r.CategoryExpenses[strings.TrimSpace(category)]
}

// Categories lists the expense categories by amount, largest first; equal
// amounts are ordered by name so the output is stable for a given ledger.
func (r Report) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(r.CategoryExpenses))
	for name, amount := range r.CategoryExpenses {
		out = append(out, CategoryAmount{
			Name:       name,
			Amount:     amount,
			Percentage: r.Percentage(name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Row is the flattened, presentation-agnostic view of a transaction.
type Row struct {
	Date        time.Time
	Kind        Kind
	Amount      decimal.Decimal
	Category    string
	Description string
}

// Rows flattens the ledger keeping its order.
func Rows(txns []Transaction) []Row {
	rows := make([]Row, len(txns))
	for i, t := range txns {
		rows[i] = Row{
			Date:        t.Timestamp,
			Kind:        t.Kind,
			Amount:      t.Amount,
			Category:    t.Category,
			Description: t.Description,
		}
	}
	return rows
}
