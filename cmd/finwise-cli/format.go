package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/prefs"
)

func money(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}

// budgetLine is the warning printed after an expense; empty when the
// category is not in an alert tier.
func budgetLine(s core.BudgetStatus, symbol string) string {
	switch s.Status {
	case core.OverBudget:
		return fmt.Sprintf("Warning: over budget for %s by %s (%s of %s)",
			s.Category, money(symbol, s.Overage), money(symbol, s.RunningTotal), money(symbol, s.Limit))
	case core.NearBudget:
		return fmt.Sprintf("Warning: close to the %s budget (%s of %s)",
			s.Category, money(symbol, s.RunningTotal), money(symbol, s.Limit))
	default:
		return ""
	}
}

func writeRows(w io.Writer, rows []core.Row, p prefs.Prefs) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No transactions found.")
		return
	}
	for _, r := range rows {
		kind := r.Kind.String()
		fmt.Fprintf(w, "%s: %s - %s - %s - %s\n",
			r.Date.Format(p.DateFormat),
			strings.ToUpper(kind[:1])+kind[1:],
			money(p.CurrencySymbol, r.Amount),
			r.Category,
			r.Description)
	}
}

func writeReport(w io.Writer, r core.Report, symbol string) {
	fmt.Fprintf(w, "Total Income:   %s\n", money(symbol, r.TotalIncome))
	fmt.Fprintf(w, "Total Expenses: %s\n", money(symbol, r.TotalExpenses))
	fmt.Fprintf(w, "Net Savings:    %s\n", money(symbol, r.NetSavings))

	cats := r.Categories()
	if len(cats) == 0 {
		return
	}
	fmt.Fprintln(w, "\nExpenses by Category:")
	for _, c := range cats {
		fmt.Fprintf(w, "  %s: %s (%s%%)\n", c.Name, money(symbol, c.Amount), c.Percentage.StringFixed(2))
	}
}

func writeStatus(w io.Writer, s core.BudgetStatus, symbol string) {
	if s.Status == core.Unmonitored {
		fmt.Fprintf(w, "No budget set for %s.\n", s.Category)
		return
	}
	fmt.Fprintf(w, "%s: %s of %s (%s)\n",
		s.Category, money(symbol, s.RunningTotal), money(symbol, s.Limit), strings.ReplaceAll(s.Status.String(), "_", " "))
}

func writeBudgets(w io.Writer, limits []core.CategoryLimit, symbol string) {
	if len(limits) == 0 {
		fmt.Fprintln(w, "No budgets set yet.")
		return
	}
	for _, l := range limits {
		fmt.Fprintf(w, "%s: %s\n", l.Category, money(symbol, l.Limit))
	}
}
