package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

const (
	Unmonitored  Status = "unmonitored"
	WithinBudget Status = "within_budget"
	NearBudget   Status = "near_budget"
	OverBudget   Status = "over_budget"
)

// ErrCorruptLimit is returned when a stored limit is not positive. SetBudget
// never lets such a limit in, so hitting it means the table was tampered with.
var ErrCorruptLimit = errors.New("corrupt budget limit")

type (
	// Status is the alert tier of a category after a spend.
	Status string

	// BudgetStatus is the outcome of a budget check.
	BudgetStatus struct {
		Category     string
		Status       Status
		Limit        decimal.Decimal
		Spend        decimal.Decimal
		RunningTotal decimal.Decimal
		Overage      decimal.Decimal // running total minus limit, only when over
	}

	// CategoryLimit is one entry of the limit table.
	CategoryLimit struct {
		Category string
		Limit    decimal.Decimal
	}

	// Thresholds configures the alert tiers. A running total whose ratio to
	// the limit is above NearRatio (and at most 1) is near_budget.
	Thresholds struct {
		NearRatio decimal.Decimal
	}
)

// DefaultThresholds flags categories above 90% of their limit.
func DefaultThresholds() Thresholds {
	return Thresholds{NearRatio: decimal.RequireFromString("0.9")}
}

func (s Status) String() string {
	return string(s)
}

// Alerting reports whether the status should notify the user.
func (s Status) Alerting() bool {
	return s == NearBudget || s == OverBudget
}

// Evaluator holds one user's category limits and classifies spends against
// them. It is safe for concurrent use.
type Evaluator struct {
	mu         sync.RWMutex
	limits     map[string]decimal.Decimal
	thresholds Thresholds
}

// NewEvaluator returns an evaluator with an empty limit table. A NearRatio
// outside (0, 1) disables the near_budget tier.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{
		limits:     make(map[string]decimal.Decimal),
		thresholds: th,
	}
}

// ValidateBudget applies the SetBudget rules and returns the trimmed category.
func ValidateBudget(category string, limit decimal.Decimal) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", invalid("category", ErrEmptyCategory)
	}
	if !limit.IsPositive() {
		return "", invalid("limit", ErrInvalidLimit)
	}
	return category, nil
}

// SetBudget sets or overwrites the limit for category.
func (e *Evaluator) SetBudget(category string, limit decimal.Decimal) error {
	category, err := ValidateBudget(category, limit)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits[category] = limit
	return nil
}

// GetBudget returns the limit for category; ok is false when none is set.
// The name is trimmed the same way SetBudget trims it.
func (e *Evaluator) GetBudget(category string) (limit decimal.Decimal, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	limit, ok = e.limits[strings.TrimSpace(category)]
	return limit, ok
}

// Budgets returns the limit table sorted by category name.
func (e *Evaluator) Budgets() []CategoryLimit {
	e.mu.RLock()
	out := make([]CategoryLimit, 0, len(e.limits))
	for c, l := range e.limits {
		out = append(out, CategoryLimit{Category: c, Limit: l})
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// CheckBudget classifies runningTotal, the category's expense total after a
// spend has been recorded, against the category's limit.
func (e *Evaluator) CheckBudget(category string, spend, runningTotal decimal.Decimal) (BudgetStatus, error) {
	category = strings.TrimSpace(category)
	st := BudgetStatus{
		Category:     category,
		Status:       Unmonitored,
		Spend:        spend,
		RunningTotal: runningTotal,
	}
	limit, ok := e.GetBudget(category)
	if !ok {
		return st, nil
	}
	if !limit.IsPositive() {
		return BudgetStatus{}, fmt.Errorf("%w: %q has limit %s", ErrCorruptLimit, category, limit)
	}
	st.Limit = limit

	// ratio > r is evaluated as total > r*limit to keep it exact.
	near := e.thresholds.NearRatio
	switch {
	case runningTotal.GreaterThan(limit):
		st.Status = OverBudget
		st.Overage = runningTotal.Sub(limit)
	case near.IsPositive() && near.LessThan(decimal.NewFromInt(1)) && runningTotal.GreaterThan(limit.Mul(near)):
		st.Status = NearBudget
	default:
		st.Status = WithinBudget
	}
	return st, nil
}

// CheckReport checks category using the running total from a report that
// already includes the spend.
func (e *Evaluator) CheckReport(r Report, category string, spend decimal.Decimal) (BudgetStatus, error) {
	return e.CheckBudget(category, spend, r.RunningTotal(category))
}
