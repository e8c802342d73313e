package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/ports"
)

// BudgetService keeps one evaluator per user, seeded from the store on first
// use. Every limit change is written through before the evaluator sees it.
type BudgetService struct {
	store      ports.BudgetStore
	thresholds core.Thresholds
	logger     *log.Logger

	mu         sync.Mutex
	evaluators map[int64]*core.Evaluator
}

func NewBudgetService(store ports.BudgetStore, th core.Thresholds, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:      store,
		thresholds: th,
		logger:     logger.WithComponent(log.ComponentBudget),
		evaluators: make(map[int64]*core.Evaluator),
	}
}

func (s *BudgetService) evaluator(ctx context.Context, userID int64) (*core.Evaluator, error) {
	s.mu.Lock()
	e, ok := s.evaluators[userID]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	limits, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	fresh := core.NewEvaluator(s.thresholds)
	for _, l := range limits {
		if err := fresh.SetBudget(l.Category, l.Limit); err != nil {
			return nil, fmt.Errorf("%w: stored limit for %q: %v", core.ErrCorruptLimit, l.Category, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.evaluators[userID]; ok {
		return e, nil
	}
	s.evaluators[userID] = fresh
	return fresh, nil
}

// Set validates, persists and then applies a limit.
func (s *BudgetService) Set(ctx context.Context, userID int64, category string, limit decimal.Decimal) (core.CategoryLimit, error) {
	category, err := core.ValidateBudget(category, limit)
	if err != nil {
		return core.CategoryLimit{}, err
	}
	e, err := s.evaluator(ctx, userID)
	if err != nil {
		return core.CategoryLimit{}, err
	}
	if err := s.store.SaveBudget(ctx, userID, category, limit); err != nil {
		return core.CategoryLimit{}, fmt.Errorf("save budget: %w", err)
	}
	if err := e.SetBudget(category, limit); err != nil {
		return core.CategoryLimit{}, err
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldUserID, userID,
		log.FieldCategory, category,
		log.FieldLimit, limit.String())
	return core.CategoryLimit{Category: category, Limit: limit}, nil
}

// Get returns the limit for category; ok is false when none is set.
func (s *BudgetService) Get(ctx context.Context, userID int64, category string) (decimal.Decimal, bool, error) {
	e, err := s.evaluator(ctx, userID)
	if err != nil {
		return decimal.Zero, false, err
	}
	limit, ok := e.GetBudget(category)
	return limit, ok, nil
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.CategoryLimit, error) {
	e, err := s.evaluator(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.Budgets(), nil
}

// Check classifies a post-spend running total. It never changes state.
func (s *BudgetService) Check(ctx context.Context, userID int64, category string, spend, runningTotal decimal.Decimal) (core.BudgetStatus, error) {
	e, err := s.evaluator(ctx, userID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return e.CheckBudget(category, spend, runningTotal)
}

// Import applies limits all-or-nothing with respect to validation: nothing is
// written unless every entry is valid.
func (s *BudgetService) Import(ctx context.Context, userID int64, limits []core.CategoryLimit) (int, error) {
	var errs []error
	for _, l := range limits {
		if _, err := core.ValidateBudget(l.Category, l.Limit); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", l.Category, err))
		}
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	for i, l := range limits {
		if _, err := s.Set(ctx, userID, l.Category, l.Limit); err != nil {
			return i, err
		}
	}
	s.logger.InfoContext(ctx, "Budgets imported", log.FieldUserID, userID, "count", len(limits))
	return len(limits), nil
}
