package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"finwise/internal/amqp"
	"finwise/internal/cache"
	"finwise/internal/core"
	"finwise/internal/log"
	"finwise/internal/ports"
)

// RecordResult is what recording a transaction produced. Budget is nil for
// income and when the budget check could not be completed.
type RecordResult struct {
	Transaction core.Transaction
	Budget      *core.BudgetStatus
}

// LedgerService orchestrates ledger writes, reports and budget checks.
type LedgerService struct {
	store     ports.TransactionStore
	budgets   *BudgetService
	publisher Publisher
	reports   *cache.Loading[core.Report]
	logger    *log.Logger
}

type LedgerOption func(*LedgerService)

// WithReportCache serves reports from c until the ledger changes.
func WithReportCache(c cache.Cache[core.Report]) LedgerOption {
	return func(s *LedgerService) { s.reports = cache.NewLoading(c) }
}

// WithPublisher emits events for the worker. Without one, events are skipped.
func WithPublisher(p Publisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func NewLedgerService(store ports.TransactionStore, budgets *BudgetService, logger *log.Logger, opts ...LedgerOption) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &LedgerService{
		store:   store,
		budgets: budgets,
		logger:  logger.WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates and stores a transaction. For expenses it then checks the
// category budget against the post-transaction running total.
func (s *LedgerService) Record(ctx context.Context, userID int64, in core.TransactionInput) (RecordResult, error) {
	t, err := core.NewTransaction(in)
	if err != nil {
		return RecordResult{}, err
	}
	stored, err := s.store.AddTransaction(ctx, userID, t)
	if err != nil {
		return RecordResult{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID)

	result := RecordResult{Transaction: stored}
	fields := log.NewFields().
		WithUser(userID).
		WithOperation(log.OpRecord).
		WithTransaction(stored.Category, stored.Kind.String(), stored.Amount)

	if stored.IsExpense() {
		// The transaction is already saved, so a failed check only costs the
		// budget status and its alert.
		status, err := s.checkSpend(ctx, userID, stored)
		if err != nil {
			s.logger.LogFields(ctx, slog.LevelWarn, "Budget check failed after save",
				log.NewFields().
					WithUser(userID).
					WithOperation(log.OpCheck).
					WithError(err, log.ErrorTypeDatabase).
					With(log.FieldCategory, stored.Category))
		} else {
			result.Budget = &status
			fields.WithBudget(status.Status.String(), status.Limit, status.RunningTotal)
		}
	}
	s.logger.LogFields(ctx, slog.LevelInfo, "Transaction recorded", fields)

	publish(ctx, s.publisher, s.logger, amqp.NewTransactionRecordedMessage(
		userID, stored.ID, stored.Amount, stored.Category, stored.Description, stored.Kind.String(), stored.Timestamp))
	if b := result.Budget; b != nil && b.Status.Alerting() {
		publish(ctx, s.publisher, s.logger, amqp.NewBudgetAlertMessage(
			userID, b.Category, b.Status.String(), b.Limit, b.Spend, b.RunningTotal, b.Overage))
	}
	return result, nil
}

func (s *LedgerService) checkSpend(ctx context.Context, userID int64, t core.Transaction) (core.BudgetStatus, error) {
	report, err := s.Report(ctx, userID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	status, err := s.budgets.Check(ctx, userID, t.Category, t.Amount, report.RunningTotal(t.Category))
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("check budget: %w", err)
	}
	return status, nil
}

// Transactions returns the user's ledger in insertion order.
func (s *LedgerService) Transactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// Report aggregates the stored ledger.
func (s *LedgerService) Report(ctx context.Context, userID int64) (core.Report, error) {
	build := func(ctx context.Context) (core.Report, error) {
		txns, err := s.Transactions(ctx, userID)
		if err != nil {
			return core.Report{}, err
		}
		return core.Aggregate(txns), nil
	}
	if s.reports == nil {
		return build(ctx)
	}
	return s.reports.Get(ctx, reportKey(userID), build)
}

// Rows flattens the ledger for tabular output.
func (s *LedgerService) Rows(ctx context.Context, userID int64) ([]core.Row, error) {
	txns, err := s.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Rows(txns), nil
}

// Status checks a category against the current ledger without a new spend.
func (s *LedgerService) Status(ctx context.Context, userID int64, category string) (core.BudgetStatus, error) {
	report, err := s.Report(ctx, userID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return s.budgets.Check(ctx, userID, category, decimal.Zero, report.RunningTotal(category))
}

// Clear deletes the whole ledger. Budgets are kept.
func (s *LedgerService) Clear(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.ClearTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "Ledger cleared", log.FieldUserID, userID, "removed", n)
	publish(ctx, s.publisher, s.logger, amqp.NewLedgerClearedMessage(userID, n))
	return n, nil
}

func (s *LedgerService) invalidate(userID int64) {
	if s.reports != nil {
		s.reports.Invalidate(reportKey(userID))
	}
}

func reportKey(userID int64) string {
	return "report:" + strconv.FormatInt(userID, 10)
}
