// Package ports declares the storage boundary of the ledger.
package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// AddTransaction persists t for the user, assigning ID and, when zero,
		// the timestamp. The stored transaction is returned.
		AddTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error)
		// ListTransactions returns the user's ledger in insertion order.
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		// ClearTransactions deletes the whole ledger and returns how many rows went.
		ClearTransactions(ctx context.Context, userID int64) (int64, error)
	}

	BudgetStore interface {
		SaveBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error
		ListBudgets(ctx context.Context, userID int64) ([]core.CategoryLimit, error)
	}

	UserStore interface {
		// CreateUser fails with ErrConflict when username or email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
	}

	// Store is what a complete backend provides.
	Store interface {
		TransactionStore
		BudgetStore
		UserStore
		Close() error
	}
)
