package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind tells whether a transaction adds to or draws from the ledger.
	Kind string

	// Transaction is a single ledger entry. Values are immutable once created;
	// use NewTransaction to build one from user input.
	Transaction struct {
		ID          int64
		Amount      decimal.Decimal
		Category    string
		Description string
		Kind        Kind
		Timestamp   time.Time // assigned by storage when zero
	}

	// TransactionInput is the raw, unvalidated form of a transaction.
	TransactionInput struct {
		Amount      decimal.Decimal
		Category    string
		Description string
		Kind        string
		Timestamp   time.Time
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Email        string // optional
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidKind   = errors.New("kind must be income or expense")
	ErrInvalidLimit  = errors.New("budget limit must be greater than zero")
)

// ValidationError reports which field of an input was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseKind accepts "income" or "expense" in any letter case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Income, Expense:
		return k, nil
	default:
		return "", invalid("kind", ErrInvalidKind)
	}
}

func (k Kind) String() string {
	return string(k)
}

// NewTransaction validates the input and returns the normalized transaction.
// Category is trimmed, kind is lowercased.
func NewTransaction(in TransactionInput) (Transaction, error) {
	if !in.Amount.IsPositive() {
		return Transaction{}, invalid("amount", ErrInvalidAmount)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return Transaction{}, invalid("category", ErrEmptyCategory)
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Amount:      in.Amount,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		Kind:        kind,
		Timestamp:   in.Timestamp,
	}, nil
}

// Validate re-checks an already built transaction. Storage adapters call it
// on every row they read back.
func (t Transaction) Validate() error {
	_, err := NewTransaction(TransactionInput{
		Amount:   t.Amount,
		Category: t.Category,
		Kind:     string(t.Kind),
	})
	return err
}

func (t Transaction) IsExpense() bool {
	return t.Kind == Expense
}
