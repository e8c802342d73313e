// Package sqlite stores ledgers, budgets and accounts in a single sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/ports"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.Store = (*Repository)(nil)

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewRepository opens (creating if needed) the database at dbPath and migrates it.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Ping backs the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// transactionRow is the on-disk shape of a ledger entry.
type transactionRow struct {
	ID          int64
	Amount      string
	Category    string
	Description string
	Kind        string
	CreatedAt   string
}

func (row transactionRow) toCore() (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad amount %q: %w", row.ID, row.Amount, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad timestamp %q: %w", row.ID, row.CreatedAt, err)
	}
	kind, err := core.ParseKind(row.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	t := core.Transaction{
		ID:          row.ID,
		Amount:      amount,
		Category:    row.Category,
		Description: row.Description,
		Kind:        kind,
		Timestamp:   ts,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return t, nil
}

func (r *Repository) AddTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = r.now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, amount, category, description, kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, t.Amount.String(), t.Category, t.Description, t.Kind.String(), t.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id, "user_id", userID, "category", t.Category, "kind", t.Kind.String())
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, category, description, kind, created_at
		 FROM transactions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var row transactionRow
		if err := rows.Scan(&row.ID, &row.Amount, &row.Category, &row.Description, &row.Kind, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) ClearTransactions(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) SaveBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category, amount) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET amount = excluded.amount`,
		userID, category, limit.String())
	if err != nil {
		return fmt.Errorf("save budget %q: %w", category, err)
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64) ([]core.CategoryLimit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, amount FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryLimit{}
	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		limit, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("budget %q: bad amount %q: %w", category, amount, err)
		}
		out = append(out, core.CategoryLimit{Category: category, Limit: limit})
	}
	return out, rows.Err()
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.CreatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email, created_at) VALUES (?, ?, NULLIF(?, ''), ?)`,
		u.Username, u.PasswordHash, u.Email, u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("user %q: %w", u.Username, ports.ErrConflict)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `WHERE username = ?`, username)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u       core.User
		email   sql.NullString
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %v: %w", arg, ports.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	u.Email = email.String
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return core.User{}, fmt.Errorf("user %d: bad created_at %q: %w", u.ID, created, err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
