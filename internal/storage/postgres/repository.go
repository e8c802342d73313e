// Package postgres is the multi-user backend, backed by a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/ports"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

var _ ports.Store = (*Repository)(nil)

// Connect migrates the schema and opens a pool against databaseURL.
func Connect(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

type transactionRow struct {
	ID          int64
	Amount      string
	Category    string
	Description string
	Kind        string
	CreatedAt   time.Time
}

func (row transactionRow) toCore() (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: bad amount %q: %w", row.ID, row.Amount, err)
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
		Timestamp:   row.CreatedAt.UTC(),
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
		t.Timestamp = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, category, description, kind, created_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		RETURNING id`,
		userID, t.Amount.String(), t.Category, t.Description, t.Kind.String(), t.Timestamp).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, amount::text, category, description, kind, created_at
		FROM transactions WHERE user_id = $1 ORDER BY id`, userID)
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
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) SaveBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO budgets (user_id, category, amount) VALUES ($1, $2, $3::numeric)
		ON CONFLICT (user_id, category) DO UPDATE SET amount = EXCLUDED.amount`,
		userID, category, limit.String())
	if err != nil {
		return fmt.Errorf("save budget %q: %w", category, err)
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64) ([]core.CategoryLimit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, amount::text FROM budgets WHERE user_id = $1 ORDER BY category`, userID)
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
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, email)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Email).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, fmt.Errorf("user %q: %w", u.Username, ports.ErrConflict)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `WHERE username = $1`, username)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u     core.User
		email *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %v: %w", arg, ports.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	if email != nil {
		u.Email = *email
	}
	return u, nil
}
