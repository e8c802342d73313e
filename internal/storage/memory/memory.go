// Package memory is a process-local backend. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/core"
	"finwise/internal/ports"
)

type Store struct {
	mu      sync.Mutex
	nextTx  int64
	nextUsr int64
	users   map[int64]core.User
	ledgers map[int64][]core.Transaction
	budgets map[int64]map[string]decimal.Decimal
	now     func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[int64]core.User),
		ledgers: make(map[int64][]core.Transaction),
		budgets: make(map[int64]map[string]decimal.Decimal),
		now:     time.Now,
	}
}

// AddTransaction stores the transaction and assigns an id.
func (s *Store) AddTransaction(_ context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	t.ID = s.nextTx
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now().UTC()
	}
	s.ledgers[userID] = append(s.ledgers[userID], t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.ledgers[userID]...), nil
}

func (s *Store) ClearTransactions(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.ledgers[userID]))
	delete(s.ledgers, userID)
	return n, nil
}

func (s *Store) SaveBudget(_ context.Context, userID int64, category string, limit decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgets[userID] == nil {
		s.budgets[userID] = make(map[string]decimal.Decimal)
	}
	s.budgets[userID][category] = limit
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID int64) ([]core.CategoryLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CategoryLimit, 0, len(s.budgets[userID]))
	for c, l := range s.budgets[userID] {
		out = append(out, core.CategoryLimit{Category: c, Limit: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, fmt.Errorf("username %q: %w", u.Username, ports.ErrConflict)
		}
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, fmt.Errorf("email %q: %w", u.Email, ports.ErrConflict)
		}
	}
	s.nextUsr++
	u.ID = s.nextUsr
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", username, ports.ErrNotFound)
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
	}
	return u, nil
}

func (s *Store) Close() error { return nil }
