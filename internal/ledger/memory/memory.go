// Package memory is a process-local backend for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	cats       []core.Category
	households map[string]core.Household
	members    []core.Member
	items      []core.Transaction
	budgets    map[budgetKey]core.Budget
}

type budgetKey struct {
	household string
	category  string
	year      int
	month     int
}

var _ ledger.Store = (*Store)(nil)

func New(cats []core.Category) *Store {
	return &Store{
		now:        time.Now,
		cats:       dedupe(cats),
		households: map[string]core.Household{},
		budgets:    map[budgetKey]core.Budget{},
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt. Each line is a
// category name, optionally prefixed with "income:" or "expense:". Missing or
// empty files fall back to ledger.DefaultCategories.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = ledger.DefaultCategories
	}
	return New(cats)
}

func (s *Store) CreateHousehold(_ context.Context, name string) (core.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Household{}, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := core.Household{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC()}
	s.households[h.ID] = h
	return h, nil
}

func (s *Store) GetHousehold(_ context.Context, id string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[id]
	if !ok {
		return core.Household{}, fmt.Errorf("household %s: %w", id, core.ErrNotFound)
	}
	return h, nil
}

func (s *Store) AddMember(_ context.Context, householdID, name string) (core.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Member{}, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[householdID]; !ok {
		return core.Member{}, fmt.Errorf("household %s: %w", householdID, core.ErrNotFound)
	}
	m := core.Member{ID: uuid.NewString(), HouseholdID: householdID, Name: name}
	s.members = append(s.members, m)
	return m, nil
}

func (s *Store) ListMembers(_ context.Context, householdID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Member
	for _, m := range s.members {
		if m.HouseholdID == householdID {
			out = append(out, m)
		}
	}
	return out, nil
}

// AppendTransaction stores the transaction, assigning an ID when it has none.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	s.items = append(s.items, tx)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, householdID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.HouseholdID == householdID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) GetTransaction(_ context.Context, householdID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.items {
		if tx.ID == id && tx.HouseholdID == householdID {
			return tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

// ListTransactions returns matching transactions, newest date first. Entries
// on the same date keep insertion order.
func (s *Store) ListTransactions(_ context.Context, householdID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if tx.HouseholdID == householdID && f.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

// SetBudget creates or replaces the budget for a category and month.
func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{b.HouseholdID, b.Category, b.Year, b.Month}] = b
	return nil
}

func (s *Store) ListBudgets(_ context.Context, householdID string, year, month int) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for k, b := range s.budgets {
		if k.household == householdID && k.year == year && k.month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) ReadMonthOverview(ctx context.Context, householdID string, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, -1)}
	txs, err := s.ListTransactions(ctx, householdID, ledger.TransactionFilter{From: from, To: to})
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.NewMonthOverview(year, month, txs), nil
}

func (s *Store) Close() error { return nil }

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c := core.Category{Name: line, Type: core.Expense}
		if prefix, name, ok := strings.Cut(line, ":"); ok && core.TransactionType(prefix).IsValid() {
			c = core.Category{Name: strings.TrimSpace(name), Type: core.TransactionType(prefix)}
		}
		out = append(out, c)
	}
	return dedupe(out)
}

// dedupe drops blank and repeated names, preserving input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
