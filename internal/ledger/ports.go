// Package ledger declares the ports between the services and the storage
// backends that keep households, transactions and budgets.
package ledger

import (
	"context"

	"gagyebu/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no bound".
type TransactionFilter struct {
	From core.Date // inclusive
	To   core.Date // inclusive
	Type core.TransactionType
}

// Matches reports whether tx passes the filter.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && tx.Date.DaysUntil(f.From) > 0 {
		return false
	}
	if !f.To.IsZero() && f.To.DaysUntil(tx.Date) > 0 {
		return false
	}
	return true
}

// PendingSync is a transaction whose latest change has not reached the
// spreadsheet yet. Deleted entries must be cleared rather than appended.
type PendingSync struct {
	Transaction core.Transaction
	Deleted     bool
	Version     int64
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// AppendTransaction stores tx, assigning ID and CreatedAt when empty.
		AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// DeleteTransaction removes a transaction. Missing rows yield core.ErrNotFound.
		DeleteTransaction(ctx context.Context, householdID, id string) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, householdID, id string) (core.Transaction, error)
		// ListTransactions returns a household's transactions, newest date first.
		ListTransactions(ctx context.Context, householdID string, f TransactionFilter) ([]core.Transaction, error)
	}

	HouseholdStore interface {
		CreateHousehold(ctx context.Context, name string) (core.Household, error)
		GetHousehold(ctx context.Context, id string) (core.Household, error)
		AddMember(ctx context.Context, householdID, name string) (core.Member, error)
		ListMembers(ctx context.Context, householdID string) ([]core.Member, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	BudgetStore interface {
		SetBudget(ctx context.Context, b core.Budget) error
		ListBudgets(ctx context.Context, householdID string, year, month int) ([]core.Budget, error)
	}

	// OverviewReader provides aggregated monthly data for a household.
	OverviewReader interface {
		ReadMonthOverview(ctx context.Context, householdID string, year, month int) (core.MonthOverview, error)
	}

	// SyncTracker is implemented by backends that remember which
	// transactions still have to reach the external spreadsheet.
	SyncTracker interface {
		ListPendingSync(ctx context.Context, limit int) ([]PendingSync, error)
		// GetSyncState loads a transaction by ID, including deleted ones.
		GetSyncState(ctx context.Context, id string) (PendingSync, error)
		MarkSynced(ctx context.Context, id string) error
		MarkSyncError(ctx context.Context, id string, cause error) error
	}

	// Store is everything the HTTP server needs from a backend.
	Store interface {
		TransactionWriter
		TransactionReader
		HouseholdStore
		CategoryReader
		BudgetStore
		OverviewReader
	}
)

// DefaultCategories is the category list every new installation starts with.
var DefaultCategories = []core.Category{
	{Name: "식비", Type: core.Expense},
	{Name: "카페/간식", Type: core.Expense},
	{Name: "생활용품", Type: core.Expense},
	{Name: "주거/관리비", Type: core.Expense},
	{Name: "교통", Type: core.Expense},
	{Name: "통신", Type: core.Expense},
	{Name: "의료/건강", Type: core.Expense},
	{Name: "교육", Type: core.Expense},
	{Name: "문화/여가", Type: core.Expense},
	{Name: "쇼핑", Type: core.Expense},
	{Name: "경조사", Type: core.Expense},
	{Name: "기타지출", Type: core.Expense},
	{Name: "급여", Type: core.Income},
	{Name: "부수입", Type: core.Income},
	{Name: "용돈", Type: core.Income},
	{Name: "기타수입", Type: core.Income},
}
