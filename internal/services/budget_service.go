package services

import (
	"context"
	"fmt"

	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
)

// BudgetService compares monthly budgets with actual spending.
type BudgetService struct {
	budgets  ledger.BudgetStore
	overview ledger.OverviewReader
}

func NewBudgetService(budgets ledger.BudgetStore, overview ledger.OverviewReader) *BudgetService {
	return &BudgetService{budgets: budgets, overview: overview}
}

func (s *BudgetService) SetBudget(ctx context.Context, b core.Budget) error {
	if err := s.budgets.SetBudget(ctx, b); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// Status returns one entry per budgeted category for the month, in category
// order. Spending in categories without a budget is not reported.
func (s *BudgetService) Status(ctx context.Context, householdID string, year, month int) ([]core.BudgetStatus, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	budgets, err := s.budgets.ListBudgets(ctx, householdID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	ov, err := s.overview.ReadMonthOverview(ctx, householdID, year, month)
	if err != nil {
		return nil, fmt.Errorf("read month overview: %w", err)
	}

	spent := make(map[string]core.Money, len(ov.ByCategory))
	for _, c := range ov.ByCategory {
		spent[c.Name] = c.Amount
	}

	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, core.NewBudgetStatus(b.Category, b.Amount, spent[b.Category]))
	}
	return out, nil
}
