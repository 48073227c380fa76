package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a household's year+month.
type MonthOverview struct {
	Year         int
	Month        int // 1-12
	TotalExpense Money
	TotalIncome  Money
	ByCategory   []CategoryAmount // expenses only
}

// Balance is income minus expense; it may be negative.
func (o MonthOverview) Balance() Money {
	return Money{Won: o.TotalIncome.Won - o.TotalExpense.Won}
}

// NewMonthOverview aggregates the transactions dated in year+month.
// Categories are ordered by amount, largest first, then by name.
func NewMonthOverview(year, month int, txs []Transaction) MonthOverview {
	ov := MonthOverview{Year: year, Month: month}
	byCat := map[string]int64{}
	for _, tx := range txs {
		if tx.Date.Year() != year || int(tx.Date.Month()) != month {
			continue
		}
		switch tx.Type {
		case Expense:
			ov.TotalExpense.Won += tx.Amount.Won
			byCat[tx.Category] += tx.Amount.Won
		case Income:
			ov.TotalIncome.Won += tx.Amount.Won
		}
	}
	for name, won := range byCat {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name, Amount: Money{Won: won}})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Won != b.Amount.Won {
			return a.Amount.Won > b.Amount.Won
		}
		return a.Name < b.Name
	})
	return ov
}

// BudgetStatus compares a category budget with what was spent in the month.
type BudgetStatus struct {
	Category    string
	Budget      Money
	Spent       Money
	Remaining   Money
	PercentUsed int
	Over        bool
}

// NewBudgetStatus computes remaining amount and usage percentage.
// A zero budget reports 0% used unless something was spent, in which case it is over.
func NewBudgetStatus(category string, budget, spent Money) BudgetStatus {
	st := BudgetStatus{
		Category:  category,
		Budget:    budget,
		Spent:     spent,
		Remaining: Money{Won: budget.Won - spent.Won},
	}
	if budget.Won > 0 {
		st.PercentUsed = int((spent.Won*100 + budget.Won/2) / budget.Won)
	}
	st.Over = spent.Won > budget.Won
	return st
}
