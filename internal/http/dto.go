package http

import (
	"math"
	"strings"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/duplicate"
)

type householdRequest struct {
	Name string `json:"name"`
}

type householdResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type memberRequest struct {
	Name string `json:"name"`
}

type memberResponse struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	Name        string `json:"name"`
}

type transactionRequest struct {
	Type          string    `json:"type"`
	Amount        wonAmount `json:"amount"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	PaymentMethod string    `json:"payment_method"`
	PersonType    string    `json:"person_type"`
	PersonID      string    `json:"person_id"`
	Category      string    `json:"category"`
	Memo          string    `json:"memo"`
	// ConfirmDuplicate saves the transaction even when it looks like a
	// duplicate.
	ConfirmDuplicate bool `json:"confirm_duplicate"`
}

// toTransaction builds the domain value. With strict set, a malformed date
// is an error; otherwise it is left zero so a partial form can still be
// checked for duplicates.
func (req transactionRequest) toTransaction(householdID string, strict bool) (core.Transaction, error) {
	tx := core.Transaction{
		HouseholdID:   householdID,
		Type:          core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:        core.Money{Won: int64(req.Amount)},
		Description:   sanitizeInput(req.Description),
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		PersonType:    core.PersonType(strings.ToLower(strings.TrimSpace(req.PersonType))),
		PersonID:      strings.TrimSpace(req.PersonID),
		Category:      sanitizeInput(req.Category),
		Memo:          sanitizeInput(req.Memo),
	}
	if strings.TrimSpace(req.Date) != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil && strict {
			return core.Transaction{}, badRequest("date must be YYYY-MM-DD")
		}
		tx.Date = d
	}
	return tx, nil
}

type transactionResponse struct {
	ID            string    `json:"id"`
	HouseholdID   string    `json:"household_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	PaymentMethod string    `json:"payment_method"`
	PersonType    string    `json:"person_type"`
	PersonID      string    `json:"person_id,omitempty"`
	Category      string    `json:"category"`
	Memo          string    `json:"memo,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		HouseholdID:   tx.HouseholdID,
		Type:          string(tx.Type),
		Amount:        tx.Amount.Won,
		AmountDisplay: tx.Amount.String(),
		Description:   tx.Description,
		Date:          tx.Date.String(),
		PaymentMethod: tx.PaymentMethod,
		PersonType:    string(tx.PersonType),
		PersonID:      tx.PersonID,
		Category:      tx.Category,
		Memo:          tx.Memo,
		CreatedAt:     tx.CreatedAt,
	}
}

type matchResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Similarity  float64             `json:"similarity"`
	// Percent is the rounded similarity shown to users. It can exceed 100
	// when bonuses stack.
	Percent int      `json:"percent"`
	Reasons []string `json:"reasons"`
}

func toMatchResponses(matches []duplicate.Match) []matchResponse {
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchResponse{
			Transaction: toTransactionResponse(m.Transaction),
			Similarity:  math.Round(m.Similarity*1000) / 1000,
			Percent:     int(math.Round(m.Similarity * 100)),
			Reasons:     m.Reasons,
		})
	}
	return out
}

type duplicateCheckResponse struct {
	Matches []matchResponse `json:"matches"`
	Warning string          `json:"warning"`
	Likely  bool            `json:"likely"`
}

type categoryAmountResponse struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type overviewResponse struct {
	Year         int                      `json:"year"`
	Month        int                      `json:"month"`
	TotalExpense int64                    `json:"total_expense"`
	TotalIncome  int64                    `json:"total_income"`
	Balance      int64                    `json:"balance"`
	ByCategory   []categoryAmountResponse `json:"by_category"`
}

func toOverviewResponse(ov core.MonthOverview) overviewResponse {
	out := overviewResponse{
		Year:         ov.Year,
		Month:        ov.Month,
		TotalExpense: ov.TotalExpense.Won,
		TotalIncome:  ov.TotalIncome.Won,
		Balance:      ov.Balance().Won,
		ByCategory:   make([]categoryAmountResponse, 0, len(ov.ByCategory)),
	}
	for _, c := range ov.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountResponse{Name: c.Name, Amount: c.Amount.Won})
	}
	return out
}

type categoryResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type budgetRequest struct {
	Category string    `json:"category"`
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Amount   wonAmount `json:"amount"`
}

type budgetStatusResponse struct {
	Category    string `json:"category"`
	Budget      int64  `json:"budget"`
	Spent       int64  `json:"spent"`
	Remaining   int64  `json:"remaining"`
	PercentUsed int    `json:"percent_used"`
	Over        bool   `json:"over"`
}

func toBudgetStatusResponses(in []core.BudgetStatus) []budgetStatusResponse {
	out := make([]budgetStatusResponse, 0, len(in))
	for _, st := range in {
		out = append(out, budgetStatusResponse{
			Category:    st.Category,
			Budget:      st.Budget.Won,
			Spent:       st.Spent.Won,
			Remaining:   st.Remaining.Won,
			PercentUsed: st.PercentUsed,
			Over:        st.Over,
		})
	}
	return out
}
