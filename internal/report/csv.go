// Package report renders a household's month as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gagyebu/internal/core"
)

// utf8BOM makes spreadsheet applications detect UTF-8, so Hangul is not
// shown garbled.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var transactionHeader = []string{"날짜", "구분", "카테고리", "설명", "금액", "결제수단", "사용자", "메모"}

// MonthReport is everything written by WriteCSV.
type MonthReport struct {
	Year         int
	Month        int
	Transactions []core.Transaction
	Overview     core.MonthOverview
	// MemberNames maps person IDs to display names. Unknown IDs are written
	// as they are.
	MemberNames map[string]string
}

// Filename returns the suggested download name, e.g. "가계부_2024-03.csv".
func (r MonthReport) Filename() string {
	return fmt.Sprintf("가계부_%04d-%02d.csv", r.Year, r.Month)
}

// WriteCSV writes the transactions oldest first, a blank line and then the
// month summary with per-category expense totals.
func WriteCSV(w io.Writer, r MonthReport) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)

	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range sortedByDate(r.Transactions) {
		if err := cw.Write(transactionRecord(tx, r.MemberNames)); err != nil {
			return fmt.Errorf("write transaction %s: %w", tx.ID, err)
		}
	}

	ov := r.Overview
	summary := [][]string{
		{},
		{"요약", fmt.Sprintf("%04d-%02d", r.Year, r.Month)},
		{"총 수입", strconv.FormatInt(ov.TotalIncome.Won, 10)},
		{"총 지출", strconv.FormatInt(ov.TotalExpense.Won, 10)},
		{"잔액", strconv.FormatInt(ov.Balance().Won, 10)},
		{},
		{"카테고리", "지출"},
	}
	for _, c := range ov.ByCategory {
		summary = append(summary, []string{categoryLabel(c.Name), strconv.FormatInt(c.Amount.Won, 10)})
	}
	if err := cw.WriteAll(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func transactionRecord(tx core.Transaction, names map[string]string) []string {
	return []string{
		tx.Date.String(),
		typeLabel(tx.Type),
		categoryLabel(tx.Category),
		tx.Description,
		strconv.FormatInt(tx.Amount.Won, 10),
		tx.PaymentMethod,
		personLabel(tx, names),
		tx.Memo,
	}
}

func typeLabel(t core.TransactionType) string {
	if t == core.Income {
		return "수입"
	}
	return "지출"
}

func categoryLabel(name string) string {
	if name == "" {
		return "미분류"
	}
	return name
}

func personLabel(tx core.Transaction, names map[string]string) string {
	if tx.PersonType == core.PersonHousehold || tx.PersonID == "" {
		return "가구 공동"
	}
	if n, ok := names[tx.PersonID]; ok && n != "" {
		return n
	}
	return tx.PersonID
}

// sortedByDate returns a copy ordered by date, then creation time.
func sortedByDate(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// MonthRange returns the first and last calendar day of year+month.
func MonthRange(year, month int) (core.Date, core.Date) {
	first := core.NewDate(year, month, 1)
	return first, core.Date{Time: first.AddDate(0, 1, -1)}
}
