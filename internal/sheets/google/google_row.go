package google

import (
	"fmt"
	"strings"
	"time"

	"gagyebu/internal/core"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "가계부"

// Header is the column layout written by AppendTransaction.
var Header = []string{"ID", "날짜", "구분", "금액", "설명", "카테고리", "결제수단", "사용자", "메모", "기록시각"}

const lastColumn = "J"

// householdLabel is written in the person column for shared entries.
const householdLabel = "가구 공동"

func transactionRow(tx core.Transaction) []any {
	person := tx.PersonID
	if tx.PersonType == core.PersonHousehold || person == "" {
		person = householdLabel
	}
	recorded := ""
	if !tx.CreatedAt.IsZero() {
		recorded = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		tx.ID,
		tx.Date.String(),
		typeLabel(tx.Type),
		tx.Amount.Won,
		tx.Description,
		tx.Category,
		tx.PaymentMethod,
		person,
		tx.Memo,
		recorded,
	}
}

func typeLabel(t core.TransactionType) string {
	switch t {
	case core.Expense:
		return "지출"
	case core.Income:
		return "수입"
	default:
		return string(t)
	}
}

// findRow returns the 1-based row whose first cell equals id, or 0.
func findRow(values [][]any, id string) int {
	if id == "" {
		return 0
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func columnRange(sheet string) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(sheet), lastColumn)
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}
