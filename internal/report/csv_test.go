package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gagyebu/internal/core"
)

func sampleReport() MonthReport {
	txs := []core.Transaction{
		{ID: "t3", Type: core.Income, Amount: core.Money{Won: 3000000}, Description: "3월 급여", Category: "급여",
			Date: core.NewDate(2024, 3, 25), PaymentMethod: "계좌이체", PersonType: core.PersonMember, PersonID: "u1"},
		{ID: "t1", Type: core.Expense, Amount: core.Money{Won: 15000}, Description: "스타벅스 강남점, 2층", Category: "카페/간식",
			Date: core.NewDate(2024, 3, 10), PaymentMethod: "신용카드", PersonType: core.PersonMember, PersonID: "u2",
			CreatedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
		{ID: "t2", Type: core.Expense, Amount: core.Money{Won: 52000}, Description: "이마트", Category: "",
			Date: core.NewDate(2024, 3, 10), PaymentMethod: "체크카드", PersonType: core.PersonHousehold,
			CreatedAt: time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)},
	}
	return MonthReport{
		Year:         2024,
		Month:        3,
		Transactions: txs,
		Overview:     core.NewMonthOverview(2024, 3, txs),
		MemberNames:  map[string]string{"u1": "김민수"},
	}
}

func TestWriteCSV(t *testing.T) {
	// Arrange
	var buf bytes.Buffer

	// Act
	err := WriteCSV(&buf, sampleReport())

	// Assert
	require.NoError(t, err)
	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, utf8BOM), "missing BOM")

	r := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):]))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, transactionHeader, records[0])
	assert.Equal(t, []string{"2024-03-10", "지출", "카페/간식", "스타벅스 강남점, 2층", "15000", "신용카드", "u2", ""}, records[1])
	assert.Equal(t, []string{"2024-03-10", "지출", "미분류", "이마트", "52000", "체크카드", "가구 공동", ""}, records[2])
	assert.Equal(t, []string{"2024-03-25", "수입", "급여", "3월 급여", "3000000", "계좌이체", "김민수", ""}, records[3])

	// encoding/csv skips blank lines on read.
	assert.Equal(t, []string{"요약", "2024-03"}, records[4])
	assert.Equal(t, []string{"총 수입", "3000000"}, records[5])
	assert.Equal(t, []string{"총 지출", "67000"}, records[6])
	assert.Equal(t, []string{"잔액", "2933000"}, records[7])
	assert.Equal(t, []string{"카테고리", "지출"}, records[8])
	assert.Equal(t, []string{"미분류", "52000"}, records[9])
	assert.Equal(t, []string{"카페/간식", "15000"}, records[10])
	assert.Len(t, records, 11)
}

func TestWriteCSV_EmptyMonth(t *testing.T) {
	var buf bytes.Buffer

	err := WriteCSV(&buf, MonthReport{Year: 2024, Month: 2, Overview: core.MonthOverview{Year: 2024, Month: 2}})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "잔액,0")
}

func TestFilenameAndMonthRange(t *testing.T) {
	assert.Equal(t, "가계부_2024-03.csv", MonthReport{Year: 2024, Month: 3}.Filename())

	from, to := MonthRange(2024, 2)
	assert.Equal(t, "2024-02-01", from.String())
	assert.Equal(t, "2024-02-29", to.String())
}
