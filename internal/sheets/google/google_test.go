package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gagyebu/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := loadCredentials(Config{CredentialsFile: path})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("file credentials = %q, %v", b, err)
	}
	b, err = loadCredentials(Config{CredentialsJSON: ` {"inline":true} `, CredentialsFile: path})
	if err != nil || string(b) != `{"inline":true}` {
		t.Fatalf("inline credentials = %q, %v", b, err)
	}
	if _, err := loadCredentials(Config{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: DefaultSheetName}
	tx := core.Transaction{
		ID:          "t1",
		HouseholdID: "h1",
		Type:        core.Expense,
		Amount:      core.Money{Won: 4500},
		Date:        core.NewDate(2024, 3, 10),
		PersonType:  core.PersonHousehold,
	}

	if _, err := c.AppendTransaction(context.Background(), tx); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.DeleteTransaction(context.Background(), "t1"); err == nil {
		t.Fatal("expected error without service")
	}

	tx.Amount = core.Money{}
	if _, err := c.AppendTransaction(context.Background(), tx); err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionRow(t *testing.T) {
	tx := core.Transaction{
		ID:            "t1",
		HouseholdID:   "h1",
		Type:          core.Expense,
		Amount:        core.Money{Won: 15000},
		Description:   "스타벅스 강남점",
		Date:          core.NewDate(2024, 3, 10),
		PaymentMethod: "신용카드",
		PersonType:    core.PersonMember,
		PersonID:      "u1",
		Category:      "카페/간식",
		CreatedAt:     time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC),
	}

	row := transactionRow(tx)

	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(Header))
	}
	want := []any{"t1", "2024-03-10", "지출", int64(15000), "스타벅스 강남점", "카페/간식", "신용카드", "u1", "", "2024-03-10T12:30:00Z"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d (%s) = %v, want %v", i, Header[i], row[i], want[i])
		}
	}

	tx.PersonType = core.PersonHousehold
	tx.PersonID = ""
	tx.Type = core.Income
	row = transactionRow(tx)
	if row[7] != householdLabel || row[2] != "수입" {
		t.Fatalf("household income row = %v", row)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"a1"},
		{},
		{" b2 "},
	}
	cases := []struct {
		id   string
		want int
	}{
		{"a1", 2},
		{"b2", 4},
		{"zz", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := findRow(values, tc.id); got != tc.want {
			t.Errorf("findRow(%q) = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestRanges(t *testing.T) {
	if got := columnRange("가계부"); got != "'가계부'!A:J" {
		t.Errorf("columnRange = %q", got)
	}
	if got := rowRange("Bob's", 7); got != "'Bob''s'!A7:J7" {
		t.Errorf("rowRange = %q", got)
	}
}
