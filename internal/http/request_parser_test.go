package http

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		query   string
		want    MonthParams
		wantErr bool
	}{
		{"", MonthParams{2024, 3}, false},
		{"year=2023&month=12", MonthParams{2023, 12}, false},
		{"month= 7 ", MonthParams{2024, 7}, false},
		{"month=0", MonthParams{}, true},
		{"month=abc", MonthParams{}, true},
		{"year=99", MonthParams{}, true},
	}
	for _, tc := range cases {
		q, _ := url.ParseQuery(tc.query)
		got, err := ParseMonthParams(q, now)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: err=%v", tc.query, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("%q: got %+v want %+v", tc.query, got, tc.want)
		}
	}
}

func TestParseTransactionFilter(t *testing.T) {
	q, _ := url.ParseQuery("from=2024-03-01&to=2024-03-31&type=income")
	f, err := ParseTransactionFilter(q)
	if err != nil {
		t.Fatal(err)
	}
	if f.From.String() != "2024-03-01" || f.To.String() != "2024-03-31" || f.Type != "income" {
		t.Fatalf("filter = %+v", f)
	}

	for _, bad := range []string{"from=03/01/2024", "to=x", "type=transfer", "from=2024-03-31&to=2024-03-01"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseTransactionFilter(q); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestWonAmountUnmarshal(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`15000`, 15000, false},
		{`"15,000원"`, 15000, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"1.5"`, 0, true},
		{`1.5`, 0, true},
	}
	for _, tc := range cases {
		var a wonAmount
		err := json.Unmarshal([]byte(tc.in), &a)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v", tc.in, err)
		}
		if !tc.wantErr && int64(a) != tc.want {
			t.Fatalf("%s: got %d", tc.in, a)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  커피\x00\x07 한잔\n "); got != "커피 한잔" {
		t.Fatalf("got %q", got)
	}
}
