package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gagyebu/internal/ledger"
	"gagyebu/internal/ledger/memory"
	"gagyebu/internal/log"
	"gagyebu/internal/services"
)

type testEnv struct {
	srv       *Server
	household string
	member    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New(ledger.DefaultCategories)
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	srv := NewServer(":0", Deps{
		Store:              store,
		Transactions:       services.NewTransactionService(store),
		Logger:             log.New(cfg),
		MetricsHandler:     http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		ReadyChecks:        map[string]func(context.Context) error{"amqp": func(context.Context) error { return nil }},
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	env := &testEnv{srv: srv}
	var hh householdResponse
	env.mustDo(t, http.MethodPost, "/api/households", `{"name":"우리집"}`, http.StatusCreated, &hh)
	env.household = hh.ID
	var m memberResponse
	env.mustDo(t, http.MethodPost, env.path("/members"), `{"name":"김민수"}`, http.StatusCreated, &m)
	env.member = m.ID
	return env
}

func (e *testEnv) path(suffix string) string {
	return "/api/households/" + e.household + suffix
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) mustDo(t *testing.T, method, path, body string, want int, out any) *httptest.ResponseRecorder {
	t.Helper()
	rr := e.do(method, path, body)
	if rr.Code != want {
		t.Fatalf("%s %s: status=%d want %d body=%s", method, path, rr.Code, want, rr.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", rr.Body.String(), err)
		}
	}
	return rr
}

func (e *testEnv) txBody(amount, desc, date string, extra string) string {
	b := `{"type":"expense","amount":` + amount + `,"description":"` + desc + `","date":"` + date +
		`","payment_method":"신용카드","person_type":"member","person_id":"` + e.member + `","category":"카페/간식"`
	if extra != "" {
		b += "," + extra
	}
	return b + "}"
}

func TestHealthReadyMetrics(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := env.do(http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := env.do(http.MethodGet, "/readyz", "")
	if !strings.Contains(rr.Body.String(), `"amqp":"ok"`) {
		t.Fatalf("ready body = %s", rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing middleware headers: %v", rr.Header())
	}
}

func TestReadyFailsWhenCheckFails(t *testing.T) {
	store := memory.New(nil)
	srv := NewServer(":0", Deps{
		Store:        store,
		Transactions: services.NewTransactionService(store),
		ReadyChecks:  map[string]func(context.Context) error{"amqp": func(context.Context) error { return errors.New("connection closed") }},
	})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHouseholdRoutes(t *testing.T) {
	env := newTestEnv(t)

	var hh householdResponse
	env.mustDo(t, http.MethodGet, env.path(""), "", http.StatusOK, &hh)
	if hh.Name != "우리집" {
		t.Fatalf("household = %+v", hh)
	}
	var members []memberResponse
	env.mustDo(t, http.MethodGet, env.path("/members"), "", http.StatusOK, &members)
	if len(members) != 1 || members[0].Name != "김민수" {
		t.Fatalf("members = %+v", members)
	}

	env.mustDo(t, http.MethodPost, "/api/households", `{"name":"  "}`, http.StatusBadRequest, nil)
	env.mustDo(t, http.MethodPost, "/api/households", `{"name":"x","extra":1}`, http.StatusBadRequest, nil)
	env.mustDo(t, http.MethodGet, "/api/households/missing/transactions", "", http.StatusNotFound, nil)
}

func TestCreateTransactionAndDuplicateGate(t *testing.T) {
	env := newTestEnv(t)

	var first transactionResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody(`"15,000원"`, "스타벅스 역삼점", "2024-03-11", ""), http.StatusCreated, &first)
	if first.Amount != 15000 || first.AmountDisplay != "15,000원" || first.Date != "2024-03-11" {
		t.Fatalf("created = %+v", first)
	}

	var conflict errorResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("15000", "스타벅스 강남점", "2024-03-10", ""), http.StatusConflict, &conflict)
	if conflict.Error != "duplicate" || len(conflict.Matches) == 0 {
		t.Fatalf("conflict = %+v", conflict)
	}
	if conflict.Matches[0].Transaction.ID != first.ID || !strings.Contains(conflict.Message, "중복 가능성") {
		t.Fatalf("conflict match = %+v", conflict.Matches[0])
	}

	var second transactionResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("15000", "스타벅스 강남점", "2024-03-10", `"confirm_duplicate":true`), http.StatusCreated, &second)

	var list []transactionResponse
	env.mustDo(t, http.MethodGet, env.path("/transactions?from=2024-03-01&to=2024-03-31&type=expense"), "", http.StatusOK, &list)
	if len(list) != 2 || list[0].ID != first.ID {
		t.Fatalf("list = %+v", list)
	}

	var got transactionResponse
	env.mustDo(t, http.MethodGet, env.path("/transactions/"+second.ID), "", http.StatusOK, &got)
	if got.Description != "스타벅스 강남점" {
		t.Fatalf("get = %+v", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"zero amount", env.txBody("0", "커피", "2024-03-10", "")},
		{"decimal amount", env.txBody(`"1.5"`, "커피", "2024-03-10", "")},
		{"bad date", env.txBody("4500", "커피", "2024/03/10", "")},
		{"missing date", env.txBody("4500", "커피", "", "")},
		{"bad type", strings.Replace(env.txBody("4500", "커피", "2024-03-10", ""), `"expense"`, `"transfer"`, 1)},
		{"unknown member", strings.Replace(env.txBody("4500", "커피", "2024-03-10", ""), env.member, "stranger", 1)},
		{"empty body", ""},
		{"two objects", `{"type":"expense"}{"type":"income"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env.mustDo(t, http.MethodPost, env.path("/transactions"), tc.body, http.StatusBadRequest, nil)
		})
	}
}

func TestCheckDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("15000", "스타벅스 역삼점", "2024-03-11", ""), http.StatusCreated, nil)

	var res duplicateCheckResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions/duplicates"),
		env.txBody("15000", "스타벅스 강남점", "2024-03-10", ""), http.StatusOK, &res)
	if len(res.Matches) != 1 || !res.Likely || res.Warning == "" {
		t.Fatalf("check = %+v", res)
	}
	if res.Matches[0].Percent < 100 || len(res.Matches[0].Reasons) != 5 {
		t.Fatalf("match = %+v", res.Matches[0])
	}

	// Partial forms are scored with what they have.
	res = duplicateCheckResponse{}
	env.mustDo(t, http.MethodPost, env.path("/transactions/duplicates"),
		`{"type":"expense","description":"스타벅스","date":"not-yet"}`, http.StatusOK, &res)
	if len(res.Matches) != 0 || res.Likely || res.Matches == nil {
		t.Fatalf("partial check = %+v", res)
	}
}

func TestCheckDuplicates_ZeroAmount(t *testing.T) {
	env := newTestEnv(t)
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("4500", "스타벅스 강남점", "2024-03-15", ""), http.StatusCreated, nil)

	var res duplicateCheckResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions/duplicates"),
		env.txBody("0", "스타벅스 강남점", "2024-03-15", ""), http.StatusOK, &res)
	if len(res.Matches) != 0 || res.Likely || res.Warning != "" || res.Matches == nil {
		t.Fatalf("zero amount check = %+v", res)
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	var tx transactionResponse
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("4500", "커피", "2024-03-10", ""), http.StatusCreated, &tx)

	env.mustDo(t, http.MethodDelete, env.path("/transactions/"+tx.ID), "", http.StatusNoContent, nil)
	env.mustDo(t, http.MethodDelete, env.path("/transactions/"+tx.ID), "", http.StatusNotFound, nil)
	env.mustDo(t, http.MethodGet, env.path("/transactions/"+tx.ID), "", http.StatusNotFound, nil)
}

func TestOverviewIsInvalidatedOnWrite(t *testing.T) {
	env := newTestEnv(t)

	var ov overviewResponse
	env.mustDo(t, http.MethodGet, env.path("/overview?year=2024&month=3"), "", http.StatusOK, &ov)
	if ov.TotalExpense != 0 || ov.ByCategory == nil {
		t.Fatalf("empty overview = %+v", ov)
	}

	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("4500", "커피", "2024-03-10", ""), http.StatusCreated, nil)
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		`{"type":"income","amount":3000000,"description":"급여","date":"2024-03-25","category":"급여"}`, http.StatusCreated, nil)

	env.mustDo(t, http.MethodGet, env.path("/overview?year=2024&month=3"), "", http.StatusOK, &ov)
	if ov.TotalExpense != 4500 || ov.TotalIncome != 3000000 || ov.Balance != 2995500 {
		t.Fatalf("overview = %+v", ov)
	}
	if len(ov.ByCategory) != 1 || ov.ByCategory[0].Name != "카페/간식" {
		t.Fatalf("by category = %+v", ov.ByCategory)
	}

	env.mustDo(t, http.MethodGet, env.path("/overview?month=13"), "", http.StatusBadRequest, nil)
}

func TestCategoriesAndBudgets(t *testing.T) {
	env := newTestEnv(t)

	var cats []categoryResponse
	env.mustDo(t, http.MethodGet, env.path("/categories?type=income"), "", http.StatusOK, &cats)
	if len(cats) != 4 {
		t.Fatalf("income categories = %+v", cats)
	}

	env.mustDo(t, http.MethodPut, env.path("/budgets"), `{"category":"급여","year":2024,"month":3,"amount":100}`, http.StatusBadRequest, nil)
	env.mustDo(t, http.MethodPut, env.path("/budgets"), `{"category":"카페/간식","year":2024,"month":0,"amount":100}`, http.StatusBadRequest, nil)

	var statuses []budgetStatusResponse
	env.mustDo(t, http.MethodPut, env.path("/budgets"), `{"category":"카페/간식","year":2024,"month":3,"amount":"10,000원"}`, http.StatusOK, &statuses)
	if len(statuses) != 1 || statuses[0].Budget != 10000 || statuses[0].Spent != 0 {
		t.Fatalf("statuses = %+v", statuses)
	}

	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("12000", "커피 원두", "2024-03-10", ""), http.StatusCreated, nil)
	env.mustDo(t, http.MethodGet, env.path("/budgets?year=2024&month=3"), "", http.StatusOK, &statuses)
	if statuses[0].Spent != 12000 || !statuses[0].Over || statuses[0].PercentUsed != 120 {
		t.Fatalf("statuses after spend = %+v", statuses)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.mustDo(t, http.MethodPost, env.path("/transactions"),
		env.txBody("4500", "커피", "2024-03-10", ""), http.StatusCreated, nil)

	rr := env.mustDo(t, http.MethodGet, env.path("/reports/transactions.csv?year=2024&month=3"), "", http.StatusOK, nil)

	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "gagyebu_2024-03.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	body := bytes.TrimPrefix(rr.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) < 2 || records[1][3] != "커피" || records[1][6] != "김민수" {
		t.Fatalf("records = %v", records)
	}
}

func TestRateLimit(t *testing.T) {
	store := memory.New(nil)
	srv := NewServer(":0", Deps{Store: store, Transactions: services.NewTransactionService(store), RateLimitPerMinute: 1})
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/households/x", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNotFound || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Health checks are not limited.
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}
