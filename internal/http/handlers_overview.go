package http

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
	"gagyebu/internal/log"
	"gagyebu/internal/report"
)

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	p, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.monthOverview(r.Context(), householdID, p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewResponse(ov))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireHousehold(w, r); !ok {
		return
	}
	want := core.TransactionType(r.URL.Query().Get("type"))
	if want != "" && !want.IsValid() {
		s.writeError(w, r, badRequest(fmt.Sprintf("invalid type %q", want)))
		return
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		if want == "" || c.Type == want {
			out = append(out, categoryResponse{Name: c.Name, Type: string(c.Type)})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	p, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	statuses, err := s.budgets.Status(r.Context(), householdID, p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetStatusResponses(statuses))
}

// handleSetBudget creates or replaces the budget for an expense category.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b := core.Budget{
		HouseholdID: householdID,
		Category:    sanitizeInput(req.Category),
		Year:        req.Year,
		Month:       req.Month,
		Amount:      core.Money{Won: int64(req.Amount)},
	}

	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	known := false
	for _, c := range cats {
		if c.Name == b.Category && c.Type == core.Expense {
			known = true
			break
		}
	}
	if b.Category != "" && !known {
		s.writeError(w, r, badRequest(fmt.Sprintf("unknown expense category %q", b.Category)))
		return
	}

	if err := s.budgets.SetBudget(r.Context(), b); err != nil {
		s.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget set",
		log.FieldOperation, log.OpUpdate,
		log.FieldHousehold, householdID,
		log.FieldCategory, b.Category,
		log.FieldYear, b.Year,
		log.FieldMonth, b.Month)
	statuses, err := s.budgets.Status(r.Context(), householdID, b.Year, b.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetStatusResponses(statuses))
}

// handleExportCSV streams a month's transactions and summary as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	p, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()

	from, to := report.MonthRange(p.Year, p.Month)
	txs, err := s.transactions.List(ctx, householdID, ledger.TransactionFilter{From: from, To: to})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ov, err := s.monthOverview(ctx, householdID, p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	rep := report.MonthReport{Year: p.Year, Month: p.Month, Transactions: txs, Overview: ov, MemberNames: names}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="gagyebu_%04d-%02d.csv"; filename*=UTF-8''%s`,
		p.Year, p.Month, url.PathEscape(rep.Filename())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	log.FromContext(ctx).InfoContext(ctx, "Month exported as CSV",
		log.FieldHousehold, householdID,
		log.FieldOperation, log.OpExport,
		"year", p.Year,
		"month", p.Month,
		"rows", len(txs))
}
