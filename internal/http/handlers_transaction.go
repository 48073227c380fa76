package http

import (
	"context"
	"fmt"
	"net/http"

	"gagyebu/internal/core"
	"gagyebu/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), householdID, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transactions listed",
		log.FieldOperation, log.OpList,
		log.FieldHousehold, householdID,
		"count", len(out))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	tx, err := s.transactions.Get(r.Context(), householdID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transaction read",
		log.FieldOperation, log.OpRead,
		log.FieldTransaction, tx.ID)
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// handleCreateTransaction answers 409 with the candidate matches when the
// transaction looks like a duplicate and confirm_duplicate is not set.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction(householdID, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkMember(r.Context(), tx); err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.transactions.Create(r.Context(), tx, req.ConfirmDuplicate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateHousehold(householdID)

	fields := log.NewFields().WithTransaction(saved.ID, householdID, string(saved.Type), saved.Amount.Won, saved.Date.String())
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created", fields.ToSlice()...)
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := s.transactions.Delete(r.Context(), householdID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateHousehold(householdID)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldHousehold, householdID,
		log.FieldTransaction, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckDuplicates scores a possibly incomplete form against history
// without saving anything.
func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, _ := req.toTransaction(householdID, false)
	report, err := s.transactions.CheckDuplicates(r.Context(), tx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	top := 0.0
	if len(report.Matches) > 0 {
		top = report.Matches[0].Similarity
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogDuplicateCheck(r.Context(), householdID, len(report.Matches), top, report.Likely)

	writeJSON(w, http.StatusOK, duplicateCheckResponse{
		Matches: toMatchResponses(report.Matches),
		Warning: report.Warning,
		Likely:  report.Likely,
	})
}

// checkMember rejects person IDs that are not members of the household.
func (s *Server) checkMember(ctx context.Context, tx core.Transaction) error {
	if tx.PersonType != core.PersonMember || tx.PersonID == "" {
		return nil
	}
	members, err := s.store.ListMembers(ctx, tx.HouseholdID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if m.ID == tx.PersonID {
			return nil
		}
	}
	return badRequest(fmt.Sprintf("person %q is not a member of this household", tx.PersonID))
}
