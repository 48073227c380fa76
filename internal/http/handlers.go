package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"gagyebu/internal/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the store and runs the configured checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	record := func(name string, err error) {
		if err != nil {
			ready = false
			checks[name] = err.Error()
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			return
		}
		checks[name] = "ok"
	}

	if p, ok := s.store.(pinger); ok {
		record("store", p.Ping(ctx))
	}
	names := make([]string, 0, len(s.readyChecks))
	for name := range s.readyChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		record(name, s.readyChecks[name](ctx))
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	hh, err := s.store.CreateHousehold(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Household created", log.FieldHousehold, hh.ID)
	writeJSON(w, http.StatusCreated, householdResponse{ID: hh.ID, Name: hh.Name, CreatedAt: hh.CreatedAt})
}

func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	hh, err := s.store.GetHousehold(r.Context(), r.PathValue("householdID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, householdResponse{ID: hh.ID, Name: hh.Name, CreatedAt: hh.CreatedAt})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.store.AddMember(r.Context(), householdID, sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{ID: m.ID, HouseholdID: m.HouseholdID, Name: m.Name})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.requireHousehold(w, r)
	if !ok {
		return
	}
	members, err := s.store.ListMembers(r.Context(), householdID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{ID: m.ID, HouseholdID: m.HouseholdID, Name: m.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// requireHousehold writes a 404 and returns false when the household in the
// path does not exist.
func (s *Server) requireHousehold(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("householdID")
	if _, err := s.store.GetHousehold(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	return id, true
}
