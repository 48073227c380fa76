package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gagyebu/internal/core"
	"gagyebu/internal/log"
	"gagyebu/internal/services"
)

type errorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Matches []matchResponse `json:"matches,omitempty"`
}

// badRequestError marks request parsing problems.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return badRequestError{msg: msg} }

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidPerson,
	core.ErrEmptyHousehold,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrDescriptionTooLong,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a JSON body. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if dup, ok := services.IsDuplicate(err); ok {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "duplicate",
			Message: dup.Warning,
			Matches: toMatchResponses(dup.Matches),
		})
		return
	}

	var bad badRequestError
	if errors.As(err, &bad) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: bad.msg})
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
		return
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
				log.FieldOperation, log.OpValidate,
				log.FieldError, err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: v.Error()})
			return
		}
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
		log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:   "rate_limited",
		Message: "Rate limit exceeded. Please try again later.",
	})
}
