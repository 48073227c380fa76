package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/ledger"
)

const maxBodyBytes = 64 << 10

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON: " + err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// MonthParams holds year/month query values.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, defaulting
// to the current month. Malformed or out-of-range values are errors.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	p := MonthParams{Year: now.Year(), Month: int(now.Month())}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return MonthParams{}, badRequest(fmt.Sprintf("invalid year %q", v))
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, badRequest(fmt.Sprintf("invalid month %q", v))
		}
		p.Month = m
	}
	return p, nil
}

// ParseTransactionFilter reads from, to and type query parameters.
func ParseTransactionFilter(query url.Values) (ledger.TransactionFilter, error) {
	var f ledger.TransactionFilter
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, badRequest(fmt.Sprintf("invalid from date %q", v))
		}
		f.From = d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, badRequest(fmt.Sprintf("invalid to date %q", v))
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return f, badRequest("to date is before from date")
	}
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t := core.TransactionType(v)
		if !t.IsValid() {
			return f, badRequest(fmt.Sprintf("invalid type %q", v))
		}
		f.Type = t
	}
	return f, nil
}

// wonAmount accepts a JSON number or a string such as "15,000원".
type wonAmount int64

func (a *wonAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*a = 0
			return nil
		}
		v, err := core.ParseWon(s)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*a = wonAmount(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a whole number of won: %w", core.ErrInvalidAmount)
	}
	*a = wonAmount(n)
	return nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
