// Package http serves the fintrack JSON API.
//
// This file implements the parsing and validation of request data shared by
// the handlers: path ids, query windows, month selectors and JSON bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	dateLayout      = "2006-01-02"
	maxJSONBodySize = 1 << 20
)

// MonthParams holds a year and month selected by query parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month, defaulting to now's month.
// Present but malformed values are validation errors.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1970 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", core.ErrValidation, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: invalid month %q", core.ErrValidation, v)
		}
		params.Month = m
	}
	return params, nil
}

// ParseWindow reads the inclusive from/to dates (YYYY-MM-DD) into a half-open
// window in loc. Missing bounds stay open.
func ParseWindow(query url.Values, loc *time.Location) (core.Window, error) {
	var w core.Window
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		from, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: invalid from date %q", core.ErrValidation, v)
		}
		w.Start = from
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		to, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: invalid to date %q", core.ErrValidation, v)
		}
		w.End = to.AddDate(0, 0, 1)
	}
	if !w.Start.IsZero() && !w.End.IsZero() && !w.End.After(w.Start) {
		return core.Window{}, fmt.Errorf("%w: from must not be after to", core.ErrValidation)
	}
	return w, nil
}

// ParseWindowOrMonth is ParseWindow with now's calendar month as the default
// when neither bound is given.
func ParseWindowOrMonth(query url.Values, now time.Time) (core.Window, error) {
	w, err := ParseWindow(query, now.Location())
	if err != nil {
		return core.Window{}, err
	}
	if w.Start.IsZero() && w.End.IsZero() {
		return core.MonthWindow(now), nil
	}
	return w, nil
}

// ParseDateTime accepts a calendar date, placed at noon in loc, or an RFC 3339 timestamp.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrValidation, s)
	}
	return t, nil
}

// ParseLimit reads a positive "limit" query value capped at maxLimit.
func ParseLimit(query url.Values, defaultLimit, maxLimit int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid limit %q", core.ErrValidation, v)
	}
	return min(n, maxLimit), nil
}

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, v)
	}
	return id, nil
}

// pathIndex reads a zero-based index path value.
func pathIndex(r *http.Request, name string) (int, error) {
	v := r.PathValue(name)
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, v)
	}
	return i, nil
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields and
// bodies over 1 MiB are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", core.ErrValidation)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", core.ErrValidation, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrValidation)
	}
	return nil
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// Amount accepts a JSON string ("12,34") or number (12.34) and holds cents.
type Amount core.Money

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	m, err := core.ParseMoney(raw)
	if err != nil {
		return err
	}
	*a = Amount(m)
	return nil
}
