package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pravacash/internal/core"
	"pravacash/internal/report"
)

// maxBodyBytes caps JSON request bodies; transaction payloads are tiny.
const maxBodyBytes = 1 << 20

// decodeJSON parses the request body into dst, rejecting unknown
// fields and trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// transactionRequest is the mutation payload. Amount arrives as raw
// JSON so malformed values can coerce to zero instead of failing the
// request, matching the lenient numeric handling of the import path.
type transactionRequest struct {
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
	PIN         string          `json:"pin,omitempty"`
}

func (req transactionRequest) toTransaction(userID string) (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:      userID,
		Description: strings.TrimSpace(req.Description),
		Type:        core.TransactionType(req.Type),
		Amount:      coerceAmount(req.Amount),
		Date:        date,
	}, nil
}

// coerceAmount reads a numeric amount leniently: numbers and numeric
// strings pass through, anything else becomes zero. Fractions round to
// the nearest unit.
func coerceAmount(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if f < 0 {
		return 0
	}
	return int64(f + 0.5)
}

// parseLedgerQuery reads the filter and pagination parameters.
func parseLedgerQuery(r *http.Request) (report.Params, int, int) {
	q := r.URL.Query()

	params := report.Params{
		Search: q.Get("search"),
		Type:   core.TransactionType(q.Get("type")),
	}
	if v := q.Get("dateFrom"); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			params.DateFrom = d
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			params.DateTo = d
		}
	}

	page := queryInt(q.Get("page"), 1)
	pageSize := queryInt(q.Get("pageSize"), 25)
	if pageSize > 100 {
		pageSize = 100
	}
	return params, page, pageSize
}

func queryInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// queryDate reads an optional reference date override; a zero Date
// means "today".
func queryDate(r *http.Request, key string) core.Date {
	v := r.URL.Query().Get(key)
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}
	}
	return d
}
