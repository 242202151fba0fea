// Package http provides the JSON API server and its handlers.
//
// This file implements request decoding and query parsing shared by the
// handlers.

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

	"cashback/internal/core"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds request bodies; the API only takes small documents.
const maxBodyBytes = 64 << 10

// decodeJSON reads a single JSON document into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// ParseFilter builds a report filter from card, paid and month (YYYY-MM)
// query parameters. Absent parameters do not filter.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter
	f.Card = sanitizeInput(query.Get("card"))
	if v := strings.TrimSpace(query.Get("paid")); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("%w: paid must be true or false", core.ErrValidation)
		}
		f.Paid = &paid
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		ym, err := core.ParseYearMonth(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.Month = &ym
	}
	return f, nil
}

// parseCategoryRates converts percentages keyed by category into rates.
// Names that collide once sanitized are rejected instead of merged.
func parseCategoryRates(categories map[string]decimal.Decimal) (core.Rates, error) {
	rates := make(core.Rates, len(categories))
	for category, percent := range categories {
		name := sanitizeInput(category)
		if _, dup := rates[name]; dup {
			return nil, fmt.Errorf("%w: category %q is given more than once", core.ErrValidation, name)
		}
		rates[name] = core.RateFromPercent(percent)
	}
	return rates, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
