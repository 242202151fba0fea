package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"cashback/internal/core"

	"github.com/shopspring/decimal"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{"card": {" CardA "}, "paid": {"false"}, "month": {"2025-07"}})
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Card != "CardA" || f.Paid == nil || *f.Paid || f.Month == nil || f.Month.Month != time.July {
		t.Fatalf("unexpected filter: %+v", f)
	}

	f, err = ParseFilter(url.Values{})
	if err != nil || f.Card != "" || f.Paid != nil || f.Month != nil {
		t.Fatalf("empty query should not filter: %+v %v", f, err)
	}

	if _, err := ParseFilter(url.Values{"paid": {"sometimes"}}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseCategoryRates(t *testing.T) {
	rates, err := parseCategoryRates(map[string]decimal.Decimal{" Gas ": decimal.NewFromInt(2), "Grocery": decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rates["Gas"].Equal(decimal.RequireFromString("0.02")) || !rates["Grocery"].Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("unexpected rates: %v", rates)
	}

	_, err = parseCategoryRates(map[string]decimal.Decimal{"Gro\x00cery": decimal.NewFromInt(1), "Grocery": decimal.NewFromInt(5)})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for colliding names, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Gas  ", "Gas"},
		{"Gro\x00cery", "Grocery"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name, remote, xff, want string
	}{
		{"direct", "203.0.113.5:4000", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:4000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad header", "10.0.0.2:4000", "garbage", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptestRequest(tt.remote, tt.xff)
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
