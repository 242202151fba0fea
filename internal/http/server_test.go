package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cashback/internal/core"
	"cashback/internal/log"
	"cashback/internal/services"
	"cashback/internal/sheets"
	"cashback/internal/sheets/memory"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Format: "json", Output: &bytes.Buffer{}})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewCashbackService(memory.New(), services.WithLogger(testLogger()))
	srv := NewServer(":0", svc, testLogger(), Options{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Errorf("%s: missing request id header", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}
}

func TestReportFlow(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"name":"CardA","categories":{"Grocery":5,"Gas":"2"}}`,
		`{"name":"CardB","categories":{"Grocery":3}}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/cards", body); rr.Code != http.StatusCreated {
			t.Fatalf("create card status=%d body=%s", rr.Code, rr.Body.String())
		}
	}
	for _, body := range []string{
		`{"card":"CardA","category":"Grocery","amount":"100"}`,
		`{"card":"CardA","category":"Gas","amount":"50","paid":true}`,
		`{"card":"CardB","category":"Grocery","amount":20}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/purchases", body); rr.Code != http.StatusCreated {
			t.Fatalf("record purchase status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/report?card=CardA", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	var report reportDTO
	decodeBody(t, rr, &report)
	if report.Totals.Count != 2 || report.Totals.Amount.String() != "150" ||
		report.Totals.Cashback.StringFixed(2) != "6.00" || report.Totals.Net.StringFixed(2) != "144.00" {
		t.Errorf("unexpected CardA totals: %+v", report.Totals)
	}
	if report.Rows[0].RatePercent.String() != "5" {
		t.Errorf("rate percent = %s, want 5", report.Rows[0].RatePercent)
	}

	rr = do(t, srv, http.MethodGet, "/api/report?paid=false", "")
	decodeBody(t, rr, &report)
	if report.Totals.Unpaid.String() != "120" {
		t.Errorf("unpaid = %s, want 120", report.Totals.Unpaid)
	}

	rr = do(t, srv, http.MethodPost, "/api/purchases/mark-paid?card=CardB", "")
	var marked markPaidResponse
	decodeBody(t, rr, &marked)
	if marked.Changed != 1 {
		t.Errorf("mark-paid changed = %d, want 1", marked.Changed)
	}
}

func TestPurchaseUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/purchases", `{"card":"Visa","category":"Gas","amount":"10"}`)
	var p purchaseDTO
	decodeBody(t, rr, &p)
	if rr.Header().Get("Location") != "/api/purchases/"+p.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}

	if rr := do(t, srv, http.MethodPatch, "/api/purchases/"+p.ID, `{"amount":"12.5","paid":true}`); rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/purchases?paid=true", "")
	var list []purchaseDTO
	decodeBody(t, rr, &list)
	if len(list) != 1 || list[0].Amount.String() != "12.5" {
		t.Fatalf("unexpected purchases: %+v", list)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/purchases/"+p.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/purchases/"+p.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestCardEdits(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/cards", `{"name":"Visa","categories":{"Gas":2}}`)

	rr := do(t, srv, http.MethodPatch, "/api/cards/Visa", `{"edits":[{"op":"rename","category":"Gas","new_name":"Fuel"},{"op":"add","category":"Travel","percent":0}]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero rate, got %d", rr.Code)
	}
	rr = do(t, srv, http.MethodPatch, "/api/cards/Visa", `{"edits":[{"op":"rename","category":"Gas","new_name":"Fuel"},{"op":"set_rate","category":"Fuel","percent":150}]}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("mutate status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/catalog", "")
	var cards []cardDTO
	decodeBody(t, rr, &cards)
	if len(cards) != 1 || cards[0].Categories["Fuel"].String() != "100" {
		t.Fatalf("unexpected catalog: %+v", cards)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/cards/Missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("delete missing card status=%d", rr.Code)
	}
}

func TestCreateCardLocationIsEscaped(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/cards", `{"name":"Visa Gold/EU?","categories":{"Gas":2}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got, want := rr.Header().Get("Location"), "/api/cards/Visa%20Gold%2FEU%3F"; got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/purchases", `{"card":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/purchases", `{"cards":"x"}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/cards", "", http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/api/purchases", `{"card":"A","category":"B","amount":"0"}`, http.StatusUnprocessableEntity},
		{"card without categories", http.MethodPost, "/api/cards", `{"name":"A","categories":{}}`, http.StatusUnprocessableEntity},
		{"categories colliding after cleanup", http.MethodPost, "/api/cards", `{"name":"A","categories":{"Gas":2," Gas ":3}}`, http.StatusUnprocessableEntity},
		{"bad month", http.MethodGet, "/api/report?month=2025-13", "", http.StatusUnprocessableEntity},
		{"bad paid", http.MethodGet, "/api/report?paid=maybe", "", http.StatusUnprocessableEntity},
		{"wrong method", http.MethodPut, "/api/catalog", "", http.StatusMethodNotAllowed},
		{"unknown purchase", http.MethodPatch, "/api/purchases/nope", `{"amount":"1"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

// unavailableStore fails every read, as a spreadsheet outage would.
type unavailableStore struct{ sheets.TabularStore }

func (unavailableStore) ReadRows(context.Context, sheets.Table) (sheets.Snapshot, error) {
	return sheets.Snapshot{}, errors.Join(sheets.ErrUnavailable, errors.New("connection refused"))
}

func TestStoreUnavailable(t *testing.T) {
	svc := services.NewCashbackService(unavailableStore{memory.New()}, services.WithLogger(testLogger()))
	srv := NewServer(":0", svc, testLogger(), Options{})
	defer srv.Shutdown(context.Background())

	if rr := do(t, srv, http.MethodGet, "/api/report", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("report status=%d, want 503", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d, want 503", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	svc := services.NewCashbackService(memory.New(), services.WithLogger(testLogger()))
	srv := NewServer(":0", svc, testLogger(), Options{WritesPerMinute: 2})
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, srv, http.MethodDelete, "/api/cards/x", "").Code)
	}
	if codes[0] != http.StatusNotFound || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
	// Reads are never limited.
	if rr := do(t, srv, http.MethodGet, "/api/catalog", ""); rr.Code != http.StatusOK {
		t.Fatalf("read after limit status=%d", rr.Code)
	}
}

func TestErrorFromDomain(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrCardNotFound, http.StatusNotFound},
		{sheets.ErrConflict, http.StatusConflict},
		{sheets.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		ErrorFromDomain(tt.err).Write(rr)
		if rr.Code != tt.want {
			t.Errorf("%v: status=%d want %d", tt.err, rr.Code, tt.want)
		}
		if !strings.Contains(rr.Body.String(), `"error"`) {
			t.Errorf("%v: body %q lacks error field", tt.err, rr.Body.String())
		}
	}
}
