package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"cashback/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// legacyIDNamespace seeds ids for purchase rows written before ids existed.
var legacyIDNamespace = uuid.MustParse("6f1c1d0e-4a8b-4f52-9c3e-2b7a5d9e8c41")

// CoercionWarning records a stored cell that could not be parsed and was
// replaced by a default. It never fails a load.
type CoercionWarning struct {
	Table  Table
	Row    int // zero-based index into the data rows
	Column string
	Value  string
	Reason string
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("%s row %d column %s: %s (value %q)", w.Table, w.Row, w.Column, w.Reason, w.Value)
}

// DecodeCatalog groups (card_name, category, cashback_percent) rows into a
// catalog. Rows without a card name are skipped; a row with a card name and
// no category keeps an empty card in the catalog.
func DecodeCatalog(rows []Row) (core.Catalog, []CoercionWarning) {
	catalog := core.NewCatalog()
	var warnings []CoercionWarning
	for i, row := range rows {
		card := strings.TrimSpace(row["card_name"])
		if card == "" {
			continue
		}
		if _, ok := catalog[card]; !ok {
			catalog[card] = core.Rates{}
		}
		category := strings.TrimSpace(row["category"])
		if category == "" {
			continue
		}
		raw := row["cashback_percent"]
		rate, err := parseDecimal(raw)
		if err != nil {
			warnings = append(warnings, CoercionWarning{Table: CardsTable, Row: i, Column: "cashback_percent", Value: raw, Reason: "not a number, using 0"})
			rate = decimal.Zero
		}
		if clamped := core.ClampRate(rate); !clamped.Equal(rate) {
			warnings = append(warnings, CoercionWarning{Table: CardsTable, Row: i, Column: "cashback_percent", Value: raw, Reason: "outside [0,1], clamped"})
			rate = clamped
		}
		catalog[card][category] = rate
	}
	return catalog, warnings
}

// EncodeCatalog flattens the catalog sorted by card and category, so
// encoding the same catalog twice yields identical rows.
func EncodeCatalog(c core.Catalog) []Row {
	var rows []Row
	for _, card := range c.Names() {
		rates := c[card]
		if len(rates) == 0 {
			rows = append(rows, Row{"card_name": card, "category": "", "cashback_percent": ""})
			continue
		}
		for _, category := range rates.Categories() {
			rows = append(rows, Row{
				"card_name":        card,
				"category":         category,
				"cashback_percent": rates[category].String(),
			})
		}
	}
	return rows
}

// DecodeLedger parses purchase rows leniently. A malformed amount becomes 0,
// paid is true only for a case-insensitive "true". A malformed date leaves
// Date zero but keeps the cell in StoredDate for the next save. Rows without
// an id get a deterministic one derived from their position and content.
func DecodeLedger(rows []Row) (core.Ledger, []CoercionWarning) {
	ledger := make(core.Ledger, 0, len(rows))
	var warnings []CoercionWarning
	seen := make(map[string]struct{}, len(rows))
	warn := func(i int, col, val, reason string) {
		warnings = append(warnings, CoercionWarning{Table: PurchasesTable, Row: i, Column: col, Value: val, Reason: reason})
	}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		p := core.Purchase{
			ID:       strings.TrimSpace(row["id"]),
			Card:     strings.TrimSpace(row["card"]),
			Category: strings.TrimSpace(row["category"]),
			Paid:     parsePaid(row["paid"]),
		}

		amount, err := parseDecimal(row["amount"])
		switch {
		case err != nil:
			warn(i, "amount", row["amount"], "not a number, using 0")
			amount = decimal.Zero
		case amount.IsNegative():
			warn(i, "amount", row["amount"], "negative, using 0")
			amount = decimal.Zero
		}
		p.Amount = amount

		if raw := strings.TrimSpace(row["date"]); raw != "" {
			p.StoredDate = raw
			t, err := core.ParseDate(raw)
			if err != nil {
				warn(i, "date", raw, "not a date, kept as stored")
			} else {
				p.Date = t
			}
		}

		if _, dup := seen[p.ID]; p.ID == "" || dup {
			if dup {
				warn(i, "id", p.ID, "duplicate id, reassigned")
			}
			p.ID = legacyID(i, row)
		}
		seen[p.ID] = struct{}{}
		ledger = append(ledger, p)
	}
	return ledger, warnings
}

// EncodeLedger writes the ledger in order.
func EncodeLedger(l core.Ledger) []Row {
	rows := make([]Row, len(l))
	for i, p := range l {
		rows[i] = EncodePurchase(p)
	}
	return rows
}

func EncodePurchase(p core.Purchase) Row {
	return Row{
		"date":     encodeDate(p),
		"card":     p.Card,
		"category": p.Category,
		"amount":   p.Amount.String(),
		"paid":     strconv.FormatBool(p.Paid),
		"id":       p.ID,
	}
}

// encodeDate keeps the stored cell unless Date was changed since load. An
// unparseable stored date is never replaced by an empty cell.
func encodeDate(p core.Purchase) string {
	if p.StoredDate != "" {
		t, err := core.ParseDate(p.StoredDate)
		if (err != nil && p.Date.IsZero()) || (err == nil && t.Equal(p.Date)) {
			return p.StoredDate
		}
	}
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.Format(core.DateLayout)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func parsePaid(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func isBlank(r Row) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func legacyID(i int, r Row) string {
	key := fmt.Sprintf("%d|%s|%s|%s|%s|%s", i, r["date"], r["card"], r["category"], r["amount"], r["paid"])
	return uuid.NewSHA1(legacyIDNamespace, []byte(key)).String()
}
