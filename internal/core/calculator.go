package core

import "github.com/shopspring/decimal"

type (
	// EnrichedPurchase carries the derived cashback fields of one purchase.
	EnrichedPurchase struct {
		Purchase
		Rate     decimal.Decimal
		Cashback decimal.Decimal
		Net      decimal.Decimal
	}

	// Totals aggregates a set of enriched purchases.
	Totals struct {
		Count    int
		Amount   decimal.Decimal
		Cashback decimal.Decimal
		Net      decimal.Decimal
		Unpaid   decimal.Decimal
	}

	// Filter narrows a ledger before aggregation. Zero-valued fields do not
	// filter; set fields are combined with AND.
	Filter struct {
		Card  string
		Paid  *bool
		Month *YearMonth
	}

	Report struct {
		Filter Filter
		Rows   []EnrichedPurchase
		Totals Totals
	}
)

// RateFor returns the configured rate, or zero when the card or category is
// not in the catalog.
func RateFor(c Catalog, card, category string) decimal.Decimal {
	rate, ok := c[card][category]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// Enrich derives rate, cashback and net for every purchase.
func Enrich(l Ledger, c Catalog) []EnrichedPurchase {
	out := make([]EnrichedPurchase, len(l))
	for i, p := range l {
		rate := RateFor(c, p.Card, p.Category)
		cashback := p.Amount.Mul(rate)
		out[i] = EnrichedPurchase{
			Purchase: p,
			Rate:     rate,
			Cashback: cashback,
			Net:      p.Amount.Sub(cashback),
		}
	}
	return out
}

// Aggregate sums enriched rows. Unpaid sums the amount of unpaid rows only.
func Aggregate(rows []EnrichedPurchase) Totals {
	t := Totals{
		Amount:   decimal.Zero,
		Cashback: decimal.Zero,
		Net:      decimal.Zero,
		Unpaid:   decimal.Zero,
	}
	for _, r := range rows {
		t.Count++
		t.Amount = t.Amount.Add(r.Amount)
		t.Cashback = t.Cashback.Add(r.Cashback)
		t.Net = t.Net.Add(r.Net)
		if !r.Paid {
			t.Unpaid = t.Unpaid.Add(r.Amount)
		}
	}
	return t
}

// Match reports whether p passes every set criterion.
func (f Filter) Match(p Purchase) bool {
	if f.Card != "" && p.Card != f.Card {
		return false
	}
	if f.Paid != nil && p.Paid != *f.Paid {
		return false
	}
	if f.Month != nil && !f.Month.Contains(p.Date) {
		return false
	}
	return true
}

// BuildReport filters the ledger, enriches the subset and totals it.
func BuildReport(l Ledger, c Catalog, f Filter) Report {
	rows := Enrich(l.Select(f), c)
	return Report{Filter: f, Rows: rows, Totals: Aggregate(rows)}
}
