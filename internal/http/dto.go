package http

import (
	"cashback/internal/core"

	"github.com/shopspring/decimal"
)

// Rates cross the API as percentages; amounts and money totals are decimal
// strings so clients never see binary floats.

type (
	cardDTO struct {
		Name       string                     `json:"name"`
		Categories map[string]decimal.Decimal `json:"categories"`
	}

	createCardRequest struct {
		Name       string                     `json:"name"`
		Categories map[string]decimal.Decimal `json:"categories"`
	}

	categoryEditDTO struct {
		Op       string          `json:"op"`
		Category string          `json:"category"`
		NewName  string          `json:"new_name,omitempty"`
		Percent  decimal.Decimal `json:"percent"`
	}

	mutateCardRequest struct {
		Edits []categoryEditDTO `json:"edits"`
	}

	purchaseDTO struct {
		ID       string          `json:"id"`
		Date     string          `json:"date"`
		Card     string          `json:"card"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Paid     bool            `json:"paid"`
	}

	createPurchaseRequest struct {
		Card     string          `json:"card"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Paid     bool            `json:"paid"`
	}

	updatePurchaseRequest struct {
		Amount decimal.Decimal `json:"amount"`
		Paid   bool            `json:"paid"`
	}

	reportRowDTO struct {
		purchaseDTO
		RatePercent decimal.Decimal `json:"rate_percent"`
		Cashback    decimal.Decimal `json:"cashback"`
		Net         decimal.Decimal `json:"net"`
	}

	totalsDTO struct {
		Count    int             `json:"count"`
		Amount   decimal.Decimal `json:"amount"`
		Cashback decimal.Decimal `json:"cashback"`
		Net      decimal.Decimal `json:"net"`
		Unpaid   decimal.Decimal `json:"unpaid"`
	}

	filterDTO struct {
		Card  string `json:"card,omitempty"`
		Paid  *bool  `json:"paid,omitempty"`
		Month string `json:"month,omitempty"`
	}

	reportDTO struct {
		Filter filterDTO      `json:"filter"`
		Rows   []reportRowDTO `json:"rows"`
		Totals totalsDTO      `json:"totals"`
	}

	markPaidResponse struct {
		Changed int `json:"changed"`
	}
)

func toCardDTOs(c core.Catalog) []cardDTO {
	cards := c.Cards()
	out := make([]cardDTO, 0, len(cards))
	for _, card := range cards {
		cats := make(map[string]decimal.Decimal, len(card.Categories))
		for name, rate := range card.Categories {
			cats[name] = core.Percent(rate)
		}
		out = append(out, cardDTO{Name: card.Name, Categories: cats})
	}
	return out
}

func toPurchaseDTO(p core.Purchase) purchaseDTO {
	date := p.StoredDate
	if !p.Date.IsZero() {
		date = p.Date.Format(core.DateLayout)
	}
	return purchaseDTO{
		ID:       p.ID,
		Date:     date,
		Card:     p.Card,
		Category: p.Category,
		Amount:   p.Amount,
		Paid:     p.Paid,
	}
}

func toPurchaseDTOs(l core.Ledger) []purchaseDTO {
	out := make([]purchaseDTO, len(l))
	for i, p := range l {
		out[i] = toPurchaseDTO(p)
	}
	return out
}

func toReportDTO(r core.Report) reportDTO {
	rows := make([]reportRowDTO, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = reportRowDTO{
			purchaseDTO: toPurchaseDTO(row.Purchase),
			RatePercent: core.Percent(row.Rate),
			Cashback:    row.Cashback.Round(2),
			Net:         row.Net.Round(2),
		}
	}
	f := filterDTO{Card: r.Filter.Card, Paid: r.Filter.Paid}
	if r.Filter.Month != nil {
		f.Month = r.Filter.Month.String()
	}
	return reportDTO{
		Filter: f,
		Rows:   rows,
		Totals: totalsDTO{
			Count:    r.Totals.Count,
			Amount:   r.Totals.Amount,
			Cashback: r.Totals.Cashback.Round(2),
			Net:      r.Totals.Net.Round(2),
			Unpaid:   r.Totals.Unpaid,
		},
	}
}

// toEdits converts request edits, turning percentages into rates.
func toEdits(in []categoryEditDTO) []core.CategoryEdit {
	out := make([]core.CategoryEdit, len(in))
	for i, e := range in {
		out[i] = core.CategoryEdit{
			Op:       core.EditOp(e.Op),
			Category: sanitizeInput(e.Category),
			NewName:  sanitizeInput(e.NewName),
			Rate:     core.RateFromPercent(e.Percent),
		}
	}
	return out
}
