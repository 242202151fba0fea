package core

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
	"github.com/shopspring/decimal"
)

func TestCore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cashback Core Suite")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// equalDecimal compares decimals by value, ignoring exponent differences.
func equalDecimal(s string) types.GomegaMatcher {
	return WithTransform(func(d decimal.Decimal) string { return d.String() }, Equal(dec(s).String()))
}

func paidPtr(b bool) *bool { return &b }

var _ = Describe("Cashback calculator", func() {
	var (
		catalog Catalog
		ledger  Ledger
	)

	BeforeEach(func() {
		catalog = Catalog{
			"CardA": Rates{"Grocery": dec("0.05"), "Gas": dec("0.02")},
			"CardB": Rates{"Grocery": dec("0.03")},
		}
		ledger = Ledger{
			{ID: "1", Date: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC), Card: "CardA", Category: "Grocery", Amount: dec("100"), Paid: false},
			{ID: "2", Date: time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC), Card: "CardA", Category: "Gas", Amount: dec("50"), Paid: true},
			{ID: "3", Date: time.Date(2025, 8, 2, 18, 5, 0, 0, time.UTC), Card: "CardB", Category: "Grocery", Amount: dec("20"), Paid: false},
		}
	})

	Describe("RateFor", func() {
		It("returns the configured rate", func() {
			Expect(RateFor(catalog, "CardA", "Gas")).To(equalDecimal("0.02"))
		})

		It("returns zero for an unknown card", func() {
			Expect(RateFor(catalog, "Missing", "Grocery").IsZero()).To(BeTrue())
		})

		It("returns zero for an unknown category", func() {
			Expect(RateFor(catalog, "CardB", "Gas").IsZero()).To(BeTrue())
		})

		It("returns zero against a nil catalog", func() {
			Expect(RateFor(nil, "CardA", "Gas").IsZero()).To(BeTrue())
		})
	})

	Describe("Enrich", func() {
		var rows []EnrichedPurchase

		JustBeforeEach(func() {
			rows = Enrich(ledger, catalog)
		})

		It("keeps ledger order", func() {
			Expect(rows).To(HaveLen(3))
			Expect(rows[0].ID).To(Equal("1"))
			Expect(rows[2].ID).To(Equal("3"))
		})

		It("computes cashback as amount times rate", func() {
			for _, r := range rows {
				Expect(r.Cashback).To(equalDecimal(r.Amount.Mul(RateFor(catalog, r.Card, r.Category)).String()))
				Expect(r.Net).To(equalDecimal(r.Amount.Sub(r.Cashback).String()))
			}
			Expect(rows[0].Cashback).To(equalDecimal("5"))
			Expect(rows[0].Net).To(equalDecimal("95"))
		})

		When("the card was deleted from the catalog", func() {
			BeforeEach(func() {
				Expect(catalog.DeleteCard("CardB")).To(Succeed())
			})

			It("treats the orphaned purchase as zero cashback", func() {
				Expect(rows[2].Rate.IsZero()).To(BeTrue())
				Expect(rows[2].Cashback.IsZero()).To(BeTrue())
				Expect(rows[2].Net).To(equalDecimal("20"))
			})
		})
	})

	Describe("BuildReport", func() {
		It("totals a single card", func() {
			r := BuildReport(ledger, catalog, Filter{Card: "CardA"})
			Expect(r.Totals.Count).To(Equal(2))
			Expect(r.Totals.Amount).To(equalDecimal("150"))
			Expect(r.Totals.Cashback).To(equalDecimal("6.00"))
			Expect(r.Totals.Net).To(equalDecimal("144.00"))
		})

		It("totals unpaid amounts across cards", func() {
			r := BuildReport(ledger, catalog, Filter{Paid: paidPtr(false)})
			Expect(r.Totals.Unpaid).To(equalDecimal("120"))
			Expect(r.Totals.Amount).To(equalDecimal("120"))
		})

		It("combines filters with AND", func() {
			r := BuildReport(ledger, catalog, Filter{Card: "CardA", Paid: paidPtr(false)})
			Expect(r.Rows).To(HaveLen(1))
			Expect(r.Rows[0].ID).To(Equal("1"))
		})

		It("filters by calendar month", func() {
			r := BuildReport(ledger, catalog, Filter{Month: &YearMonth{Year: 2025, Month: time.August}})
			Expect(r.Rows).To(HaveLen(1))
			Expect(r.Rows[0].Card).To(Equal("CardB"))
		})

		It("returns zero totals for an empty subset", func() {
			r := BuildReport(ledger, catalog, Filter{Card: "Nope"})
			Expect(r.Rows).To(BeEmpty())
			Expect(r.Totals.Amount.IsZero()).To(BeTrue())
			Expect(r.Totals.Unpaid.IsZero()).To(BeTrue())
		})
	})
})
