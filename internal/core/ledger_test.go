package core

import (
	"time"

	. "github.com/onsi/gomega"
)

var _ = Describe("Ledger", func() {
	var (
		ledger Ledger
		now    time.Time
	)

	BeforeEach(func() {
		now = time.Date(2025, 7, 1, 10, 15, 42, 0, time.UTC)
		ledger = Ledger{
			NewPurchase("CardA", "Grocery", dec("100"), false, now),
			NewPurchase("CardA", "Gas", dec("50"), true, now),
			NewPurchase("CardB", "Grocery", dec("20"), false, now),
		}
	})

	Describe("NewPurchase", func() {
		It("assigns distinct ids", func() {
			Expect(ledger[0].ID).NotTo(BeEmpty())
			Expect(ledger[0].ID).NotTo(Equal(ledger[1].ID))
		})

		It("truncates the timestamp to the minute", func() {
			Expect(ledger[0].Date).To(Equal(time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)))
		})
	})

	Describe("Append", func() {
		It("rejects a zero amount", func() {
			Expect(ledger.Append(NewPurchase("CardA", "Gas", dec("0"), false, now))).To(MatchError(ErrInvalidAmount))
			Expect(ledger).To(HaveLen(3))
		})

		It("accepts one cent", func() {
			Expect(ledger.Append(NewPurchase("CardA", "Gas", dec("0.01"), false, now))).To(Succeed())
			Expect(ledger).To(HaveLen(4))
		})

		It("rejects an empty category", func() {
			Expect(ledger.Append(NewPurchase("CardA", "", dec("1"), false, now))).To(MatchError(ErrValidation))
		})
	})

	Describe("Update", func() {
		It("changes amount and paid in place", func() {
			Expect(ledger.Update(2, dec("25"), true)).To(Succeed())
			Expect(ledger[2].Amount).To(equalDecimal("25"))
			Expect(ledger[2].Paid).To(BeTrue())
		})

		It("reports an out of range index", func() {
			Expect(ledger.Update(3, dec("1"), true)).To(MatchError(ErrNotFound))
			Expect(ledger.Update(-1, dec("1"), true)).To(MatchError(ErrNotFound))
		})

		It("rejects a non-positive amount", func() {
			Expect(ledger.Update(0, dec("-1"), true)).To(MatchError(ErrInvalidAmount))
			Expect(ledger[0].Amount).To(equalDecimal("100"))
		})

		It("finds records by id after earlier deletions", func() {
			id := ledger[2].ID
			Expect(ledger.Delete(0)).To(Succeed())
			Expect(ledger.UpdateByID(id, dec("30"), true)).To(Succeed())
			Expect(ledger[1].Amount).To(equalDecimal("30"))
		})
	})

	Describe("Delete", func() {
		It("keeps the relative order of the rest", func() {
			first, last := ledger[0].ID, ledger[2].ID
			Expect(ledger.Delete(1)).To(Succeed())
			Expect(ledger).To(HaveLen(2))
			Expect(ledger[0].ID).To(Equal(first))
			Expect(ledger[1].ID).To(Equal(last))
		})

		It("reports an unknown id", func() {
			Expect(ledger.DeleteByID("nope")).To(MatchError(ErrPurchaseNotFound))
		})
	})

	Describe("MarkAllPaid", func() {
		It("only touches the filtered view", func() {
			n := ledger.MarkAllPaid(Filter{Card: "CardA"})
			Expect(n).To(Equal(1))
			Expect(ledger[0].Paid).To(BeTrue())
			Expect(ledger[2].Paid).To(BeFalse())
		})
	})
})
