package core

import (
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog", func() {
	var catalog Catalog

	BeforeEach(func() {
		catalog = NewCatalog()
		Expect(catalog.CreateCard("Visa", Rates{"Grocery": dec("0.05")})).To(Succeed())
	})

	Describe("CreateCard", func() {
		It("rejects a card without categories", func() {
			Expect(catalog.CreateCard("Amex", Rates{})).To(MatchError(ErrNoCategories))
			Expect(catalog).NotTo(HaveKey("Amex"))
		})

		It("rejects an empty name", func() {
			Expect(catalog.CreateCard("  ", Rates{"Gas": dec("0.01")})).To(MatchError(ErrValidation))
		})

		It("overwrites a card with the same name", func() {
			Expect(catalog.CreateCard("Visa", Rates{"Gas": dec("0.02")})).To(Succeed())
			Expect(catalog["Visa"]).To(HaveLen(1))
			Expect(catalog["Visa"]).To(HaveKey("Gas"))
		})

		It("initializes a nil catalog", func() {
			var empty Catalog
			Expect(empty.CreateCard("Visa", Rates{"Gas": dec("0.02")})).To(Succeed())
			Expect(empty).To(HaveKey("Visa"))
		})
	})

	Describe("AddCategory", func() {
		It("rejects a zero rate as a no-op", func() {
			Expect(catalog.AddCategory("Visa", "Gas", dec("0"))).To(MatchError(ErrInvalidRate))
			Expect(catalog["Visa"]).NotTo(HaveKey("Gas"))
		})

		It("accepts a 100% rate", func() {
			Expect(catalog.AddCategory("Visa", "Gas", RateFromPercent(dec("100")))).To(Succeed())
			Expect(catalog["Visa"]["Gas"]).To(equalDecimal("1"))
		})

		It("rejects an empty category name", func() {
			Expect(catalog.AddCategory("Visa", " ", dec("0.01"))).To(MatchError(ErrEmptyCategory))
			Expect(catalog["Visa"]).To(HaveLen(1))
		})

		It("reports an unknown card", func() {
			Expect(catalog.AddCategory("Amex", "Gas", dec("0.01"))).To(MatchError(ErrNotFound))
		})

		It("overwrites an existing category", func() {
			Expect(catalog.AddCategory("Visa", "Grocery", dec("0.07"))).To(Succeed())
			Expect(catalog["Visa"]["Grocery"]).To(equalDecimal("0.07"))
		})
	})

	Describe("mutations", func() {
		It("renames a category keeping its rate", func() {
			Expect(catalog.RenameCategory("Visa", "Grocery", "Food")).To(Succeed())
			Expect(catalog["Visa"]).NotTo(HaveKey("Grocery"))
			Expect(catalog["Visa"]["Food"]).To(equalDecimal("0.05"))
		})

		It("removes a category", func() {
			Expect(catalog.RemoveCategory("Visa", "Grocery")).To(Succeed())
			Expect(catalog["Visa"]).To(BeEmpty())
			Expect(catalog).To(HaveKey("Visa"))
		})

		It("reports a missing category", func() {
			Expect(catalog.RemoveCategory("Visa", "Travel")).To(MatchError(ErrCategoryNotFound))
		})

		It("clears all categories", func() {
			Expect(catalog.ClearCategories("Visa")).To(Succeed())
			Expect(catalog["Visa"]).To(BeEmpty())
		})

		It("deletes a card", func() {
			Expect(catalog.DeleteCard("Visa")).To(Succeed())
			Expect(catalog).To(BeEmpty())
			Expect(catalog.DeleteCard("Visa")).To(MatchError(ErrCardNotFound))
		})
	})

	Describe("ApplyEdits", func() {
		It("applies every edit in order", func() {
			err := catalog.ApplyEdits("Visa", []CategoryEdit{
				{Op: EditAdd, Category: "Gas", Rate: dec("0.02")},
				{Op: EditRename, Category: "Grocery", NewName: "Food"},
				{Op: EditSetRate, Category: "Gas", Rate: dec("0.03")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog["Visa"].Categories()).To(Equal([]string{"Food", "Gas"}))
			Expect(catalog["Visa"]["Gas"]).To(equalDecimal("0.03"))
		})

		It("leaves the card untouched when one edit fails", func() {
			err := catalog.ApplyEdits("Visa", []CategoryEdit{
				{Op: EditAdd, Category: "Gas", Rate: dec("0.02")},
				{Op: EditRemove, Category: "Travel"},
			})
			Expect(err).To(MatchError(ErrCategoryNotFound))
			Expect(catalog["Visa"]).To(HaveLen(1))
			Expect(catalog["Visa"]).To(HaveKey("Grocery"))
		})

		It("rejects unknown operations", func() {
			Expect(catalog.ApplyEdits("Visa", []CategoryEdit{{Op: "explode"}})).To(MatchError(ErrUnknownEdit))
		})
	})

	It("lists cards sorted by name", func() {
		Expect(catalog.CreateCard("Amex", Rates{"Travel": dec("0.04")})).To(Succeed())
		names := []string{}
		for _, c := range catalog.Cards() {
			names = append(names, c.Name)
		}
		Expect(names).To(Equal([]string{"Amex", "Visa"}))
	})

	It("clones deeply", func() {
		clone := catalog.Clone()
		Expect(clone.AddCategory("Visa", "Gas", dec("0.01"))).To(Succeed())
		Expect(catalog["Visa"]).NotTo(HaveKey("Gas"))
	})
})
