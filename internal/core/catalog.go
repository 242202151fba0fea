package core

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// NewCatalog returns an empty, writable catalog.
func NewCatalog() Catalog {
	return make(Catalog)
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, rates := range c {
		out[name] = maps.Clone(rates)
		if out[name] == nil {
			out[name] = Rates{}
		}
	}
	return out
}

// Names returns card names in sorted order.
func (c Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Cards returns the catalog as a list sorted by card name.
func (c Catalog) Cards() []Card {
	out := make([]Card, 0, len(c))
	for _, name := range c.Names() {
		out = append(out, Card{Name: name, Categories: maps.Clone(c[name])})
	}
	return out
}

// Categories returns the category names of a card in sorted order.
func (r Rates) Categories() []string {
	return slices.Sorted(maps.Keys(r))
}

// CreateCard adds a card with its initial categories. An existing card with
// the same name is replaced.
func (c *Catalog) CreateCard(name string, categories Rates) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCardName
	}
	if len(categories) == 0 {
		return ErrNoCategories
	}
	rates := make(Rates, len(categories))
	for category, rate := range categories {
		category = strings.TrimSpace(category)
		if err := validateCategory(category, rate); err != nil {
			return err
		}
		rates[category] = ClampRate(rate)
	}
	if *c == nil {
		*c = NewCatalog()
	}
	(*c)[name] = rates
	return nil
}

// AddCategory inserts or overwrites a category on an existing card.
// Empty names and non-positive rates are rejected without changing anything.
func (c Catalog) AddCategory(card, category string, rate decimal.Decimal) error {
	category = strings.TrimSpace(category)
	if err := validateCategory(category, rate); err != nil {
		return err
	}
	rates, ok := c[card]
	if !ok {
		return ErrCardNotFound
	}
	if rates == nil {
		rates = Rates{}
		c[card] = rates
	}
	rates[category] = ClampRate(rate)
	return nil
}

// SetRate edits the rate of an existing category. Zero is allowed here.
func (c Catalog) SetRate(card, category string, rate decimal.Decimal) error {
	rates, ok := c[card]
	if !ok {
		return ErrCardNotFound
	}
	if _, ok := rates[category]; !ok {
		return ErrCategoryNotFound
	}
	rates[category] = ClampRate(rate)
	return nil
}

// RenameCategory moves a rate to a new category name. Renaming onto an
// existing category overwrites it.
func (c Catalog) RenameCategory(card, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrEmptyCategory
	}
	rates, ok := c[card]
	if !ok {
		return ErrCardNotFound
	}
	rate, ok := rates[from]
	if !ok {
		return ErrCategoryNotFound
	}
	delete(rates, from)
	rates[to] = rate
	return nil
}

func (c Catalog) RemoveCategory(card, category string) error {
	rates, ok := c[card]
	if !ok {
		return ErrCardNotFound
	}
	if _, ok := rates[category]; !ok {
		return ErrCategoryNotFound
	}
	delete(rates, category)
	return nil
}

// ClearCategories empties a card without deleting it.
func (c Catalog) ClearCategories(card string) error {
	if _, ok := c[card]; !ok {
		return ErrCardNotFound
	}
	c[card] = Rates{}
	return nil
}

// DeleteCard removes a card. Purchases that reference it are left alone.
func (c Catalog) DeleteCard(name string) error {
	if _, ok := c[name]; !ok {
		return ErrCardNotFound
	}
	delete(c, name)
	return nil
}

func validateCategory(category string, rate decimal.Decimal) error {
	if category == "" {
		return ErrEmptyCategory
	}
	if !rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}
