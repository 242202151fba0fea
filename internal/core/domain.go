package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the minute-granularity timestamp format used in the store.
const DateLayout = "2006-01-02 15:04"

// dateLayouts are the stored date formats ParseDate accepts, most precise first.
var dateLayouts = []string{"2006-01-02 15:04:05", DateLayout, "2006-01-02"}

type (
	// Rates maps a category name to its cashback rate as a fraction in [0,1].
	Rates map[string]decimal.Decimal

	// Catalog maps a card name to its per-category rates.
	Catalog map[string]Rates

	// Card is a read-only view of one catalog entry.
	Card struct {
		Name       string
		Categories Rates
	}

	Purchase struct {
		ID       string
		Date     time.Time
		Card     string // Card name, not enforced against the catalog
		Category string // Category name within Card, not enforced
		Amount   decimal.Decimal
		Paid     bool

		// StoredDate is the date cell as loaded. It is written back as is
		// while it still describes Date, so loading and saving never
		// reformats or drops a stored date.
		StoredDate string
	}

	// Ledger is the ordered sequence of purchases as stored.
	Ledger []Purchase
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrInvalidRate      = fmt.Errorf("%w: cashback rate must be greater than zero", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: empty category name", ErrValidation)
	ErrEmptyCardName    = fmt.Errorf("%w: empty card name", ErrValidation)
	ErrNoCategories     = fmt.Errorf("%w: card needs at least one category", ErrValidation)
	ErrUnknownEdit      = fmt.Errorf("%w: unknown category edit", ErrValidation)
	ErrCardNotFound     = fmt.Errorf("card %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrPurchaseNotFound = fmt.Errorf("purchase %w", ErrNotFound)
)

// NewPurchase builds a purchase with a fresh identifier, timestamped at
// minute granularity.
func NewPurchase(card, category string, amount decimal.Decimal, paid bool, now time.Time) Purchase {
	return Purchase{
		ID:       uuid.NewString(),
		Date:     now.Truncate(time.Minute),
		Card:     strings.TrimSpace(card),
		Category: strings.TrimSpace(category),
		Amount:   amount,
		Paid:     paid,
	}
}

func (p Purchase) Validate() error {
	if strings.TrimSpace(p.Card) == "" {
		return ErrEmptyCardName
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	return ValidateAmount(p.Amount)
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ParseDate reads a stored purchase date with second, minute or day
// precision.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD [HH:MM[:SS]]", ErrValidation, s)
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrValidation, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.Year() == ym.Year && t.Month() == ym.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
