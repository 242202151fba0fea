package core

import (
	"maps"

	"github.com/shopspring/decimal"
)

// EditOp names a single change to a card's categories.
type EditOp string

const (
	EditAdd     EditOp = "add"
	EditSetRate EditOp = "set_rate"
	EditRename  EditOp = "rename"
	EditRemove  EditOp = "remove"
	EditClear   EditOp = "clear"
)

// CategoryEdit is one step of a card mutation. Category is the target
// category, NewName is used by EditRename and Rate by EditAdd/EditSetRate.
type CategoryEdit struct {
	Op       EditOp
	Category string
	NewName  string
	Rate     decimal.Decimal
}

// ApplyEdits runs the edits against a copy of the card and only commits them
// to the catalog when every edit succeeds.
func (c Catalog) ApplyEdits(card string, edits []CategoryEdit) error {
	if _, ok := c[card]; !ok {
		return ErrCardNotFound
	}
	scratch := Catalog{card: maps.Clone(c[card])}
	for _, e := range edits {
		var err error
		switch e.Op {
		case EditAdd:
			err = scratch.AddCategory(card, e.Category, e.Rate)
		case EditSetRate:
			err = scratch.SetRate(card, e.Category, e.Rate)
		case EditRename:
			err = scratch.RenameCategory(card, e.Category, e.NewName)
		case EditRemove:
			err = scratch.RemoveCategory(card, e.Category)
		case EditClear:
			err = scratch.ClearCategories(card)
		default:
			err = ErrUnknownEdit
		}
		if err != nil {
			return err
		}
	}
	c[card] = scratch[card]
	return nil
}
