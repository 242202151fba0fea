package core

import "github.com/shopspring/decimal"

// Append adds a validated purchase at the end of the ledger.
func (l *Ledger) Append(p Purchase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

// IndexOf returns the position of the purchase with the given id, or -1.
func (l Ledger) IndexOf(id string) int {
	for i, p := range l {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Update changes amount and paid status of the purchase at index.
// Positions shift after deletions; prefer UpdateByID across reloads.
func (l Ledger) Update(index int, amount decimal.Decimal, paid bool) error {
	if index < 0 || index >= len(l) {
		return ErrPurchaseNotFound
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	l[index].Amount = amount
	l[index].Paid = paid
	return nil
}

// Delete removes the purchase at index, keeping the order of the rest.
func (l *Ledger) Delete(index int) error {
	if index < 0 || index >= len(*l) {
		return ErrPurchaseNotFound
	}
	*l = append((*l)[:index], (*l)[index+1:]...)
	return nil
}

func (l Ledger) UpdateByID(id string, amount decimal.Decimal, paid bool) error {
	return l.Update(l.IndexOf(id), amount, paid)
}

func (l *Ledger) DeleteByID(id string) error {
	return l.Delete(l.IndexOf(id))
}

// Select returns the purchases matching f, in ledger order.
func (l Ledger) Select(f Filter) Ledger {
	var out Ledger
	for _, p := range l {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// MarkAllPaid sets paid on every purchase in the filtered view and returns
// how many records changed.
func (l Ledger) MarkAllPaid(f Filter) int {
	changed := 0
	for i := range l {
		if !f.Match(l[i]) || l[i].Paid {
			continue
		}
		l[i].Paid = true
		changed++
	}
	return changed
}
