package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Table names one of the two backing tables.
type Table string

const (
	CardsTable     Table = "cards"
	PurchasesTable Table = "purchases"
)

// AnyVersion disables the optimistic version check on OverwriteRows.
const AnyVersion = ""

var (
	cardColumns     = []string{"card_name", "category", "cashback_percent"}
	purchaseColumns = []string{"date", "card", "category", "amount", "paid", "id"}
)

var (
	// ErrUnavailable wraps transport failures and malformed store responses.
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when the stored version moved since it was read.
	ErrConflict     = errors.New("store version conflict")
	ErrUnknownTable = errors.New("unknown table")
)

// Tables lists every table in a fixed order.
func Tables() []Table {
	return []Table{CardsTable, PurchasesTable}
}

// Columns returns the header of the table, in storage order.
func (t Table) Columns() []string {
	switch t {
	case CardsTable:
		return append([]string(nil), cardColumns...)
	case PurchasesTable:
		return append([]string(nil), purchaseColumns...)
	}
	return nil
}

func (t Table) Validate() error {
	if t.Columns() == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTable, string(t))
	}
	return nil
}

// ParseTable accepts a table name in any case.
func ParseTable(s string) (Table, error) {
	t := Table(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Validate()
}

type (
	// Row is one record keyed by column name. Every cell is text.
	Row map[string]string

	// Snapshot is the full content of a table plus an opaque version token.
	Snapshot struct {
		Rows    []Row
		Version string
	}
)

// Ports for outbound adapters.
type (
	RowReader interface {
		ReadRows(ctx context.Context, table Table) (Snapshot, error)
	}

	// RowOverwriter replaces the whole table. When expectedVersion is not
	// AnyVersion and differs from the stored version, it returns ErrConflict
	// and writes nothing.
	RowOverwriter interface {
		OverwriteRows(ctx context.Context, table Table, rows []Row, expectedVersion string) (version string, err error)
	}

	RowAppender interface {
		AppendRow(ctx context.Context, table Table, row Row) (version string, err error)
	}

	TabularStore interface {
		RowReader
		RowOverwriter
		RowAppender
	}
)

// Values flattens a row into cells following the table's column order.
func (r Row) Values(t Table) []string {
	cols := t.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// RowFromValues builds a row from cells in the table's column order.
// Missing trailing cells are left empty.
func RowFromValues(t Table, values []string) Row {
	row := Row{}
	for i, c := range t.Columns() {
		if i < len(values) {
			row[c] = strings.TrimSpace(values[i])
		} else {
			row[c] = ""
		}
	}
	return row
}

// Clone copies the row so callers can keep it after the store changes.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows deep-copies a slice of rows.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
