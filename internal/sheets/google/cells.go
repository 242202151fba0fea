package google

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	ports "cashback/internal/sheets"

	"github.com/shopspring/decimal"
)

// cellString renders a cell returned with UNFORMATTED_VALUE. Numbers are
// printed without exponent so large amounts survive the round trip.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(cellString(v))
	}
	return out
}

// typedCell converts a stored cell to the value sent to the sheet, so that
// amounts and rates stay numeric and paid stays a checkbox-friendly boolean.
func typedCell(column, value string) any {
	switch column {
	case "amount", "cashback_percent":
		if d, err := decimal.NewFromString(value); err == nil {
			return d.InexactFloat64()
		}
	case "paid":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}

// rowsToValues renders the header plus rows in column order.
func rowsToValues(t ports.Table, rows []ports.Row) [][]any {
	cols := t.Columns()
	out := make([][]any, 0, len(rows)+1)
	out = append(out, headerValues(cols))
	for _, r := range rows {
		out = append(out, rowValues(cols, r))
	}
	return out
}

func headerValues(cols []string) []any {
	h := make([]any, len(cols))
	for i, c := range cols {
		h[i] = c
	}
	return h
}

func rowValues(cols []string, r ports.Row) []any {
	line := make([]any, len(cols))
	for i, c := range cols {
		line[i] = typedCell(c, r[c])
	}
	return line
}

// valuesToRows maps a sheet matrix to rows. When the first line names the
// table's first column it is taken as the header and columns are matched by
// name; otherwise cells are read positionally.
func valuesToRows(t ports.Table, values [][]string) []ports.Row {
	if len(values) == 0 {
		return nil
	}
	cols := t.Columns()
	idx := make([]int, len(cols))
	start := 0
	if indexOf(values[0], cols[0]) != -1 {
		for i, c := range cols {
			idx[i] = indexOf(values[0], c)
		}
		start = 1
	} else {
		for i := range cols {
			idx[i] = i
		}
	}

	rows := make([]ports.Row, 0, len(values)-start)
	for _, line := range values[start:] {
		r := make(ports.Row, len(cols))
		for i, c := range cols {
			r[c] = strings.TrimSpace(safeGet(line, idx[i]))
		}
		rows = append(rows, r)
	}
	return rows
}

// versionOf hashes the sheet content. Trailing empty cells and rows are
// ignored because the API omits them on read.
func versionOf(values [][]string) string {
	h := sha256.New()
	for _, line := range trimMatrix(values) {
		for _, cell := range line {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func trimMatrix(values [][]string) [][]string {
	out := make([][]string, 0, len(values))
	for _, line := range values {
		n := len(line)
		for n > 0 && line[n-1] == "" {
			n--
		}
		out = append(out, line[:n])
	}
	n := len(out)
	for n > 0 && len(out[n-1]) == 0 {
		n--
	}
	return out[:n]
}

func stringMatrix(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, line := range values {
		out[i] = toStrings(line)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// columnSpan returns the A1 column range covering the table, e.g. "A:F".
func columnSpan(t ports.Table) string {
	last := rune('A' + len(t.Columns()) - 1)
	return fmt.Sprintf("A:%c", last)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
