package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"cashback/internal/core"
	ports "cashback/internal/sheets"
)

var _ ports.TabularStore = (*Store)(nil)

type table struct {
	rows    []ports.Row
	version int64
}

// Store keeps both tables in process memory. Versions are counters that
// advance on every write.
type Store struct {
	mu     sync.Mutex
	tables map[ports.Table]*table
}

func New() *Store {
	s := &Store{tables: make(map[ports.Table]*table)}
	for _, t := range ports.Tables() {
		s.tables[t] = &table{}
	}
	return s
}

// NewSeeded returns a store pre-populated with a catalog, useful for local
// development without a spreadsheet.
func NewSeeded(catalog core.Catalog) *Store {
	s := New()
	s.tables[ports.CardsTable].rows = ports.EncodeCatalog(catalog)
	s.tables[ports.CardsTable].version = 1
	return s
}

func (s *Store) ReadRows(_ context.Context, t ports.Table) (ports.Snapshot, error) {
	if err := t.Validate(); err != nil {
		return ports.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tb := s.tables[t]
	return ports.Snapshot{Rows: ports.CloneRows(tb.rows), Version: formatVersion(tb.version)}, nil
}

func (s *Store) OverwriteRows(_ context.Context, t ports.Table, rows []ports.Row, expectedVersion string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tb := s.tables[t]
	if expectedVersion != ports.AnyVersion && expectedVersion != formatVersion(tb.version) {
		return "", fmt.Errorf("%w: %s is at version %d, expected %s", ports.ErrConflict, t, tb.version, expectedVersion)
	}
	tb.rows = ports.CloneRows(rows)
	tb.version++
	return formatVersion(tb.version), nil
}

func (s *Store) AppendRow(_ context.Context, t ports.Table, row ports.Row) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tb := s.tables[t]
	tb.rows = append(tb.rows, row.Clone())
	tb.version++
	return formatVersion(tb.version), nil
}

func formatVersion(v int64) string {
	return strconv.FormatInt(v, 10)
}
