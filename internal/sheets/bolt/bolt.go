package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ports "cashback/internal/sheets"

	"go.etcd.io/bbolt"
)

var (
	_ ports.TabularStore = (*Store)(nil)

	rowsKey    = []byte("rows")
	versionKey = []byte("version")
)

// Store keeps one bucket per table holding the JSON-encoded rows and a
// version counter. Each write is a single bolt transaction.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, t := range ports.Tables() {
			if _, err := tx.CreateBucketIfNotExists([]byte(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadRows(_ context.Context, t ports.Table) (ports.Snapshot, error) {
	if err := t.Validate(); err != nil {
		return ports.Snapshot{}, err
	}
	var snap ports.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t))
		rows, err := decodeRows(b)
		if err != nil {
			return err
		}
		snap = ports.Snapshot{Rows: rows, Version: strconv.FormatUint(version(b), 10)}
		return nil
	})
	if err != nil {
		return ports.Snapshot{}, storeError("read", t, err)
	}
	return snap, nil
}

func (s *Store) OverwriteRows(_ context.Context, t ports.Table, rows []ports.Row, expectedVersion string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	var next uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t))
		current := version(b)
		if expectedVersion != ports.AnyVersion && expectedVersion != strconv.FormatUint(current, 10) {
			return fmt.Errorf("%w: %s is at version %d, expected %s", ports.ErrConflict, t, current, expectedVersion)
		}
		if err := putRows(b, rows); err != nil {
			return err
		}
		next = current + 1
		return b.Put(versionKey, []byte(strconv.FormatUint(next, 10)))
	})
	if err != nil {
		return "", storeError("write", t, err)
	}
	return strconv.FormatUint(next, 10), nil
}

func (s *Store) AppendRow(_ context.Context, t ports.Table, row ports.Row) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	var next uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t))
		rows, err := decodeRows(b)
		if err != nil {
			return err
		}
		if err := putRows(b, append(rows, row)); err != nil {
			return err
		}
		next = version(b) + 1
		return b.Put(versionKey, []byte(strconv.FormatUint(next, 10)))
	})
	if err != nil {
		return "", storeError("write", t, err)
	}
	return strconv.FormatUint(next, 10), nil
}

func decodeRows(b *bbolt.Bucket) ([]ports.Row, error) {
	data := b.Get(rowsKey)
	if data == nil {
		return nil, nil
	}
	var rows []ports.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling rows: %w", err)
	}
	return rows, nil
}

func putRows(b *bbolt.Bucket, rows []ports.Row) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}
	return b.Put(rowsKey, data)
}

func version(b *bbolt.Bucket) uint64 {
	v, _ := strconv.ParseUint(string(b.Get(versionKey)), 10, 64)
	return v
}

// storeError marks every bolt failure as unavailable, except conflicts.
func storeError(op string, t ports.Table, err error) error {
	if errors.Is(err, ports.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: bolt %s %s: %w", ports.ErrUnavailable, op, t, err)
}
