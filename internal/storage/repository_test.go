package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	ports "cashback/internal/sheets"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "cashback.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteOverwriteAndRead(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	snap, err := repo.ReadRows(ctx, ports.PurchasesTable)
	if err != nil {
		t.Fatalf("ReadRows on empty db: %v", err)
	}
	if len(snap.Rows) != 0 || snap.Version != "0" {
		t.Fatalf("unexpected empty snapshot: %+v", snap)
	}

	rows := []ports.Row{
		{"date": "2025-07-01 10:00", "card": "Visa", "category": "Gas", "amount": "10", "paid": "false", "id": "a"},
		{"date": "2025-07-02 11:00", "card": "Amex", "category": "Travel", "amount": "20.5", "paid": "true", "id": "b"},
	}
	v, err := repo.OverwriteRows(ctx, ports.PurchasesTable, rows, snap.Version)
	if err != nil {
		t.Fatalf("OverwriteRows: %v", err)
	}

	got, err := repo.ReadRows(ctx, ports.PurchasesTable)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != v {
		t.Errorf("version = %q, want %q", got.Version, v)
	}
	if !reflect.DeepEqual(got.Rows, rows) {
		t.Fatalf("rows = %v, want %v", got.Rows, rows)
	}
}

func TestSQLiteConflict(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	stale, _ := repo.ReadRows(ctx, ports.CardsTable)
	if _, err := repo.AppendRow(ctx, ports.CardsTable, ports.Row{"card_name": "Visa", "category": "Gas", "cashback_percent": "0.02"}); err != nil {
		t.Fatal(err)
	}
	_, err := repo.OverwriteRows(ctx, ports.CardsTable, nil, stale.Version)
	if !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	snap, _ := repo.ReadRows(ctx, ports.CardsTable)
	if len(snap.Rows) != 1 {
		t.Fatalf("conflicting write must be rolled back, got %v", snap.Rows)
	}
}

func TestSQLiteAppendKeepsOrderAcrossReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)

	for _, id := range []string{"1", "2", "3"} {
		if _, err := repo.AppendRow(ctx, ports.PurchasesTable, ports.Row{"card": "Visa", "amount": id, "id": id}); err != nil {
			t.Fatal(err)
		}
	}
	before, _ := repo.ReadRows(ctx, ports.PurchasesTable)
	if _, err := repo.OverwriteRows(ctx, ports.PurchasesTable, []ports.Row{before.Rows[0], before.Rows[2]}, before.Version); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	after, err := reopened.ReadRows(ctx, ports.PurchasesTable)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range after.Rows {
		ids = append(ids, r["id"])
	}
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Fatalf("ids after delete and reopen = %v", ids)
	}
	if after.Version != "4" {
		t.Fatalf("version = %q, want 4", after.Version)
	}
}

func TestSQLiteUnknownTable(t *testing.T) {
	repo, _ := newTestRepo(t)
	if _, err := repo.ReadRows(context.Background(), ports.Table("nope")); !errors.Is(err, ports.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}
