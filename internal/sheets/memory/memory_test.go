package memory

import (
	"context"
	"errors"
	"testing"

	"cashback/internal/core"
	ports "cashback/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := New()

	snap, err := s.ReadRows(ctx, ports.PurchasesTable)
	if err != nil || len(snap.Rows) != 0 || snap.Version != "0" {
		t.Fatalf("unexpected empty snapshot: %+v err=%v", snap, err)
	}

	row := ports.Row{"date": "2025-07-01 10:00", "card": "Visa", "category": "Gas", "amount": "10", "paid": "false", "id": "a"}
	v, err := s.AppendRow(ctx, ports.PurchasesTable, row)
	if err != nil || v != "1" {
		t.Fatalf("unexpected append: v=%q err=%v", v, err)
	}
	row["card"] = "mutated after append"

	snap, _ = s.ReadRows(ctx, ports.PurchasesTable)
	if len(snap.Rows) != 1 || snap.Rows[0]["card"] != "Visa" {
		t.Fatalf("store must copy rows: %v", snap.Rows)
	}
}

func TestMemoryStoreOverwriteVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	snap, _ := s.ReadRows(ctx, ports.CardsTable)

	rows := []ports.Row{{"card_name": "Visa", "category": "Gas", "cashback_percent": "0.02"}}
	v1, err := s.OverwriteRows(ctx, ports.CardsTable, rows, snap.Version)
	if err != nil {
		t.Fatalf("first overwrite: %v", err)
	}

	// A second writer still holding the old version must be refused.
	if _, err := s.OverwriteRows(ctx, ports.CardsTable, nil, snap.Version); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	after, _ := s.ReadRows(ctx, ports.CardsTable)
	if after.Version != v1 || len(after.Rows) != 1 {
		t.Fatalf("conflicting write must not change the table: %+v", after)
	}

	if _, err := s.OverwriteRows(ctx, ports.CardsTable, nil, ports.AnyVersion); err != nil {
		t.Fatalf("unconditional overwrite: %v", err)
	}
}

func TestMemoryStoreUnknownTable(t *testing.T) {
	if _, err := New().ReadRows(context.Background(), ports.Table("receipts")); !errors.Is(err, ports.ErrUnknownTable) {
		t.Fatalf("expected unknown table error, got %v", err)
	}
}

func TestNewSeeded(t *testing.T) {
	s := NewSeeded(core.Catalog{"Visa": core.Rates{"Gas": decimal.RequireFromString("0.02")}})
	snap, _ := s.ReadRows(context.Background(), ports.CardsTable)
	catalog, _ := ports.DecodeCatalog(snap.Rows)
	if !catalog["Visa"]["Gas"].Equal(decimal.RequireFromString("0.02")) {
		t.Fatalf("unexpected seeded catalog: %v", catalog)
	}
}
