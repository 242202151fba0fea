package worker

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cashback/internal/amqp"
	"cashback/internal/sheets"
	"cashback/internal/sheets/memory"
)

type failingReader struct{}

func (failingReader) ReadRows(context.Context, sheets.Table) (sheets.Snapshot, error) {
	return sheets.Snapshot{}, sheets.ErrUnavailable
}

func TestHandleTableChangedCopiesTable(t *testing.T) {
	ctx := context.Background()
	source, target := memory.New(), memory.New()

	row := sheets.Row{"date": "2025-07-01 10:00", "card": "Visa", "category": "Gas", "amount": "10", "paid": "false", "id": "a"}
	v, err := source.AppendRow(ctx, sheets.PurchasesTable, row)
	if err != nil {
		t.Fatal(err)
	}

	w := NewMirrorWorker(source, target)
	if err := w.HandleTableChanged(ctx, amqp.NewTableChangedMessage("purchases", v)); err != nil {
		t.Fatalf("HandleTableChanged: %v", err)
	}

	got, _ := target.ReadRows(ctx, sheets.PurchasesTable)
	if !reflect.DeepEqual(got.Rows, []sheets.Row{row}) {
		t.Fatalf("mirror rows = %v", got.Rows)
	}

	// A repeated notification for the same version must not rewrite the mirror.
	if err := w.HandleTableChanged(ctx, amqp.NewTableChangedMessage("purchases", v)); err != nil {
		t.Fatal(err)
	}
	again, _ := target.ReadRows(ctx, sheets.PurchasesTable)
	if again.Version != got.Version {
		t.Fatalf("mirror rewritten for an unchanged source: %s -> %s", got.Version, again.Version)
	}
}

func TestHandleTableChangedIgnoresUnknownTable(t *testing.T) {
	w := NewMirrorWorker(memory.New(), memory.New())
	if err := w.HandleTableChanged(context.Background(), &amqp.TableChangedMessage{Table: "receipts"}); err != nil {
		t.Fatalf("unknown tables should be acknowledged, got %v", err)
	}
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	source, target := memory.New(), memory.New()
	cards := []sheets.Row{{"card_name": "Visa", "category": "Gas", "cashback_percent": "0.02"}}
	if _, err := source.OverwriteRows(ctx, sheets.CardsTable, cards, sheets.AnyVersion); err != nil {
		t.Fatal(err)
	}

	if err := NewMirrorWorker(source, target).SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	got, _ := target.ReadRows(ctx, sheets.CardsTable)
	if !reflect.DeepEqual(got.Rows, cards) {
		t.Fatalf("mirror cards = %v", got.Rows)
	}
}

func TestSyncAllReportsSourceErrors(t *testing.T) {
	err := NewMirrorWorker(failingReader{}, memory.New()).SyncAll(context.Background())
	if !errors.Is(err, sheets.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
