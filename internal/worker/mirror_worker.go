package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cashback/internal/amqp"
	"cashback/internal/sheets"
)

// MirrorWorker copies tables from the primary store to a mirror, typically
// a Google spreadsheet kept for viewing. The mirror is write-only from the
// worker's point of view, so writes skip the version check.
type MirrorWorker struct {
	source sheets.RowReader
	target sheets.RowOverwriter

	mu       sync.Mutex
	mirrored map[sheets.Table]string
}

func NewMirrorWorker(source sheets.RowReader, target sheets.RowOverwriter) *MirrorWorker {
	return &MirrorWorker{
		source:   source,
		target:   target,
		mirrored: make(map[sheets.Table]string),
	}
}

// HandleTableChanged mirrors the table named in msg. Messages naming an
// unknown table are logged and acknowledged.
func (w *MirrorWorker) HandleTableChanged(ctx context.Context, msg *amqp.TableChangedMessage) error {
	t, err := sheets.ParseTable(msg.Table)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring change of unknown table", "component", "worker", "table", msg.Table)
		return nil
	}
	return w.syncTable(ctx, t)
}

// SyncAll mirrors every table. It is the fallback for lost notifications
// and runs at startup and on a timer.
func (w *MirrorWorker) SyncAll(ctx context.Context) error {
	var errs []error
	for _, t := range sheets.Tables() {
		if err := w.syncTable(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run calls SyncAll every interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.SyncAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror sync failed", "component", "worker", "error", err)
			}
		}
	}
}

func (w *MirrorWorker) syncTable(ctx context.Context, t sheets.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, err := w.source.ReadRows(ctx, t)
	if err != nil {
		return fmt.Errorf("read %s from primary: %w", t, err)
	}
	if last, ok := w.mirrored[t]; ok && last == snap.Version {
		slog.DebugContext(ctx, "Mirror already current", "component", "worker", "table", string(t), "version", snap.Version)
		return nil
	}

	if _, err := w.target.OverwriteRows(ctx, t, snap.Rows, sheets.AnyVersion); err != nil {
		return fmt.Errorf("write %s to mirror: %w", t, err)
	}
	w.mirrored[t] = snap.Version

	slog.InfoContext(ctx, "Mirrored table",
		"component", "worker",
		"table", string(t),
		"version", snap.Version,
		"rows", len(snap.Rows))
	return nil
}
