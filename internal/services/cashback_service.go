package services

import (
	"context"
	"fmt"
	"time"

	"cashback/internal/core"
	"cashback/internal/log"
	"cashback/internal/sheets"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ChangeNotifier is told about every successful save.
type ChangeNotifier interface {
	PublishTableChanged(ctx context.Context, table, version string) error
}

// CashbackService runs every operation as load, mutate in memory, save.
// Saves carry the version read at load time, so a concurrent writer makes
// the later save fail with sheets.ErrConflict instead of losing data.
type CashbackService struct {
	store    sheets.TabularStore
	notifier ChangeNotifier
	logger   *log.Logger
	events   *log.StructuredLogger
	now      func() time.Time
}

type Option func(*CashbackService)

func WithNotifier(n ChangeNotifier) Option {
	return func(s *CashbackService) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *CashbackService) { s.logger = l.WithComponent(log.ComponentCashback) }
}

// WithClock overrides the time source used to stamp new purchases.
func WithClock(now func() time.Time) Option {
	return func(s *CashbackService) { s.now = now }
}

func NewCashbackService(store sheets.TabularStore, opts ...Option) *CashbackService {
	s := &CashbackService{
		store:  store,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentCashback),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

func (s *CashbackService) GetCatalog(ctx context.Context) (core.Catalog, error) {
	c, _, err := s.loadCatalog(ctx)
	return c, err
}

func (s *CashbackService) GetLedger(ctx context.Context) (core.Ledger, error) {
	l, _, err := s.loadLedger(ctx)
	return l, err
}

// CreateCard adds or replaces a card with its initial categories.
func (s *CashbackService) CreateCard(ctx context.Context, name string, categories core.Rates) error {
	return s.mutateCatalog(ctx, "create card", func(c *core.Catalog) error {
		return c.CreateCard(name, categories)
	})
}

// MutateCard applies edits to one card. Either every edit is saved or none.
func (s *CashbackService) MutateCard(ctx context.Context, name string, edits []core.CategoryEdit) error {
	return s.mutateCatalog(ctx, "mutate card", func(c *core.Catalog) error {
		return c.ApplyEdits(name, edits)
	})
}

// DeleteCard removes a card; purchases referencing it are kept.
func (s *CashbackService) DeleteCard(ctx context.Context, name string) error {
	return s.mutateCatalog(ctx, "delete card", func(c *core.Catalog) error {
		return c.DeleteCard(name)
	})
}

// RecordPurchase appends a new purchase stamped with the current minute.
func (s *CashbackService) RecordPurchase(ctx context.Context, card, category string, amount decimal.Decimal, paid bool) (core.Purchase, error) {
	p := core.NewPurchase(card, category, amount, paid, s.now())
	if err := p.Validate(); err != nil {
		return core.Purchase{}, fmt.Errorf("record purchase: %w", err)
	}
	version, err := s.store.AppendRow(ctx, sheets.PurchasesTable, sheets.EncodePurchase(p))
	if err != nil {
		return core.Purchase{}, fmt.Errorf("record purchase: %w", err)
	}
	s.events.LogPurchaseRecorded(ctx, p.ID, p.Card, p.Category, p.Amount.String(), version)
	s.notify(ctx, sheets.PurchasesTable, version)
	return p, nil
}

// UpdatePurchase changes amount and paid status of the purchase with id.
func (s *CashbackService) UpdatePurchase(ctx context.Context, id string, amount decimal.Decimal, paid bool) error {
	return s.mutateLedger(ctx, "update purchase", func(l *core.Ledger) (bool, error) {
		return true, l.UpdateByID(id, amount, paid)
	})
}

func (s *CashbackService) DeletePurchase(ctx context.Context, id string) error {
	return s.mutateLedger(ctx, "delete purchase", func(l *core.Ledger) (bool, error) {
		return true, l.DeleteByID(id)
	})
}

// MarkAllPaid marks every purchase matching f as paid and returns how many
// changed. Nothing is written when none changed.
func (s *CashbackService) MarkAllPaid(ctx context.Context, f core.Filter) (int, error) {
	var changed int
	err := s.mutateLedger(ctx, "mark all paid", func(l *core.Ledger) (bool, error) {
		changed = l.MarkAllPaid(f)
		return changed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// ComputeReport loads both tables concurrently and aggregates the purchases
// matching f.
func (s *CashbackService) ComputeReport(ctx context.Context, f core.Filter) (core.Report, error) {
	var (
		catalog core.Catalog
		ledger  core.Ledger
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, _, err = s.loadCatalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ledger, _, err = s.loadLedger(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, fmt.Errorf("compute report: %w", err)
	}
	return core.BuildReport(ledger, catalog, f), nil
}

// Ready checks that the store answers.
func (s *CashbackService) Ready(ctx context.Context) error {
	_, err := s.store.ReadRows(ctx, sheets.CardsTable)
	return err
}

func (s *CashbackService) mutateCatalog(ctx context.Context, op string, mutate func(*core.Catalog) error) error {
	catalog, version, err := s.loadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := mutate(&catalog); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	next, err := s.store.OverwriteRows(ctx, sheets.CardsTable, sheets.EncodeCatalog(catalog), version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.InfoContext(ctx, "Catalog saved", log.FieldOperation, op, log.FieldVersion, next, log.FieldCount, len(catalog))
	s.notify(ctx, sheets.CardsTable, next)
	return nil
}

func (s *CashbackService) mutateLedger(ctx context.Context, op string, mutate func(*core.Ledger) (bool, error)) error {
	ledger, version, err := s.loadLedger(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	dirty, err := mutate(&ledger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !dirty {
		return nil
	}
	next, err := s.store.OverwriteRows(ctx, sheets.PurchasesTable, sheets.EncodeLedger(ledger), version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.InfoContext(ctx, "Ledger saved", log.FieldOperation, op, log.FieldVersion, next, log.FieldCount, len(ledger))
	s.notify(ctx, sheets.PurchasesTable, next)
	return nil
}

func (s *CashbackService) loadCatalog(ctx context.Context) (core.Catalog, string, error) {
	snap, err := s.store.ReadRows(ctx, sheets.CardsTable)
	if err != nil {
		return nil, "", fmt.Errorf("load catalog: %w", err)
	}
	catalog, warnings := sheets.DecodeCatalog(snap.Rows)
	s.logWarnings(ctx, warnings)
	return catalog, snap.Version, nil
}

func (s *CashbackService) loadLedger(ctx context.Context) (core.Ledger, string, error) {
	snap, err := s.store.ReadRows(ctx, sheets.PurchasesTable)
	if err != nil {
		return nil, "", fmt.Errorf("load ledger: %w", err)
	}
	ledger, warnings := sheets.DecodeLedger(snap.Rows)
	s.logWarnings(ctx, warnings)
	return ledger, snap.Version, nil
}

func (s *CashbackService) logWarnings(ctx context.Context, warnings []sheets.CoercionWarning) {
	for _, w := range warnings {
		s.events.LogCoercionWarning(ctx, string(w.Table), w.Row, w.Column, w.Value, w.Reason)
	}
}

// notify never fails the operation; the mirror worker resyncs on a timer.
func (s *CashbackService) notify(ctx context.Context, t sheets.Table, version string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishTableChanged(ctx, string(t), version); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish table change", log.FieldTable, string(t), log.FieldError, err)
	}
}
