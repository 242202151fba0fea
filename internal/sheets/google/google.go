package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cashback/internal/cache"
	ports "cashback/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultCardsSheet     = "Cards"
	DefaultPurchasesSheet = "Purchases"
	DefaultServiceTTL     = 30 * time.Minute
)

var _ ports.TabularStore = (*Client)(nil)

// Config describes one spreadsheet holding both tables.
type Config struct {
	SpreadsheetID  string
	CardsSheet     string
	PurchasesSheet string
	Credentials    Credentials
	ServiceTTL     time.Duration
	// ClientOptions replace Credentials when set, e.g. to point at a
	// different endpoint.
	ClientOptions []goption.ClientOption
}

// Client stores each table in its own sheet, header in row 1. Versions are
// content hashes, so any edit made in the spreadsheet UI also moves them.
//
// The version check in OverwriteRows reads then writes; the Sheets API has
// no conditional write, so two writers racing inside that window can still
// overwrite each other.
type Client struct {
	spreadsheetID string
	sheetNames    map[ports.Table]string
	creds         Credentials
	opts          []goption.ClientOption
	services      *cache.LoadingCache[*gsheet.Service]
}

func New(cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(cfg.ClientOptions) == 0 && !cfg.Credentials.Configured() {
		return nil, errors.New("missing google credentials")
	}
	cards := strings.TrimSpace(cfg.CardsSheet)
	if cards == "" {
		cards = DefaultCardsSheet
	}
	purchases := strings.TrimSpace(cfg.PurchasesSheet)
	if purchases == "" {
		purchases = DefaultPurchasesSheet
	}
	ttl := cfg.ServiceTTL
	if ttl <= 0 {
		ttl = DefaultServiceTTL
	}
	return &Client{
		spreadsheetID: id,
		sheetNames: map[ports.Table]string{
			ports.CardsTable:     cards,
			ports.PurchasesTable: purchases,
		},
		creds:    cfg.Credentials,
		opts:     cfg.ClientOptions,
		services: cache.NewLoadingCache[*gsheet.Service](4, ttl),
	}, nil
}

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID, the optional
// GOOGLE_CARDS_SHEET_NAME and GOOGLE_PURCHASES_SHEET_NAME, and the
// credential variables read by CredentialsFromEnv.
func NewFromEnv() (*Client, error) {
	return New(Config{
		SpreadsheetID:  os.Getenv("GOOGLE_SPREADSHEET_ID"),
		CardsSheet:     os.Getenv("GOOGLE_CARDS_SHEET_NAME"),
		PurchasesSheet: os.Getenv("GOOGLE_PURCHASES_SHEET_NAME"),
		Credentials:    CredentialsFromEnv(),
	})
}

// ServiceCache exposes the service cache so it can be registered for
// periodic cleanup.
func (c *Client) ServiceCache() *cache.LoadingCache[*gsheet.Service] {
	return c.services
}

func (c *Client) service(ctx context.Context) (*gsheet.Service, error) {
	svc, err := c.services.Get(ctx, c.spreadsheetID, func(ctx context.Context) (*gsheet.Service, error) {
		if len(c.opts) > 0 {
			return gsheet.NewService(ctx, c.opts...)
		}
		return newSheetsService(ctx, c.creds)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
	}
	return svc, nil
}

func (c *Client) sheetRange(t ports.Table, cells string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!%s", quoteSheet(c.sheetNames[t]), cells), nil
}

func (c *Client) ReadRows(ctx context.Context, t ports.Table) (ports.Snapshot, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return ports.Snapshot{}, err
	}
	values, err := c.readValues(ctx, svc, t)
	if err != nil {
		return ports.Snapshot{}, err
	}
	return ports.Snapshot{Rows: valuesToRows(t, values), Version: versionOf(values)}, nil
}

func (c *Client) readValues(ctx context.Context, svc *gsheet.Service, t ports.Table) ([][]string, error) {
	rng, err := c.sheetRange(t, columnSpan(t))
	if err != nil {
		return nil, err
	}
	resp, err := svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ports.ErrUnavailable, rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, line := range resp.Values {
		out[i] = toStrings(line)
	}
	return out, nil
}

func (c *Client) OverwriteRows(ctx context.Context, t ports.Table, rows []ports.Row, expectedVersion string) (string, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return "", err
	}
	if expectedVersion != ports.AnyVersion {
		current, err := c.readValues(ctx, svc, t)
		if err != nil {
			return "", err
		}
		if v := versionOf(current); v != expectedVersion {
			return "", fmt.Errorf("%w: sheet %s changed since it was read", ports.ErrConflict, c.sheetNames[t])
		}
	}
	return c.writeAll(ctx, svc, t, rows)
}

// writeAll writes header and rows from A1, then clears whatever the sheet
// held below them.
func (c *Client) writeAll(ctx context.Context, svc *gsheet.Service, t ports.Table, rows []ports.Row) (string, error) {
	values := rowsToValues(t, rows)
	rng, err := c.sheetRange(t, "A1")
	if err != nil {
		return "", err
	}
	_, err = svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ports.ErrUnavailable, rng, err)
	}

	span := columnSpan(t)
	tail, _ := c.sheetRange(t, fmt.Sprintf("A%d:%s", len(values)+1, span[len(span)-1:]))
	if _, err := svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("%w: clear %s: %w", ports.ErrUnavailable, tail, err)
	}

	slog.DebugContext(ctx, "Rewrote sheet", "component", "sheets", "table", string(t), "rows", len(rows))
	return versionOf(stringMatrix(values)), nil
}

// AppendRow adds one line after the last row. Sheets that are empty or do
// not carry the canonical header are rewritten in full instead, which also
// upgrades older layouts.
func (c *Client) AppendRow(ctx context.Context, t ports.Table, row ports.Row) (string, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return "", err
	}
	current, err := c.readValues(ctx, svc, t)
	if err != nil {
		return "", err
	}
	cols := t.Columns()
	if len(current) == 0 || !hasCanonicalHeader(current[0], cols) {
		rows := append(valuesToRows(t, current), row)
		return c.writeAll(ctx, svc, t, rows)
	}

	rng, err := c.sheetRange(t, columnSpan(t))
	if err != nil {
		return "", err
	}
	line := rowValues(cols, row)
	_, err = svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{line}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: append %s: %w", ports.ErrUnavailable, rng, err)
	}
	return versionOf(append(trimMatrix(current), toStrings(line))), nil
}

func hasCanonicalHeader(header, cols []string) bool {
	if len(header) < len(cols) {
		return false
	}
	for i, c := range cols {
		if !strings.EqualFold(strings.TrimSpace(header[i]), c) {
			return false
		}
	}
	return true
}
