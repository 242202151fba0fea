package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ports "cashback/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.TabularStore = (*SQLiteRepository)(nil)

// SQLiteRepository keeps each table in its own SQL table, ordered by a
// position column, with every cell stored as text. Versions live in
// table_versions and move inside the same transaction as the data.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the overwrite path.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ReadRows(ctx context.Context, t ports.Table) (ports.Snapshot, error) {
	if err := t.Validate(); err != nil {
		return ports.Snapshot{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.Snapshot{}, unavailable("begin read", err)
	}
	defer tx.Rollback()

	version, err := currentVersion(ctx, tx, t)
	if err != nil {
		return ports.Snapshot{}, err
	}

	cols := t.Columns()
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY position", columnList(cols), t))
	if err != nil {
		return ports.Snapshot{}, unavailable("select "+string(t), err)
	}
	defer rows.Close()

	var out []ports.Row
	for rows.Next() {
		cells := make([]string, len(cols))
		dest := make([]any, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return ports.Snapshot{}, unavailable("scan "+string(t), err)
		}
		out = append(out, ports.RowFromValues(t, cells))
	}
	if err := rows.Err(); err != nil {
		return ports.Snapshot{}, unavailable("iterate "+string(t), err)
	}
	return ports.Snapshot{Rows: out, Version: strconv.FormatInt(version, 10)}, nil
}

func (r *SQLiteRepository) OverwriteRows(ctx context.Context, t ports.Table, rows []ports.Row, expectedVersion string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", unavailable("begin overwrite", err)
	}
	defer tx.Rollback()

	version, err := currentVersion(ctx, tx, t)
	if err != nil {
		return "", err
	}
	if expectedVersion != ports.AnyVersion && expectedVersion != strconv.FormatInt(version, 10) {
		return "", fmt.Errorf("%w: %s is at version %d, expected %s", ports.ErrConflict, t, version, expectedVersion)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
		return "", unavailable("clear "+string(t), err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(t))
	if err != nil {
		return "", unavailable("prepare insert", err)
	}
	defer stmt.Close()
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, insertArgs(t, int64(i+1), row)...); err != nil {
			return "", unavailable("insert "+string(t), err)
		}
	}

	next, err := bumpVersion(ctx, tx, t)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", unavailable("commit overwrite", err)
	}
	slog.DebugContext(ctx, "Table overwritten in SQLite", "component", "storage", "table", string(t), "rows", len(rows), "version", next)
	return strconv.FormatInt(next, 10), nil
}

func (r *SQLiteRepository) AppendRow(ctx context.Context, t ports.Table, row ports.Row) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", unavailable("begin append", err)
	}
	defer tx.Rollback()

	var last int64
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(position), 0) FROM %s", t)).Scan(&last); err != nil {
		return "", unavailable("next position", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQL(t), insertArgs(t, last+1, row)...); err != nil {
		return "", unavailable("insert "+string(t), err)
	}
	next, err := bumpVersion(ctx, tx, t)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", unavailable("commit append", err)
	}
	return strconv.FormatInt(next, 10), nil
}

func currentVersion(ctx context.Context, tx *sql.Tx, t ports.Table) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx, "SELECT version FROM table_versions WHERE name = ?", string(t)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("read version", err)
	}
	return v, nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, t ports.Table) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO table_versions (name, version) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET version = version + 1
		 RETURNING version`, string(t)).Scan(&v)
	if err != nil {
		return 0, unavailable("bump version", err)
	}
	return v, nil
}

func insertSQL(t ports.Table) string {
	cols := t.Columns()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	return fmt.Sprintf("INSERT INTO %s (position, %s) VALUES (%s)", t, columnList(cols), marks)
}

func insertArgs(t ports.Table, position int64, row ports.Row) []any {
	args := []any{position}
	for _, v := range row.Values(t) {
		args = append(args, v)
	}
	return args
}

// columnList quotes every column; "date" is a keyword in some dialects.
func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: sqlite %s: %w", ports.ErrUnavailable, op, err)
}
