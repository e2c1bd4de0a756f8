package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"pagamentos/internal/core"
	"pagamentos/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	nameKindBank     = "bank"
	nameKindCategory = "category"
)

type SQLiteRepository struct {
	db *sql.DB
}

// PendingSyncMonth is a saved month whose latest version has not reached the mirror yet
type PendingSyncMonth struct {
	Year      int
	Month     int
	Version   int64
	UpdatedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Writers share one connection so they never see SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchMonth loads the stored ledger of year/month. The bool is false when the month
// was never saved; the global name sets are returned either way.
func (r *SQLiteRepository) FetchMonth(ctx context.Context, year, month int) (ledger.Data, bool, error) {
	var data ledger.Data
	banks, categories, err := r.ListNames(ctx)
	if err != nil {
		return data, false, err
	}
	data.BankNames, data.CategoryNames = banks, categories

	var version int64
	err = r.db.QueryRowContext(ctx,
		`SELECT version FROM ledger_months WHERE year = ? AND month = ?`, year, month).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return data, false, nil
	}
	if err != nil {
		return data, false, fmt.Errorf("get ledger month: %w", err)
	}

	if data.Records, err = r.listRecords(ctx, year, month); err != nil {
		return data, false, err
	}
	if data.Balances, err = r.listBalances(ctx, year, month); err != nil {
		return data, false, err
	}
	return data, true, nil
}

func (r *SQLiteRepository) listRecords(ctx context.Context, year, month int) ([]core.BillRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account, category, kind, due_date, amount, bank, paid
		FROM ledger_records
		WHERE year = ? AND month = ?
		ORDER BY position`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	var out []core.BillRecord
	for rows.Next() {
		var (
			rec    core.BillRecord
			kind   string
			due    sql.NullString
			amount string
		)
		if err := rows.Scan(&rec.ID, &rec.Account, &rec.Category, &kind, &due, &amount, &rec.Bank, &rec.Paid); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		rec.Kind = core.ParseKind(kind)
		if due.Valid {
			rec.DueDate, _ = core.ParseDate(due.String)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("record %s amount %q: %w", rec.ID, amount, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listBalances(ctx context.Context, year, month int) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bank, amount FROM ledger_balances WHERE year = ? AND month = ?`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var bank, amount string
		if err := rows.Scan(&bank, &amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("balance %s amount %q: %w", bank, amount, err)
		}
		out[bank] = v
	}
	return out, rows.Err()
}

// SaveMonth replaces the stored copy of a month with snap and bumps its version.
// The new version is returned so the mirror can be told which state to copy.
func (r *SQLiteRepository) SaveMonth(ctx context.Context, snap ledger.Snapshot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	y, m := snap.Key.Year, snap.Key.Month
	var version int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_months (year, month, version, sync_status, updated_at)
		VALUES (?, ?, 1, 'pending', CURRENT_TIMESTAMP)
		ON CONFLICT (year, month) DO UPDATE SET
			version = version + 1,
			sync_status = 'pending',
			updated_at = CURRENT_TIMESTAMP
		RETURNING version`, y, m).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("upsert ledger month: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_records WHERE year = ? AND month = ?`, y, m); err != nil {
		return 0, fmt.Errorf("clear ledger records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_balances WHERE year = ? AND month = ?`, y, m); err != nil {
		return 0, fmt.Errorf("clear balances: %w", err)
	}

	insRecord, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_records (id, year, month, position, account, category, kind, due_date, amount, bank, paid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare record insert: %w", err)
	}
	defer insRecord.Close()

	for i, rec := range snap.Records {
		var due any
		if !rec.DueDate.IsEmpty() {
			due = rec.DueDate.String()
		}
		if _, err := insRecord.ExecContext(ctx, rec.ID, y, m, i, rec.Account, rec.Category,
			string(rec.Kind), due, rec.Amount.StringFixed(2), rec.Bank, rec.Paid); err != nil {
			return 0, fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	for bank, amount := range snap.Balances {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_balances (year, month, bank, amount) VALUES (?, ?, ?, ?)`,
			y, m, bank, amount.StringFixed(2)); err != nil {
			return 0, fmt.Errorf("insert balance %s: %w", bank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit month: %w", err)
	}

	slog.DebugContext(ctx, "Ledger month saved to SQLite",
		"year", y, "month", m, "version", version, "records", len(snap.Records))
	return version, nil
}

// SaveSettings replaces the global bank and category sets, keeping their order.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, banks, categories []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM setting_names`); err != nil {
		return fmt.Errorf("clear names: %w", err)
	}
	for kind, names := range map[string][]string{nameKindBank: banks, nameKindCategory: categories} {
		for i, name := range names {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO setting_names (kind, name, position) VALUES (?, ?, ?)`,
				kind, name, i); err != nil {
				return fmt.Errorf("insert %s %q: %w", kind, name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit names: %w", err)
	}
	return nil
}

// ListNames returns the stored bank and category sets in their saved order.
func (r *SQLiteRepository) ListNames(ctx context.Context) (banks, categories []string, err error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, name FROM setting_names ORDER BY kind, position`)
	if err != nil {
		return nil, nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()

	banks, categories = []string{}, []string{}
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return nil, nil, fmt.Errorf("scan name: %w", err)
		}
		if kind == nameKindBank {
			banks = append(banks, name)
		} else {
			categories = append(categories, name)
		}
	}
	return banks, categories, rows.Err()
}

// GetPendingSyncMonths returns months whose saved version is ahead of the mirrored one,
// oldest change first.
func (r *SQLiteRepository) GetPendingSyncMonths(ctx context.Context, limit int) ([]PendingSyncMonth, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, version, updated_at
		FROM ledger_months
		WHERE version > synced_version
		ORDER BY updated_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync months: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncMonth
	for rows.Next() {
		var p PendingSyncMonth
		if err := rows.Scan(&p.Year, &p.Month, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending month: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records that version of year/month reached the mirror. Older versions
// never move synced_version backwards.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, year, month int, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_months
		SET synced_version = MAX(synced_version, ?),
			sync_status = CASE WHEN version <= ? THEN 'synced' ELSE sync_status END
		WHERE year = ? AND month = ?`, version, version, year, month)
	if err != nil {
		return fmt.Errorf("mark month synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a month whose mirror attempt failed; it stays pending for the sweep.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, year, month int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ledger_months SET sync_status = 'error' WHERE year = ? AND month = ?`, year, month)
	if err != nil {
		return fmt.Errorf("mark month sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger month marked with sync error", "year", year, "month", month)
	return nil
}

// MonthVersion returns the current saved version of a month, zero when never saved.
func (r *SQLiteRepository) MonthVersion(ctx context.Context, year, month int) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM ledger_months WHERE year = ? AND month = ?`, year, month).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get month version: %w", err)
	}
	return v, nil
}
