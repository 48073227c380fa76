package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gagyebu/internal/core"
	"gagyebu/internal/ledger"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

const (
	syncPending = "pending"
	syncDone    = "synced"
	syncFailed  = "error"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ ledger.Store       = (*SQLiteRepository)(nil)
	_ ledger.SyncTracker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialising on one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

func (r *SQLiteRepository) CreateHousehold(ctx context.Context, name string) (core.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Household{}, core.ErrEmptyName
	}
	h := core.Household{ID: uuid.NewString(), Name: name, CreatedAt: r.now().UTC()}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)`,
		h.ID, h.Name, h.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Household{}, fmt.Errorf("insert household: %w", err)
	}
	slog.InfoContext(ctx, "Household created", "household_id", h.ID)
	return h, nil
}

func (r *SQLiteRepository) GetHousehold(ctx context.Context, id string) (core.Household, error) {
	var h core.Household
	var created string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM households WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Household{}, fmt.Errorf("household %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Household{}, fmt.Errorf("get household: %w", err)
	}
	h.CreatedAt, _ = time.Parse(timestampLayout, created)
	return h, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, householdID, name string) (core.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Member{}, core.ErrEmptyName
	}
	if _, err := r.GetHousehold(ctx, householdID); err != nil {
		return core.Member{}, err
	}
	m := core.Member{ID: uuid.NewString(), HouseholdID: householdID, Name: name}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, household_id, name, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.HouseholdID, m.Name, r.timestamp())
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, householdID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, household_id, name FROM members WHERE household_id = ? ORDER BY created_at, rowid`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendTransaction inserts tx with sync status pending.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, household_id, type, amount_won, description, tx_date,
			payment_method, person_type, person_id, category, memo, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.HouseholdID, string(tx.Type), tx.Amount.Won, tx.Description, tx.Date.String(),
		tx.PaymentMethod, string(tx.PersonType), tx.PersonID, tx.Category, tx.Memo,
		tx.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"household_id", tx.HouseholdID,
		"type", tx.Type,
		"amount_won", tx.Amount.Won,
		"date", tx.Date.String())
	return tx, nil
}

// DeleteTransaction soft-deletes the row and queues it for sync again so the
// spreadsheet row gets cleared.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, householdID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET deleted_at = ?, version = version + 1, sync_status = ?, sync_error = ''
		WHERE id = ? AND household_id = ? AND deleted_at IS NULL`,
		r.timestamp(), syncPending, id, householdID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "household_id", householdID)
	return nil
}

const transactionColumns = `id, household_id, type, amount_won, description, tx_date,
	payment_method, person_type, person_id, category, memo, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner, extra ...any) (core.Transaction, error) {
	var (
		tx                    core.Transaction
		typ, personType       string
		dateText, createdText string
	)
	dest := []any{
		&tx.ID, &tx.HouseholdID, &typ, &tx.Amount.Won, &tx.Description, &dateText,
		&tx.PaymentMethod, &personType, &tx.PersonID, &tx.Category, &tx.Memo, &createdText,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.PersonType = core.PersonType(personType)
	date, err := core.ParseDate(dateText)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", dateText, err)
	}
	tx.Date = date
	tx.CreatedAt, _ = time.Parse(timestampLayout, createdText)
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, householdID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE id = ? AND household_id = ? AND deleted_at IS NULL`, id, householdID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns live transactions, newest date first and in
// insertion order within a day.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, householdID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE household_id = ? AND deleted_at IS NULL`
	args := []any{householdID}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		query += ` AND tx_date >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND tx_date <= ?`
		args = append(args, f.To.String())
	}
	query += ` ORDER BY tx_date DESC, rowid ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListCategories returns the categories seeded by migration in display order.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, type FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetBudget creates or replaces the budget for a category and month.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (household_id, category, year, month, amount_won)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (household_id, category, year, month)
		DO UPDATE SET amount_won = excluded.amount_won`,
		b.HouseholdID, b.Category, b.Year, b.Month, b.Amount.Won)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, householdID string, year, month int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT household_id, category, year, month, amount_won FROM budgets
		WHERE household_id = ? AND year = ? AND month = ?
		ORDER BY category`, householdID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.HouseholdID, &b.Category, &b.Year, &b.Month, &b.Amount.Won); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReadMonthOverview aggregates in SQL and lets core order the categories.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, householdID string, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	first := core.NewDate(year, month, 1)
	last := core.Date{Time: first.AddDate(0, 1, -1)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT type, category, SUM(amount_won) FROM transactions
		WHERE household_id = ? AND deleted_at IS NULL AND tx_date BETWEEN ? AND ?
		GROUP BY type, category`, householdID, first.String(), last.String())
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	var sums []core.Transaction
	for rows.Next() {
		var typ, category string
		var total int64
		if err := rows.Scan(&typ, &category, &total); err != nil {
			return core.MonthOverview{}, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, core.Transaction{
			Type:     core.TransactionType(typ),
			Category: category,
			Amount:   core.Money{Won: total},
			Date:     first,
		})
	}
	if err := rows.Err(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("get category sums: %w", err)
	}
	return core.NewMonthOverview(year, month, sums), nil
}

// ListPendingSync returns rows that still need to reach the spreadsheet,
// oldest first. Rows that failed before are retried.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]ledger.PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+`, deleted_at IS NOT NULL, version
		FROM transactions
		WHERE sync_status != ?
		ORDER BY created_at, rowid
		LIMIT ?`, syncDone, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.PendingSync
	for rows.Next() {
		var p ledger.PendingSync
		tx, err := scanTransaction(rows, &p.Deleted, &p.Version)
		if err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		p.Transaction = tx
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetSyncState returns a single row regardless of deletion, for the worker.
func (r *SQLiteRepository) GetSyncState(ctx context.Context, id string) (ledger.PendingSync, error) {
	var p ledger.PendingSync
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+`, deleted_at IS NOT NULL, version
		FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row, &p.Deleted, &p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.PendingSync{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return ledger.PendingSync{}, fmt.Errorf("get sync state: %w", err)
	}
	p.Transaction = tx
	return p, nil
}

// MarkSynced marks a transaction as successfully synced.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, sync_error = '', synced_at = ? WHERE id = ?`,
		syncDone, r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records why the last sync attempt failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, sync_error = ? WHERE id = ?`,
		syncFailed, msg, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "error", msg)
	return nil
}
