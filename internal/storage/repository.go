package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/ports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Other processes share the file; wait on their write locks.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

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

func (r *SQLiteRepository) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, category, amount, description, owner
		 FROM ledger_entries WHERE owner = ? ORDER BY date DESC, id DESC`, owner)
	if err != nil {
		return nil, unavailable("list entries", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var (
			e      core.LedgerEntry
			amount string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Category, &amount, &e.Description, &e.Owner); err != nil {
			return nil, unavailable("scan entry", err)
		}
		e.Amount = core.Amount(amount)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate entries", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (owner, date, category, amount, description) VALUES (?, ?, ?, ?, ?)`,
		e.Owner, e.Date, e.Category, string(e.Amount), e.Description)
	if err != nil {
		return e, unavailable("insert entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return e, unavailable("insert entry id", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"owner", e.Owner,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date)

	return e, nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return unavailable("delete entry", err)
	}
	return requireAffected(res, "entry", id)
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, description, frequency, owner
		 FROM recurring_templates WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, unavailable("list templates", err)
	}
	defer rows.Close()

	var templates []core.RecurringTemplate
	for rows.Next() {
		var (
			t        core.RecurringTemplate
			amount   string
			interval string
		)
		if err := rows.Scan(&t.ID, &t.Category, &amount, &t.Description, &interval, &t.Owner); err != nil {
			return nil, unavailable("scan template", err)
		}
		t.Interval = core.Interval(interval)
		t.Amount = core.Amount(amount).OrZero()
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate templates", err)
	}
	return templates, nil
}

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (owner, category, amount, description, frequency) VALUES (?, ?, ?, ?, ?)`,
		t.Owner, t.Category, t.Amount.String(), t.Description, string(t.Interval))
	if err != nil {
		return t, unavailable("create template", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return t, unavailable("create template id", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return unavailable("delete template", err)
	}
	return requireAffected(res, "template", id)
}

func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner FROM recurring_templates ORDER BY owner`)
	if err != nil {
		return nil, unavailable("list owners", err)
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, unavailable("scan owner", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate owners", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, owner string) (decimal.NullDecimal, error) {
	var amount string
	err := r.db.QueryRowContext(ctx, `SELECT amount FROM budgets WHERE owner = ?`, owner).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, unavailable("get budget", err)
	}
	return parseBudget(owner, amount), nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, owner string, budget decimal.NullDecimal) error {
	var err error
	if budget.Valid {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO budgets (owner, amount) VALUES (?, ?)
			 ON CONFLICT (owner) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
			owner, budget.Decimal.String())
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM budgets WHERE owner = ?`, owner)
	}
	if err != nil {
		return unavailable("set budget", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreUnavailable, err)
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ports.ErrNotFound)
	}
	return nil
}

// A budget row that does not parse is treated as no budget.
func parseBudget(owner, amount string) decimal.NullDecimal {
	d, err := core.ParseAmount(amount)
	if err != nil {
		slog.Warn("Ignoring malformed budget", "owner", owner, "amount", amount)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
