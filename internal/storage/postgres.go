package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/ports"
)

// PostgresRepository stores the ledger in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ ports.LedgerStore = (*PostgresRepository)(nil)

// NewPostgresRepository migrates the schema and opens a connection pool.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, date, category, amount, description, owner
		 FROM ledger_entries WHERE owner = $1 ORDER BY date DESC, id DESC`, owner)
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

func (r *PostgresRepository) InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ledger_entries (owner, date, category, amount, description)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.Owner, e.Date, e.Category, string(e.Amount), e.Description).Scan(&e.ID)
	if err != nil {
		return e, unavailable("insert entry", err)
	}

	slog.InfoContext(ctx, "Entry saved to Postgres",
		"id", e.ID,
		"owner", e.Owner,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date)

	return e, nil
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, owner string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return unavailable("delete entry", err)
	}
	return requireTag(tag, "entry", id)
}

func (r *PostgresRepository) ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category, amount, description, frequency, owner
		 FROM recurring_templates WHERE owner = $1 ORDER BY id`, owner)
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

func (r *PostgresRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO recurring_templates (owner, category, amount, description, frequency)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.Owner, t.Category, t.Amount.String(), t.Description, string(t.Interval)).Scan(&t.ID)
	if err != nil {
		return t, unavailable("create template", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteTemplate(ctx context.Context, owner string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_templates WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return unavailable("delete template", err)
	}
	return requireTag(tag, "template", id)
}

func (r *PostgresRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner FROM recurring_templates ORDER BY owner`)
	if err != nil {
		return nil, unavailable("list owners", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("collect owners", err)
	}
	return owners, nil
}

func (r *PostgresRepository) GetBudget(ctx context.Context, owner string) (decimal.NullDecimal, error) {
	var amount string
	err := r.pool.QueryRow(ctx, `SELECT amount FROM budgets WHERE owner = $1`, owner).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, unavailable("get budget", err)
	}
	return parseBudget(owner, amount), nil
}

func (r *PostgresRepository) SetBudget(ctx context.Context, owner string, budget decimal.NullDecimal) error {
	var err error
	if budget.Valid {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO budgets (owner, amount) VALUES ($1, $2)
			 ON CONFLICT (owner) DO UPDATE SET amount = excluded.amount, updated_at = now()`,
			owner, budget.Decimal.String())
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM budgets WHERE owner = $1`, owner)
	}
	if err != nil {
		return unavailable("set budget", err)
	}
	return nil
}

func requireTag(tag pgconn.CommandTag, what string, id int64) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ports.ErrNotFound)
	}
	return nil
}
