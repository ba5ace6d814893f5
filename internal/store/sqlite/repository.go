// Package sqlite is the default record store, backed by an embedded SQLite
// database with versioned migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

const (
	insertExpense = `INSERT INTO expenses (id, name, amount, category, date, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	selectAll     = `SELECT id, name, amount, category, date, created_at FROM expenses ORDER BY rowid`
	deleteExpense = `DELETE FROM expenses WHERE id = ?`
)

type Repository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// NewRepository opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStore)

	version, err := migrateUp(dsn, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite store ready", "path", dbPath, "schema_version", version)

	return &Repository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return store.Unavailable("ping sqlite", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, n core.NewExpense) (core.Expense, error) {
	e, err := store.Build(n, r.now())
	if err != nil {
		return core.Expense{}, err
	}

	_, err = r.db.ExecContext(ctx, insertExpense,
		e.ID,
		e.Name,
		e.Amount.String(),
		string(e.Category),
		e.Date.UTC().Format(time.RFC3339Nano),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Expense{}, store.Unavailable("create expense", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, e.ID,
		log.FieldName, e.Name,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category)

	return e, nil
}

func (r *Repository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, store.Unavailable("list expenses", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e                                 core.Expense
			amount, category, date, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &amount, &category, &date, &createdAt); err != nil {
			return nil, store.Unavailable("scan expense", err)
		}
		e.Category = core.Category(category)
		// Unparseable stored values decode as invalid, like any other client input.
		e.Amount, _ = core.ParseAmount(amount)
		e.Date, _ = core.ParseDate(date)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("list expenses", err)
	}
	return expenses, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return store.Unavailable("delete expense", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.DebugContext(ctx, "Delete of unknown expense ignored", log.FieldExpenseID, id)
	}
	return nil
}

var _ store.Store = (*Repository)(nil)
