// Package postgres is the record store backed by PostgreSQL through GORM.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// expenseModel is the table row. Seq keeps insertion order independent of
// the random UUID primary key.
type expenseModel struct {
	ID        string          `gorm:"primaryKey;type:uuid"`
	Seq       int64           `gorm:"autoIncrement;not null;uniqueIndex"`
	Name      string          `gorm:"size:200;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Category  string          `gorm:"size:32;not null;index"`
	Date      time.Time       `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (expenseModel) TableName() string { return "expenses" }

func (m expenseModel) toCore() core.Expense {
	return core.Expense{
		ID:        m.ID,
		Name:      m.Name,
		Amount:    core.NewAmount(m.Amount),
		Category:  core.Category(m.Category),
		Date:      core.DateOf(m.Date),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type Repository struct {
	db     *gorm.DB
	logger *log.Logger
	now    func() time.Time
}

// Open connects to dsn and migrates the expenses table.
func Open(dsn string, l *log.Logger) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&expenseModel{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if l == nil {
		l = log.Discard()
	}
	return &Repository{db: db, logger: l.WithComponent(log.ComponentStore), now: time.Now}, nil
}

func (r *Repository) Create(ctx context.Context, n core.NewExpense) (core.Expense, error) {
	e, err := store.Build(n, r.now())
	if err != nil {
		return core.Expense{}, err
	}
	m := expenseModel{
		ID:        e.ID,
		Name:      e.Name,
		Amount:    e.Amount.Decimal(),
		Category:  string(e.Category),
		Date:      e.Date.UTC(),
		CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return core.Expense{}, store.Unavailable("create expense", err)
	}
	r.logger.DebugContext(ctx, "Expense saved to Postgres", log.FieldExpenseID, e.ID)
	return e, nil
}

func (r *Repository) List(ctx context.Context) ([]core.Expense, error) {
	var rows []expenseModel
	if err := r.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, store.Unavailable("list expenses", err)
	}
	out := make([]core.Expense, len(rows))
	for i, m := range rows {
		out[i] = m.toCore()
	}
	return out, nil
}

// Delete ignores ids that are not UUIDs; no row could match them and the
// uuid column would reject the comparison.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&expenseModel{}, "id = ?", id).Error; err != nil {
		return store.Unavailable("delete expense", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return store.Unavailable("ping postgres", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return store.Unavailable("ping postgres", err)
	}
	return nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*Repository)(nil)
