package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const snapshotKey = "expenses"

// Publisher sends change events after store writes.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

type Options struct {
	// CacheTTL is how long a listing is served from memory. Zero disables it.
	CacheTTL  time.Duration
	Publisher Publisher
	Logger    *log.Logger
}

// ExpenseService orchestrates the record store, the listing snapshot and
// event publishing.
type ExpenseService struct {
	store     store.Store
	publisher Publisher
	snapshots *cache.Loader[[]core.Expense]
	manager   *cache.Manager
	logger    *log.Logger
}

func NewExpenseService(s store.Store, opts Options) *ExpenseService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExpense)

	svc := &ExpenseService{
		store:     s,
		publisher: opts.Publisher,
		logger:    logger,
	}

	if opts.CacheTTL > 0 {
		ttl := cache.NewTTLCache[[]core.Expense](opts.CacheTTL)
		svc.snapshots = cache.NewLoader[[]core.Expense](ttl)
		svc.manager = cache.NewManager()
		svc.manager.Register(ttl)
		svc.manager.StartCleanup(opts.CacheTTL*2, func(n int) {
			logger.WithComponent(log.ComponentCache).Debug("Expired snapshots removed", log.FieldCount, n)
		})
	} else {
		svc.snapshots = cache.NewLoader[[]core.Expense](nil)
	}

	return svc
}

// CreateExpense stores n and announces the new record. Publishing failures
// are logged; the record is already persisted.
func (s *ExpenseService) CreateExpense(ctx context.Context, n core.NewExpense) (core.Expense, error) {
	e, err := s.store.Create(ctx, n)
	if err != nil {
		return core.Expense{}, err
	}
	s.snapshots.Invalidate(snapshotKey)

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithExpense(e.ID, e.Name, e.Amount.String(), e.Category.String()).
			WithOperation(log.OpCreate).
			ToSlice()...)

	s.publish(ctx, amqp.NewCreatedEvent(e))
	return e, nil
}

// ListExpenses returns every record in store order. The slice is the
// caller's to modify.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	items, hit, err := s.snapshots.Get(ctx, snapshotKey, s.store.List)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Expenses listed",
		log.FieldOperation, log.OpList,
		log.FieldCount, len(items),
		"cache_hit", hit)
	return slices.Clone(items), nil
}

// DeleteExpense removes id. Deleting an unknown id succeeds.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.snapshots.Invalidate(snapshotKey)

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldOperation, log.OpDelete)

	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

// Categories returns the closed category set in display order.
func (s *ExpenseService) Categories() []core.Category {
	return core.Categories()
}

// Ready reports whether the store can serve requests.
func (s *ExpenseService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, ev.Type,
			log.FieldExpenseID, ev.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// Close stops the cache sweeper and closes the store and publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.manager != nil {
		s.manager.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
