package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// ExpenseSource lists the authoritative collection, used to reconcile the
// mirror at startup.
type ExpenseSource interface {
	List(ctx context.Context) ([]core.Expense, error)
}

// Consumer delivers expense events until ctx ends.
type Consumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler amqp.Handler) error
}

// SyncWorker keeps the spreadsheet mirror in step with the record store.
type SyncWorker struct {
	mirror sheets.Mirror
	source ExpenseSource
	logger *log.Logger

	processed int64
	failed    int64
}

// NewSyncWorker creates a worker. source may be nil, which disables the
// startup reconciliation.
func NewSyncWorker(mirror sheets.Mirror, source ExpenseSource, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		source: source,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run reconciles the mirror once and then applies events until ctx ends.
// A failed reconciliation is logged; events still flow.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup sync skipped", log.FieldError, err)
	}
	err := consumer.ConsumeExpenseEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies one expense event to the mirror. A returned error
// asks for redelivery.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ID)

	var err error
	switch ev.Type {
	case amqp.EventExpenseCreated:
		if ev.Expense == nil {
			w.logger.WarnContext(ctx, "Ignoring created event without expense", log.FieldExpenseID, ev.ID)
			return nil
		}
		err = w.syncExpenseToSheets(ctx, *ev.Expense)
	case amqp.EventExpenseDeleted:
		err = w.deleteExpenseFromSheets(ctx, ev.ID)
	default:
		// Redelivery cannot fix an event type this worker does not know.
		w.logger.WarnContext(ctx, "Ignoring unknown event type",
			log.FieldEventType, ev.Type,
			log.FieldExpenseID, ev.ID)
		return nil
	}

	if err != nil {
		atomic.AddInt64(&w.failed, 1)
		return err
	}
	atomic.AddInt64(&w.processed, 1)
	return nil
}

func (w *SyncWorker) syncExpenseToSheets(ctx context.Context, e core.Expense) error {
	ref, err := w.mirror.AppendExpense(ctx, e)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to append expense to sheet",
			log.FieldExpenseID, e.ID,
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.logger.InfoContext(ctx, "Successfully synced expense",
		log.FieldExpenseID, e.ID,
		"sheets_ref", ref,
		log.FieldName, e.Name,
		log.FieldAmount, e.Amount.String())
	return nil
}

func (w *SyncWorker) deleteExpenseFromSheets(ctx context.Context, id string) error {
	if err := w.mirror.DeleteExpense(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to delete expense from sheet",
			log.FieldExpenseID, id,
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
		return fmt.Errorf("delete from sheets: %w", err)
	}
	w.logger.InfoContext(ctx, "Successfully deleted expense", log.FieldExpenseID, id)
	return nil
}

// SyncResult summarises a reconciliation pass.
type SyncResult struct {
	Appended int
	Deleted  int
	Errors   int
}

// StartupSyncCheck appends records missing from the mirror and removes
// mirrored rows whose record no longer exists. It recovers from events
// lost while the worker was down. Rows whose column A is not a record id
// are left alone.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.source == nil {
		return nil
	}

	records, err := w.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	mirrored, err := w.mirror.ExpenseIDs(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored ids: %w", err)
	}

	res := w.reconcile(ctx, records, mirrored)
	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(records),
		"appended", res.Appended,
		"deleted", res.Deleted,
		"errors", res.Errors)
	return nil
}

func (w *SyncWorker) reconcile(ctx context.Context, records []core.Expense, mirrored []string) SyncResult {
	var res SyncResult

	inMirror := make(map[string]bool, len(mirrored))
	for _, id := range mirrored {
		inMirror[id] = true
	}
	inStore := make(map[string]bool, len(records))
	for _, e := range records {
		inStore[e.ID] = true
		if inMirror[e.ID] {
			continue
		}
		if err := w.syncExpenseToSheets(ctx, e); err != nil {
			res.Errors++
			continue
		}
		res.Appended++
	}

	seen := make(map[string]bool, len(mirrored))
	for _, id := range mirrored {
		if inStore[id] || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if err := w.deleteExpenseFromSheets(ctx, id); err != nil {
			res.Errors++
			continue
		}
		res.Deleted++
	}
	return res
}

// Metrics reports how many events were applied and how many failed.
func (w *SyncWorker) Metrics() (processed, failed int64) {
	return atomic.LoadInt64(&w.processed), atomic.LoadInt64(&w.failed)
}
