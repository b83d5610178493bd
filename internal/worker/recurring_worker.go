package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"tracker/internal/services"
)

// OwnerLister returns every owner that has recurring templates.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// OwnerProcessor runs one materialization pass for an owner.
// services.RecurringProcessor implements it.
type OwnerProcessor interface {
	ProcessOwner(ctx context.Context, owner string, today time.Time) (services.MaterializeResult, error)
}

// RunStats summarizes one run over all owners.
type RunStats struct {
	Owners   int
	Inserted int
	Skipped  int
	Failures int // template failures plus owners whose pass failed
}

// RecurringWorker materializes recurring templates for every owner on a
// cron schedule.
type RecurringWorker struct {
	owners      OwnerLister
	processor   OwnerProcessor
	location    *time.Location
	concurrency int
	now         func() time.Time

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
}

// NewRecurringWorker creates a worker. loc decides which calendar day a run
// belongs to.
func NewRecurringWorker(owners OwnerLister, processor OwnerProcessor, loc *time.Location, concurrency int) *RecurringWorker {
	if loc == nil {
		loc = time.UTC
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &RecurringWorker{
		owners:      owners,
		processor:   processor,
		location:    loc,
		concurrency: concurrency,
		now:         time.Now,
		cron:        cron.New(cron.WithLocation(loc)),
	}
}

// Start schedules runs on spec (standard 5-field cron) until Stop or ctx is
// cancelled.
func (w *RecurringWorker) Start(ctx context.Context, spec string) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	if _, err := w.cron.AddFunc(spec, w.scheduledRun); err != nil {
		w.cancel()
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	w.cron.Start()

	slog.InfoContext(ctx, "Recurring worker started",
		"schedule", spec,
		"timezone", w.location.String(),
		"concurrency", w.concurrency)
	return nil
}

// Stop cancels in-flight passes and waits for the running job to finish.
func (w *RecurringWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.cron.Stop().Done()
	slog.Info("Recurring worker stopped")
}

func (w *RecurringWorker) scheduledRun() {
	if !w.running.CompareAndSwap(false, true) {
		slog.WarnContext(w.ctx, "Previous recurring run still in progress, skipping")
		return
	}
	defer w.running.Store(false)

	if _, err := w.RunOnce(w.ctx); err != nil {
		slog.ErrorContext(w.ctx, "Recurring run failed", "error", err)
	}
}

// RunOnce materializes templates for every owner for the current day. A
// failing owner is logged and counted; it does not stop the others.
func (w *RecurringWorker) RunOnce(ctx context.Context) (RunStats, error) {
	owners, err := w.owners.ListOwners(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list owners: %w", err)
	}

	t := w.now().In(w.location)
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.location)
	start := time.Now()

	var (
		mu    sync.Mutex
		stats = RunStats{Owners: len(owners)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, owner := range owners {
		owner := owner
		g.Go(func() error {
			result, err := w.processor.ProcessOwner(gctx, owner, today)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failures++
				slog.ErrorContext(gctx, "Recurring pass failed", "owner", owner, "error", err)
				return nil
			}
			stats.Inserted += result.Inserted
			stats.Skipped += result.Skipped
			stats.Failures += len(result.Failures)
			if result.Inserted > 0 || len(result.Failures) > 0 {
				slog.InfoContext(gctx, "Recurring pass complete",
					"owner", owner,
					"inserted", result.Inserted,
					"skipped", result.Skipped,
					"failures", len(result.Failures))
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Recurring run complete",
		"date", today.Format(time.DateOnly),
		"owners", stats.Owners,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"failures", stats.Failures,
		"duration_ms", time.Since(start).Milliseconds())

	return stats, ctx.Err()
}
