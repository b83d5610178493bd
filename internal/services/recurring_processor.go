package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tracker/internal/core"
	"tracker/internal/ports"
)

// RecurringStore is the part of the ledger store the processor needs.
type RecurringStore interface {
	ports.EntryReader
	ports.EntryWriter
	ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error)
}

// EventPublisher delivers ledger events. amqp.Client implements it.
type EventPublisher interface {
	PublishEntryMaterialized(ctx context.Context, e core.LedgerEntry, templateID int64) error
	PublishBudgetTierChanged(ctx context.Context, owner string, previous core.Tier, status core.BudgetStatus) error
}

// TemplateFailure records a template that could not be materialized.
type TemplateFailure struct {
	Template core.RecurringTemplate
	Err      error
}

// MaterializeResult reports the outcome of one pass over an owner's templates.
type MaterializeResult struct {
	Inserted int // entries created
	Skipped  int // templates already satisfied for the current period
	Failures []TemplateFailure
	Entries  []core.LedgerEntry
}

// RecurringProcessor turns recurring templates into ledger entries, at most
// once per template and period.
type RecurringProcessor struct {
	store     RecurringStore
	publisher EventPublisher

	passes singleflight.Group
	locks  sync.Map // owner -> *sync.Mutex
}

// NewRecurringProcessor creates a new recurring expense processor. publisher
// may be nil.
func NewRecurringProcessor(store RecurringStore, publisher EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
	}
}

// ProcessOwner loads the owner's templates and materializes them for today.
// Concurrent calls for the same owner and day share one pass. Callers that
// just changed the template set must use RunPass instead.
func (p *RecurringProcessor) ProcessOwner(ctx context.Context, owner string, today time.Time) (MaterializeResult, error) {
	if owner == "" {
		return MaterializeResult{}, core.ErrEmptyOwner
	}

	key := owner + "|" + core.FormatDate(today)
	v, err, shared := p.passes.Do(key, func() (interface{}, error) {
		return p.RunPass(ctx, owner, today)
	})
	if err != nil {
		return MaterializeResult{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Joined in-flight materialization pass", "owner", owner)
	}
	return v.(MaterializeResult), nil
}

// RunPass runs a pass that reads the template set only after every earlier
// pass for the owner has finished. Passes for one owner never overlap, in
// this process or, when the store implements ports.PassLocker, across
// processes sharing the store.
func (p *RecurringProcessor) RunPass(ctx context.Context, owner string, today time.Time) (MaterializeResult, error) {
	if owner == "" {
		return MaterializeResult{}, core.ErrEmptyOwner
	}

	mu := p.ownerLock(owner)
	mu.Lock()
	defer mu.Unlock()

	if locker, ok := p.store.(ports.PassLocker); ok {
		unlock, err := locker.LockOwner(ctx, owner)
		if err != nil {
			return MaterializeResult{}, fmt.Errorf("lock owner: %w", err)
		}
		defer unlock()
	}

	templates, err := p.store.ListTemplates(ctx, owner)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("list templates: %w", err)
	}
	return p.Materialize(ctx, owner, templates, today)
}

// Materialize reads the owner's ledger, builds the dedup index and inserts
// every template not yet satisfied in its current period.
func (p *RecurringProcessor) Materialize(ctx context.Context, owner string, templates []core.RecurringTemplate, today time.Time) (MaterializeResult, error) {
	if len(templates) == 0 {
		return MaterializeResult{}, nil
	}

	entries, err := p.store.ListEntries(ctx, owner)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("list entries: %w", err)
	}

	index, skipped := core.BuildDedupIndex(entries)
	for _, s := range skipped {
		slog.WarnContext(ctx, "Skipping ledger entry with invalid date",
			"owner", owner,
			"entry_id", s.Entry.ID,
			"date", s.Entry.Date,
			"error", s.Err)
	}

	return p.MaterializeWithIndex(ctx, owner, templates, index, today), nil
}

// MaterializeWithIndex inserts the templates absent from index. The index is
// a snapshot taken before the pass and is not updated as entries are added.
func (p *RecurringProcessor) MaterializeWithIndex(ctx context.Context, owner string, templates []core.RecurringTemplate, index core.DedupIndex, today time.Time) MaterializeResult {
	var result MaterializeResult
	date := core.FormatDate(today)

	for _, t := range templates {
		period, err := core.PeriodOf(today, t.Interval)
		if err != nil {
			slog.ErrorContext(ctx, "Template has invalid interval",
				"owner", owner,
				"template_id", t.ID,
				"interval", t.Interval,
				"error", err)
			result.Failures = append(result.Failures, TemplateFailure{Template: t, Err: err})
			continue
		}

		if index.Contains(core.KeyForTemplate(t, period)) {
			result.Skipped++
			continue
		}

		description := t.Description
		if description == "" {
			description = core.PlaceholderDescription(t.Category)
		}

		entry, err := p.store.InsertEntry(ctx, core.LedgerEntry{
			Date:        date,
			Category:    t.Category,
			Amount:      core.NewAmount(t.Amount),
			Description: description,
			Owner:       owner,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create entry from recurring template",
				"owner", owner,
				"template_id", t.ID,
				"category", t.Category,
				"error", err)
			result.Failures = append(result.Failures, TemplateFailure{Template: t, Err: err})
			continue
		}

		result.Inserted++
		result.Entries = append(result.Entries, entry)
		slog.InfoContext(ctx, "Created entry from recurring template",
			"owner", owner,
			"template_id", t.ID,
			"entry_id", entry.ID,
			"period", period.String(),
			"amount", entry.Amount)

		p.publish(ctx, entry, t.ID)
	}

	slog.InfoContext(ctx, "Recurring materialization complete",
		"owner", owner,
		"date", date,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"failed", len(result.Failures))

	return result
}

func (p *RecurringProcessor) publish(ctx context.Context, entry core.LedgerEntry, templateID int64) {
	if p.publisher == nil {
		return
	}
	// The entry is already stored; a lost event is logged, not retried.
	if err := p.publisher.PublishEntryMaterialized(ctx, entry, templateID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish materialized entry",
			"owner", entry.Owner,
			"entry_id", entry.ID,
			"error", err)
	}
}

func (p *RecurringProcessor) ownerLock(owner string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(owner, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
