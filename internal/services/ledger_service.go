package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/ports"
)

// Dashboard is the summary view of an owner's ledger for a reference day.
type Dashboard struct {
	Owner        string
	Today        string
	Summary      core.Summary
	Budget       core.BudgetStatus
	Materialized *MaterializeResult // set when the request ran a pass
}

// LedgerService orchestrates ledger operations across the store, the
// recurring processor, the dashboard cache and the event publisher.
type LedgerService struct {
	store      ports.LedgerStore
	processor  *RecurringProcessor
	publisher  EventPublisher
	dashboards cache.Cache[Dashboard]
	tiers      cache.Cache[core.Tier]
}

// NewLedgerService wires a service. dashboards, tiers and publisher may be nil.
func NewLedgerService(store ports.LedgerStore, processor *RecurringProcessor, publisher EventPublisher, dashboards cache.Cache[Dashboard], tiers cache.Cache[core.Tier]) *LedgerService {
	return &LedgerService{
		store:      store,
		processor:  processor,
		publisher:  publisher,
		dashboards: dashboards,
		tiers:      tiers,
	}
}

func (s *LedgerService) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	entries, err := s.store.ListEntries(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// AddEntry validates and stores a manual entry.
func (s *LedgerService) AddEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}

	saved, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return e, fmt.Errorf("save entry: %w", err)
	}
	s.invalidate(e.Owner)

	return saved, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, owner string, id int64) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	if err := s.store.DeleteEntry(ctx, owner, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.invalidate(owner)

	slog.InfoContext(ctx, "Entry deleted", "owner", owner, "id", id)
	return nil
}

func (s *LedgerService) ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	templates, err := s.store.ListTemplates(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// CreateTemplate stores a template and immediately runs a pass so the new
// obligation is materialized for the current period.
func (s *LedgerService) CreateTemplate(ctx context.Context, t core.RecurringTemplate, today time.Time) (core.RecurringTemplate, MaterializeResult, error) {
	if err := t.Validate(); err != nil {
		return t, MaterializeResult{}, err
	}

	saved, err := s.store.CreateTemplate(ctx, t)
	if err != nil {
		return t, MaterializeResult{}, fmt.Errorf("save template: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template created",
		"owner", saved.Owner,
		"template_id", saved.ID,
		"interval", saved.Interval)

	return saved, s.followUpPass(ctx, saved.Owner, today), nil
}

// DeleteTemplate removes a template and re-runs the pass for the owner.
// Entries already created from it stay in the ledger.
func (s *LedgerService) DeleteTemplate(ctx context.Context, owner string, id int64, today time.Time) (MaterializeResult, error) {
	if owner == "" {
		return MaterializeResult{}, core.ErrEmptyOwner
	}
	if err := s.store.DeleteTemplate(ctx, owner, id); err != nil {
		return MaterializeResult{}, fmt.Errorf("delete template: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template deleted", "owner", owner, "template_id", id)

	return s.followUpPass(ctx, owner, today), nil
}

// followUpPass runs the pass that follows a template change. The change is
// already stored, so a failed pass is logged and left to the next run.
func (s *LedgerService) followUpPass(ctx context.Context, owner string, today time.Time) MaterializeResult {
	result, err := s.processor.RunPass(ctx, owner, today)
	if result.Inserted > 0 {
		s.invalidate(owner)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Materialization after template change failed",
			"owner", owner,
			"error", err)
	}
	return result
}

// Materialize runs a recurring pass for the owner.
func (s *LedgerService) Materialize(ctx context.Context, owner string, today time.Time) (MaterializeResult, error) {
	result, err := s.processor.ProcessOwner(ctx, owner, today)
	if err != nil {
		return result, fmt.Errorf("materialize: %w", err)
	}
	if result.Inserted > 0 {
		s.invalidate(owner)
	}
	return result, nil
}

// Dashboard aggregates the owner's ledger for today and evaluates the
// monthly budget, optionally materializing recurring templates first.
func (s *LedgerService) Dashboard(ctx context.Context, owner string, today time.Time, materialize bool) (Dashboard, error) {
	if owner == "" {
		return Dashboard{}, core.ErrEmptyOwner
	}

	var pass *MaterializeResult
	if materialize {
		result, err := s.Materialize(ctx, owner, today)
		if err != nil {
			return Dashboard{}, err
		}
		pass = &result
	}

	date := core.FormatDate(today)
	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(owner); ok && d.Today == date {
			d.Materialized = pass
			return d, nil
		}
	}

	entries, err := s.store.ListEntries(ctx, owner)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list entries: %w", err)
	}
	budget, err := s.store.GetBudget(ctx, owner)
	if err != nil {
		return Dashboard{}, fmt.Errorf("get budget: %w", err)
	}

	summary := core.Aggregate(entries, today)
	if summary.Skipped > 0 {
		slog.WarnContext(ctx, "Entries with invalid dates left out of totals",
			"owner", owner,
			"skipped", summary.Skipped)
	}

	d := Dashboard{
		Owner:   owner,
		Today:   date,
		Summary: summary,
		Budget:  core.EvaluateBudget(summary.MonthTotal, budget),
	}
	s.observeTier(ctx, owner, d.Budget)

	if s.dashboards != nil {
		s.dashboards.Set(owner, d)
	}
	d.Materialized = pass
	return d, nil
}

// SetBudget stores the monthly budget. Negative budgets are rejected.
func (s *LedgerService) SetBudget(ctx context.Context, owner string, amount decimal.Decimal) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	if amount.IsNegative() {
		return fmt.Errorf("budget %s: %w", amount, core.ErrInvalidAmount)
	}
	if err := s.store.SetBudget(ctx, owner, decimal.NewNullDecimal(amount)); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	s.invalidate(owner)

	slog.InfoContext(ctx, "Budget updated", "owner", owner, "budget", amount)
	return nil
}

// ClearBudget removes the owner's budget.
func (s *LedgerService) ClearBudget(ctx context.Context, owner string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	if err := s.store.SetBudget(ctx, owner, decimal.NullDecimal{}); err != nil {
		return fmt.Errorf("clear budget: %w", err)
	}
	s.invalidate(owner)

	slog.InfoContext(ctx, "Budget cleared", "owner", owner)
	return nil
}

// Categories returns the suggested category names.
func (s *LedgerService) Categories() []string {
	out := make([]string, len(core.DefaultCategories))
	copy(out, core.DefaultCategories)
	return out
}

// Close closes the store and, when it is closable, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

func (s *LedgerService) invalidate(owner string) {
	if s.dashboards != nil {
		s.dashboards.Delete(owner)
	}
}

// observeTier publishes a tier change against the last tier seen for the
// owner. The first observation only records the tier.
func (s *LedgerService) observeTier(ctx context.Context, owner string, status core.BudgetStatus) {
	if s.tiers == nil {
		return
	}
	previous, seen := s.tiers.Get(owner)
	s.tiers.Set(owner, status.Tier)

	if !seen || previous == status.Tier {
		return
	}

	slog.InfoContext(ctx, "Budget tier changed",
		"owner", owner,
		"previous_tier", previous,
		"tier", status.Tier,
		"percent", status.Percent)

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping tier change event")
		return
	}
	if err := s.publisher.PublishBudgetTierChanged(ctx, owner, previous, status); err != nil {
		slog.ErrorContext(ctx, "Failed to publish tier change",
			"owner", owner,
			"error", err)
	}
}
