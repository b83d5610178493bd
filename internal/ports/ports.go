package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

var (
	// ErrStoreUnavailable wraps any failure of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("not found")
)

// Ports for outbound adapters.
type (
	// EntryReader lists an owner's ledger, newest date first. It must not
	// silently drop rows, including rows with malformed fields.
	EntryReader interface {
		ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error)
	}

	// EntryWriter persists ledger entries. InsertEntry returns the entry with
	// its assigned ID.
	EntryWriter interface {
		InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
		DeleteEntry(ctx context.Context, owner string, id int64) error
	}

	TemplateStore interface {
		ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error)
		CreateTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
		DeleteTemplate(ctx context.Context, owner string, id int64) error
		// ListOwners returns every owner with at least one template.
		ListOwners(ctx context.Context) ([]string, error)
	}

	// BudgetStore holds the monthly budget. An invalid NullDecimal means no
	// budget is configured.
	BudgetStore interface {
		GetBudget(ctx context.Context, owner string) (decimal.NullDecimal, error)
		SetBudget(ctx context.Context, owner string, budget decimal.NullDecimal) error
	}

	// PassLocker is implemented by stores shared between processes. LockOwner
	// blocks until no other materialization pass holds the owner, or ctx ends.
	PassLocker interface {
		LockOwner(ctx context.Context, owner string) (unlock func(), err error)
	}

	// LedgerStore is the full persistence surface.
	LedgerStore interface {
		EntryReader
		EntryWriter
		TemplateStore
		BudgetStore
		Close() error
	}
)
