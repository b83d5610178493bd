package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/ports"
)

// Store is an in-process ledger used for development and tests.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	entries   []core.LedgerEntry
	templates []core.RecurringTemplate
	budgets   map[string]decimal.Decimal
}

func New() *Store {
	return &Store{budgets: make(map[string]decimal.Decimal)}
}

var _ ports.LedgerStore = (*Store)(nil)

// ListEntries returns the owner's entries ordered by date descending, then by
// id descending.
func (s *Store) ListEntries(_ context.Context, owner string) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.entries {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// InsertEntry stores the entry as given; validation belongs to the caller.
func (s *Store) InsertEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id && e.Owner == owner {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", id, ports.ErrNotFound)
}

func (s *Store) ListTemplates(_ context.Context, owner string) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for _, t := range s.templates {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateTemplate(_ context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.templates = append(s.templates, t)
	return t, nil
}

func (s *Store) DeleteTemplate(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.templates {
		if t.ID == id && t.Owner == owner {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("template %d: %w", id, ports.ErrNotFound)
}

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, t := range s.templates {
		if _, ok := seen[t.Owner]; ok {
			continue
		}
		seen[t.Owner] = struct{}{}
		out = append(out, t.Owner)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, owner string) (decimal.NullDecimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[owner]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(b), nil
}

func (s *Store) SetBudget(_ context.Context, owner string, budget decimal.NullDecimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !budget.Valid {
		delete(s.budgets, owner)
		return nil
	}
	s.budgets[owner] = budget.Decimal
	return nil
}

func (s *Store) Close() error { return nil }
