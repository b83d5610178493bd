package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
	"tracker/internal/ports"
	"tracker/internal/storage/memory"
)

func day(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func template(category, amount, description string, interval core.Interval) core.RecurringTemplate {
	return core.RecurringTemplate{
		Category:    category,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Interval:    interval,
		Owner:       "alice",
	}
}

func seedTemplates(t *testing.T, store *memory.Store, templates ...core.RecurringTemplate) {
	t.Helper()
	for _, tmpl := range templates {
		_, err := store.CreateTemplate(context.Background(), tmpl)
		require.NoError(t, err)
	}
}

func TestRecurringProcessor_MonthlyOncePerMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Rent", "750", "", core.Monthly))
	p := NewRecurringProcessor(store, nil)

	first, err := p.ProcessOwner(ctx, "alice", day("2025-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)
	require.Len(t, first.Entries, 1)
	assert.Equal(t, "2025-01-05", first.Entries[0].Date)
	assert.Equal(t, "Recurring (Rent)", first.Entries[0].Description)
	assert.Equal(t, core.Amount("750.00"), first.Entries[0].Amount)

	second, err := p.ProcessOwner(ctx, "alice", day("2025-01-20"))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Skipped)

	third, err := p.ProcessOwner(ctx, "alice", day("2025-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, third.Inserted)

	entries, err := store.ListEntries(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecurringProcessor_WeeklyAcrossYearBoundary(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Gym", "10", "Weekly gym", core.Weekly))
	p := NewRecurringProcessor(store, nil)

	tests := []struct {
		today    string
		inserted int
	}{
		{"2024-12-30", 1}, // 2025-W1
		{"2025-01-02", 0}, // still 2025-W1
		{"2025-01-06", 1}, // 2025-W2
	}

	for _, tt := range tests {
		result, err := p.ProcessOwner(ctx, "alice", day(tt.today))
		require.NoError(t, err)
		assert.Equal(t, tt.inserted, result.Inserted, "today=%s", tt.today)
	}
}

func TestRecurringProcessor_ManualEntryBlocksTemplate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Food", "50", "", core.Monthly))
	_, err := store.InsertEntry(ctx, core.LedgerEntry{Date: "2025-03-02", Category: "Food", Amount: "12.00", Owner: "alice"})
	require.NoError(t, err)

	p := NewRecurringProcessor(store, nil)
	result, err := p.ProcessOwner(ctx, "alice", day("2025-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

func TestRecurringProcessor_ManualEntryWithOtherDescriptionDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Food", "50", "Groceries box", core.Monthly))
	_, err := store.InsertEntry(ctx, core.LedgerEntry{Date: "2025-03-02", Category: "Food", Amount: "12.00", Description: "Lunch", Owner: "alice"})
	require.NoError(t, err)

	p := NewRecurringProcessor(store, nil)
	result, err := p.ProcessOwner(ctx, "alice", day("2025-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
}

func TestRecurringProcessor_InsertFailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("ListEntries", mock.Anything, "alice").Return([]core.LedgerEntry(nil), nil)
	store.On("InsertEntry", mock.Anything, mock.MatchedBy(func(e core.LedgerEntry) bool { return e.Category == "Rent" })).
		Return(core.LedgerEntry{}, ports.ErrStoreUnavailable)
	store.On("InsertEntry", mock.Anything, mock.MatchedBy(func(e core.LedgerEntry) bool { return e.Category == "Gym" })).
		Return(core.LedgerEntry{ID: 9, Category: "Gym", Owner: "alice"}, nil)

	p := NewRecurringProcessor(store, nil)
	templates := []core.RecurringTemplate{
		template("Rent", "750", "", core.Monthly),
		template("Gym", "10", "", core.Weekly),
	}

	result, err := p.Materialize(ctx, "alice", templates, day("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "Rent", result.Failures[0].Template.Category)
	assert.ErrorIs(t, result.Failures[0].Err, ports.ErrStoreUnavailable)
	store.AssertExpectations(t)
}

func TestRecurringProcessor_InvalidIntervalRecorded(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := NewRecurringProcessor(store, nil)
	templates := []core.RecurringTemplate{
		template("Rent", "750", "", core.Interval("yearly")),
		template("Gym", "10", "", core.Weekly),
	}

	result, err := p.Materialize(ctx, "alice", templates, day("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, core.ErrInvalidInterval)
}

func TestRecurringProcessor_ListEntriesFailure(t *testing.T) {
	store := &mockStore{}
	store.On("ListEntries", mock.Anything, "alice").Return(nil, ports.ErrStoreUnavailable)

	p := NewRecurringProcessor(store, nil)
	_, err := p.Materialize(context.Background(), "alice",
		[]core.RecurringTemplate{template("Rent", "750", "", core.Monthly)}, day("2025-01-15"))

	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	store.AssertNotCalled(t, "InsertEntry", mock.Anything, mock.Anything)
}

func TestRecurringProcessor_NoTemplatesSkipsLedgerRead(t *testing.T) {
	store := &mockStore{}
	p := NewRecurringProcessor(store, nil)

	result, err := p.Materialize(context.Background(), "alice", nil, day("2025-01-15"))
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	store.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything)
}

func TestRecurringProcessor_SnapshotIndexWithinPass(t *testing.T) {
	ctx := context.Background()
	p := NewRecurringProcessor(memory.New(), nil)
	templates := []core.RecurringTemplate{
		template("Rent", "750", "", core.Monthly),
		template("Rent", "750", "", core.Monthly),
	}

	idx, skipped := core.BuildDedupIndex(nil)
	require.Empty(t, skipped)

	result := p.MaterializeWithIndex(ctx, "alice", templates, idx, day("2025-01-15"))
	assert.Equal(t, 2, result.Inserted)
}

func TestRecurringProcessor_PublishesInsertedEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Rent", "750", "", core.Monthly))

	pub := &mockPublisher{}
	pub.On("PublishEntryMaterialized", mock.Anything, mock.MatchedBy(func(e core.LedgerEntry) bool {
		return e.Category == "Rent" && e.Owner == "alice"
	}), int64(1)).Return(errors.New("broker down")).Once()

	p := NewRecurringProcessor(store, pub)
	result, err := p.ProcessOwner(ctx, "alice", day("2025-01-15"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted, "publish failure does not undo the insert")
	pub.AssertExpectations(t)
}

func TestRecurringProcessor_ConcurrentPassesInsertOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplates(t, store, template("Rent", "750", "", core.Monthly))
	p := NewRecurringProcessor(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			today := day("2025-01-15").AddDate(0, 0, i%3)
			_, err := p.ProcessOwner(ctx, "alice", today)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := store.ListEntries(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecurringProcessor_EmptyOwner(t *testing.T) {
	p := NewRecurringProcessor(memory.New(), nil)
	_, err := p.ProcessOwner(context.Background(), "", day("2025-01-15"))
	assert.ErrorIs(t, err, core.ErrEmptyOwner)
}

// lockingStore records LockOwner calls around passes.
type lockingStore struct {
	*memory.Store
	mu      sync.Mutex
	locked  []string
	held    bool
	lockErr error
}

func (l *lockingStore) LockOwner(_ context.Context, owner string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.locked = append(l.locked, owner)
	l.held = true
	return func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
	}, nil
}

func (l *lockingStore) InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	l.mu.Lock()
	held := l.held
	l.mu.Unlock()
	if !held {
		return e, errors.New("insert outside owner lock")
	}
	return l.Store.InsertEntry(ctx, e)
}

func TestRecurringProcessor_HoldsStoreLockDuringPass(t *testing.T) {
	ctx := context.Background()
	store := &lockingStore{Store: memory.New()}
	seedTemplates(t, store.Store, template("Rent", "750", "", core.Monthly))
	p := NewRecurringProcessor(store, nil)

	result, err := p.ProcessOwner(ctx, "alice", day("2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"alice"}, store.locked)
	assert.False(t, store.held, "lock released after the pass")
}

func TestRecurringProcessor_StoreLockFailure(t *testing.T) {
	store := &lockingStore{Store: memory.New(), lockErr: ports.ErrStoreUnavailable}
	seedTemplates(t, store.Store, template("Rent", "750", "", core.Monthly))
	p := NewRecurringProcessor(store, nil)

	_, err := p.RunPass(context.Background(), "alice", day("2025-01-15"))
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)

	entries, err := store.ListEntries(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
