package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
	"tracker/internal/services"
	"tracker/internal/storage/memory"
)

type fakeOwners struct {
	owners []string
	err    error
}

func (f fakeOwners) ListOwners(context.Context) ([]string, error) {
	return f.owners, f.err
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls map[string]time.Time
	fail  map[string]bool
}

func (p *recordingProcessor) ProcessOwner(_ context.Context, owner string, today time.Time) (services.MaterializeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]time.Time)
	}
	p.calls[owner] = today
	if p.fail[owner] {
		return services.MaterializeResult{}, errors.New("boom")
	}
	return services.MaterializeResult{Inserted: 1, Skipped: 2}, nil
}

func TestRunOnce_ProcessesEveryOwner(t *testing.T) {
	proc := &recordingProcessor{fail: map[string]bool{"carol": true}}
	loc := time.FixedZone("UTC+2", 2*3600)
	w := NewRecurringWorker(fakeOwners{owners: []string{"alice", "bob", "carol"}}, proc, loc, 2)
	// 23:30 UTC on Dec 31 is already Jan 1 at UTC+2.
	w.now = func() time.Time { return time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC) }

	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Owners: 3, Inserted: 2, Skipped: 4, Failures: 1}, stats)
	require.Len(t, proc.calls, 3)
	assert.Equal(t, "2025-01-01", proc.calls["alice"].Format(time.DateOnly))
}

func TestRunOnce_ListOwnersError(t *testing.T) {
	w := NewRecurringWorker(fakeOwners{err: errors.New("db down")}, &recordingProcessor{}, time.UTC, 1)

	_, err := w.RunOnce(context.Background())
	assert.ErrorContains(t, err, "list owners")
}

func TestRunOnce_MaterializesFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.CreateTemplate(ctx, core.RecurringTemplate{
		Category: "Rent", Amount: decimal.RequireFromString("750"), Interval: core.Monthly, Owner: "alice",
	})
	require.NoError(t, err)

	w := NewRecurringWorker(store, services.NewRecurringProcessor(store, nil), time.UTC, 4)
	w.now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }

	stats, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	stats, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)

	entries, err := store.ListEntries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-03-10", entries[0].Date)
}

func TestStart_InvalidSchedule(t *testing.T) {
	w := NewRecurringWorker(fakeOwners{}, &recordingProcessor{}, time.UTC, 1)
	assert.Error(t, w.Start(context.Background(), "not a cron spec"))
}

func TestStartStop(t *testing.T) {
	w := NewRecurringWorker(fakeOwners{}, &recordingProcessor{}, time.UTC, 1)
	require.NoError(t, w.Start(context.Background(), "5 0 * * *"))
	w.Stop()
}
