package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"tracker/internal/core"
	"tracker/internal/ports"
)

type mockStore struct {
	mock.Mock
}

var _ ports.LedgerStore = (*mockStore)(nil)

func (m *mockStore) ListEntries(ctx context.Context, owner string) ([]core.LedgerEntry, error) {
	args := m.Called(ctx, owner)
	entries, _ := args.Get(0).([]core.LedgerEntry)
	return entries, args.Error(1)
}

func (m *mockStore) InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(core.LedgerEntry), args.Error(1)
}

func (m *mockStore) DeleteEntry(ctx context.Context, owner string, id int64) error {
	return m.Called(ctx, owner, id).Error(0)
}

func (m *mockStore) ListTemplates(ctx context.Context, owner string) ([]core.RecurringTemplate, error) {
	args := m.Called(ctx, owner)
	templates, _ := args.Get(0).([]core.RecurringTemplate)
	return templates, args.Error(1)
}

func (m *mockStore) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(core.RecurringTemplate), args.Error(1)
}

func (m *mockStore) DeleteTemplate(ctx context.Context, owner string, id int64) error {
	return m.Called(ctx, owner, id).Error(0)
}

func (m *mockStore) ListOwners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	owners, _ := args.Get(0).([]string)
	return owners, args.Error(1)
}

func (m *mockStore) GetBudget(ctx context.Context, owner string) (decimal.NullDecimal, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(decimal.NullDecimal), args.Error(1)
}

func (m *mockStore) SetBudget(ctx context.Context, owner string, budget decimal.NullDecimal) error {
	return m.Called(ctx, owner, budget).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEntryMaterialized(ctx context.Context, e core.LedgerEntry, templateID int64) error {
	return m.Called(ctx, e, templateID).Error(0)
}

func (m *mockPublisher) PublishBudgetTierChanged(ctx context.Context, owner string, previous core.Tier, status core.BudgetStatus) error {
	return m.Called(ctx, owner, previous, status).Error(0)
}
