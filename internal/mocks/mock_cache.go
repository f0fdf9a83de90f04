package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLedgerCache struct {
	mock.Mock
}

func (m *MockLedgerCache) Get(ctx context.Context, loanID uuid.UUID, version time.Time) (*domain.LedgerState, bool, error) {
	args := m.Called(ctx, loanID, version)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.LedgerState), args.Bool(1), args.Error(2)
}

func (m *MockLedgerCache) Set(ctx context.Context, loanID uuid.UUID, version time.Time, state domain.LedgerState) error {
	args := m.Called(ctx, loanID, version, state)
	return args.Error(0)
}

func (m *MockLedgerCache) Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error {
	args := m.Called(ctx, loanIDs)
	return args.Error(0)
}
