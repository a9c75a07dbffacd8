package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
)

type MockPenaltyRepository struct {
	mock.Mock
}

func (m *MockPenaltyRepository) Create(ctx context.Context, p *model.Penalty) (*model.Penalty, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) FindByID(ctx context.Context, id string) (*model.Penalty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) CountUnpaidByLoan(ctx context.Context, loanID string) (int, error) {
	args := m.Called(ctx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockPenaltyRepository) CountUnpaidByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockPenaltyRepository) ListByUser(ctx context.Context, userID string) ([]model.Penalty, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Penalty), args.Error(1)
}

func (m *MockPenaltyRepository) MarkPaid(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
