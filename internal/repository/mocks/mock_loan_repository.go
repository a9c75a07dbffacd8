package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
	"circapi/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *model.Loan) (*model.Loan, error) {
	args := m.Called(ctx, loan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanRepository) CountOpen(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	args := m.Called(ctx, documentID, kind)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) HasOpen(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	args := m.Called(ctx, userID, documentID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) EarliestDueDate(ctx context.Context, documentID string, kind model.DocumentKind) (*time.Time, error) {
	args := m.Called(ctx, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockLoanRepository) MarkOverdue(ctx context.Context, documentID string, kind model.DocumentKind, asOf time.Time) (int64, error) {
	args := m.Called(ctx, documentID, kind, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) MarkOverdueByUser(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	args := m.Called(ctx, userID, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) MarkReturned(ctx context.Context, id string, returnedAt time.Time) error {
	args := m.Called(ctx, id, returnedAt)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error) {
	args := m.Called(ctx, userID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Loan]), args.Error(1)
}
