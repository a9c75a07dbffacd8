package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
	"circapi/internal/repository"
	"circapi/internal/service"
)

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) Check(ctx context.Context, documentID string, kind model.DocumentKind) (*model.Availability, error) {
	args := m.Called(ctx, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Availability), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Borrow(ctx context.Context, req service.BorrowRequest) (*model.Loan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanService) Return(ctx context.Context, loanID string) (*service.ReturnResult, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReturnResult), args.Error(1)
}

func (m *MockLoanService) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error) {
	args := m.Called(ctx, userID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Loan]), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*model.Reservation, error) {
	args := m.Called(ctx, userID, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Fulfill(ctx context.Context, reservationID string) (*model.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, reservationID string) (*model.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Queue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error) {
	args := m.Called(ctx, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

type MockConsultationService struct {
	mock.Mock
}

func (m *MockConsultationService) Start(ctx context.Context, userID, documentID string, kind model.DocumentKind, location string) (*model.Consultation, error) {
	args := m.Called(ctx, userID, documentID, kind, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *MockConsultationService) Complete(ctx context.Context, consultationID string) (*model.Consultation, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *MockConsultationService) Cancel(ctx context.Context, consultationID string) (*model.Consultation, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

type MockEligibilityService struct {
	mock.Mock
}

func (m *MockEligibilityService) CanBorrow(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*service.EligibilityResult, error) {
	args := m.Called(ctx, userID, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EligibilityResult), args.Error(1)
}

func (m *MockEligibilityService) CanReserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*service.EligibilityResult, error) {
	args := m.Called(ctx, userID, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EligibilityResult), args.Error(1)
}

type MockPenaltyService struct {
	mock.Mock
}

func (m *MockPenaltyService) ListByUser(ctx context.Context, userID string) ([]model.Penalty, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Penalty), args.Error(1)
}

func (m *MockPenaltyService) Pay(ctx context.Context, penaltyID string) (*model.Penalty, error) {
	args := m.Called(ctx, penaltyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Penalty), args.Error(1)
}
