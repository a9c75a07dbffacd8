package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
)

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, res *model.Reservation) (*model.Reservation, error) {
	args := m.Called(ctx, res)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ActiveQueue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error) {
	args := m.Called(ctx, documentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	args := m.Called(ctx, documentID, kind)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	args := m.Called(ctx, userID, documentID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepository) MaxPriority(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	args := m.Called(ctx, documentID, kind)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) Close(ctx context.Context, id string, to model.ReservationStatus) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

func (m *MockReservationRepository) ShiftQueueAfter(ctx context.Context, documentID string, kind model.DocumentKind, removedPriority int) error {
	args := m.Called(ctx, documentID, kind, removedPriority)
	return args.Error(0)
}
