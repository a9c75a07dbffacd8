package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
)

type MockConsultationRepository struct {
	mock.Mock
}

func (m *MockConsultationRepository) Create(ctx context.Context, cons *model.Consultation) (*model.Consultation, error) {
	args := m.Called(ctx, cons)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *MockConsultationRepository) FindByID(ctx context.Context, id string) (*model.Consultation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *MockConsultationRepository) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	args := m.Called(ctx, documentID, kind)
	return args.Int(0), args.Error(1)
}

func (m *MockConsultationRepository) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	args := m.Called(ctx, userID, documentID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsultationRepository) Close(ctx context.Context, id string, to model.ConsultationStatus, endTime *time.Time) error {
	args := m.Called(ctx, id, to, endTime)
	return args.Error(0)
}
