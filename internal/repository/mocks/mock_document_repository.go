package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/model"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindForUpdate(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) RefreshAvailableCache(ctx context.Context, id string, kind model.DocumentKind, available int) error {
	args := m.Called(ctx, id, kind, available)
	return args.Error(0)
}
