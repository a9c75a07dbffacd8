package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/notify"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) NotifyDocumentAvailable(ctx context.Context, ev notify.DocumentAvailable) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
