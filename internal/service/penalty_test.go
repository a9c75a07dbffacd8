package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circapi/internal/model"
	repoMocks "circapi/internal/repository/mocks"
)

func TestPenaltyService_ListByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the ledger newest first", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
		ms.PenaltiesRepo.On("ListByUser", ctx, "u1").Return([]model.Penalty{
			{ID: "p2", AmountCents: 500, Status: model.PenaltyUnpaid},
			{ID: "p1", AmountCents: 250, Status: model.PenaltyPaid},
		}, nil)

		svc := NewPenaltyService(ms)
		out, err := svc.ListByUser(ctx, "u1")

		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "p2", out[0].ID)
		ms.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.UsersRepo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		svc := NewPenaltyService(ms)
		_, err := svc.ListByUser(ctx, "nope")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotFound, r.Code)
		ms.AssertExpectations(t)
	})
}

func TestPenaltyService_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("settles an unpaid penalty", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.PenaltiesRepo.On("FindByID", ctx, "p1").
			Return(&model.Penalty{ID: "p1", UserID: "u1", AmountCents: 250, Status: model.PenaltyUnpaid}, nil)
		ms.PenaltiesRepo.On("MarkPaid", ctx, "p1").Return(nil)

		svc := NewPenaltyService(ms)
		paid, err := svc.Pay(ctx, "p1")

		require.NoError(t, err)
		assert.Equal(t, model.PenaltyPaid, paid.Status)
		ms.AssertExpectations(t)
	})

	t.Run("paying twice is rejected", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.PenaltiesRepo.On("FindByID", ctx, "p1").
			Return(&model.Penalty{ID: "p1", Status: model.PenaltyPaid}, nil)

		svc := NewPenaltyService(ms)
		_, err := svc.Pay(ctx, "p1")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotActive, r.Code)
		ms.AssertExpectations(t)
	})

	t.Run("unknown penalty", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.PenaltiesRepo.On("FindByID", ctx, "nope").Return(nil, sql.ErrNoRows)

		svc := NewPenaltyService(ms)
		_, err := svc.Pay(ctx, "nope")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotFound, r.Code)
		ms.AssertExpectations(t)
	})
}
