package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circapi/internal/clock"
	"circapi/internal/model"
	repoMocks "circapi/internal/repository/mocks"
)

func TestEligibilityService_CanBorrow(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: testNow}

	tests := []struct {
		name        string
		strict      bool
		setupMocks  func(ms *repoMocks.MockStore)
		wantAllowed bool
		wantCode    Code
	}{
		{
			name: "allowed",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(2), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(1, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
			},
			wantAllowed: true,
		},
		{
			name: "head of queue is allowed under the relaxed policy",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
					activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5)),
					activeReservation("r2", "u2", 2, testNow.AddDate(0, 0, 5)),
				}, nil)
			},
			wantAllowed: true,
		},
		{
			name:   "head is pointed at fulfillment under the strict policy",
			strict: true,
			setupMocks: func(ms *repoMocks.MockStore) {
				// Borrow would reject the head with the same code under the
				// strict policy, so the advisory must not promise a loan.
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
					activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5)),
				}, nil)
			},
			wantCode: CodeDocumentHasReservations,
		},
		{
			name: "behind other reservers",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
					activeReservation("r1", "u2", 1, testNow.AddDate(0, 0, 5)),
					activeReservation("r2", "u1", 2, testNow.AddDate(0, 0, 5)),
				}, nil)
			},
			wantCode: CodeReservationPriority,
		},
		{
			name: "stale head is ignored without mutating",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(2), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				// The only queue entry is expired; the checker treats the
				// queue as empty and falls through to availability.
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
					activeReservation("r1", "u2", 1, testNow.AddDate(0, 0, -1)),
				}, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(0, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
			},
			wantAllowed: true,
		},
		{
			name: "loan limit",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(2), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(3, nil)
			},
			wantCode: CodeLoanLimitExceeded,
		},
		{
			name: "inactive user",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").
					Return(&model.User{ID: "u1", IsActive: false}, nil)
			},
			wantCode: CodeUserInactive,
		},
		{
			name: "no copies and no queue",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("CountOpenByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.LoansRepo.On("EarliestDueDate", ctx, "d1", model.KindBook).Return(nil, nil)
			},
			wantCode: CodeDocumentUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := repoMocks.NewMockStore()
			tt.setupMocks(ms)

			cfg := testCirculationConfig()
			cfg.StrictReservationBlock = tt.strict

			svc := NewEligibilityService(ms, clk, cfg)
			res, err := svc.CanBorrow(ctx, "u1", "d1", model.KindBook)

			require.NoError(t, err)
			require.NotNil(t, res)
			if tt.wantAllowed {
				assert.True(t, res.Allowed)
				assert.Empty(t, res.Code)
			} else {
				assert.False(t, res.Allowed)
				assert.Equal(t, tt.wantCode, res.Code)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestEligibilityService_CanReserve(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: testNow}

	tests := []struct {
		name        string
		setupMocks  func(ms *repoMocks.MockStore)
		wantAllowed bool
		wantCode    Code
	}{
		{
			name: "allowed when exhausted",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("CountActiveByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.LoansRepo.On("EarliestDueDate", ctx, "d1", model.KindBook).Return(nil, nil)
			},
			wantAllowed: true,
		},
		{
			name: "denied while a copy is free",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(2), nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("CountActiveByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
			},
			wantCode: CodeDocumentAvailableForLoan,
		},
		{
			name: "already reserved",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(true, nil)
			},
			wantCode: CodeAlreadyReserved,
		},
		{
			name: "already borrowed",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(true, nil)
			},
			wantCode: CodeAlreadyBorrowed,
		},
		{
			name: "reservation limit",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindByID", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("CountActiveByUser", ctx, "u1").Return(3, nil)
			},
			wantCode: CodeReservationLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := repoMocks.NewMockStore()
			tt.setupMocks(ms)

			svc := NewEligibilityService(ms, clk, testCirculationConfig())
			res, err := svc.CanReserve(ctx, "u1", "d1", model.KindBook)

			require.NoError(t, err)
			require.NotNil(t, res)
			if tt.wantAllowed {
				assert.True(t, res.Allowed)
			} else {
				assert.False(t, res.Allowed)
				assert.Equal(t, tt.wantCode, res.Code)
			}
			ms.AssertExpectations(t)
		})
	}
}
