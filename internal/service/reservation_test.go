package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"circapi/internal/clock"
	"circapi/internal/model"
	repoMocks "circapi/internal/repository/mocks"
)

func activeReservation(id, userID string, priority int, expiry time.Time) model.Reservation {
	return model.Reservation{
		ID: id, UserID: userID, DocumentID: "d1", DocumentKind: model.KindBook,
		PriorityOrder: priority, Status: model.ReservationActive, ExpiryDate: expiry,
	}
}

func TestReservationService_Reserve(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: testNow}
	cfg := testCirculationConfig()

	tests := []struct {
		name       string
		setupMocks func(ms *repoMocks.MockStore)
		wantCode   Code
		check      func(t *testing.T, res *model.Reservation)
	}{
		{
			name: "appended at the tail of the queue",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
					activeReservation("r1", "u2", 1, testNow.AddDate(0, 0, 5)),
					activeReservation("r2", "u3", 2, testNow.AddDate(0, 0, 6)),
				}, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("CountActiveByUser", ctx, "u1").Return(0, nil)
				ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
				ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(2, nil)
				ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
				ms.LoansRepo.On("EarliestDueDate", ctx, "d1", model.KindBook).Return(nil, nil)
				ms.ReservationsRepo.On("MaxPriority", ctx, "d1", model.KindBook).Return(2, nil)
				ms.ReservationsRepo.On("Create", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
					return r.UserID == "u1" && r.PriorityOrder == 3 &&
						r.Status == model.ReservationActive &&
						r.ExpiryDate.Equal(testNow.AddDate(0, 0, 7))
				})).Return(&model.Reservation{ID: "r3", PriorityOrder: 3, Status: model.ReservationActive}, nil)
				ms.DocumentsRepo.On("RefreshAvailableCache", ctx, "d1", model.KindBook, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, res *model.Reservation) {
				assert.Equal(t, 3, res.PriorityOrder)
			},
		},
		{
			name: "available document cannot be reserved",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(2), nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
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
			name: "borrower cannot also reserve",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(true, nil)
			},
			wantCode: CodeAlreadyBorrowed,
		},
		{
			name: "duplicate reservation",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(true, nil)
			},
			wantCode: CodeAlreadyReserved,
		},
		{
			name: "reservation limit reached",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
				ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)
				ms.LoansRepo.On("HasOpen", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("HasActive", ctx, "u1", "d1", model.KindBook).Return(false, nil)
				ms.ReservationsRepo.On("CountActiveByUser", ctx, "u1").Return(3, nil)
			},
			wantCode: CodeReservationLimitExceeded,
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
			name: "document not found",
			setupMocks: func(ms *repoMocks.MockStore) {
				ms.UsersRepo.On("FindByID", ctx, "u1").Return(activeUser("u1"), nil)
				ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(nil, sql.ErrNoRows)
			},
			wantCode: CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := repoMocks.NewMockStore()
			tt.setupMocks(ms)

			svc := NewReservationService(ms, clk, cfg)
			res, err := svc.Reserve(ctx, "u1", "d1", model.KindBook)

			if tt.wantCode != "" {
				r, ok := AsRejection(err)
				require.True(t, ok, "expected rejection, got %v", err)
				assert.Equal(t, tt.wantCode, r.Code)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
				tt.check(t, res)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestReservationService_Close(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: testNow}
	cfg := testCirculationConfig()

	expectRefresh := func(ms *repoMocks.MockStore) {
		ms.LoansRepo.On("CountOpen", ctx, "d1", model.KindBook).Return(1, nil)
		ms.ReservationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
		ms.ConsultationsRepo.On("CountActive", ctx, "d1", model.KindBook).Return(0, nil)
		ms.DocumentsRepo.On("RefreshAvailableCache", ctx, "d1", model.KindBook, mock.Anything).Return(nil)
	}

	t.Run("cancel resequences the queue behind the removed slot", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		r2 := activeReservation("r2", "u2", 2, testNow.AddDate(0, 0, 5))
		ms.ReservationsRepo.On("FindByID", ctx, "r2").Return(&r2, nil)
		ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
			activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5)),
			r2,
			activeReservation("r3", "u3", 3, testNow.AddDate(0, 0, 5)),
		}, nil)
		ms.ReservationsRepo.On("Close", ctx, "r2", model.ReservationCancelled).Return(nil)
		ms.ReservationsRepo.On("ShiftQueueAfter", ctx, "d1", model.KindBook, 2).Return(nil)
		expectRefresh(ms)

		svc := NewReservationService(ms, clk, cfg)
		res, err := svc.Cancel(ctx, "r2")

		require.NoError(t, err)
		assert.Equal(t, model.ReservationCancelled, res.Status)
		ms.AssertExpectations(t)
	})

	t.Run("fulfilling the head succeeds", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		r1 := activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5))
		ms.ReservationsRepo.On("FindByID", ctx, "r1").Return(&r1, nil)
		ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{r1}, nil)
		ms.ReservationsRepo.On("Close", ctx, "r1", model.ReservationFulfilled).Return(nil)
		ms.ReservationsRepo.On("ShiftQueueAfter", ctx, "d1", model.KindBook, 1).Return(nil)
		expectRefresh(ms)

		svc := NewReservationService(ms, clk, cfg)
		res, err := svc.Fulfill(ctx, "r1")

		require.NoError(t, err)
		assert.Equal(t, model.ReservationFulfilled, res.Status)
		ms.AssertExpectations(t)
	})

	t.Run("fulfilling a non-head is rejected with the head identity", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		r1 := activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5))
		r2 := activeReservation("r2", "u2", 2, testNow.AddDate(0, 0, 5))
		ms.ReservationsRepo.On("FindByID", ctx, "r2").Return(&r2, nil)
		ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{r1, r2}, nil)

		svc := NewReservationService(ms, clk, cfg)
		_, err := svc.Fulfill(ctx, "r2")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotHeadOfQueue, r.Code)
		assert.Equal(t, "r1", r.Details["head_reservation_id"])
		assert.Equal(t, "u1", r.Details["head_user_id"])
		ms.AssertExpectations(t)
	})

	t.Run("closing a terminal reservation is rejected", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		done := activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5))
		done.Status = model.ReservationFulfilled
		ms.ReservationsRepo.On("FindByID", ctx, "r1").Return(&done, nil)
		ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{}, nil)

		svc := NewReservationService(ms, clk, cfg)
		_, err := svc.Cancel(ctx, "r1")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotActive, r.Code)
		ms.AssertExpectations(t)
	})

	t.Run("expiry sweep can terminate the reservation being closed", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		stale := activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, -1))
		expired := stale
		expired.Status = model.ReservationExpired

		ms.ReservationsRepo.On("FindByID", ctx, "r1").Return(&stale, nil).Once()
		ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{stale}, nil)
		ms.ReservationsRepo.On("Close", ctx, "r1", model.ReservationExpired).Return(nil)
		ms.ReservationsRepo.On("ShiftQueueAfter", ctx, "d1", model.KindBook, 1).Return(nil)
		ms.ReservationsRepo.On("FindByID", ctx, "r1").Return(&expired, nil).Once()

		svc := NewReservationService(ms, clk, cfg)
		_, err := svc.Cancel(ctx, "r1")

		r, ok := AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, CodeNotActive, r.Code)
		ms.AssertExpectations(t)
	})
}

func TestExpireStaleReservations(t *testing.T) {
	ctx := context.Background()
	doc := testDocument(1)

	t.Run("expires back to front and closes each gap", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		queue := []model.Reservation{
			activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, -2)),
			activeReservation("r2", "u2", 2, testNow.AddDate(0, 0, 5)),
			activeReservation("r3", "u3", 3, testNow.AddDate(0, 0, -1)),
		}
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return(queue, nil)

		// r3 goes first so r1's recorded priority is still valid when its
		// own shift runs.
		ms.ReservationsRepo.On("Close", ctx, "r3", model.ReservationExpired).Return(nil).Once()
		ms.ReservationsRepo.On("ShiftQueueAfter", ctx, "d1", model.KindBook, 3).Return(nil).Once()
		ms.ReservationsRepo.On("Close", ctx, "r1", model.ReservationExpired).Return(nil).Once()
		ms.ReservationsRepo.On("ShiftQueueAfter", ctx, "d1", model.KindBook, 1).Return(nil).Once()

		err := expireStaleReservations(ctx, ms, doc, testNow)
		require.NoError(t, err)
		ms.AssertExpectations(t)
	})

	t.Run("nothing to expire", func(t *testing.T) {
		ms := repoMocks.NewMockStore()
		ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
			activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5)),
		}, nil)

		err := expireStaleReservations(ctx, ms, doc, testNow)
		require.NoError(t, err)
		ms.AssertExpectations(t)
	})
}

func TestReservationService_Queue(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed{T: testNow}
	cfg := testCirculationConfig()

	ms := repoMocks.NewMockStore()
	ms.DocumentsRepo.On("FindForUpdate", ctx, "d1", model.KindBook).Return(testDocument(1), nil)
	ms.ReservationsRepo.On("ActiveQueue", ctx, "d1", model.KindBook).Return([]model.Reservation{
		activeReservation("r1", "u1", 1, testNow.AddDate(0, 0, 5)),
		activeReservation("r2", "u2", 2, testNow.AddDate(0, 0, 6)),
	}, nil)

	svc := NewReservationService(ms, clk, cfg)
	queue, err := svc.Queue(ctx, "d1", model.KindBook)

	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, 1, queue[0].PriorityOrder)
	assert.Equal(t, 2, queue[1].PriorityOrder)
	ms.AssertExpectations(t)
}
