package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"circapi/internal/clock"
	"circapi/internal/config"
	"circapi/internal/model"
	"circapi/internal/repository"
)

// ReservationService owns the per-document priority queue. Only the head of
// the queue may be fulfilled; any removal closes the gap so active
// reservations always form a contiguous 1..N ordering.
type ReservationService interface {
	Reserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*model.Reservation, error)
	Fulfill(ctx context.Context, reservationID string) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID string) (*model.Reservation, error)
	Queue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error)
}

type reservationService struct {
	store repository.Store
	clk   clock.Clock
	cfg   config.CirculationConfig
}

// NewReservationService constructs the reservation queue manager.
func NewReservationService(store repository.Store, clk clock.Clock, cfg config.CirculationConfig) ReservationService {
	return &reservationService{store: store, clk: clk, cfg: cfg}
}

func (s *reservationService) Reserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*model.Reservation, error) {
	var created *model.Reservation

	err := s.store.InTx(ctx, func(st repository.Store) error {
		user, err := findUser(ctx, st, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return reject(CodeUserInactive, "user account is inactive", "user_id", userID)
		}

		doc, err := lockDocument(ctx, st, documentID, kind)
		if err != nil {
			return err
		}

		now := s.clk.Now()
		if err := expireStaleReservations(ctx, st, doc, now); err != nil {
			return err
		}

		borrowed, err := st.Loans().HasOpen(ctx, userID, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("check open loan: %w", err)
		}
		if borrowed {
			return reject(CodeAlreadyBorrowed, "user already holds a loan for this document",
				"user_id", userID, "document_id", doc.ID)
		}

		reserved, err := st.Reservations().HasActive(ctx, userID, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("check active reservation: %w", err)
		}
		if reserved {
			return reject(CodeAlreadyReserved, "user already holds a reservation for this document",
				"user_id", userID, "document_id", doc.ID)
		}

		held, err := st.Reservations().CountActiveByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("count user reservations: %w", err)
		}
		if held >= user.MaxReservations {
			return reject(CodeReservationLimitExceeded, "reservation limit reached",
				"active_reservations", held, "max_reservations", user.MaxReservations)
		}

		// A document that can be borrowed right now cannot be reserved;
		// reservations only queue for a scarce resource.
		av, err := snapshot(ctx, st, doc)
		if err != nil {
			return err
		}
		if av.AvailableCopies > 0 {
			return reject(CodeDocumentAvailableForLoan, "document is available for immediate loan",
				"available_copies", av.AvailableCopies)
		}

		max, err := st.Reservations().MaxPriority(ctx, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("max priority: %w", err)
		}

		created, err = st.Reservations().Create(ctx, &model.Reservation{
			ID:            uuid.NewString(),
			UserID:        userID,
			DocumentID:    doc.ID,
			DocumentKind:  doc.Kind,
			PriorityOrder: max + 1,
			Status:        model.ReservationActive,
			ExpiryDate:    now.AddDate(0, 0, s.cfg.ReservationTTLDays),
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *reservationService) Fulfill(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.close(ctx, reservationID, model.ReservationFulfilled)
}

func (s *reservationService) Cancel(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.close(ctx, reservationID, model.ReservationCancelled)
}

// close removes a reservation from the queue with the given terminal status
// and resequences the reservations behind it. Fulfillment is additionally
// restricted to the head of the queue.
func (s *reservationService) close(ctx context.Context, reservationID string, to model.ReservationStatus) (*model.Reservation, error) {
	var closed *model.Reservation

	err := s.store.InTx(ctx, func(st repository.Store) error {
		res, err := st.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reject(CodeNotFound, "reservation not found", "reservation_id", reservationID)
			}
			return fmt.Errorf("find reservation: %w", err)
		}

		doc, err := lockDocument(ctx, st, res.DocumentID, res.DocumentKind)
		if err != nil {
			return err
		}

		// The expiry sweep may terminate this very reservation.
		if err := expireStaleReservations(ctx, st, doc, s.clk.Now()); err != nil {
			return err
		}
		res, err = st.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			return fmt.Errorf("reload reservation: %w", err)
		}

		if res.Status != model.ReservationActive {
			return reject(CodeNotActive, "reservation is not active",
				"reservation_id", res.ID, "status", string(res.Status))
		}
		if !res.Status.CanTransition(to) {
			return reject(CodeInvalidTransition, "illegal reservation status change",
				"from", string(res.Status), "to", string(to))
		}

		if to == model.ReservationFulfilled && res.PriorityOrder != 1 {
			head, err := headOfQueue(ctx, st, doc)
			if err != nil {
				return err
			}
			return reject(CodeNotHeadOfQueue, "only the head of the queue may be fulfilled",
				"reservation_id", res.ID,
				"priority_order", res.PriorityOrder,
				"head_reservation_id", head.ID,
				"head_user_id", head.UserID)
		}

		if err := st.Reservations().Close(ctx, res.ID, to); err != nil {
			return fmt.Errorf("close reservation: %w", err)
		}
		if err := st.Reservations().ShiftQueueAfter(ctx, doc.ID, doc.Kind, res.PriorityOrder); err != nil {
			return fmt.Errorf("resequence queue: %w", err)
		}

		res.Status = to
		closed = res

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *reservationService) Queue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error) {
	var queue []model.Reservation

	// The sweep mutates, so even this read path runs in a transaction.
	err := s.store.InTx(ctx, func(st repository.Store) error {
		doc, err := lockDocument(ctx, st, documentID, kind)
		if err != nil {
			return err
		}
		if err := expireStaleReservations(ctx, st, doc, s.clk.Now()); err != nil {
			return err
		}
		queue, err = st.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("load queue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

// expireStaleReservations lazily expires active reservations whose expiry
// date has passed, closing each gap as it goes. Processing back-to-front
// keeps the recorded priorities of earlier entries valid during the sweep.
func expireStaleReservations(ctx context.Context, st repository.Store, doc *model.Document, now time.Time) error {
	queue, err := st.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	for i := len(queue) - 1; i >= 0; i-- {
		res := queue[i]
		if !res.ExpiryDate.Before(now) {
			continue
		}
		if err := st.Reservations().Close(ctx, res.ID, model.ReservationExpired); err != nil {
			return fmt.Errorf("expire reservation: %w", err)
		}
		if err := st.Reservations().ShiftQueueAfter(ctx, doc.ID, doc.Kind, res.PriorityOrder); err != nil {
			return fmt.Errorf("resequence queue: %w", err)
		}
	}
	return nil
}

// headOfQueue returns the active reservation with priority_order 1.
func headOfQueue(ctx context.Context, st repository.Store, doc *model.Document) (*model.Reservation, error) {
	queue, err := st.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if len(queue) == 0 {
		return nil, reject(CodeNotFound, "reservation queue is empty",
			"document_id", doc.ID, "document_kind", string(doc.Kind))
	}
	return &queue[0], nil
}

// findUser loads a user, translating a missing row into a rejection.
func findUser(ctx context.Context, st repository.Store, userID string) (*model.User, error) {
	user, err := st.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reject(CodeNotFound, "user not found", "user_id", userID)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// lockDocument locks the document row for the rest of the transaction,
// serializing concurrent circulation mutations for the same document.
func lockDocument(ctx context.Context, st repository.Store, documentID string, kind model.DocumentKind) (*model.Document, error) {
	doc, err := st.Documents().FindForUpdate(ctx, documentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reject(CodeNotFound, "document not found",
				"document_id", documentID, "document_kind", string(kind))
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}
	return doc, nil
}
