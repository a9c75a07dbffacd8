package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"circapi/internal/clock"
	"circapi/internal/model"
	"circapi/internal/repository"
)

// ConsultationService manages same-day reading-room holds. A consultation
// consumes one copy unit exactly like a loan but cannot be queued against and
// is never overdue. Finishing one releases inventory through the live counts;
// it does not trigger reservation notifications.
type ConsultationService interface {
	Start(ctx context.Context, userID, documentID string, kind model.DocumentKind, location string) (*model.Consultation, error)
	Complete(ctx context.Context, consultationID string) (*model.Consultation, error)
	Cancel(ctx context.Context, consultationID string) (*model.Consultation, error)
}

type consultationService struct {
	store repository.Store
	clk   clock.Clock
}

// NewConsultationService constructs the consultation manager.
func NewConsultationService(store repository.Store, clk clock.Clock) ConsultationService {
	return &consultationService{store: store, clk: clk}
}

func (s *consultationService) Start(ctx context.Context, userID, documentID string, kind model.DocumentKind, location string) (*model.Consultation, error) {
	var created *model.Consultation

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

		active, err := st.Consultations().HasActive(ctx, userID, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("check active consultation: %w", err)
		}
		if active {
			return reject(CodeAlreadyActive, "user already has an active consultation for this document",
				"user_id", userID, "document_id", doc.ID)
		}

		av, err := snapshot(ctx, st, doc)
		if err != nil {
			return err
		}
		if av.AvailableCopies <= 0 {
			return reject(CodeDocumentUnavailable, "no copy available for consultation",
				"available_copies", av.AvailableCopies,
				"active_loans", av.ActiveLoans,
				"active_reservations", av.ActiveReservations,
				"active_consultations", av.ActiveConsultations)
		}

		now := s.clk.Now()
		created, err = st.Consultations().Create(ctx, &model.Consultation{
			ID:               uuid.NewString(),
			UserID:           userID,
			DocumentID:       doc.ID,
			DocumentKind:     doc.Kind,
			Location:         location,
			ConsultationDate: now.Truncate(24 * time.Hour),
			StartTime:        now,
			Status:           model.ConsultationActive,
		})
		if err != nil {
			return fmt.Errorf("create consultation: %w", err)
		}

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *consultationService) Complete(ctx context.Context, consultationID string) (*model.Consultation, error) {
	return s.close(ctx, consultationID, model.ConsultationCompleted)
}

func (s *consultationService) Cancel(ctx context.Context, consultationID string) (*model.Consultation, error) {
	return s.close(ctx, consultationID, model.ConsultationCancelled)
}

// close releases the copy unit held by an active consultation. Only valid
// from the active state; a second call never double-releases inventory.
func (s *consultationService) close(ctx context.Context, consultationID string, to model.ConsultationStatus) (*model.Consultation, error) {
	var closed *model.Consultation

	err := s.store.InTx(ctx, func(st repository.Store) error {
		cons, err := st.Consultations().FindByID(ctx, consultationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reject(CodeNotFound, "consultation not found", "consultation_id", consultationID)
			}
			return fmt.Errorf("find consultation: %w", err)
		}

		doc, err := lockDocument(ctx, st, cons.DocumentID, cons.DocumentKind)
		if err != nil {
			return err
		}

		if cons.Status != model.ConsultationActive {
			return reject(CodeNotActive, "consultation is not active",
				"consultation_id", cons.ID, "status", string(cons.Status))
		}
		if !cons.Status.CanTransition(to) {
			return reject(CodeInvalidTransition, "illegal consultation status change",
				"from", string(cons.Status), "to", string(to))
		}

		var end *time.Time
		if to == model.ConsultationCompleted {
			now := s.clk.Now()
			end = &now
		}
		if err := st.Consultations().Close(ctx, cons.ID, to, end); err != nil {
			return fmt.Errorf("close consultation: %w", err)
		}

		cons.Status = to
		cons.EndTime = end
		closed = cons

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}
