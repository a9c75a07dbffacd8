package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// PenaltyService exposes the penalty ledger: listing a user's penalties and
// settling one. Creation happens inside the loan return flow.
type PenaltyService interface {
	ListByUser(ctx context.Context, userID string) ([]model.Penalty, error)
	Pay(ctx context.Context, penaltyID string) (*model.Penalty, error)
}

type penaltyService struct {
	store repository.Store
}

// NewPenaltyService constructs the penalty service.
func NewPenaltyService(store repository.Store) PenaltyService {
	return &penaltyService{store: store}
}

func (s *penaltyService) ListByUser(ctx context.Context, userID string) ([]model.Penalty, error) {
	if _, err := findUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.Penalties().ListByUser(ctx, userID)
}

func (s *penaltyService) Pay(ctx context.Context, penaltyID string) (*model.Penalty, error) {
	var paid *model.Penalty

	err := s.store.InTx(ctx, func(st repository.Store) error {
		p, err := st.Penalties().FindByID(ctx, penaltyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reject(CodeNotFound, "penalty not found", "penalty_id", penaltyID)
			}
			return fmt.Errorf("find penalty: %w", err)
		}

		if p.Status == model.PenaltyPaid {
			return reject(CodeNotActive, "penalty is already paid", "penalty_id", p.ID)
		}
		if !p.Status.CanTransition(model.PenaltyPaid) {
			return reject(CodeInvalidTransition, "illegal penalty status change",
				"from", string(p.Status), "to", string(model.PenaltyPaid))
		}

		if err := st.Penalties().MarkPaid(ctx, p.ID); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}

		p.Status = model.PenaltyPaid
		paid = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}
