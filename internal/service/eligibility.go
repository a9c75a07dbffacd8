package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"circapi/internal/clock"
	"circapi/internal/config"
	"circapi/internal/model"
	"circapi/internal/repository"
)

// EligibilityResult is an advisory verdict. A true Allowed is a prediction,
// not a grant: the mutating operation re-validates everything inside its own
// transaction.
type EligibilityResult struct {
	Allowed bool           `json:"allowed"`
	Code    Code           `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// EligibilityService answers "could this user borrow / reserve this document
// right now" without mutating anything.
type EligibilityService interface {
	CanBorrow(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*EligibilityResult, error)
	CanReserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*EligibilityResult, error)
}

type eligibilityService struct {
	store repository.Store
	clk   clock.Clock
	cfg   config.CirculationConfig
}

// NewEligibilityService constructs the eligibility checker. The circulation
// config is the same one the loan engine runs under, so the advisory verdict
// and the actual borrow agree on the reservation-block policy.
func NewEligibilityService(store repository.Store, clk clock.Clock, cfg config.CirculationConfig) EligibilityService {
	return &eligibilityService{store: store, clk: clk, cfg: cfg}
}

func (s *eligibilityService) CanBorrow(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*EligibilityResult, error) {
	st := s.store

	user, err := findUser(ctx, st, userID)
	if err != nil {
		return verdict(err)
	}
	if !user.IsActive {
		return denied(CodeUserInactive, "user account is inactive", "user_id", userID), nil
	}

	doc, err := st.Documents().FindByID(ctx, documentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied(CodeNotFound, "document not found",
				"document_id", documentID, "document_kind", string(kind)), nil
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	held, err := st.Loans().CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user loans: %w", err)
	}
	if held >= user.MaxLoans {
		return denied(CodeLoanLimitExceeded, "loan limit reached",
			"active_loans", held, "max_loans", user.MaxLoans), nil
	}

	borrowed, err := st.Loans().HasOpen(ctx, userID, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("check open loan: %w", err)
	}
	if borrowed {
		return denied(CodeAlreadyBorrowed, "user already holds a loan for this document",
			"user_id", userID, "document_id", doc.ID), nil
	}

	queue, err := st.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	now := s.clk.Now()
	live := liveQueue(queue, now)
	if len(live) > 0 {
		head := live[0]
		if head.UserID != userID {
			return denied(CodeReservationPriority, "document is reserved for users ahead in the queue",
				"active_reservations", len(live),
				"head_user_id", head.UserID), nil
		}
		// Under the strict policy a direct borrow is rejected even for the
		// head; the copy is claimed by fulfilling the reservation, and the
		// verdict says so instead of promising a borrow that would bounce.
		if s.cfg.StrictReservationBlock {
			return denied(CodeDocumentHasReservations,
				"direct loans are blocked while the queue is non-empty; fulfill the reservation instead",
				"reservation_id", head.ID,
				"active_reservations", len(live)), nil
		}
		return &EligibilityResult{Allowed: true}, nil
	}

	av, err := snapshot(ctx, st, doc)
	if err != nil {
		return nil, err
	}
	if av.AvailableCopies <= 0 {
		return denied(CodeDocumentUnavailable, "no copy available",
			"available_copies", av.AvailableCopies,
			"active_loans", av.ActiveLoans,
			"active_consultations", av.ActiveConsultations), nil
	}

	return &EligibilityResult{Allowed: true}, nil
}

func (s *eligibilityService) CanReserve(ctx context.Context, userID, documentID string, kind model.DocumentKind) (*EligibilityResult, error) {
	st := s.store

	user, err := findUser(ctx, st, userID)
	if err != nil {
		return verdict(err)
	}
	if !user.IsActive {
		return denied(CodeUserInactive, "user account is inactive", "user_id", userID), nil
	}

	doc, err := st.Documents().FindByID(ctx, documentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied(CodeNotFound, "document not found",
				"document_id", documentID, "document_kind", string(kind)), nil
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	borrowed, err := st.Loans().HasOpen(ctx, userID, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("check open loan: %w", err)
	}
	if borrowed {
		return denied(CodeAlreadyBorrowed, "user already holds a loan for this document",
			"user_id", userID, "document_id", doc.ID), nil
	}

	reserved, err := st.Reservations().HasActive(ctx, userID, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("check active reservation: %w", err)
	}
	if reserved {
		return denied(CodeAlreadyReserved, "user already holds a reservation for this document",
			"user_id", userID, "document_id", doc.ID), nil
	}

	heldReservations, err := st.Reservations().CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user reservations: %w", err)
	}
	if heldReservations >= user.MaxReservations {
		return denied(CodeReservationLimitExceeded, "reservation limit reached",
			"active_reservations", heldReservations, "max_reservations", user.MaxReservations), nil
	}

	av, err := snapshot(ctx, st, doc)
	if err != nil {
		return nil, err
	}
	if av.AvailableCopies > 0 {
		return denied(CodeDocumentAvailableForLoan, "document is available for immediate loan",
			"available_copies", av.AvailableCopies), nil
	}

	return &EligibilityResult{Allowed: true}, nil
}

// liveQueue filters out reservations that would be expired by the next sweep.
// The read-only checker must not mutate, so it ignores them instead.
func liveQueue(queue []model.Reservation, now time.Time) []model.Reservation {
	live := queue[:0:0]
	for _, res := range queue {
		if res.ExpiryDate.Before(now) {
			continue
		}
		live = append(live, res)
	}
	return live
}

func denied(code Code, message string, kv ...any) *EligibilityResult {
	r := reject(code, message, kv...)
	return &EligibilityResult{Allowed: false, Code: r.Code, Message: r.Message, Details: r.Details}
}

// verdict converts a lookup error into a denial when it is a rejection and
// passes system failures through.
func verdict(err error) (*EligibilityResult, error) {
	if r, ok := AsRejection(err); ok {
		return &EligibilityResult{Allowed: false, Code: r.Code, Message: r.Message, Details: r.Details}, nil
	}
	return nil, err
}
