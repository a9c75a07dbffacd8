package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"circapi/internal/clock"
	"circapi/internal/config"
	"circapi/internal/model"
	"circapi/internal/notify"
	"circapi/internal/policy"
	"circapi/internal/repository"
)

// BorrowRequest carries the inputs of a loan creation.
type BorrowRequest struct {
	UserID       string
	DocumentID   string
	DocumentKind model.DocumentKind
	// DueDate defaults to now + the configured loan period when nil.
	DueDate *time.Time
}

// ReturnResult reports everything the caller needs to explain a return:
// lateness, the penalty raised (or why it failed), unpaid penalties on the
// user's other loans, and how many queued users were notified.
type ReturnResult struct {
	Loan                 *model.Loan    `json:"loan"`
	DaysLate             int            `json:"days_late"`
	Penalty              *model.Penalty `json:"penalty,omitempty"`
	PenaltyError         string         `json:"penalty_error,omitempty"`
	OtherUnpaidPenalties int            `json:"other_unpaid_penalties"`
	QueuedUsersNotified  int            `json:"queued_users_notified"`
}

// LoanService is the loan lifecycle engine.
type LoanService interface {
	Borrow(ctx context.Context, req BorrowRequest) (*model.Loan, error)
	Return(ctx context.Context, loanID string) (*ReturnResult, error)
	ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error)
}

type loanService struct {
	store    repository.Store
	penalty  policy.PenaltyPolicy
	notifier notify.Dispatcher
	clk      clock.Clock
	cfg      config.CirculationConfig
}

// NewLoanService constructs the loan lifecycle engine.
func NewLoanService(store repository.Store, penalty policy.PenaltyPolicy, notifier notify.Dispatcher, clk clock.Clock, cfg config.CirculationConfig) LoanService {
	return &loanService{store: store, penalty: penalty, notifier: notifier, clk: clk, cfg: cfg}
}

// Borrow creates a loan. Preconditions are re-validated inside the
// transaction, after the document row lock, so two concurrent borrow attempts
// for the last copy cannot both succeed.
func (s *loanService) Borrow(ctx context.Context, req BorrowRequest) (*model.Loan, error) {
	now := s.clk.Now()

	dueDate := now.AddDate(0, 0, s.cfg.LoanPeriodDays)
	if req.DueDate != nil {
		if req.DueDate.Before(now) {
			return nil, ErrInvalidDueDate
		}
		dueDate = *req.DueDate
	}

	var created *model.Loan

	err := s.store.InTx(ctx, func(st repository.Store) error {
		user, err := findUser(ctx, st, req.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return reject(CodeUserInactive, "user account is inactive", "user_id", req.UserID)
		}

		doc, err := lockDocument(ctx, st, req.DocumentID, req.DocumentKind)
		if err != nil {
			return err
		}

		// Lazy sweeps: derive overdue statuses and drop expired
		// reservations before any count is trusted. The overdue sweep stays
		// inside this document's lock scope so borrows of unrelated
		// documents never queue behind it.
		if _, err := st.Loans().MarkOverdue(ctx, doc.ID, doc.Kind, now); err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}
		if err := expireStaleReservations(ctx, st, doc, now); err != nil {
			return err
		}

		held, err := st.Loans().CountOpenByUser(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("count user loans: %w", err)
		}
		if held >= user.MaxLoans {
			return reject(CodeLoanLimitExceeded, "loan limit reached",
				"active_loans", held, "max_loans", user.MaxLoans)
		}

		queue, err := st.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("load queue: %w", err)
		}
		if len(queue) > 0 {
			head := queue[0]
			if s.cfg.StrictReservationBlock || head.UserID != req.UserID {
				// Loans are never created past a waiting queue; even the
				// head must go through fulfillment under strict policy.
				return reject(CodeDocumentHasReservations, "document has active reservations",
					"active_reservations", len(queue),
					"head_reservation_id", head.ID,
					"head_user_id", head.UserID)
			}
			// Relaxed policy: the head borrows directly and their
			// reservation is fulfilled in the same transaction.
			if err := st.Reservations().Close(ctx, head.ID, model.ReservationFulfilled); err != nil {
				return fmt.Errorf("fulfill head reservation: %w", err)
			}
			if err := st.Reservations().ShiftQueueAfter(ctx, doc.ID, doc.Kind, head.PriorityOrder); err != nil {
				return fmt.Errorf("resequence queue: %w", err)
			}
		}

		av, err := snapshot(ctx, st, doc)
		if err != nil {
			return err
		}
		if av.AvailableCopies <= 0 {
			details := []any{
				"available_copies", av.AvailableCopies,
				"active_loans", av.ActiveLoans,
				"active_reservations", av.ActiveReservations,
				"active_consultations", av.ActiveConsultations,
			}
			if av.NextAvailableDate != nil {
				details = append(details, "next_available_date", av.NextAvailableDate.Format(time.RFC3339))
			}
			return reject(CodeDocumentUnavailable, "no copy available", details...)
		}

		borrowed, err := st.Loans().HasOpen(ctx, req.UserID, doc.ID, doc.Kind)
		if err != nil {
			return fmt.Errorf("check open loan: %w", err)
		}
		if borrowed {
			return reject(CodeAlreadyBorrowed, "user already holds a loan for this document",
				"user_id", req.UserID, "document_id", doc.ID)
		}

		created, err = st.Loans().Create(ctx, &model.Loan{
			ID:           uuid.NewString(),
			UserID:       req.UserID,
			DocumentID:   doc.ID,
			DocumentKind: doc.Kind,
			LoanDate:     now,
			DueDate:      dueDate,
			Status:       model.LoanActive,
		})
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Return closes a loan. The return itself is atomic; penalty creation and
// queue notification happen after commit so their failure can never undo a
// completed return.
func (s *loanService) Return(ctx context.Context, loanID string) (*ReturnResult, error) {
	now := s.clk.Now()
	result := &ReturnResult{}

	var doc *model.Document

	err := s.store.InTx(ctx, func(st repository.Store) error {
		loan, err := st.Loans().FindByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reject(CodeNotFound, "loan not found", "loan_id", loanID)
			}
			return fmt.Errorf("find loan: %w", err)
		}

		doc, err = lockDocument(ctx, st, loan.DocumentID, loan.DocumentKind)
		if err != nil {
			return err
		}

		if loan.Status == model.LoanReturned {
			return reject(CodeAlreadyReturned, "loan was already returned",
				"loan_id", loan.ID, "return_date", loan.ReturnDate)
		}
		if !loan.Status.CanTransition(model.LoanReturned) {
			return reject(CodeInvalidTransition, "illegal loan status change",
				"from", string(loan.Status), "to", string(model.LoanReturned))
		}

		unpaidSame, err := st.Penalties().CountUnpaidByLoan(ctx, loan.ID)
		if err != nil {
			return fmt.Errorf("count loan penalties: %w", err)
		}
		if unpaidSame > 0 {
			return reject(CodeUnpaidPenalties, "loan has unpaid penalties",
				"loan_id", loan.ID, "unpaid_penalties", unpaidSame)
		}

		unpaidAll, err := st.Penalties().CountUnpaidByUser(ctx, loan.UserID)
		if err != nil {
			return fmt.Errorf("count user penalties: %w", err)
		}
		// Penalties on the user's other loans never block this return but
		// are surfaced as a warning.
		result.OtherUnpaidPenalties = unpaidAll

		if err := st.Loans().MarkReturned(ctx, loan.ID, now); err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}

		returned := *loan
		returned.Status = model.LoanReturned
		returned.ReturnDate = &now
		result.Loan = &returned
		result.DaysLate = daysLate(loan.DueDate, now)

		return refreshCache(ctx, st, doc)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit: penalty creation. A policy or datastore fault here is
	// reported in the result instead of failing the return.
	if result.DaysLate > 0 {
		if p, perr := s.createPenalty(ctx, result.Loan, result.DaysLate, now); perr != nil {
			result.PenaltyError = perr.Error()
			logComponentError("loan", "penalty_creation_failed", perr, "loan_id", loanID)
		} else {
			result.Penalty = p
		}
	}

	// Post-commit cascade: every queued user is told a copy came back, not
	// just the head — any of them may act, though the grant itself still
	// only happens through fulfillment.
	result.QueuedUsersNotified = s.notifyQueue(ctx, doc)

	return result, nil
}

func (s *loanService) createPenalty(ctx context.Context, loan *model.Loan, daysLate int, now time.Time) (*model.Penalty, error) {
	amount, err := s.penalty.Amount(loan.DocumentKind, daysLate)
	if err != nil {
		return nil, fmt.Errorf("penalty policy: %w", err)
	}
	if amount == 0 {
		return nil, nil
	}
	loanID := loan.ID
	p, err := s.store.Penalties().Create(ctx, &model.Penalty{
		ID:          uuid.NewString(),
		UserID:      loan.UserID,
		LoanID:      &loanID,
		AmountCents: amount,
		Status:      model.PenaltyUnpaid,
		PenaltyDate: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create penalty: %w", err)
	}
	return p, nil
}

// notifyQueue dispatches an availability event to every active reserver.
// Dispatch failures are logged and swallowed.
func (s *loanService) notifyQueue(ctx context.Context, doc *model.Document) int {
	queue, err := s.store.Reservations().ActiveQueue(ctx, doc.ID, doc.Kind)
	if err != nil {
		logComponentError("loan", "queue_load_failed", err, "document_id", doc.ID)
		return 0
	}

	notified := 0
	for _, res := range queue {
		ev := notify.DocumentAvailable{
			UserID:        res.UserID,
			DocumentID:    doc.ID,
			DocumentKind:  doc.Kind,
			Title:         doc.Title,
			QueuePosition: res.PriorityOrder,
		}
		if err := s.notifier.NotifyDocumentAvailable(ctx, ev); err != nil {
			logComponentError("loan", "notify_failed", err, "user_id", res.UserID, "document_id", doc.ID)
			continue
		}
		notified++
	}
	return notified
}

// ListByUser returns the user's loans after an opportunistic overdue sweep so
// listed statuses are current.
func (s *loanService) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error) {
	if pq.Limit <= 0 {
		pq.Limit = 10
	}
	if pq.Offset < 0 {
		pq.Offset = 0
	}
	if _, err := s.store.Loans().MarkOverdueByUser(ctx, userID, s.clk.Now()); err != nil {
		return nil, fmt.Errorf("overdue sweep: %w", err)
	}
	return s.store.Loans().ListByUser(ctx, userID, pq)
}

// daysLate counts whole calendar days between the due date and the return,
// never negative.
func daysLate(due, returned time.Time) int {
	d := truncateToDay(returned).Sub(truncateToDay(due))
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func logComponentError(component, event string, err error, kv ...any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "error",
		"component": component,
		"event":     event,
		"error":     err.Error(),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			entry[key] = kv[i+1]
		}
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
