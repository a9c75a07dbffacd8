package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// AvailabilityService is the read-only availability calculator. The snapshot
// is derived from live counts on every call; no stored counter is consulted.
type AvailabilityService interface {
	Check(ctx context.Context, documentID string, kind model.DocumentKind) (*model.Availability, error)
}

type availabilityService struct {
	store repository.Store
}

// NewAvailabilityService constructs the availability calculator.
func NewAvailabilityService(store repository.Store) AvailabilityService {
	return &availabilityService{store: store}
}

func (s *availabilityService) Check(ctx context.Context, documentID string, kind model.DocumentKind) (*model.Availability, error) {
	doc, err := s.store.Documents().FindByID(ctx, documentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reject(CodeNotFound, "document not found",
				"document_id", documentID, "document_kind", string(kind))
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return snapshot(ctx, s.store, doc)
}

// snapshot computes the live availability for a document. Callers holding the
// document row lock get a serialized view; read-only callers get a
// best-effort point-in-time value.
func snapshot(ctx context.Context, st repository.Store, doc *model.Document) (*model.Availability, error) {
	loans, err := st.Loans().CountOpen(ctx, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("count open loans: %w", err)
	}
	reservations, err := st.Reservations().CountActive(ctx, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("count active reservations: %w", err)
	}
	consultations, err := st.Consultations().CountActive(ctx, doc.ID, doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("count active consultations: %w", err)
	}

	av := &model.Availability{
		DocumentID:          doc.ID,
		DocumentKind:        doc.Kind,
		TotalCopies:         doc.TotalCopies,
		ActiveLoans:         loans,
		ActiveReservations:  reservations,
		ActiveConsultations: consultations,
		AvailableCopies:     model.ComputeAvailable(doc.TotalCopies, loans, reservations, consultations),
	}
	av.IsAvailable = av.AvailableCopies > 0

	if av.AvailableCopies == 0 {
		// Best-effort estimate: only loans have a predictable release date.
		due, err := st.Loans().EarliestDueDate(ctx, doc.ID, doc.Kind)
		if err != nil {
			return nil, fmt.Errorf("earliest due date: %w", err)
		}
		av.NextAvailableDate = due
	}
	return av, nil
}

// refreshCache recomputes availability and writes it into the legacy
// available_copies column. Called at the end of every mutating transaction so
// the cache follows the live value; decisions never read it.
func refreshCache(ctx context.Context, st repository.Store, doc *model.Document) error {
	av, err := snapshot(ctx, st, doc)
	if err != nil {
		return err
	}
	return st.Documents().RefreshAvailableCache(ctx, doc.ID, doc.Kind, av.AvailableCopies)
}
