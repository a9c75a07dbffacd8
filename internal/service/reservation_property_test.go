package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"pgregory.net/rapid"

	"circapi/internal/model"
	"circapi/internal/repository"
)

// fakeQueueState is a tiny in-memory datastore for one document's
// reservations. Users never expire, loans and consultations stay empty, and
// the document has zero copies so every enqueue is availability-legal.
type fakeQueueState struct {
	doc          model.Document
	reservations map[string]*model.Reservation
}

type fakeQueueStore struct {
	s *fakeQueueState
}

var _ repository.Store = (*fakeQueueStore)(nil)

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{s: &fakeQueueState{
		doc:          model.Document{ID: "d1", Kind: model.KindBook, Title: "Compilers"},
		reservations: map[string]*model.Reservation{},
	}}
}

func (f *fakeQueueStore) Users() repository.UserRepository                 { return fakeUserRepo{} }
func (f *fakeQueueStore) Documents() repository.DocumentRepository         { return fakeDocumentRepo{f.s} }
func (f *fakeQueueStore) Loans() repository.LoanRepository                 { return fakeLoanRepo{} }
func (f *fakeQueueStore) Reservations() repository.ReservationRepository   { return fakeReservationRepo{f.s} }
func (f *fakeQueueStore) Consultations() repository.ConsultationRepository { return fakeConsultationRepo{} }
func (f *fakeQueueStore) Penalties() repository.PenaltyRepository          { return fakePenaltyRepo{} }

func (f *fakeQueueStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

type fakeUserRepo struct{}

func (fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return &model.User{ID: id, Name: "Reader", IsActive: true, MaxLoans: 100, MaxReservations: 100}, nil
}

type fakeDocumentRepo struct {
	s *fakeQueueState
}

func (r fakeDocumentRepo) FindByID(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	if id != r.s.doc.ID || kind != r.s.doc.Kind {
		return nil, sql.ErrNoRows
	}
	doc := r.s.doc
	return &doc, nil
}

func (r fakeDocumentRepo) FindForUpdate(ctx context.Context, id string, kind model.DocumentKind) (*model.Document, error) {
	return r.FindByID(ctx, id, kind)
}

func (r fakeDocumentRepo) RefreshAvailableCache(ctx context.Context, id string, kind model.DocumentKind, available int) error {
	r.s.doc.AvailableCopies = available
	return nil
}

type fakeLoanRepo struct{}

func (fakeLoanRepo) Create(ctx context.Context, loan *model.Loan) (*model.Loan, error) {
	return loan, nil
}
func (fakeLoanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	return nil, sql.ErrNoRows
}
func (fakeLoanRepo) CountOpen(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	return 0, nil
}
func (fakeLoanRepo) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	return 0, nil
}
func (fakeLoanRepo) HasOpen(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	return false, nil
}
func (fakeLoanRepo) EarliestDueDate(ctx context.Context, documentID string, kind model.DocumentKind) (*time.Time, error) {
	return nil, nil
}
func (fakeLoanRepo) MarkOverdue(ctx context.Context, documentID string, kind model.DocumentKind, asOf time.Time) (int64, error) {
	return 0, nil
}
func (fakeLoanRepo) MarkOverdueByUser(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	return 0, nil
}
func (fakeLoanRepo) MarkReturned(ctx context.Context, id string, returnedAt time.Time) error {
	return nil
}
func (fakeLoanRepo) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Loan], error) {
	return &repository.PageResult[model.Loan]{}, nil
}

type fakeConsultationRepo struct{}

func (fakeConsultationRepo) Create(ctx context.Context, cons *model.Consultation) (*model.Consultation, error) {
	return cons, nil
}
func (fakeConsultationRepo) FindByID(ctx context.Context, id string) (*model.Consultation, error) {
	return nil, sql.ErrNoRows
}
func (fakeConsultationRepo) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	return 0, nil
}
func (fakeConsultationRepo) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	return false, nil
}
func (fakeConsultationRepo) Close(ctx context.Context, id string, to model.ConsultationStatus, endTime *time.Time) error {
	return nil
}

type fakePenaltyRepo struct{}

func (fakePenaltyRepo) Create(ctx context.Context, p *model.Penalty) (*model.Penalty, error) {
	return p, nil
}
func (fakePenaltyRepo) FindByID(ctx context.Context, id string) (*model.Penalty, error) {
	return nil, sql.ErrNoRows
}
func (fakePenaltyRepo) CountUnpaidByLoan(ctx context.Context, loanID string) (int, error) {
	return 0, nil
}
func (fakePenaltyRepo) CountUnpaidByUser(ctx context.Context, userID string) (int, error) {
	return 0, nil
}
func (fakePenaltyRepo) ListByUser(ctx context.Context, userID string) ([]model.Penalty, error) {
	return nil, nil
}
func (fakePenaltyRepo) MarkPaid(ctx context.Context, id string) error {
	return nil
}

type fakeReservationRepo struct {
	s *fakeQueueState
}

func (r fakeReservationRepo) Create(ctx context.Context, res *model.Reservation) (*model.Reservation, error) {
	stored := *res
	r.s.reservations[res.ID] = &stored
	out := stored
	return &out, nil
}

func (r fakeReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *res
	return &out, nil
}

func (r fakeReservationRepo) ActiveQueue(ctx context.Context, documentID string, kind model.DocumentKind) ([]model.Reservation, error) {
	queue := make([]model.Reservation, 0)
	for _, res := range r.s.reservations {
		if res.DocumentID == documentID && res.DocumentKind == kind && res.Status == model.ReservationActive {
			queue = append(queue, *res)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].PriorityOrder < queue[j].PriorityOrder })
	return queue, nil
}

func (r fakeReservationRepo) CountActive(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	queue, _ := r.ActiveQueue(ctx, documentID, kind)
	return len(queue), nil
}

func (r fakeReservationRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, res := range r.s.reservations {
		if res.UserID == userID && res.Status == model.ReservationActive {
			n++
		}
	}
	return n, nil
}

func (r fakeReservationRepo) HasActive(ctx context.Context, userID, documentID string, kind model.DocumentKind) (bool, error) {
	for _, res := range r.s.reservations {
		if res.UserID == userID && res.DocumentID == documentID && res.DocumentKind == kind &&
			res.Status == model.ReservationActive {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeReservationRepo) MaxPriority(ctx context.Context, documentID string, kind model.DocumentKind) (int, error) {
	max := 0
	for _, res := range r.s.reservations {
		if res.DocumentID == documentID && res.DocumentKind == kind &&
			res.Status == model.ReservationActive && res.PriorityOrder > max {
			max = res.PriorityOrder
		}
	}
	return max, nil
}

func (r fakeReservationRepo) Close(ctx context.Context, id string, to model.ReservationStatus) error {
	res, ok := r.s.reservations[id]
	if !ok {
		return sql.ErrNoRows
	}
	res.Status = to
	return nil
}

func (r fakeReservationRepo) ShiftQueueAfter(ctx context.Context, documentID string, kind model.DocumentKind, removedPriority int) error {
	for _, res := range r.s.reservations {
		if res.DocumentID == documentID && res.DocumentKind == kind &&
			res.Status == model.ReservationActive && res.PriorityOrder > removedPriority {
			res.PriorityOrder--
		}
	}
	return nil
}

type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time { return c.now }

// Arbitrary interleavings of enqueue, cancel, fulfill and expiry must leave
// the active queue priorities at exactly 1..N.
func TestReservationQueue_ContiguousPriorityProperty(t *testing.T) {
	ctx := context.Background()
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}

	rapid.Check(t, func(t *rapid.T) {
		store := newFakeQueueStore()
		clk := &steppingClock{now: testNow}
		svc := NewReservationService(store, clk, testCirculationConfig())

		var ids []string

		assertContiguous := func() {
			queue, err := store.Reservations().ActiveQueue(ctx, "d1", model.KindBook)
			if err != nil {
				t.Fatalf("load queue: %v", err)
			}
			for i, res := range queue {
				if res.PriorityOrder != i+1 {
					got := make([]int, len(queue))
					for j, q := range queue {
						got[j] = q.PriorityOrder
					}
					t.Fatalf("active queue priorities %v, want 1..%d", got, len(queue))
				}
			}
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0: // enqueue
				user := rapid.SampledFrom(users).Draw(t, "user")
				res, err := svc.Reserve(ctx, user, "d1", model.KindBook)
				if err != nil {
					if _, ok := AsRejection(err); !ok {
						t.Fatalf("reserve: %v", err)
					}
				} else {
					ids = append(ids, res.ID)
				}
			case 1: // cancel any known reservation, active or not
				if len(ids) == 0 {
					continue
				}
				id := rapid.SampledFrom(ids).Draw(t, "cancel_id")
				if _, err := svc.Cancel(ctx, id); err != nil {
					if _, ok := AsRejection(err); !ok {
						t.Fatalf("cancel: %v", err)
					}
				}
			case 2: // fulfill whatever is at the head
				queue, err := store.Reservations().ActiveQueue(ctx, "d1", model.KindBook)
				if err != nil {
					t.Fatalf("load queue: %v", err)
				}
				if len(queue) == 0 {
					continue
				}
				if _, err := svc.Fulfill(ctx, queue[0].ID); err != nil {
					if _, ok := AsRejection(err); !ok {
						t.Fatalf("fulfill: %v", err)
					}
				}
			case 3: // let time pass; the next read sweeps expired entries
				clk.now = clk.now.AddDate(0, 0, rapid.IntRange(1, 10).Draw(t, "days"))
				if _, err := svc.Queue(ctx, "d1", model.KindBook); err != nil {
					t.Fatalf("queue read: %v", err)
				}
			}
			assertContiguous()
		}
	})
}
