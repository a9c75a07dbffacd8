package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"circapi/internal/repository"
)

// MockStore wires the per-table repository mocks together. InTx runs the
// closure directly against the same mocks, which is exactly what the service
// layer sees inside a real transaction.
type MockStore struct {
	UsersRepo         *MockUserRepository
	DocumentsRepo     *MockDocumentRepository
	LoansRepo         *MockLoanRepository
	ReservationsRepo  *MockReservationRepository
	ConsultationsRepo *MockConsultationRepository
	PenaltiesRepo     *MockPenaltyRepository

	// InTxErr, when set, is returned before the closure runs to simulate a
	// failed transaction begin.
	InTxErr error
}

var _ repository.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		UsersRepo:         new(MockUserRepository),
		DocumentsRepo:     new(MockDocumentRepository),
		LoansRepo:         new(MockLoanRepository),
		ReservationsRepo:  new(MockReservationRepository),
		ConsultationsRepo: new(MockConsultationRepository),
		PenaltiesRepo:     new(MockPenaltyRepository),
	}
}

func (m *MockStore) Users() repository.UserRepository                 { return m.UsersRepo }
func (m *MockStore) Documents() repository.DocumentRepository         { return m.DocumentsRepo }
func (m *MockStore) Loans() repository.LoanRepository                 { return m.LoansRepo }
func (m *MockStore) Reservations() repository.ReservationRepository   { return m.ReservationsRepo }
func (m *MockStore) Consultations() repository.ConsultationRepository { return m.ConsultationsRepo }
func (m *MockStore) Penalties() repository.PenaltyRepository          { return m.PenaltiesRepo }

func (m *MockStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if m.InTxErr != nil {
		return m.InTxErr
	}
	return fn(m)
}

// AssertExpectations asserts every underlying repository mock.
func (m *MockStore) AssertExpectations(t mock.TestingT) {
	m.UsersRepo.AssertExpectations(t)
	m.DocumentsRepo.AssertExpectations(t)
	m.LoansRepo.AssertExpectations(t)
	m.ReservationsRepo.AssertExpectations(t)
	m.ConsultationsRepo.AssertExpectations(t)
	m.PenaltiesRepo.AssertExpectations(t)
}
