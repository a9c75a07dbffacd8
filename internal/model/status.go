package model

// Entity statuses are closed enumerations with explicit transition tables.
// Services validate every status change against these tables instead of
// comparing strings at each call site.

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// active → overdue is derived from the due date, not a user action.
// returned is terminal.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanActive:   {LoanOverdue, LoanReturned},
	LoanOverdue:  {LoanReturned},
	LoanReturned: {},
}

// CanTransition reports whether the loan status change is legal.
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	return contains(loanTransitions[s], to)
}

// Open reports whether the loan still holds a copy (counts toward
// active_loans in availability computations).
func (s LoanStatus) Open() bool { return s == LoanActive || s == LoanOverdue }

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationActive:    {ReservationFulfilled, ReservationExpired, ReservationCancelled},
	ReservationFulfilled: {},
	ReservationExpired:   {},
	ReservationCancelled: {},
}

func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	return contains(reservationTransitions[s], to)
}

type ConsultationStatus string

const (
	ConsultationActive    ConsultationStatus = "active"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

var consultationTransitions = map[ConsultationStatus][]ConsultationStatus{
	ConsultationActive:    {ConsultationCompleted, ConsultationCancelled},
	ConsultationCompleted: {},
	ConsultationCancelled: {},
}

func (s ConsultationStatus) CanTransition(to ConsultationStatus) bool {
	return contains(consultationTransitions[s], to)
}

type PenaltyStatus string

const (
	PenaltyUnpaid PenaltyStatus = "unpaid"
	PenaltyPaid   PenaltyStatus = "paid"
)

var penaltyTransitions = map[PenaltyStatus][]PenaltyStatus{
	PenaltyUnpaid: {PenaltyPaid},
	PenaltyPaid:   {},
}

func (s PenaltyStatus) CanTransition(to PenaltyStatus) bool {
	return contains(penaltyTransitions[s], to)
}

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
