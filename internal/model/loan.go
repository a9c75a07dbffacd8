package model

import "time"

// Loan is a home-borrowing record. Once returned it is immutable history.
type Loan struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	DocumentID   string       `json:"document_id"`
	DocumentKind DocumentKind `json:"document_kind"`
	LoanDate     time.Time    `json:"loan_date"`
	DueDate      time.Time    `json:"due_date"`
	ReturnDate   *time.Time   `json:"return_date,omitempty"`
	Status       LoanStatus   `json:"status"`
}

// Reservation is a queued claim on a document with no available copy.
// Active reservations per document always form a contiguous 1..N ordering;
// PriorityOrder 1 is the head of the queue.
type Reservation struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	DocumentID    string            `json:"document_id"`
	DocumentKind  DocumentKind      `json:"document_kind"`
	PriorityOrder int               `json:"priority_order"`
	Status        ReservationStatus `json:"status"`
	ExpiryDate    time.Time         `json:"expiry_date"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Consultation is a same-day reading-room hold. It consumes a copy unit like
// a loan but is never queued against and never overdue.
type Consultation struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	DocumentID       string             `json:"document_id"`
	DocumentKind     DocumentKind       `json:"document_kind"`
	Location         string             `json:"location"`
	ConsultationDate time.Time          `json:"consultation_date"`
	StartTime        time.Time          `json:"start_time"`
	EndTime          *time.Time         `json:"end_time,omitempty"`
	Status           ConsultationStatus `json:"status"`
}

// Penalty is a fine raised automatically on late return. AmountCents is in
// minor currency units.
type Penalty struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	LoanID      *string       `json:"loan_id,omitempty"`
	AmountCents int64         `json:"amount_cents"`
	Status      PenaltyStatus `json:"status"`
	PenaltyDate time.Time     `json:"penalty_date"`
}
