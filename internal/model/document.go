package model

import "time"

// Document is a circulating item identified by the composite (ID, Kind) key.
// The engine only reads TotalCopies; AvailableCopies is a legacy denormalized
// cache refreshed from the live computation and never read for decisions.
type Document struct {
	ID              string       `json:"id"`
	Kind            DocumentKind `json:"kind"`
	Title           string       `json:"title"`
	Author          string       `json:"author"`
	TotalCopies     int          `json:"total_copies"`
	AvailableCopies int          `json:"available_copies"`
}

// User is the read-only account lookup the engine consumes. Account
// management lives outside this service.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsActive        bool   `json:"is_active"`
	MaxLoans        int    `json:"max_loans"`
	MaxReservations int    `json:"max_reservations"`
}

// Availability is the live-computed circulation snapshot for one document.
// AvailableCopies is derived at read time from the open loan, active
// reservation and active consultation counts, never from a stored column.
type Availability struct {
	DocumentID          string       `json:"document_id"`
	DocumentKind        DocumentKind `json:"document_kind"`
	TotalCopies         int          `json:"total_copies"`
	ActiveLoans         int          `json:"active_loans"`
	ActiveReservations  int          `json:"active_reservations"`
	ActiveConsultations int          `json:"active_consultations"`
	AvailableCopies     int          `json:"available_copies"`
	IsAvailable         bool         `json:"is_available"`
	NextAvailableDate   *time.Time   `json:"next_available_date,omitempty"`
}

// ComputeAvailable applies the availability formula, clamping at zero.
func ComputeAvailable(total, loans, reservations, consultations int) int {
	n := total - loans - reservations - consultations
	if n < 0 {
		return 0
	}
	return n
}
