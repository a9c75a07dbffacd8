package service

import (
	"errors"
	"fmt"
)

// Code is a machine-readable reason for a business-rule rejection. Rejections
// are expected outcomes, returned synchronously with enough detail for the
// caller to explain the decision to an end user; they are not system failures.
type Code string

const (
	CodeNotFound                 Code = "NOT_FOUND"
	CodeUserInactive             Code = "USER_INACTIVE"
	CodeLoanLimitExceeded        Code = "LOAN_LIMIT_EXCEEDED"
	CodeReservationLimitExceeded Code = "RESERVATION_LIMIT_EXCEEDED"
	CodeDocumentHasReservations  Code = "DOCUMENT_HAS_RESERVATIONS"
	CodeDocumentUnavailable      Code = "DOCUMENT_UNAVAILABLE"
	CodeDocumentAvailableForLoan Code = "DOCUMENT_AVAILABLE_FOR_LOAN"
	CodeAlreadyBorrowed          Code = "ALREADY_BORROWED"
	CodeAlreadyReserved          Code = "ALREADY_RESERVED"
	CodeAlreadyReturned          Code = "ALREADY_RETURNED"
	CodeAlreadyActive            Code = "ALREADY_ACTIVE"
	CodeNotActive                Code = "NOT_ACTIVE"
	CodeNotHeadOfQueue           Code = "NOT_HEAD_OF_QUEUE"
	CodeUnpaidPenalties          Code = "UNPAID_PENALTIES"
	CodeReservationPriority      Code = "RESERVATION_PRIORITY"
	CodeInvalidTransition        Code = "INVALID_STATUS_TRANSITION"
)

// Rejection is a business-rule refusal. Details carry structured context such
// as live counts or the identity of the competing record.
type Rejection struct {
	Code    Code
	Message string
	Details map[string]any
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// reject builds a Rejection from alternating key/value detail pairs.
func reject(code Code, message string, kv ...any) *Rejection {
	r := &Rejection{Code: code, Message: message}
	if len(kv) > 0 {
		r.Details = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			r.Details[key] = kv[i+1]
		}
	}
	return r
}

// AsRejection unwraps err into a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Validation sentinels for malformed input that passes the HTTP layer.
var (
	ErrInvalidDueDate = errors.New("due date must be in the future")
)
