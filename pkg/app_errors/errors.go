package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error kinds. Every specific error below wraps exactly one of these so
// callers can branch with errors.Is on the kind alone.
var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
	ErrIntegrity  = errors.New("integrity check failed")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidInput       = newError(ErrValidation, "invalid input")
	ErrInvalidQuantity    = newError(ErrValidation, "quantity must be between 1 and the per-booking maximum")
	ErrInvalidAmount      = newError(ErrValidation, "invalid amount")
	ErrPaymentReference   = newError(ErrValidation, "payment reference does not match booking")
	ErrTicketTypeNotFree  = newError(ErrValidation, "ticket type is not free")
	ErrTicketTypeIsFree   = newError(ErrValidation, "ticket type is free, use free registration")
	ErrEventNotApproved   = newError(ErrValidation, "event is not approved")
	ErrEventAlreadyPassed = newError(ErrValidation, "event has already started")

	ErrNotBuyer          = newError(ErrForbidden, "only regular users can book tickets")
	ErrNotBookingOwner   = newError(ErrForbidden, "booking belongs to another user")
	ErrNotEventOrganizer = newError(ErrForbidden, "actor is not the organizer or staff of this event")
	ErrNotOrganizer      = newError(ErrForbidden, "only organizers can manage events")
	ErrNotStaff          = newError(ErrForbidden, "only platform staff can approve events")

	ErrActorNotFound      = newError(ErrNotFound, "actor not found")
	ErrEventNotFound      = newError(ErrNotFound, "event not found")
	ErrUnknownTicketType  = newError(ErrNotFound, "unknown ticket type")
	ErrBookingNotFound    = newError(ErrNotFound, "booking not found")
	ErrCodeNotFound       = newError(ErrNotFound, "verification code not found")
	ErrTicketNumberNotSet = newError(ErrNotFound, "ticket number not found in booking")

	ErrInsufficientInventory = newError(ErrConflict, "insufficient inventory")
	ErrDuplicateRegistration = newError(ErrConflict, "user already registered for this event")
	ErrConcurrentUpdate      = newError(ErrConflict, "booking was modified concurrently")
	ErrCodeCollision         = newError(ErrConflict, "verification code collision")
	ErrCodeAlreadyUsed       = newError(ErrConflict, "verification code already used")

	ErrBookingNotConfirmed = newError(ErrState, "booking is not confirmed")
	ErrBookingNotPending   = newError(ErrState, "booking is not pending")
	ErrAlreadyCheckedIn    = newError(ErrState, "booking has already been checked in")
	ErrCancellationWindow  = newError(ErrState, "cancellation is closed within 24 hours of the event")

	ErrHashMismatch = newError(ErrIntegrity, "verification code does not match its booking")

	ErrInternalServerError = errors.New("internal server error")
)

// CodeAlreadyUsedError reports who redeemed a code and when.
type CodeAlreadyUsedError struct {
	Code   string
	UsedAt time.Time
	UsedBy uuid.UUID
}

func (e *CodeAlreadyUsedError) Error() string {
	return fmt.Sprintf("verification code %s already used at %s by %s",
		e.Code, e.UsedAt.UTC().Format(time.RFC3339), e.UsedBy)
}

func (e *CodeAlreadyUsedError) Unwrap() error { return ErrCodeAlreadyUsed }
