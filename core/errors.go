/*
errors.go - Two-tier error model for the venue back office

PURPOSE:
  Distinguishes business-rule violations from infrastructure faults.
  Violations are expected outcomes: the caller (typically an automated
  agent) reads the message and retries with corrected input. Faults
  abort the operation and indicate a configuration or transport problem.

ERROR TIERS:
  1. Violation - structured, caller-facing result with a kind:
     Validation ("quantity must be greater than zero"),
     NotFound ("Customer not found"),
     Conflict ("That room is already booked during the requested time")
  2. Fault sentinels - ErrUnauthorized, ErrTransport, ErrDataIntegrity,
     wrapped with operation context by the store layer

USAGE:
  Domain code returns violations directly:

    if quantity <= 0 {
        return core.Violationf(core.KindValidation, "Quantity must be greater than zero.")
    }

  Callers branch on the tier:

    if v, ok := core.AsViolation(err); ok {
        // caller error; surface v.Message
    }

SEE ALSO:
  - store/sqlite: wraps driver errors into fault sentinels
  - api/handlers.go: maps tiers to HTTP status codes
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// BUSINESS-RULE VIOLATIONS - Expected outcomes, returned as data
// =============================================================================

type ViolationKind string

const (
	KindValidation ViolationKind = "validation"
	KindNotFound   ViolationKind = "not_found"
	KindConflict   ViolationKind = "conflict"
)

// Violation is a business-rule outcome. It implements error so it flows
// through ordinary return paths, but it is never logged as a failure.
type Violation struct {
	Kind    ViolationKind
	Message string
}

func (v *Violation) Error() string { return v.Message }

// Violationf builds a violation with a formatted caller-facing message.
func Violationf(kind ViolationKind, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsViolation extracts a violation from an error chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsViolation reports whether err is a business-rule outcome.
func IsViolation(err error) bool {
	_, ok := AsViolation(err)
	return ok
}

// =============================================================================
// INFRASTRUCTURE FAULTS - Abort the operation
// =============================================================================

var (
	// ErrUnauthorized is returned when the record store rejects our
	// credentials. Distinguishable so the caller reports a configuration
	// problem rather than a business-rule violation.
	ErrUnauthorized = errors.New("record store authorization failed")

	// ErrTransport is returned for network, timeout, and driver failures.
	ErrTransport = errors.New("record store transport failure")

	// ErrDataIntegrity is returned when a stored value cannot be parsed
	// into its closed vocabulary or decoded at all.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// StoreError wraps a fault with the operation that hit it.
type StoreError struct {
	Op  string // e.g., "insert party_bookings"
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// TransportErrorf wraps a driver error as a transport fault.
func TransportErrorf(op string, err error) error {
	return &StoreError{Op: op, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
}

// IntegrityErrorf builds a data-integrity fault.
func IntegrityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}

// IsFault reports whether err is an infrastructure fault (any tier-2 error).
func IsFault(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrDataIntegrity)
}
