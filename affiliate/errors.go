/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations wrap these with additional context.

ERROR CATEGORIES:
  1. Lookup errors - Missing affiliates or ledger entries
  2. Transition errors - Forward-only status chain violations
  3. Store errors - Database-level failures

NOTE:
  Business ineligibility for a bonus is NOT an error. The bonus
  calculator returns a normal evaluation with Eligible=false; only
  infrastructure failures surface as errors.

SEE ALSO:
  - store.go: Uses these errors
  - runner.go / bonus.go: Batch loops classify errors with the helpers here
*/
package affiliate

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAffiliateNotFound is returned when an affiliate id does not
	// resolve to a record. Batch loops log and skip on this.
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// ErrCommissionNotFound is returned when a ledger entry id is unknown.
	ErrCommissionNotFound = errors.New("commission not found")

	// ErrDuplicateCommission is returned when appending a ledger entry
	// whose id already exists. Expected behavior for bonus re-runs.
	ErrDuplicateCommission = errors.New("duplicate commission id")

	// ErrInvalidTransition is returned when a status change would move
	// the forward-only chain backward or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStoreFailure is returned when a read/write to the collaborating
	// store fails for infrastructure reasons.
	ErrStoreFailure = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError provides details about a rejected status change.
type TransitionError struct {
	CommissionID string
	From         CommissionStatus
	To           CommissionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for %s: %s -> %s",
		e.CommissionID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAffiliateNotFound) ||
		errors.Is(err, ErrCommissionNotFound)
}

// IsDuplicate returns true if the error indicates an already-appended entry.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateCommission)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than infrastructure failure.
func IsClientError(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateCommission)
}
