package reports

import "errors"

// Error kinds surfaced by the report core. Callers classify with errors.Is;
// the HTTP boundary maps each kind onto an envelope code and status.
var (
	// ErrValidation marks malformed or incomplete client input.
	ErrValidation = errors.New("invalid report input")

	// ErrNotFound marks an id that does not exist within the caller's
	// organization. Cross-tenant ids produce the same error so existence
	// never leaks between tenants.
	ErrNotFound = errors.New("report not found")

	// ErrImmutableState marks a mutation attempted on an approved report.
	ErrImmutableState = errors.New("report is approved and immutable")

	// ErrConflict marks a lost optimistic-concurrency race: the report
	// changed between read and conditional write.
	ErrConflict = errors.New("report was modified concurrently")

	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("report store failure")
)
