package scheduler

import "errors"

// Sentinel errors for scheduler operations. Callers should use errors.Is.
var (
	// ErrDFGMapTooLarge reports a DFG score layout whose node count reaches
	// the DFG map size limit.
	ErrDFGMapTooLarge = errors.New("dfg map too large")
	// ErrUnknownSeed reports a lookup for a seed id that was never admitted.
	ErrUnknownSeed = errors.New("unknown seed id")
	// ErrUnknownVertical reports a lookup for a vertical entry id that does not exist.
	ErrUnknownVertical = errors.New("unknown vertical entry id")
	// ErrEmptySchedule reports that no seed could be selected (empty queue).
	ErrEmptySchedule = errors.New("no seed available to schedule")
	// ErrInvariantViolation reports internal bookkeeping corruption. These are bugs, not
	// runtime conditions, and callers should treat them as fatal per spec.md section 7.
	ErrInvariantViolation = errors.New("scheduler invariant violation")
)
