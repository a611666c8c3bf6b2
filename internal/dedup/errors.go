package dedup

import "errors"

// Sentinel errors for the grouping run. All are terminal: a run either
// completes or fails outright, there is no partial-result mode.
var (
	// ErrConfig reports an invalid run option, detected before any
	// retrieval or grouping begins.
	ErrConfig = errors.New("invalid configuration")

	// ErrInconsistentGraph reports a duplicate graph that violates its own
	// invariants, such as a self-loop or an edge endpoint missing from the
	// catalog.
	ErrInconsistentGraph = errors.New("inconsistent duplicate graph")
)
