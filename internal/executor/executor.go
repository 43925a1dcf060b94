// Package executor defines the boundary between the scheduler core and a
// real instrumented target (spec.md section 1, "Out-of-scope": process
// forking, shared-memory bitmaps, and the LLVM instrumentation pass are not
// this module's concern). Executor is the seam a real fuzzer backend plugs
// into; FakeExecutor is a deterministic in-process stand-in used by tests
// and the CLI's demo driver loop.
package executor

import (
	"context"
	"errors"
)

// ErrTimedOut reports that a target execution exceeded its deadline.
var ErrTimedOut = errors.New("executor: target timed out")

// Result is one execution's observable outcome: the raw edge-coverage
// bitmap digest and DFG hit/score vector the admission controller needs
// (scheduler.Candidate.DFG, scheduler.Candidate.NewEdgeCoverage), plus
// whether the target crashed.
type Result struct {
	EdgeDigest      uint64
	NewEdgeCoverage bool
	DFGHits         []uint64
	DFGScores       []uint32
	Crashed         bool
	TimedOut        bool
}

// Executor runs one fuzzing iteration against a target and reports its
// coverage. Implementations own process lifecycle, shared memory, and
// timeout enforcement; none of that is modeled here.
type Executor interface {
	Execute(ctx context.Context, input []byte) (Result, error)
}
