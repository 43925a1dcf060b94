package executor

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Harness maps one execution's raw input to the DFG nodes it touches. Real
// backends derive this from instrumented shared memory; FakeExecutor takes
// it as a plain function so tests and the CLI demo command can drive the
// scheduler without a compiled target.
type Harness func(input []byte) (dfgHits []uint64, dfgScores []uint32, crashed bool)

// FakeExecutor is an in-process Executor used by tests and `dafl run`'s
// demo mode. It tracks a global edge-coverage set across calls so
// NewEdgeCoverage reflects whether this execution touched a DFG index never
// seen before, the same signal the real admission controller keys off of
// (spec.md section 4.E).
type FakeExecutor struct {
	harness Harness

	mu       sync.Mutex
	seenEdge map[uint64]struct{}
}

// NewFakeExecutor creates a FakeExecutor driven by harness.
func NewFakeExecutor(harness Harness) *FakeExecutor {
	return &FakeExecutor{harness: harness, seenEdge: make(map[uint64]struct{})}
}

// Execute runs harness against input and reports whether any touched DFG
// index is new to this executor's run.
func (e *FakeExecutor) Execute(ctx context.Context, input []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	hits, scores, crashed := e.harness(input)

	e.mu.Lock()
	defer e.mu.Unlock()

	newCoverage := false

	var digest uint64

	for i, h := range hits {
		if h == 0 {
			continue
		}

		digest ^= uint64(i)*2654435761 + h

		if _, seen := e.seenEdge[uint64(i)]; !seen {
			e.seenEdge[uint64(i)] = struct{}{}
			newCoverage = true
		}
	}

	return Result{
		EdgeDigest:      digest,
		NewEdgeCoverage: newCoverage,
		DFGHits:         hits,
		DFGScores:       scores,
		Crashed:         crashed,
	}, nil
}

// ReadAllInput reads every byte r has to offer before returning, looping on
// Read until io.EOF instead of trusting a single call's return value. The
// original fuzzer's argv-fuzz-inl.h helper ignored read()'s return value
// and silently fed short reads to the target (spec.md section 9); harnesses
// built on FakeExecutor that read their input from a stream should use this
// instead of a single Read call.
func ReadAllInput(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer

	chunk := make([]byte, 32*1024)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}

		if err == io.EOF {
			return buf.Bytes(), nil
		}

		if err != nil {
			return nil, err
		}
	}
}
