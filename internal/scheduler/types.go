// Package scheduler implements the directed-fuzzing seed-selection core:
// an interval tree over a discretized proximity-score domain, a vertical
// manager that groups seeds by DFG-path fingerprint, a mode-switching
// controller (horizontal/vertical/exploration), and an admission
// controller that turns a mutation result into a queue-admission verdict.
//
// The package owns no process forking, mutation operators, or executor
// state; callers feed it a Candidate produced elsewhere and get back an
// AdmitResult and, separately, the next seed to mutate via
// Scheduler.NextSeed.
package scheduler

import "time"

// IntervalSize is the number of discretized buckets the [0,1) adjusted-score
// domain is split into (spec section 3, "Interval tree").
const IntervalSize = 1024

// SeedID identifies a seed by its stable position in the Queue arena.
// NoSeed is the sentinel "no seed" value, used for root seeds with no parent.
type SeedID int32

// NoSeed is the sentinel value meaning "no seed" (e.g. a root seed's parent).
const NoSeed SeedID = -1

// VerticalID identifies a vertical entry by its stable position in the
// VerticalManager's arena.
type VerticalID int32

// NoVertical is the sentinel value meaning "no vertical entry".
const NoVertical VerticalID = -1

// DenseEntry is one (index, count) pair from a proximity score's dense map,
// kept in ascending index order.
type DenseEntry struct {
	Index uint32
	Count uint64
}

// ProximityScore is the output of the Scorer (spec section 4.B): an
// original monotone aggregate, a normalized adjusted score in [0,1), the
// number of distinct DFG nodes covered, and sparse/dense representations
// of the hit counts.
type ProximityScore struct {
	Original uint64
	Adjusted float64
	Covered  uint32
	Sparse   []uint64     // full width, indexed by DFG node index
	Dense    []DenseEntry // ascending index order, nonzero entries only
}

// DFGVector is the raw per-execution coverage vector handed to the Scorer:
// parallel Hits/Scores slices indexed by DFG node index (spec section 6,
// "DFG score map" / "DFG count map").
type DFGVector struct {
	Hits   []uint64
	Scores []uint32
}

// Seed is one retained queue entry (spec section 3, "Seed (queue entry)").
// Seeds are created once by the admission controller and never mutated
// except for UseCount and active/old promotion bookkeeping.
type Seed struct {
	ID            SeedID
	Input         []byte
	EdgeDigest    uint64 // fingerprint of the edge-coverage bitmap at creation time
	Score         ProximityScore
	PathHash      uint64 // dfg_path_hash: fingerprint of touched DFG indices
	ValuationHash uint64 // fingerprint of (index, count) pairs along the path
	Bucket        uint32 // interval-tree bucket this seed's Adjusted score quantized into
	Vertical      VerticalID
	UseCount      uint32
	CreatedAt     time.Time

	ParentID    SeedID
	MutationOp  string
	MutationPos int
}
