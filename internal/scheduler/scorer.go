package scheduler

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
)

// scoreEpsilon keeps Adjusted strictly below 1, matching quantize's
// [0, IntervalSize) range (spec section 4.B, "adjusted = min(1-eps, ...)").
const scoreEpsilon = 1e-9

// Scorer turns a raw DFG coverage vector into a ProximityScore (spec
// section 4.B). It tracks a running-max normalizer across the run; an
// update to the normalizer does not retroactively re-bucket seeds already
// scored against an older normalizer (policy: stale bucketing is tolerated).
type Scorer struct {
	mu         sync.Mutex
	normalizer uint64 // running max of Original seen so far; starts at 1
}

// NewScorer creates a Scorer with the initial normalizer of 1 (spec section
// 4.B: "initial normalizer = 1 to avoid division by zero").
func NewScorer() *Scorer {
	return &Scorer{normalizer: 1}
}

// Score computes the original/adjusted/covered scores and the sparse/dense
// maps for vec, and updates the running-max normalizer.
func (s *Scorer) Score(vec DFGVector) ProximityScore {
	n := len(vec.Hits)
	if len(vec.Scores) < n {
		n = len(vec.Scores)
	}

	sparse := make([]uint64, n)

	var dense []DenseEntry

	var original uint64

	var covered uint32

	for i := 0; i < n; i++ {
		hit := vec.Hits[i]
		if hit == 0 {
			continue
		}

		sparse[i] = hit
		dense = append(dense, DenseEntry{Index: uint32(i), Count: hit})
		original += hit * uint64(vec.Scores[i])
		covered++
	}

	s.mu.Lock()

	if original > s.normalizer {
		s.normalizer = original
	}

	normalizer := s.normalizer

	s.mu.Unlock()

	adjusted := float64(original) / float64(normalizer)
	if adjusted > 1-scoreEpsilon {
		adjusted = 1 - scoreEpsilon
	}

	return ProximityScore{
		Original: original,
		Adjusted: adjusted,
		Covered:  covered,
		Sparse:   sparse,
		Dense:    dense,
	}
}

// PathHash fingerprints the set of touched DFG indices (spec section 4.B,
// "dfg_path_hash = H(dense_map indices only)").
func PathHash(dense []DenseEntry) uint64 {
	h := fnv.New64a()

	var buf [4]byte

	for _, e := range dense {
		binary.LittleEndian.PutUint32(buf[:], e.Index)
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}

// ValuationHash fingerprints the (index, count) pairs observed along a DFG
// path (spec section 4.B, "valuation_hash = H(dense_map (index,count) pairs)").
func ValuationHash(dense []DenseEntry) uint64 {
	h := fnv.New64a()

	var buf [12]byte

	for _, e := range dense {
		binary.LittleEndian.PutUint32(buf[0:4], e.Index)
		binary.LittleEndian.PutUint64(buf[4:12], e.Count)
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
