package scheduler

import "math/rand"

// selectEpsilon avoids division by zero when both children of a node are
// equally unproductive (spec section 4.A, "With probability proportional to...").
const selectEpsilon = 1e-9

// IntervalTree discretizes the [0,1) adjusted-score domain into IntervalSize
// buckets and samples a bucket weighted toward low productivity, so that
// horizontal-mode selection diversifies into under-explored regions instead
// of converging on the buckets that already look useful.
//
// Implemented as an always-materialized implicit binary tree (spec section
// 9's open question is resolved in favor of "always-materialized keeps
// select simple"): leaves occupy indices [IntervalSize, 2*IntervalSize) of a
// single array, node i's children are 2i and 2i+1, and every internal node's
// count/score is the sum of its children's.
type IntervalTree struct {
	count []uint64
	score []uint64
	rng   *rand.Rand
}

// NewIntervalTree creates an empty interval tree. The rng drives the
// weighted-selection tie breaks and child choices; pass a seeded *rand.Rand
// for reproducible tests, or rand.New(rand.NewSource(time.Now().UnixNano()))
// in production (spec.md's Non-goals explicitly exclude deterministic
// reproducibility across runs).
func NewIntervalTree(rng *rand.Rand) *IntervalTree {
	return &IntervalTree{
		count: make([]uint64, 2*IntervalSize),
		score: make([]uint64, 2*IntervalSize),
		rng:   rng,
	}
}

// Quantize maps an adjusted score in [0,1) to a bucket index, clamped to
// [0, IntervalSize-1].
func Quantize(adjusted float64) uint32 {
	b := int(adjusted * IntervalSize)
	if b < 0 {
		b = 0
	}

	if b >= IntervalSize {
		b = IntervalSize - 1
	}

	return uint32(b)
}

// Insert credits one observation with score delta into bucket (spec section
// 4.A, "Insertion"). It updates the leaf and propagates sums up to the root.
func (t *IntervalTree) Insert(bucket uint32, delta uint64) {
	leaf := IntervalSize + int(bucket)

	t.count[leaf]++
	t.score[leaf] += delta

	for i := leaf / 2; i >= 1; i /= 2 {
		left, right := 2*i, 2*i+1
		t.count[i] = t.count[left] + t.count[right]
		t.score[i] = t.score[left] + t.score[right]
	}
}

// ratio reports node i's productivity ratio: score/(1+count).
func (t *IntervalTree) ratio(i int) float64 {
	return float64(t.score[i]) / (1 + float64(t.count[i]))
}

// Query reports node i's productivity ratio (spec section 4.A, "query(node)
// -> ratio"). Node 1 is the root; leaves occupy [IntervalSize, 2*IntervalSize).
func (t *IntervalTree) Query(i int) float64 {
	return t.ratio(i)
}

// LeafNode returns the node index of bucket's leaf, for use with Query.
func LeafNode(bucket uint32) int {
	return IntervalSize + int(bucket)
}

// Totals reports the root's aggregate count and score, i.e. the sum across
// every leaf (spec section 8, Testable property 1).
func (t *IntervalTree) Totals() (count uint64, score uint64) {
	return t.count[1], t.score[1]
}

// BucketStats reports bucket's leaf observation count and cumulative score,
// for diagnostics (e.g. showing which buckets the tree considers
// productive).
func (t *IntervalTree) BucketStats(bucket uint32) (count uint64, score uint64) {
	leaf := LeafNode(bucket)
	return t.count[leaf], t.score[leaf]
}

// Select descends from the root, at each internal node preferring the
// *less* productive child so sampling diversifies into under-explored
// buckets, and returns the sampled leaf's bucket index (spec section 4.A,
// "Key algorithm — weighted selection").
func (t *IntervalTree) Select() uint32 {
	i := 1

	for i < IntervalSize {
		left, right := 2*i, 2*i+1
		ratioLeft, ratioRight := t.ratio(left), t.ratio(right)

		if ratioLeft == 0 && ratioRight == 0 {
			if t.rng.Intn(2) == 0 {
				i = left
			} else {
				i = right
			}

			continue
		}

		denom := ratioLeft + ratioRight + selectEpsilon
		pLeft := 1 - ratioLeft/denom
		pRight := 1 - ratioRight/denom

		if t.rng.Float64()*(pLeft+pRight) < pLeft {
			i = left
		} else {
			i = right
		}
	}

	return uint32(i - IntervalSize)
}
