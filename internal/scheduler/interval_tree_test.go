package scheduler_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// Testable property 1: after each insert, sum of leaf counts equals the
// number of inserts and sum of leaf scores equals the sum of deltas.
func Test_IntervalTree_SumInvariant_HoldsAfterEveryInsert(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	tree := scheduler.NewIntervalTree(rng)

	var totalDelta uint64

	for i := 0; i < 5000; i++ {
		bucket := uint32(rng.Intn(scheduler.IntervalSize))
		delta := uint64(rng.Intn(100))

		tree.Insert(bucket, delta)
		totalDelta += delta

		sumCount, sumScore := tree.Totals()
		require.Equal(t, uint64(i+1), sumCount, "count sum after %d inserts", i+1)
		require.Equal(t, totalDelta, sumScore, "score sum after %d inserts", i+1)
	}
}

func Test_IntervalTree_Bias_PrefersLowProductivityBucket(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	tree := scheduler.NewIntervalTree(rng)

	const bucketHigh = 100
	const bucketLow = 900

	for i := 0; i < 200; i++ {
		tree.Insert(bucketHigh, 1000)
	}

	for i := 0; i < 2; i++ {
		tree.Insert(bucketLow, 1)
	}

	var countHigh, countLow int

	const trials = 10000

	for i := 0; i < trials; i++ {
		switch tree.Select() {
		case bucketHigh:
			countHigh++
		case bucketLow:
			countLow++
		}
	}

	require.Greater(t, countLow, 0, "low-productivity bucket should be sampled")
	require.GreaterOrEqual(t, float64(countLow), 1.3*float64(countHigh),
		"expected low bucket to be picked at least 1.3x as often as high bucket: low=%d high=%d", countLow, countHigh)
}

func Test_IntervalTree_Quantize_ClampsToValidRange(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(0), scheduler.Quantize(-1))
	require.Equal(t, uint32(scheduler.IntervalSize-1), scheduler.Quantize(1))
	require.Equal(t, uint32(0), scheduler.Quantize(0))
	require.Equal(t, uint32(512), scheduler.Quantize(0.5))
}
