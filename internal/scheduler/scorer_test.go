package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/scheduler"
)

func Test_Scorer_Score_ComputesOriginalAdjustedCoveredAndMaps(t *testing.T) {
	t.Parallel()

	scorer := scheduler.NewScorer()

	score := scorer.Score(scheduler.DFGVector{
		Hits:   []uint64{1, 0, 2},
		Scores: []uint32{10, 5, 5},
	})

	require.Equal(t, uint64(20), score.Original) // 1*10 + 2*5
	require.Equal(t, uint32(2), score.Covered)
	require.InDelta(t, 1.0, score.Adjusted, 1e-6) // first-seen original becomes the normalizer
	require.Equal(t, []scheduler.DenseEntry{{Index: 0, Count: 1}, {Index: 2, Count: 2}}, score.Dense)
	require.Equal(t, []uint64{1, 0, 2}, score.Sparse)
}

func Test_Scorer_Score_NormalizerIsRunningMax_AndDoesNotRetroactivelyRebucket(t *testing.T) {
	t.Parallel()

	scorer := scheduler.NewScorer()

	first := scorer.Score(scheduler.DFGVector{Hits: []uint64{1}, Scores: []uint32{10}})
	require.InDelta(t, 1.0, first.Adjusted, 1e-6)

	second := scorer.Score(scheduler.DFGVector{Hits: []uint64{2}, Scores: []uint32{10}})
	require.InDelta(t, 1.0, second.Adjusted, 1e-6) // new normalizer = 20, 20/20 = 1

	// Scoring a third, smaller candidate must use the updated normalizer,
	// not retroactively change `first`'s already-computed Adjusted value.
	third := scorer.Score(scheduler.DFGVector{Hits: []uint64{1}, Scores: []uint32{10}})
	require.InDelta(t, 0.5, third.Adjusted, 1e-6) // 10/20
	require.InDelta(t, 1.0, first.Adjusted, 1e-6, "previously computed scores must not be retroactively rebucketed")
}

func Test_Scorer_Score_AdjustedNeverReachesOne(t *testing.T) {
	t.Parallel()

	scorer := scheduler.NewScorer()
	score := scorer.Score(scheduler.DFGVector{Hits: []uint64{5}, Scores: []uint32{7}})

	require.Less(t, score.Adjusted, 1.0)
}

func Test_PathHash_IgnoresCounts_ValuationHash_IncludesCounts(t *testing.T) {
	t.Parallel()

	denseA := []scheduler.DenseEntry{{Index: 1, Count: 5}, {Index: 3, Count: 1}}
	denseB := []scheduler.DenseEntry{{Index: 1, Count: 9}, {Index: 3, Count: 1}}

	require.Equal(t, scheduler.PathHash(denseA), scheduler.PathHash(denseB),
		"path hash must depend only on touched indices")
	require.NotEqual(t, scheduler.ValuationHash(denseA), scheduler.ValuationHash(denseB),
		"valuation hash must depend on per-index counts")
}
