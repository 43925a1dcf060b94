package scheduler_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// Test_Scheduler_EndToEnd_LoopProducesAndAdmitsSeeds exercises the full
// select_mode -> select_entry -> pick_seed -> admit loop across a run of
// synthetic candidates, standing in for mutate/execute.
func Test_Scheduler_EndToEnd_LoopProducesAndAdmitsSeeds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	sched := scheduler.New(scheduler.PolicyDefault, scheduler.SystemClock{}, scheduler.DefaultThresholds(), rng)

	// Seed the run with an initial candidate; a fresh scheduler has no seeds
	// to select from yet, so the first admission must come from an
	// externally supplied candidate (spec section 5, "initial seeds").
	first := sched.Admit(scheduler.Candidate{
		DFG:             scheduler.DFGVector{Hits: []uint64{1, 0}, Scores: []uint32{10, 5}},
		NewEdgeCoverage: true,
		Now:             time.Now(),
	})
	require.True(t, first.Admitted)

	var admissions int

	for i := 0; i < 50; i++ {
		seedID, ok, fromOld := sched.NextSeed()
		require.True(t, ok, "iteration %d: NextSeed must return a seed while the queue is non-empty", i)

		parent, ok := sched.Queue.Get(seedID)
		require.True(t, ok)

		// Simulate a mutation that occasionally discovers a new DFG index.
		hits := []uint64{1, 0, 0}
		if i%3 == 0 {
			hits[2] = 1
		}

		result := sched.Admit(scheduler.Candidate{
			DFG:             scheduler.DFGVector{Hits: hits, Scores: []uint32{10, 5, 5}},
			NewEdgeCoverage: i%3 == 0,
			ParentID:        parent.ID,
			MutationOp:      "bitflip",
			MutationPos:     i,
			FromOldPick:     fromOld,
			Now:             time.Now(),
		})

		if result.Admitted {
			admissions++
		}
	}

	require.Greater(t, admissions, 0, "at least some of the synthetic mutations should be admitted")
	require.GreaterOrEqual(t, sched.Queue.Len(), admissions)
}
