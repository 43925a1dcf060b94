package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/scheduler"
)

func mkSeed(id scheduler.SeedID, useCount uint32, adjusted float64, valHash uint64) scheduler.Seed {
	return scheduler.Seed{
		ID:            id,
		UseCount:      useCount,
		ValuationHash: valHash,
		Score:         scheduler.ProximityScore{Adjusted: adjusted},
		Bucket:        scheduler.Quantize(adjusted),
		CreatedAt:     time.Now(),
	}
}

func Test_VerticalEntry_SelectSeed_PrefersLowestUseCount_ThenHighestAdjusted(t *testing.T) {
	t.Parallel()

	q := scheduler.NewQueue()
	idA := q.Append(mkSeed(0, 2, 0.9, 1))
	idB := q.Append(mkSeed(0, 0, 0.1, 2))
	idC := q.Append(mkSeed(0, 0, 0.5, 3))

	manager := scheduler.NewVerticalManager(scheduler.SystemClock{}, scheduler.DefaultThresholds(), fixedRNG())
	entry := manager.GetOrCreateEntry(42)
	entry.Add(q, idA, scheduler.AddInsert, scheduler.NoSeed)
	entry.Add(q, idB, scheduler.AddInsert, scheduler.NoSeed)
	entry.Add(q, idC, scheduler.AddInsert, scheduler.NoSeed)

	chosen, ok := entry.SelectSeed(q, func(int) int { return 0 })
	require.True(t, ok)
	require.Equal(t, idC, chosen, "idC has the lowest use_count tied with idB, and the higher adjusted score")

	seedC, _ := q.Get(idC)
	require.Equal(t, uint32(1), seedC.UseCount, "selection increments use_count")
}

// Testable property 3: no vertical entry ever contains two active seeds
// with the same valuation hash, under policy UNIQUE_VAL_PER_PATH.
func Test_VerticalEntry_Add_NeverDuplicatesValuationHashAmongActiveSeeds(t *testing.T) {
	t.Parallel()

	q := scheduler.NewQueue()
	manager := scheduler.NewVerticalManager(scheduler.SystemClock{}, scheduler.DefaultThresholds(), fixedRNG())
	entry := manager.GetOrCreateEntry(1)

	idOld := q.Append(mkSeed(0, 0, 0.5, 99))
	entry.Add(q, idOld, scheduler.AddInsert, scheduler.NoSeed)

	idNew := q.Append(mkSeed(0, 0, 0.9, 99))
	entry.Add(q, idNew, scheduler.AddReplace, idOld)

	seen := make(map[uint64]int)
	for _, id := range entry.Active {
		seed, _ := q.Get(id)
		seen[seed.ValuationHash]++
	}

	for hash, count := range seen {
		require.LessOrEqual(t, count, 1, "valuation hash %d appears more than once among active seeds", hash)
	}

	require.NotContains(t, entry.Active, idOld, "replaced seed must leave the active list")
	require.Contains(t, entry.Old, idOld, "replaced seed must be retired to old_entries")
	require.Contains(t, entry.Active, idNew)
}

func Test_VerticalEntry_Add_Drop_RetiresNewSeedWithoutTrackingItActive(t *testing.T) {
	t.Parallel()

	q := scheduler.NewQueue()
	manager := scheduler.NewVerticalManager(scheduler.SystemClock{}, scheduler.DefaultThresholds(), fixedRNG())
	entry := manager.GetOrCreateEntry(1)

	idOld := q.Append(mkSeed(0, 0, 0.5, 99))
	entry.Add(q, idOld, scheduler.AddInsert, scheduler.NoSeed)

	idDropped := q.Append(mkSeed(0, 0, 0.9, 99))
	entry.Add(q, idDropped, scheduler.AddDrop, idOld)

	require.Contains(t, entry.Active, idOld, "existing active seed is untouched by a drop")
	require.Contains(t, entry.Old, idDropped, "dropped seed is still addressable via old_entries")
	require.NotContains(t, entry.Active, idDropped)
}
