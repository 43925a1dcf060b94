package scheduler

import "sort"

// AddDecision tells VerticalEntry.Add how to handle a seed whose valuation
// hash already maps to an existing active seed in this entry (spec section
// 4.C, "Add semantics").
type AddDecision int

const (
	// AddInsert is used when the valuation hash is new to this entry: the
	// seed is inserted into both ValueMap and Active.
	AddInsert AddDecision = iota
	// AddReplace is used when the new seed dominates the seed already
	// mapped under its valuation hash (it proved new behavior, e.g. new
	// edge coverage, despite sharing a value signature): the old seed is
	// retired to Old and the new one takes its place in ValueMap/Active.
	AddReplace
	// AddDrop is used when the new seed should not be tracked by this
	// entry at all, because its valuation hash already has an active
	// witness and nothing about this admission justifies replacing it.
	// The seed keeps its Queue slot (permanence, spec section 4.F) but is
	// filed directly into Old so the entry's active-seed dedup invariant
	// (spec section 3, "no two active seeds share a valuation hash")
	// never has a window where it's violated.
	AddDrop
)

// VerticalEntry is the equivalence class of seeds that share a DFG-path
// hash (spec section 4.C). Active holds seeds currently eligible for
// vertical-mode selection; Old holds retired seeds kept for exploration;
// ValueMap maps a valuation hash to the active seed carrying it, for
// within-path dedup.
type VerticalEntry struct {
	ID       VerticalID
	PathHash uint64
	UseCount uint32

	Active   []SeedID
	Old      []SeedID
	ValueMap map[uint64]SeedID
}

func newVerticalEntry(id VerticalID, pathHash uint64) *VerticalEntry {
	return &VerticalEntry{
		ID:       id,
		PathHash: pathHash,
		ValueMap: make(map[uint64]SeedID),
	}
}

// Add inserts seedID into the entry according to decision (spec section
// 4.C, "Add semantics"). existing is the seed previously mapped under the
// same valuation hash; it is ignored when decision is AddInsert.
func (e *VerticalEntry) Add(q *Queue, seedID SeedID, decision AddDecision, existing SeedID) {
	seed, ok := q.Get(seedID)
	if !ok {
		return
	}

	valHash := seed.ValuationHash

	switch decision {
	case AddInsert:
		e.ValueMap[valHash] = seedID
		e.Active = append(e.Active, seedID)
	case AddReplace:
		e.promoteToOld(existing)
		delete(e.ValueMap, valHash)
		e.ValueMap[valHash] = seedID
		e.Active = append(e.Active, seedID)
	case AddDrop:
		e.Old = append(e.Old, seedID)
	}
}

// promoteToOld moves seedID from Active to Old, removing it from ValueMap
// by whatever key currently maps to it (spec section 4.D,
// "insert_to_old(entry, seed)").
func (e *VerticalEntry) promoteToOld(seedID SeedID) {
	for i, id := range e.Active {
		if id == seedID {
			e.Active = append(e.Active[:i], e.Active[i+1:]...)

			break
		}
	}

	for hash, id := range e.ValueMap {
		if id == seedID {
			delete(e.ValueMap, hash)

			break
		}
	}

	e.Old = append(e.Old, seedID)
}

// SelectSeed picks the active seed with the lowest UseCount, breaking ties
// by highest Adjusted score and then uniformly at random, and increments
// its UseCount (spec section 4.C, "Seed selection within an entry").
func (e *VerticalEntry) SelectSeed(q *Queue, pickTie func(n int) int) (SeedID, bool) {
	if len(e.Active) == 0 {
		return NoSeed, false
	}

	best := -1

	var bestUseCount uint32

	var bestAdjusted float64

	var ties []int

	for i, id := range e.Active {
		seed, ok := q.Get(id)
		if !ok {
			continue
		}

		switch {
		case best == -1 || seed.UseCount < bestUseCount ||
			(seed.UseCount == bestUseCount && seed.Score.Adjusted > bestAdjusted):
			best = i
			bestUseCount = seed.UseCount
			bestAdjusted = seed.Score.Adjusted
			ties = []int{i}
		case seed.UseCount == bestUseCount && seed.Score.Adjusted == bestAdjusted:
			ties = append(ties, i)
		}
	}

	if best == -1 {
		return NoSeed, false
	}

	chosen := best
	if len(ties) > 1 && pickTie != nil {
		chosen = ties[pickTie(len(ties))]
	}

	id := e.Active[chosen]

	seed, ok := q.Get(id)
	if ok {
		seed.UseCount++
	}

	return id, true
}

// sortKey returns the (use_count, maxAdjusted) pair used to order entries
// in the manager's sorted active list, ascending by use_count and then
// descending by maxAdjusted (spec section 4.C, "Sorted insertion").
func (e *VerticalEntry) sortKey(q *Queue) (uint32, float64) {
	var maxAdjusted float64

	for _, id := range e.Active {
		seed, ok := q.Get(id)
		if !ok {
			continue
		}

		if seed.Score.Adjusted > maxAdjusted {
			maxAdjusted = seed.Score.Adjusted
		}
	}

	return e.UseCount, maxAdjusted
}

// lessEntry reports whether entry a should sort before entry b: ascending
// UseCount, then descending max-Adjusted-of-any-active-seed.
func lessEntry(q *Queue, a, b *VerticalEntry) bool {
	auc, amax := a.sortKey(q)
	buc, bmax := b.sortKey(q)

	if auc != buc {
		return auc < buc
	}

	return amax > bmax
}

// sortHead re-sorts a list of vertical entry ids in place per lessEntry.
// Used by VerticalManager.SortedInsert.
func sortHead(q *Queue, entries map[VerticalID]*VerticalEntry, head []VerticalID) {
	sort.SliceStable(head, func(i, j int) bool {
		return lessEntry(q, entries[head[i]], entries[head[j]])
	})
}
