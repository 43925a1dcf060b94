package scheduler

import "time"

// Policy selects one of the seven admission modes of spec section 4.E.
type Policy int

const (
	// PolicyDefault admits on new edge coverage in the global edge bitmap.
	PolicyDefault Policy = iota
	// PolicyUniqueVal admits when the candidate's valuation hash has never
	// been seen anywhere in the run.
	PolicyUniqueVal
	// PolicyUniqueValPerPath admits when the valuation hash is new within
	// its dfg_path_hash's vertical entry.
	PolicyUniqueValPerPath
	// PolicyAll admits on PolicyDefault OR PolicyUniqueValPerPath.
	PolicyAll
	// PolicyNone never admits (dry-run / measurement).
	PolicyNone
	// PolicyUniqueValPerPathInVer admits when in vertical mode and
	// PolicyUniqueValPerPath holds.
	PolicyUniqueValPerPathInVer
	// PolicyUniqueValPerPathInVerPlusDef admits on
	// PolicyUniqueValPerPathInVer OR PolicyDefault.
	PolicyUniqueValPerPathInVerPlusDef
)

// Candidate is a post-execution candidate handed to the Controller (spec
// section 4.E, "Input").
type Candidate struct {
	Input           []byte
	EdgeDigest      uint64
	NewEdgeCoverage bool // whether this execution discovered a new edge in the global bitmap
	DFG             DFGVector
	ParentID        SeedID
	MutationOp      string
	MutationPos     int
	FromOldPick     bool // whether the mutated parent was selected from the old tier
	Now             time.Time
}

// AdmitResult reports the admission verdict (spec section 4.E, "On admit" /
// "On reject").
type AdmitResult struct {
	Admitted bool
	SeedID   SeedID
	Vertical VerticalID
	Bucket   uint32
	Score    ProximityScore
}

// Controller is the admission controller (spec section 4.E): it classifies
// a Candidate under the configured Policy and, on admission, creates the
// seed and keeps the Queue, VerticalManager and IntervalTree coherent.
type Controller struct {
	Policy  Policy
	Scorer  *Scorer
	Queue   *Queue
	Manager *VerticalManager

	globalValuations map[uint64]struct{}
}

// NewController creates an admission controller for policy.
func NewController(policy Policy, scorer *Scorer, queue *Queue, manager *VerticalManager) *Controller {
	return &Controller{
		Policy:           policy,
		Scorer:           scorer,
		Queue:            queue,
		Manager:          manager,
		globalValuations: make(map[uint64]struct{}),
	}
}

// Admit classifies cand under the controller's policy and, if admitted,
// creates the seed and threads it through the vertical manager, queue, and
// interval tree (spec section 4.E, "On admit").
func (c *Controller) Admit(cand Candidate) AdmitResult {
	score := c.Scorer.Score(cand.DFG)
	pathHash := PathHash(score.Dense)
	valHash := ValuationHash(score.Dense)
	bucket := Quantize(score.Adjusted)

	entry := c.Manager.GetOrCreateEntry(pathHash)

	existing, perPathDup := entry.ValueMap[valHash]
	_, globalDup := c.globalValuations[valHash]

	perPathNew := !perPathDup
	globalNew := !globalDup
	mode := c.Manager.GetMode()

	admit := c.decide(cand.NewEdgeCoverage, globalNew, perPathNew, mode)

	if !admit {
		if cand.NewEdgeCoverage {
			// Useful but rejected: keep the bucket visible with half credit
			// (spec section 4.E, "On reject").
			c.Manager.Tree.Insert(bucket, score.Original/2)
		}

		c.Manager.NotifyMutation()

		return AdmitResult{Admitted: false, Score: score, Bucket: bucket}
	}

	seed := Seed{
		Input:         cand.Input,
		EdgeDigest:    cand.EdgeDigest,
		Score:         score,
		PathHash:      pathHash,
		ValuationHash: valHash,
		Bucket:        bucket,
		Vertical:      entry.ID,
		CreatedAt:     cand.Now,
		ParentID:      cand.ParentID,
		MutationOp:    cand.MutationOp,
		MutationPos:   cand.MutationPos,
	}

	seedID := c.Queue.Append(seed)

	decision := AddInsert
	if perPathDup {
		if cand.NewEdgeCoverage {
			decision = AddReplace
		} else {
			decision = AddDrop
		}
	}

	entry.Add(c.Queue, seedID, decision, existing)

	if decision != AddInsert && !c.Manager.containsOld(entry.ID) {
		c.Manager.old = append(c.Manager.old, entry.ID)
	}

	c.Manager.SortedInsert(c.Queue, entry.ID, true)
	c.Manager.Tree.Insert(bucket, score.Original)
	c.globalValuations[valHash] = struct{}{}
	c.Manager.NotifyAdmission(cand.FromOldPick)

	return AdmitResult{Admitted: true, SeedID: seedID, Vertical: entry.ID, Bucket: bucket, Score: score}
}

// decide implements the seven-policy admission table (spec section 4.E).
func (c *Controller) decide(newEdge, globalNew, perPathNew bool, mode Mode) bool {
	switch c.Policy {
	case PolicyDefault:
		return newEdge
	case PolicyUniqueVal:
		return globalNew
	case PolicyUniqueValPerPath:
		return perPathNew
	case PolicyAll:
		return newEdge || perPathNew
	case PolicyNone:
		return false
	case PolicyUniqueValPerPathInVer:
		return mode == ModeVER && perPathNew
	case PolicyUniqueValPerPathInVerPlusDef:
		return (mode == ModeVER && perPathNew) || newEdge
	default:
		return false
	}
}
