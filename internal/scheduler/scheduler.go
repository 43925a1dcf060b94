package scheduler

import "math/rand"

// Scheduler wires together the Queue, VerticalManager and Controller into
// the single-threaded cooperative loop described in spec section 5:
// select_mode -> select_entry -> pick_seed -> mutate -> execute -> admit.
// Mutation and execution are external collaborators (spec section 1); this
// type only owns the decide-what's-next and record-what-happened halves.
type Scheduler struct {
	Queue      *Queue
	Manager    *VerticalManager
	Controller *Controller
	rng        *rand.Rand
}

// New creates a Scheduler with a fresh queue, scorer, vertical manager and
// admission controller under policy, using clock for mode-switch hysteresis
// and rng for every randomized tie-break and sampling decision.
func New(policy Policy, clock Clock, thresholds Thresholds, rng *rand.Rand) *Scheduler {
	queue := NewQueue()
	manager := NewVerticalManager(clock, thresholds, rng)
	controller := NewController(policy, NewScorer(), queue, manager)

	return &Scheduler{Queue: queue, Manager: manager, Controller: controller, rng: rng}
}

// NextSeed runs select_mode -> select_entry -> pick_seed and returns the
// seed id to mutate next, along with whether the pick was made in
// exploration mode (callers should thread this back into
// Candidate.FromOldPick on the resulting admission, per spec section 4.D's
// EXP -> HOR transition rule). The seed itself is always one of the
// selected entry's active seeds; seeds retired to an entry's Old list are
// never returned, and an entry with no active seeds yields no pick.
func (s *Scheduler) NextSeed() (SeedID, bool, bool) {
	mode := s.Manager.SelectMode(s.Queue)

	verticalID, ok := s.Manager.SelectEntry(s.Queue)
	if !ok {
		return NoSeed, false, false
	}

	entry, ok := s.Manager.Entry(verticalID)
	if !ok {
		return NoSeed, false, false
	}

	seedID, ok := entry.SelectSeed(s.Queue, s.rng.Intn)
	if !ok {
		return NoSeed, false, false
	}

	return seedID, true, mode == ModeEXP
}

// Admit records the admission verdict for a mutation result produced from
// the seed NextSeed returned (spec section 4.E).
func (s *Scheduler) Admit(cand Candidate) AdmitResult {
	return s.Controller.Admit(cand)
}
