package scheduler_test

import (
	"math/rand"
	"time"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// fixedRNG returns a deterministically seeded PRNG for tests that care
// about reproducible tie-breaks; spec.md's Non-goals explicitly exclude
// deterministic reproducibility across runs, but a seeded source still
// makes individual test assertions deterministic.
func fixedRNG() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

// manualClock is a Clock whose Now() is advanced explicitly by tests, used
// to exercise mode-switch hysteresis without sleeping (spec.md Testable
// property 5 and scenarios S4/S5/S6).
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// setSeedVertical backfills the back-reference from a seed to its owning
// vertical entry for tests that build seeds by hand instead of going
// through Controller.Admit (which sets it at construction time).
func setSeedVertical(q *scheduler.Queue, id scheduler.SeedID, vertical scheduler.VerticalID) {
	seed, ok := q.Get(id)
	if !ok {
		return
	}

	seed.Vertical = vertical
}
