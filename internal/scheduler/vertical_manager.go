package scheduler

import (
	"math/rand"
	"sort"
	"time"
)

// Mode is the scheduler's current scheduling mode (spec section 4.D).
type Mode int

const (
	// ModeHOR is horizontal mode: broad, coverage-guided selection across
	// all paths via the interval tree.
	ModeHOR Mode = iota
	// ModeVER is vertical mode: depth-first exploitation of a single path.
	ModeVER
	// ModeEXP is exploration mode: retries retired seeds to rescue
	// stalled paths.
	ModeEXP
)

// Thresholds are the mode-switch hysteresis parameters (spec section 4.D,
// "Concrete (default) thresholds").
type Thresholds struct {
	THor time.Duration
	TVer time.Duration
	TExp time.Duration
	KVer uint32
}

// DefaultThresholds returns the spec's default thresholds: T_hor=60s,
// T_ver=30s, T_exp=20s, K_ver=8.
func DefaultThresholds() Thresholds {
	return Thresholds{
		THor: 60 * time.Second,
		TVer: 30 * time.Second,
		TExp: 20 * time.Second,
		KVer: 8,
	}
}

// Clock abstracts time.Now so mode-switch hysteresis can be tested without
// sleeping (spec's Testable Properties require checking elapsed wall-clock
// time between transitions).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// VerticalManager owns every vertical entry, the sorted active list, the
// old tier, the interval tree, and the mode state machine (spec section
// 4.D). Entries are addressed by stable VerticalID; map, head and old
// always agree (spec section 3 invariant: "every entry reachable through
// head or old is also present in map").
type VerticalManager struct {
	Tree *IntervalTree

	clock      Clock
	thresholds Thresholds
	rng        *rand.Rand

	byHash  map[uint64]VerticalID
	entries map[VerticalID]*VerticalEntry
	nextID  VerticalID

	head []VerticalID // entries with a non-empty Active list, sorted
	old  []VerticalID // entries with a non-empty Old list

	mode               Mode
	prevTime           time.Time
	sinceLastAdmission uint32
}

// NewVerticalManager creates an empty manager starting in horizontal mode.
func NewVerticalManager(clock Clock, thresholds Thresholds, rng *rand.Rand) *VerticalManager {
	return &VerticalManager{
		Tree:       NewIntervalTree(rng),
		clock:      clock,
		thresholds: thresholds,
		rng:        rng,
		byHash:     make(map[uint64]VerticalID),
		entries:    make(map[VerticalID]*VerticalEntry),
		mode:       ModeHOR,
		prevTime:   clock.Now(),
	}
}

// GetOrCreateEntry returns the vertical entry for pathHash, creating it (and
// registering it in Map) if this is the first seed ever seen for this path.
func (m *VerticalManager) GetOrCreateEntry(pathHash uint64) *VerticalEntry {
	if id, ok := m.byHash[pathHash]; ok {
		return m.entries[id]
	}

	id := m.nextID
	m.nextID++

	entry := newVerticalEntry(id, pathHash)
	m.entries[id] = entry
	m.byHash[pathHash] = id

	return entry
}

// Entry returns the vertical entry by id, if it exists.
func (m *VerticalManager) Entry(id VerticalID) (*VerticalEntry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

// EntryCount returns the number of vertical entries ever created, regardless
// of whether they currently have active or old seeds.
func (m *VerticalManager) EntryCount() int {
	return len(m.entries)
}

// EntryByHash returns the vertical entry registered for pathHash, if any.
func (m *VerticalManager) EntryByHash(pathHash uint64) (*VerticalEntry, bool) {
	id, ok := m.byHash[pathHash]
	if !ok {
		return nil, false
	}

	return m.entries[id], true
}

// Head returns the ids of every entry currently on the sorted active-head
// list, in selection order. The returned slice is a copy.
func (m *VerticalManager) Head() []VerticalID {
	out := make([]VerticalID, len(m.head))
	copy(out, m.head)

	return out
}

// OldEntries returns the ids of every entry with at least one seed retired
// to its Old tier. The returned slice is a copy.
func (m *VerticalManager) OldEntries() []VerticalID {
	out := make([]VerticalID, len(m.old))
	copy(out, m.old)

	return out
}

// SortedInsert (re)splices entry into the sorted head list keyed by
// (ascending UseCount, descending max-Adjusted) (spec section 4.C,
// "Sorted insertion"). update resorts the whole list so a changed key is
// reflected immediately; pass false only when the entry is known to already
// be absent from head (e.g. first insertion of a brand-new entry) and no
// other entry's key changed.
func (m *VerticalManager) SortedInsert(q *Queue, id VerticalID, update bool) {
	entry, ok := m.entries[id]
	if !ok || len(entry.Active) == 0 {
		return
	}

	if !m.containsHead(id) {
		m.head = append(m.head, id)
	}

	if update {
		sortHead(q, m.entries, m.head)
	}
}

func (m *VerticalManager) containsHead(id VerticalID) bool {
	for _, h := range m.head {
		if h == id {
			return true
		}
	}

	return false
}

// InsertToOld moves seedID from entry's Active list to its Old list (spec
// section 4.D, "insert_to_old"). If entry's Active list becomes empty, it
// is unlinked from head but stays registered in Map; its id is added to the
// old-tier list so exploration mode can still sample it.
func (m *VerticalManager) InsertToOld(id VerticalID, seedID SeedID) {
	entry, ok := m.entries[id]
	if !ok {
		return
	}

	entry.promoteToOld(seedID)

	if len(entry.Active) == 0 {
		m.unlinkHead(id)
	}

	if !m.containsOld(id) {
		m.old = append(m.old, id)
	}
}

func (m *VerticalManager) unlinkHead(id VerticalID) {
	for i, h := range m.head {
		if h == id {
			m.head = append(m.head[:i], m.head[i+1:]...)

			return
		}
	}
}

func (m *VerticalManager) containsOld(id VerticalID) bool {
	for _, o := range m.old {
		if o == id {
			return true
		}
	}

	return false
}

// GetMode returns the current scheduling mode without side effects (spec
// section 4.D, "Same as above, but without side effect").
func (m *VerticalManager) GetMode() Mode {
	return m.mode
}

// SelectMode evaluates the mode transition rules against the current clock
// reading and updates dynamic_mode/prev_time if a transition fires (spec
// section 4.D, "Mode state machine"). This is the side-effecting variant.
func (m *VerticalManager) SelectMode(q *Queue) Mode {
	now := m.clock.Now()

	switch m.mode {
	case ModeHOR:
		if now.Sub(m.prevTime) > m.thresholds.THor && m.hasEligibleVerticalEntry(q) {
			m.transitionTo(ModeVER, now)
		}
	case ModeVER:
		if m.sinceLastAdmission > m.thresholds.KVer || now.Sub(m.prevTime) > m.thresholds.TVer {
			m.transitionTo(ModeEXP, now)
		}
	case ModeEXP:
		if now.Sub(m.prevTime) > m.thresholds.TExp {
			m.transitionTo(ModeHOR, now)
		}
	}

	return m.mode
}

func (m *VerticalManager) transitionTo(mode Mode, now time.Time) {
	m.mode = mode
	m.prevTime = now
	m.sinceLastAdmission = 0
}

// hasEligibleVerticalEntry reports whether at least one entry on the active
// head list has a UseCount below the fleet median (spec section 4.D,
// "HOR -> VER when ... at least one active vertical entry exists with
// use_count below the fleet median").
func (m *VerticalManager) hasEligibleVerticalEntry(_ *Queue) bool {
	if len(m.head) == 0 {
		return false
	}

	counts := make([]uint32, len(m.head))
	for i, id := range m.head {
		counts[i] = m.entries[id].UseCount
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })

	median := medianOf(counts)

	for _, c := range counts {
		if c < median {
			return true
		}
	}

	return false
}

func medianOf(sorted []uint32) uint32 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// NotifyAdmission tells the manager an admission just happened, so the VER
// dwell counter resets and (if we were exploring) a successful admission
// from the old tier forces an immediate EXP -> HOR transition (spec section
// 4.D, "EXP -> HOR ... after one successful admission from old").
func (m *VerticalManager) NotifyAdmission(fromOld bool) {
	m.sinceLastAdmission = 0

	if fromOld && m.mode == ModeEXP {
		m.transitionTo(ModeHOR, m.clock.Now())
	}
}

// NotifyMutation records that an entry was used to produce a candidate that
// was not admitted, advancing the VER dwell counter (spec section 4.D,
// "VER -> EXP when the currently selected entry has been used more than
// K_ver times without yielding a new admitted seed").
func (m *VerticalManager) NotifyMutation() {
	m.sinceLastAdmission++
}

// SelectEntry picks the next vertical entry to mutate from, per the current
// mode (spec section 4.D, "Entry selection").
func (m *VerticalManager) SelectEntry(q *Queue) (VerticalID, bool) {
	switch m.mode {
	case ModeVER:
		if id, ok := m.selectFromHead(); ok {
			return id, true
		}

		return m.selectFromBucket(q)
	case ModeEXP:
		if id, ok := m.selectFromOld(); ok {
			return id, true
		}

		return m.selectFromBucket(q)
	default:
		return m.selectFromBucket(q)
	}
}

// selectFromHead returns the head of the sorted active list, skipping
// entries whose Active list is empty (defensive: head is kept unlinked on
// empty, but tolerate drift).
func (m *VerticalManager) selectFromHead() (VerticalID, bool) {
	for _, id := range m.head {
		if entry, ok := m.entries[id]; ok && len(entry.Active) > 0 {
			return id, true
		}
	}

	return NoVertical, false
}

// selectFromOld uniformly samples one seed from the union of all old lists
// and returns its owning entry (spec section 4.D, "uniformly sample from
// the union of old lists").
func (m *VerticalManager) selectFromOld() (VerticalID, bool) {
	type candidate struct {
		entry VerticalID
	}

	var pool []candidate

	for _, id := range m.old {
		entry, ok := m.entries[id]
		if !ok {
			continue
		}

		for range entry.Old {
			pool = append(pool, candidate{entry: id})
		}
	}

	if len(pool) == 0 {
		return NoVertical, false
	}

	return pool[m.rng.Intn(len(pool))].entry, true
}

// selectFromBucket samples a bucket via the interval tree and returns the
// entry containing the lowest-UseCount seed whose Adjusted score quantized
// into that bucket (spec section 4.D, "sample a bucket via the interval
// tree; among seeds whose adjusted falls in that bucket, pick the entry
// containing the lowest-use_count seed"). If the sampled bucket is empty,
// nearby buckets are tried outward until one yields a seed.
func (m *VerticalManager) selectFromBucket(q *Queue) (VerticalID, bool) {
	start := m.Tree.Select()

	for radius := 0; radius < IntervalSize; radius++ {
		for _, bucket := range []int{int(start) - radius, int(start) + radius} {
			if bucket < 0 || bucket >= IntervalSize {
				continue
			}

			if radius == 0 && bucket != int(start) {
				continue
			}

			if id, ok := m.bestInBucket(q, uint32(bucket)); ok {
				return id, true
			}
		}
	}

	return NoVertical, false
}

func (m *VerticalManager) bestInBucket(q *Queue, bucket uint32) (VerticalID, bool) {
	ids := q.InBucket(bucket)

	best := NoSeed

	var bestUseCount uint32

	for _, id := range ids {
		seed, ok := q.Get(id)
		if !ok {
			continue
		}

		entry, ok := m.entries[seed.Vertical]
		if !ok || !isActive(entry, id) {
			continue
		}

		if best == NoSeed || seed.UseCount < bestUseCount {
			best = id
			bestUseCount = seed.UseCount
		}
	}

	if best == NoSeed {
		return NoVertical, false
	}

	seed, _ := q.Get(best)

	return seed.Vertical, true
}

func isActive(entry *VerticalEntry, id SeedID) bool {
	for _, a := range entry.Active {
		if a == id {
			return true
		}
	}

	return false
}
