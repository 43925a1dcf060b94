package scheduler

// Queue is the append-only sequence of retained seeds (spec section 4.F).
// Slot indices (SeedID) are stable for the lifetime of the run: a seed
// removed from its vertical entry's active list is never removed from the
// Queue, so logs and replays referencing a SeedID stay valid.
type Queue struct {
	seeds  []Seed
	bucket map[uint32][]SeedID
}

// NewQueue creates an empty seed queue.
func NewQueue() *Queue {
	return &Queue{bucket: make(map[uint32][]SeedID)}
}

// Append adds seed to the queue, assigns it a stable SeedID, indexes it by
// bucket for horizontal-mode lookups, and returns the assigned id.
func (q *Queue) Append(seed Seed) SeedID {
	id := SeedID(len(q.seeds))
	seed.ID = id
	q.seeds = append(q.seeds, seed)
	q.bucket[seed.Bucket] = append(q.bucket[seed.Bucket], id)

	return id
}

// Get returns a pointer to the seed at id. The pointer is valid until the
// next Append, since Append may grow the backing slice.
func (q *Queue) Get(id SeedID) (*Seed, bool) {
	if id < 0 || int(id) >= len(q.seeds) {
		return nil, false
	}

	return &q.seeds[id], true
}

// Len reports the number of seeds ever admitted.
func (q *Queue) Len() int {
	return len(q.seeds)
}

// InBucket returns the ids of all seeds whose Adjusted score quantized into
// bucket at admission time.
func (q *Queue) InBucket(bucket uint32) []SeedID {
	return q.bucket[bucket]
}

// All returns a copy of every seed ever admitted, in queue order, for
// callers that need to snapshot the whole queue (e.g. rebuilding an
// on-disk metadata index).
func (q *Queue) All() []Seed {
	out := make([]Seed, len(q.seeds))
	copy(out, q.seeds)

	return out
}
