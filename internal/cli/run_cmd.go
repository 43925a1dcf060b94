package cli

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pslhy/DAFL/internal/daflcfg"
	"github.com/pslhy/DAFL/internal/dfgconfig"
	"github.com/pslhy/DAFL/internal/executor"
	"github.com/pslhy/DAFL/internal/scheduler"
	"github.com/pslhy/DAFL/internal/seedstore"
)

// RunCmd returns the run command: a demo fuzzing loop that drives the
// scheduler against an in-process FakeExecutor and persists every admitted
// seed to the configured seed directory.
func RunCmd(cfg daflcfg.Config) *Command {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	iterations := fs.Int("iterations", 2000, "number of fuzzing iterations to run")
	dfgScoreFile := fs.String("dfg-score-file", "", "path to a DAFL_DFG_SCORE-format file (defaults to a synthetic layout)")
	seedInput := fs.String("seed", "fuzz", "initial corpus seed content")
	rngSeed := fs.Int64("rng-seed", 1, "seed for the mutation/scheduling PRNG")
	buildIndex := fs.Bool("build-index", false, "rebuild the SQLite seed metadata index after the run")

	return &Command{
		Flags: fs,
		Usage: "run [flags]",
		Short: "Run the scheduler against a demo in-process target",
		Long:  "Drive select_mode -> select_entry -> pick_seed -> mutate -> execute -> admit in a loop against a deterministic in-process target, persisting admitted seeds.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execRun(ctx, io, cfg, runOpts{
				iterations:   *iterations,
				dfgScoreFile: *dfgScoreFile,
				seedInput:    *seedInput,
				rngSeed:      *rngSeed,
				buildIndex:   *buildIndex,
			})
		},
	}
}

type runOpts struct {
	iterations   int
	dfgScoreFile string
	seedInput    string
	rngSeed      int64
	buildIndex   bool
}

func execRun(ctx context.Context, io *IO, cfg daflcfg.Config, opts runOpts) error {
	layout, err := loadLayout(opts.dfgScoreFile, cfg.DFGMapSize)
	if err != nil {
		return fmt.Errorf("loading dfg layout: %w", err)
	}

	policy, err := cfg.ResolvePolicy()
	if err != nil {
		return err
	}

	store, err := seedstore.New(cfg.SeedDirAbs)
	if err != nil {
		return fmt.Errorf("opening seed store: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.rngSeed))
	sched := scheduler.New(policy, scheduler.SystemClock{}, cfg.Thresholds(), rng)
	exec := executor.NewFakeExecutor(demoHarness(layout))

	nextID := scheduler.SeedID(0)

	admitted, err := seedFromInput(ctx, sched, exec, store, []byte(opts.seedInput), scheduler.NoSeed, "seed", 0, &nextID)
	if err != nil {
		return fmt.Errorf("admitting initial seed: %w", err)
	}

	if !admitted {
		io.Warn("initial seed was rejected by the admission policy; the run starts with an empty queue")
	}

	admissions := 0

	for i := 0; i < opts.iterations; i++ {
		if err := ctx.Err(); err != nil {
			io.Printf("stopped early after %d/%d iterations: %v\n", i, opts.iterations, err)
			break
		}

		parentID, ok, _ := sched.NextSeed()
		if !ok {
			continue
		}

		parent, ok := sched.Queue.Get(parentID)
		if !ok {
			continue
		}

		mutated, op, pos := havocMutate(rng, parent.Input)

		ok, err := seedFromInput(ctx, sched, exec, store, mutated, parentID, op, pos, &nextID)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}

		if ok {
			admissions++
		}
	}

	io.Printf("iterations=%d admissions=%d queue_len=%d verticals=%d mode=%s\n",
		opts.iterations, admissions, sched.Queue.Len(), sched.Manager.EntryCount(), modeName(sched.Manager.GetMode()))

	if opts.buildIndex {
		indexed, err := rebuildSeedIndex(ctx, cfg.SeedDirAbs, sched.Queue)
		if err != nil {
			return fmt.Errorf("rebuilding seed index: %w", err)
		}

		io.Printf("indexed %d seeds into %s\n", indexed, filepath.Join(cfg.SeedDirAbs, seedstore.IndexFileName))
	}

	return nil
}

// rebuildSeedIndex snapshots every seed currently in queue and rebuilds the
// SQLite metadata index from it, under the seed directory's rebuild flock
// (seedstore.Index.Rebuild), so `dafl seeds --index` can answer richer
// queries than a bare directory listing supports.
func rebuildSeedIndex(ctx context.Context, seedDir string, queue *scheduler.Queue) (int, error) {
	indexPath := filepath.Join(seedDir, seedstore.IndexFileName)

	idx, err := seedstore.OpenIndex(ctx, indexPath)
	if err != nil {
		return 0, err
	}
	defer idx.Close()

	seeds := queue.All()
	rows := make([]seedstore.Row, len(seeds))

	for i, seed := range seeds {
		rows[i] = seedstore.SeedRow(seed)
	}

	return idx.Rebuild(ctx, seedDir, rows)
}

// seedFromInput executes input, builds a Candidate, and admits it through
// sched. On admission the seed is written to store under its assigned id.
func seedFromInput(
	ctx context.Context,
	sched *scheduler.Scheduler,
	exec executor.Executor,
	store *seedstore.Store,
	input []byte,
	parentID scheduler.SeedID,
	op string,
	pos int,
	nextID *scheduler.SeedID,
) (bool, error) {
	res, err := exec.Execute(ctx, input)
	if err != nil {
		return false, err
	}

	result := sched.Admit(scheduler.Candidate{
		Input:           input,
		EdgeDigest:      res.EdgeDigest,
		NewEdgeCoverage: res.NewEdgeCoverage,
		DFG:             scheduler.DFGVector{Hits: res.DFGHits, Scores: res.DFGScores},
		ParentID:        parentID,
		MutationOp:      op,
		MutationPos:     pos,
		Now:             time.Now(),
	})

	if !result.Admitted {
		return false, nil
	}

	id := *nextID
	*nextID++

	if store != nil {
		_, err = store.Write(seedstore.Descriptor{ID: id, ParentID: parentID, MutationOp: op, MutationPos: pos}, input)
		if err != nil {
			return false, fmt.Errorf("persisting admitted seed: %w", err)
		}
	}

	return true, nil
}

// havocMutate flips a single random bit, matching the cheapest mutation
// operator a real havoc stage would offer; good enough to exercise the
// admission controller's decision table without a real fuzzer backend.
func havocMutate(rng *rand.Rand, input []byte) ([]byte, string, int) {
	if len(input) == 0 {
		return []byte{byte(rng.Intn(256))}, "havoc", 0
	}

	out := make([]byte, len(input))
	copy(out, input)

	pos := rng.Intn(len(out))
	out[pos] ^= byte(1 << uint(rng.Intn(8)))

	return out, "havoc", pos
}

// demoHarness maps input bytes onto layout's DFG indices deterministically,
// so the same input always touches the same nodes: byte value and position
// are hashed together and folded into the node count by fnv, the same
// algorithm internal/scheduler uses for PathHash/ValuationHash.
func demoHarness(layout dfgconfig.Layout) executor.Harness {
	n := len(layout.Scores)
	if n == 0 {
		n = 1
	}

	return func(input []byte) ([]uint64, []uint32, bool) {
		hits := make([]uint64, n)

		for pos, b := range input {
			h := fnv.New64a()
			_, _ = h.Write([]byte{b, byte(pos)})
			idx := int(h.Sum64() % uint64(n))
			hits[idx]++
		}

		scores := layout.Scores
		if len(scores) == 0 {
			scores = make([]uint32, n)
			for i := range scores {
				scores[i] = 1
			}
		}

		return hits, scores, false
	}
}

func loadLayout(path string, mapSize int) (dfgconfig.Layout, error) {
	if path == "" {
		return syntheticLayout(64), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return dfgconfig.Layout{}, err
	}
	defer f.Close()

	return dfgconfig.ParseDFGScore(f, mapSize)
}

// syntheticLayout builds a Layout with n nodes scored 1 through 10 in
// rotation, for demo runs
// that have no compiled instrumentation to read a real DAFL_DFG_SCORE file
// from.
func syntheticLayout(n int) dfgconfig.Layout {
	layout := dfgconfig.Layout{
		Scores: make([]uint32, n),
		Counts: make([]uint64, n),
	}

	for i := 0; i < n; i++ {
		layout.Scores[i] = uint32(i%10 + 1)
		layout.Counts[i] = 1
		layout.Nodes = append(layout.Nodes, dfgconfig.Node{
			Site:  fmt.Sprintf("demo.c:%d", i+1),
			Index: uint32(i),
			Score: layout.Scores[i],
		})
	}

	return layout
}

func modeName(m scheduler.Mode) string {
	switch m {
	case scheduler.ModeHOR:
		return "hor"
	case scheduler.ModeVER:
		return "ver"
	case scheduler.ModeEXP:
		return "exp"
	default:
		return "unknown"
	}
}
