package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/pslhy/DAFL/internal/daflcfg"
	"github.com/pslhy/DAFL/internal/executor"
	"github.com/pslhy/DAFL/internal/scheduler"
)

// InspectCmd returns the inspect command: it warms up an in-memory
// scheduler run against the demo target, then drops into a REPL for poking
// at its live state (spec.md's Design Notes call this out as a debugging
// aid, grounded on the teacher's sloty REPL).
func InspectCmd(cfg daflcfg.Config) *Command {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	warmup := fs.Int("warmup", 500, "iterations to run before dropping into the REPL")
	dfgScoreFile := fs.String("dfg-score-file", "", "path to a DAFL_DFG_SCORE-format file (defaults to a synthetic layout)")

	return &Command{
		Flags: fs,
		Usage: "inspect [flags]",
		Short: "Warm up a demo run and inspect scheduler state interactively",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execInspect(ctx, io, cfg, *warmup, *dfgScoreFile)
		},
	}
}

func execInspect(ctx context.Context, cmdIO *IO, cfg daflcfg.Config, warmup int, dfgScoreFile string) error {
	layout, err := loadLayout(dfgScoreFile, cfg.DFGMapSize)
	if err != nil {
		return fmt.Errorf("loading dfg layout: %w", err)
	}

	policy, err := cfg.ResolvePolicy()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(1))
	sched := scheduler.New(policy, scheduler.SystemClock{}, cfg.Thresholds(), rng)
	exec := executor.NewFakeExecutor(demoHarness(layout))

	nextID := scheduler.SeedID(0)

	if _, err := seedFromInput(ctx, sched, exec, nil, []byte("fuzz"), scheduler.NoSeed, "seed", 0, &nextID); err != nil {
		return fmt.Errorf("admitting initial seed: %w", err)
	}

	for i := 0; i < warmup; i++ {
		parentID, ok, _ := sched.NextSeed()
		if !ok {
			continue
		}

		parent, ok := sched.Queue.Get(parentID)
		if !ok {
			continue
		}

		mutated, op, pos := havocMutate(rng, parent.Input)

		if _, err := seedFromInput(ctx, sched, exec, nil, mutated, parentID, op, pos, &nextID); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}

	r := &inspectREPL{sched: sched, out: cmdIO}

	return r.run()
}

// inspectREPL is the interactive command loop, grounded on cmd/sloty's
// liner-based REPL.
type inspectREPL struct {
	sched *scheduler.Scheduler
	out   *IO
	liner *liner.State
}

func inspectHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dafl_inspect_history")
}

func (r *inspectREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(inspectHistoryFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	r.out.Println("dafl inspect - type 'help' for available commands")

	for {
		line, err := r.liner.Prompt("dafl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				r.out.Println("bye")
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.out.Println("bye")
			r.saveHistory()

			return nil
		case "help", "?":
			r.printHelp()
		case "mode":
			r.cmdMode()
		case "buckets":
			r.cmdBuckets(args)
		case "vert":
			r.cmdVert(args)
		case "queue":
			r.cmdQueue(args)
		case "old":
			r.cmdOld()
		default:
			r.out.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *inspectREPL) saveHistory() {
	if path := inspectHistoryFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *inspectREPL) completer(line string) []string {
	commands := []string{"mode", "buckets", "vert", "queue", "old", "help", "exit", "quit", "q"}

	var completions []string

	lower := strings.ToLower(line)

	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}

	return completions
}

func (r *inspectREPL) printHelp() {
	r.out.Println("Commands:")
	r.out.Println("  mode                 Show the current scheduler mode")
	r.out.Println("  buckets [n]          Show the first n non-empty interval-tree buckets")
	r.out.Println("  vert <path-hash>     Show a vertical entry's active/old seeds")
	r.out.Println("  queue [n]            Show the first n queue entries")
	r.out.Println("  old                  List vertical entries with seeds in the old tier")
	r.out.Println("  help                 Show this help")
	r.out.Println("  exit / quit / q      Exit")
}

func (r *inspectREPL) cmdMode() {
	r.out.Printf("mode=%s\n", modeName(r.sched.Manager.GetMode()))
}

func (r *inspectREPL) cmdBuckets(args []string) {
	n := 20
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}

	shown := 0

	for b := uint32(0); b < scheduler.IntervalSize && shown < n; b++ {
		count, score := r.sched.Manager.Tree.BucketStats(b)
		if count == 0 {
			continue
		}

		r.out.Printf("bucket=%d count=%d score=%d\n", b, count, score)
		shown++
	}

	if shown == 0 {
		r.out.Println("(no buckets touched yet)")
	}
}

func (r *inspectREPL) cmdVert(args []string) {
	if len(args) < 1 {
		r.out.Println("usage: vert <path-hash>")
		return
	}

	hash, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		r.out.Printf("invalid path hash: %v\n", err)
		return
	}

	entry, ok := r.sched.Manager.EntryByHash(hash)
	if !ok {
		r.out.Println("(no such vertical entry)")
		return
	}

	r.out.Printf("vertical=%d path_hash=%d use_count=%d active=%d old=%d\n",
		entry.ID, entry.PathHash, entry.UseCount, len(entry.Active), len(entry.Old))
}

func (r *inspectREPL) cmdQueue(args []string) {
	n := 20
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}

	total := r.sched.Queue.Len()
	shown := 0

	for id := 0; id < total && shown < n; id++ {
		seed, ok := r.sched.Queue.Get(scheduler.SeedID(id))
		if !ok {
			continue
		}

		r.out.Printf("id=%d parent=%d op=%s bucket=%d use_count=%d vertical=%d\n",
			seed.ID, seed.ParentID, seed.MutationOp, seed.Bucket, seed.UseCount, seed.Vertical)
		shown++
	}

	r.out.Printf("(%d total seeds)\n", total)
}

func (r *inspectREPL) cmdOld() {
	old := r.sched.Manager.OldEntries()
	if len(old) == 0 {
		r.out.Println("(no entries in the old tier)")
		return
	}

	for _, id := range old {
		entry, ok := r.sched.Manager.Entry(id)
		if !ok {
			continue
		}

		r.out.Printf("vertical=%d path_hash=%d old_count=%d\n", entry.ID, entry.PathHash, len(entry.Old))
	}
}
