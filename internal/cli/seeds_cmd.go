package cli

import (
	"context"
	"path/filepath"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/pslhy/DAFL/internal/daflcfg"
	"github.com/pslhy/DAFL/internal/seedstore"
)

// SeedsCmd returns the seeds command.
func SeedsCmd(cfg daflcfg.Config) *Command {
	fs := flag.NewFlagSet("seeds", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "maximum seeds to show (0 = all)")
	useIndex := fs.Bool("index", false, "list from the SQLite metadata index (built by `dafl run --build-index`) instead of scanning file names")
	valuationHash := fs.Uint64("valuation-hash", 0, "with --index, show only seeds sharing this valuation_hash (dedup diagnostics)")
	bucket := fs.Uint32("bucket", 0, "with --index, show only seeds quantized into this bucket")

	return &Command{
		Flags: fs,
		Usage: "seeds [flags]",
		Short: "List seeds in the seed directory",
		Long:  "List every seed currently persisted in the configured seed directory, sorted by id. With --index, list from the SQLite metadata index instead, which also reports dfg_path_hash, valuation_hash, adjusted score, bucket and use_count; --valuation-hash or --bucket restricts the index listing to matching seeds, and when both are given only --valuation-hash applies.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			if *useIndex {
				return execSeedsFromIndex(ctx, io, cfg, indexQuery{
					limit:         *limit,
					valuationHash: *valuationHash,
					hasValHash:    fs.Changed("valuation-hash"),
					bucket:        *bucket,
					hasBucket:     fs.Changed("bucket"),
				})
			}

			return execSeeds(io, cfg, *limit)
		},
	}
}

func execSeeds(io *IO, cfg daflcfg.Config, limit int) error {
	store, err := seedstore.New(cfg.SeedDirAbs)
	if err != nil {
		return err
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	sort.Strings(names)

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	if len(names) == 0 {
		io.Println("(no seeds)")
		return nil
	}

	for _, name := range names {
		d, err := seedstore.ParseFileName(name)
		if err != nil {
			io.Warn(name + ": " + err.Error())
			continue
		}

		io.Printf("%s  op=%s pos=%d parent=%d\n", name, d.MutationOp, d.MutationPos, int32(d.ParentID))
	}

	return nil
}

// indexQuery carries the --index listing's optional filters; hasValHash and
// hasBucket distinguish "flag not given" from "flag given as zero", since 0
// is a valid valuation_hash/bucket value.
type indexQuery struct {
	limit         int
	valuationHash uint64
	hasValHash    bool
	bucket        uint32
	hasBucket     bool
}

// execSeedsFromIndex lists seed metadata from the SQLite index built by
// `dafl run --build-index` rather than the seed directory's file names,
// surfacing columns (dfg_path_hash, valuation_hash, adjusted, bucket,
// use_count) a bare directory scan can't recover. --valuation-hash and
// --bucket route to Index.ByValuationHash/ByBucket instead of Index.All,
// for dedup diagnostics and bucket-occupancy inspection (spec.md testable
// property 3).
func execSeedsFromIndex(ctx context.Context, io *IO, cfg daflcfg.Config, q indexQuery) error {
	indexPath := filepath.Join(cfg.SeedDirAbs, seedstore.IndexFileName)

	idx, err := seedstore.OpenIndex(ctx, indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	var rows []seedstore.Row

	switch {
	case q.hasValHash:
		rows, err = idx.ByValuationHash(ctx, q.valuationHash)
	case q.hasBucket:
		rows, err = idx.ByBucket(ctx, q.bucket)
	default:
		rows, err = idx.All(ctx)
	}

	if err != nil {
		return err
	}

	if q.limit > 0 && len(rows) > q.limit {
		rows = rows[:q.limit]
	}

	if len(rows) == 0 {
		io.Println("(no indexed seeds; run `dafl run --build-index` first)")
		return nil
	}

	for _, row := range rows {
		io.Printf("id:%06d  parent=%d op=%s pos=%d path_hash=%x val_hash=%x adjusted=%.4f bucket=%d use_count=%d\n",
			row.ID, row.ParentID, row.MutationOp, row.MutationPos, row.DFGPathHash, row.ValuationHash,
			row.Adjusted, row.Bucket, row.UseCount)
	}

	return nil
}
