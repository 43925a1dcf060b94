package seedstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/pslhy/DAFL/internal/scheduler"
)

const schemaVersion = 1

// IndexFileName is the conventional name of the SQLite metadata index file,
// kept inside the seed directory next to the seed files.
const IndexFileName = ".dafl-index.sqlite3"

// Index is an optional SQLite index of seed metadata — id, parent,
// dfg_path_hash, valuation_hash, adjusted score, bucket, use_count — kept
// for replay/debugging queries without scanning every seed file
// (spec.md's "Design Notes" call for addressing seeds by stable id; this
// index makes that addressable by any of the metadata fields too).
type Index struct {
	db *sql.DB
}

// Row is one indexed seed's metadata.
type Row struct {
	ID            int32
	ParentID      int32
	DFGPathHash   uint64
	ValuationHash uint64
	Adjusted      float64
	Bucket        uint32
	UseCount      uint32
	MutationOp    string
	MutationPos   int
}

// SeedRow converts a scheduler.Seed into its index Row representation, the
// one place the index's metadata columns are derived from the scheduler's
// own seed fields.
func SeedRow(seed scheduler.Seed) Row {
	return Row{
		ID:            int32(seed.ID),
		ParentID:      int32(seed.ParentID),
		DFGPathHash:   seed.PathHash,
		ValuationHash: seed.ValuationHash,
		Adjusted:      seed.Score.Adjusted,
		Bucket:        seed.Bucket,
		UseCount:      seed.UseCount,
		MutationOp:    seed.MutationOp,
		MutationPos:   seed.MutationPos,
	}
}

// OpenIndex opens (creating if necessary) the SQLite index at path.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("open seed index: path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open seed index: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping seed index: %w", err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Index{db: db}, nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	if idx.db == nil {
		return ErrIndexClosed
	}

	return idx.db.Close()
}

// applyPragmas matches the teacher's durability/speed tradeoffs
// (internal/store/index_sqlite.go): WAL journaling, full sync, a generous
// mmap and page cache, and in-memory temp storage, since the seed index is
// rebuildable from the seed directory and doesn't need crash-proof writes
// beyond "doesn't corrupt mid-rebuild."
func applyPragmas(ctx context.Context, db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -20000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

func createSchema(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		"DROP TABLE IF EXISTS seeds",
		`CREATE TABLE seeds (
			id INTEGER PRIMARY KEY,
			parent_id INTEGER NOT NULL,
			dfg_path_hash INTEGER NOT NULL,
			valuation_hash INTEGER NOT NULL,
			adjusted REAL NOT NULL,
			bucket INTEGER NOT NULL,
			use_count INTEGER NOT NULL,
			mutation_op TEXT NOT NULL,
			mutation_pos INTEGER NOT NULL
		) WITHOUT ROWID`,
		"CREATE INDEX idx_seeds_path_hash ON seeds(dfg_path_hash)",
		"CREATE INDEX idx_seeds_valuation_hash ON seeds(valuation_hash)",
		"CREATE INDEX idx_seeds_bucket ON seeds(bucket)",
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %q: %w", stmt, err)
		}
	}

	return nil
}

// Rebuild truncates and repopulates the index from rows, inside a single
// transaction, while holding the seed directory's exclusive rebuild flock so
// two rebuilds of the same directory do not interleave. The rows come from
// the caller; the seed directory itself is not scanned, and Store.Write does
// not take this lock.
func (idx *Index) Rebuild(ctx context.Context, seedDir string, rows []Row) (int, error) {
	lock, err := lockDirForRebuild(seedDir)
	if err != nil {
		return 0, err
	}
	defer lock.Close()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := createSchema(ctx, tx); err != nil {
		return 0, err
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO seeds (
			id, parent_id, dfg_path_hash, valuation_hash,
			adjusted, bucket, use_count, mutation_op, mutation_pos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for _, row := range rows {
		_, err = insert.ExecContext(ctx, row.ID, row.ParentID, row.DFGPathHash, row.ValuationHash,
			row.Adjusted, row.Bucket, row.UseCount, row.MutationOp, row.MutationPos)
		if err != nil {
			return 0, fmt.Errorf("insert seed row %d: %w", row.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return 0, fmt.Errorf("set user_version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild txn: %w", err)
	}

	committed = true

	return len(rows), nil
}

// ByValuationHash returns every indexed seed sharing valHash, for dedup
// diagnostics (spec.md testable property 3).
func (idx *Index) ByValuationHash(ctx context.Context, valHash uint64) ([]Row, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, parent_id, dfg_path_hash, valuation_hash, adjusted, bucket, use_count, mutation_op, mutation_pos
		FROM seeds WHERE valuation_hash = ?`, valHash)
	if err != nil {
		return nil, fmt.Errorf("query by valuation hash: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// ByBucket returns every indexed seed whose adjusted score quantized into
// bucket.
func (idx *Index) ByBucket(ctx context.Context, bucket uint32) ([]Row, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, parent_id, dfg_path_hash, valuation_hash, adjusted, bucket, use_count, mutation_op, mutation_pos
		FROM seeds WHERE bucket = ?`, bucket)
	if err != nil {
		return nil, fmt.Errorf("query by bucket: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// All reads every indexed seed ordered by id, for the `dafl seeds --index`
// listing (spec.md's seed-directory listing, enriched with the metadata a
// bare directory scan can't recover from file names alone).
func (idx *Index) All(ctx context.Context) ([]Row, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, parent_id, dfg_path_hash, valuation_hash, adjusted, bucket, use_count, mutation_op, mutation_pos
		FROM seeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row

	for rows.Next() {
		var row Row

		err := rows.Scan(&row.ID, &row.ParentID, &row.DFGPathHash, &row.ValuationHash,
			&row.Adjusted, &row.Bucket, &row.UseCount, &row.MutationOp, &row.MutationPos)
		if err != nil {
			return nil, fmt.Errorf("scan seed row: %w", err)
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seed rows: %w", err)
	}

	return out, nil
}
