// Package dfgconfig parses the two text-file interfaces the instrumentation
// pass reads at compile time (spec.md section 6): the DFG proximity-score
// map and the selective-coverage target list. Neither file format nor the
// instrumentation pass itself is owned by this module (out of scope per
// spec.md section 1); this package only reproduces the original's parsing
// rules closely enough that a Go-side tool can build the same Layout an
// instrumented binary would have compiled in, for replay and tooling.
package dfgconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// DefaultMapSize is the default ceiling on the number of distinct DFG nodes,
// mirroring the original's DFG_MAP_SIZE compile-time constant.
const DefaultMapSize = 1 << 16

// Node is one assigned DFG index: the instrumentation site that earned it,
// its static proximity score, and the number of whole-program DFG paths
// threading through it.
type Node struct {
	Site      string // "file:line", the instrumentation site key
	Index     uint32
	Score     uint32
	PathCount uint64
}

// Layout is the parsed, index-ordered contents of a DAFL_DFG_SCORE file: the
// original source assigns DFG indices in file order, so the first line seen
// is index 0, the second is index 1, and so on.
type Layout struct {
	Nodes  []Node
	Scores []uint32 // Index -> Score, for direct use as a scheduler.DFGVector.Scores slice
	Counts []uint64 // Index -> PathCount
}

// bySite looks up a node's assigned index by its "file:line" key.
func (l Layout) bySite(site string) (uint32, bool) {
	for _, n := range l.Nodes {
		if n.Site == site {
			return n.Index, true
		}
	}

	return 0, false
}

// IndexOf reports the DFG index assigned to site ("file:line"), if any.
func (l Layout) IndexOf(site string) (uint32, bool) {
	return l.bySite(site)
}

// ParseDFGScore reads a DAFL_DFG_SCORE file: one line per DFG node, each of
// the form "<score> <path_count> <file:line>", fields space-separated with
// the target taking the remainder of the line (spec.md section 6,
// supplemented from original_source/llvm_mode/afl-llvm-pass.so.cc's
// initDFGNodeMap). Indices are assigned in line order starting at 0. The
// total line count must stay strictly below mapSize — initDFGNodeMap's own
// post-increment check (`if (idx >= DFG_MAP_SIZE) exit(1)`) fires once idx,
// the count of lines consumed so far, reaches mapSize, so at most
// mapSize-1 lines are ever accepted. Exceeding that is reported here as an
// error wrapping scheduler.ErrDFGMapTooLarge rather than calling exit(1).
func ParseDFGScore(r io.Reader, mapSize int) (Layout, error) {
	if mapSize <= 0 {
		mapSize = DefaultMapSize
	}

	var layout Layout

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if strings.TrimSpace(line) == "" {
			continue
		}

		node, err := parseDFGScoreLine(line, uint32(len(layout.Nodes)))
		if err != nil {
			return Layout{}, fmt.Errorf("dfg score file line %d: %w", lineNo, err)
		}

		if len(layout.Nodes)+1 >= mapSize {
			return Layout{}, fmt.Errorf("%w: %d nodes (limit %d)", scheduler.ErrDFGMapTooLarge, len(layout.Nodes)+1, mapSize)
		}

		layout.Nodes = append(layout.Nodes, node)
		layout.Scores = append(layout.Scores, node.Score)
		layout.Counts = append(layout.Counts, node.PathCount)
	}

	if err := scanner.Err(); err != nil {
		return Layout{}, fmt.Errorf("reading dfg score file: %w", err)
	}

	return layout, nil
}

// parseDFGScoreLine splits "<score> <path_count> <file:line...>" the same
// way initDFGNodeMap does: split on the first two spaces only, so the
// target field may itself contain spaces (it never does in practice, since
// it's a "file:line" pair, but the original's substr-based split tolerates
// it and so does this one).
func parseDFGScoreLine(line string, index uint32) (Node, error) {
	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return Node{}, errMalformedLine
	}

	rest := line[first+1:]

	second := strings.IndexByte(rest, ' ')
	if second < 0 {
		return Node{}, errMalformedLine
	}

	scoreStr := line[:first]
	pathCountStr := rest[:second]
	site := rest[second+1:]

	score, err := strconv.ParseUint(scoreStr, 10, 32)
	if err != nil {
		return Node{}, fmt.Errorf("%w: score %q", errMalformedLine, scoreStr)
	}

	pathCount, err := strconv.ParseUint(pathCountStr, 10, 64)
	if err != nil {
		return Node{}, fmt.Errorf("%w: path_count %q", errMalformedLine, pathCountStr)
	}

	if site == "" {
		return Node{}, errMalformedLine
	}

	return Node{Site: site, Index: index, Score: uint32(score), PathCount: pathCount}, nil
}
