package dfgconfig

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MatchMode controls how Targets.Matches resolves an instrumentation site
// against the configured target list (spec.md section 6, supplemented by
// DAFL_NO_FILENAME_MATCH from original_source/llvm_mode/afl-llvm-pass.so.cc).
type MatchMode int

const (
	// MatchFileAndFunction requires both the file name and function name to
	// match a "file:function" target line. This is the default.
	MatchFileAndFunction MatchMode = iota
	// MatchFunctionOnly matches on function name alone, ignoring the file
	// component of every target line. Set when DAFL_NO_FILENAME_MATCH is
	// present in the environment; useful when the same function name is
	// compiled from multiple translation units under different paths.
	MatchFunctionOnly
)

// Targets is a selective-coverage allowlist: only instrumentation sites that
// match one of its entries are instrumented (spec.md section 6,
// "DAFL_SELECTIVE_COV"). A nil *Targets (or one with no entries) means
// selective coverage is disabled and every site is a target, matching the
// original's "if disabled, instrument all the blocks" fallback.
type Targets struct {
	entries []target
	mode    MatchMode
}

type target struct {
	file string
	fn   string
}

// ParseSelectiveCoverage reads a DAFL_SELECTIVE_COV file: one "file:function"
// target per line. mode controls how Matches compares sites against these
// targets.
func ParseSelectiveCoverage(r io.Reader, mode MatchMode) (*Targets, error) {
	targets := &Targets{mode: mode}

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("selective coverage line %q: %w", line, errMalformedLine)
		}

		targets.entries = append(targets.entries, target{file: line[:colon], fn: line[colon+1:]})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading selective coverage file: %w", err)
	}

	return targets, nil
}

// Enabled reports whether selective coverage is active (a non-empty target
// list was loaded). When false, every site is instrumented.
func (t *Targets) Enabled() bool {
	return t != nil && len(t.entries) > 0
}

// Matches reports whether the instrumentation site (fileName, funcName)
// is covered by this target list, per the pass's matching rule: a
// MatchFileAndFunction target must agree on both fields; a
// MatchFunctionOnly target only compares the function name.
func (t *Targets) Matches(fileName, funcName string) bool {
	if !t.Enabled() {
		return true
	}

	for _, e := range t.entries {
		if t.mode == MatchFunctionOnly || e.file == fileName {
			if e.fn == funcName {
				return true
			}
		}
	}

	return false
}
