// Package seedstore persists admitted seeds to disk (spec.md section 4.F
// "permanence" and section 6 "seed directory discipline") and keeps an
// optional SQLite index of their metadata for replay/debugging queries.
package seedstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// writeMaxAttempts and writeBackoff match the teacher's lock-acquisition
// retry policy (internal/ticket/lock.go), applied here to durable seed
// writes instead of file locks: a transient failure (full disk momentarily,
// concurrent antivirus scan, NFS hiccup) is retried a bounded number of
// times before giving up.
const (
	writeMaxAttempts = 3
	writeBackoff     = 10 * time.Millisecond
)

// Store writes admitted seeds into Dir using the naming convention FileName
// produces, so the file name alone records a seed's lineage.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir. dir must already exist or be creatable
// by the first Write call.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrSeedDirEmpty
	}

	return &Store{Dir: dir}, nil
}

// Write durably writes input under the file name derived from d, making up
// to writeMaxAttempts attempts in all with a fixed backoff between them.
// atomic.WriteFile copies the whole reader, so short writes are continued
// rather than trusted, unlike the original's documented argv-fuzz-inl.h
// read() bug (spec.md section 9): every byte of input is written, never
// just "some."
func (s *Store) Write(d Descriptor, input []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating seed dir: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(d))

	var lastErr error

	for attempt := 0; attempt < writeMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(writeBackoff)
		}

		err := atomic.WriteFile(path, bytes.NewReader(input))
		if err == nil {
			return path, nil
		}

		lastErr = err
	}

	return "", fmt.Errorf("%w: %s: %w", ErrWriteExhausted, path, lastErr)
}

// Read loads a seed's raw input by descriptor, looping on short reads so a
// partial read from a slow filesystem never silently truncates the seed
// (the bug spec.md section 9 calls out in the original's argv-fuzz-inl.h).
func (s *Store) Read(d Descriptor) ([]byte, error) {
	path := filepath.Join(s.Dir, FileName(d))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, path)
		}

		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	data, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	return data, nil
}

// readAll loops on Read until io.EOF, never trusting a single short read to
// mean end-of-file.
func readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer

	chunk := make([]byte, 64*1024)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}

		if err == io.EOF {
			return buf.Bytes(), nil
		}

		if err != nil {
			return nil, err
		}
	}
}

// List returns every seed file name currently in the directory, for the
// `dafl seeds` listing. Hidden files (the index database and the rebuild
// lock file) are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing seed dir: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		names = append(names, e.Name())
	}

	return names, nil
}
