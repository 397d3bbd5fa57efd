// Package sink fans classified records out to per-key FASTQ files,
// opening each output lazily on first use (spec.md §4.5), following the
// teacher's os.Create+bufio.NewWriter convention (muscato_screen.go,
// muscato_confirm.go).
package sink

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/cherryamme/ReadChop/errs"
	"github.com/cherryamme/ReadChop/utils"
)

// UnmatchedKey is the reserved output key for records that fail
// classification (spec.md §4.5), mirrored here to avoid a dependency on
// package classify.
const UnmatchedKey = "unmatched"

const bufSize = 64 * 1024

// entry is one open output file plus its buffered writer.
type entry struct {
	file *os.File
	wtr  *bufio.Writer
}

// Sink is the KeyedSink of spec.md §4.5: a set of FASTQ files keyed by
// output_key, opened on demand. It is single-threaded, driven only by the
// pipeline's writer goroutine (spec.md §4.5, §9 "a single writer thread
// drives the sink, eliminating per-key locks") — Write and Close are not
// safe to call concurrently with each other or with themselves.
type Sink struct {
	outDir  string
	entries map[string]*entry
}

// New creates a Sink rooted at outDir, bumping RLIMIT_NOFILE first (see
// rlimit_unix.go/rlimit_other.go) since a pattern catalog with many sample
// labels can open one file per label concurrently.
func New(outDir string) (*Sink, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errs.NewIoError(outDir, err)
	}
	bumpFileLimit()
	return &Sink{outDir: outDir, entries: map[string]*entry{}}, nil
}

// Write appends one FASTQ record to the file for key, opening it on first
// use (spec.md §4.5 "Sink routing"). key is sanitized to a safe filename;
// the empty key and UnmatchedKey both land in "unmatched.fastq". Write is
// called only from the pipeline's single writer goroutine.
func (s *Sink) Write(key string, id string, seq, qual []byte) error {
	e, err := s.entryFor(key)
	if err != nil {
		return err
	}
	if err := utils.WriteFASTQ(e.wtr, id, seq, qual); err != nil {
		return errs.NewIoError(e.file.Name(), err)
	}
	return nil
}

func (s *Sink) entryFor(key string) (*entry, error) {
	name := sanitizeKey(key)

	if e, ok := s.entries[name]; ok {
		return e, nil
	}

	path := filepath.Join(s.outDir, name+".fastq")
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.NewIoError(path, err)
	}
	e := &entry{file: f, wtr: bufio.NewWriterSize(f, bufSize)}
	s.entries[name] = e
	return e, nil
}

// sanitizeKey maps an arbitrary sample label to a safe single-segment
// filename stem, folding path separators and the empty string to
// UnmatchedKey (spec.md §4.5).
func sanitizeKey(key string) string {
	if key == "" {
		return UnmatchedKey
	}
	clean := filepath.Base(key)
	if clean == "." || clean == string(filepath.Separator) || clean == "" {
		return UnmatchedKey
	}
	return clean
}

// Close flushes and closes every open output file, returning the first
// error encountered (spec.md §4.5 "Sink shutdown"). Called once the
// writer goroutine has drained its result channel.
func (s *Sink) Close() error {
	var first error
	for key, e := range s.entries {
		if err := e.wtr.Flush(); err != nil && first == nil {
			first = errs.NewIoError(key, err)
		}
		if err := e.file.Close(); err != nil && first == nil {
			first = errs.NewIoError(key, err)
		}
	}
	return first
}
