// Copyright 2017, Kerby Shedden and the Muscato contributors.
// Copyright 2026, the ReadChop contributors.

package utils

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/cherryamme/ReadChop/errs"
)

// Record is an immutable FASTQ record (spec.md §3): an ID, a sequence, the
// separator line, and a quality string of equal length to the sequence.
type Record struct {
	ID   string
	Seq  []byte
	Plus string
	Qual []byte
}

// gzipMagic is the two-byte gzip header used to auto-detect compressed
// inputs, per spec.md §6 ("`.gz` auto-detected by magic bytes").
var gzipMagic = []byte{0x1f, 0x8b}

// Reader iterates FASTQ records out of a file, transparently decompressing
// gzip input detected by magic bytes. It follows the teacher's
// ReadInSeq (utils/fastq.go): a bufio.Scanner with an enlarged buffer,
// opened once and advanced record-by-record via Next/Err.
type Reader struct {
	closer  io.Closer
	scanner *bufio.Scanner
	lineNo  int
	path    string

	rec    Record
	err    error
	recErr error
	done   bool
}

// NewReader opens path for reading, auto-detecting gzip framing.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIoError(path, err)
	}

	br := bufio.NewReader(f)
	magic, peekErr := br.Peek(2)
	var src io.Reader = br
	var closer io.Closer = f
	if peekErr == nil && bytes.Equal(magic, gzipMagic) {
		gz, gerr := gzip.NewReader(br)
		if gerr != nil {
			f.Close()
			return nil, errs.NewIoError(path, gerr)
		}
		src = gz
		closer = multiCloser{gz, f}
	}

	scanner := bufio.NewScanner(src)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	return &Reader{closer: closer, scanner: scanner, path: path}, nil
}

type multiCloser struct {
	a, b io.Closer
}

func (m multiCloser) Close() error {
	err1 := m.a.Close()
	err2 := m.b.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Next advances the reader to the next record. It returns false only at a
// clean end of input or on a genuine I/O failure (inspect Err() to tell
// the two apart). A malformed record (spec.md §7 RecordParseError: header
// marker, separator, or sequence/quality length mismatch) does not stop
// iteration — Next still returns true, RecordErr() reports the problem,
// and Record() is the zero value for that call. Per spec.md §7 such
// records are "logged and counted ... when possible", not treated as
// fatal by the reader itself; a run-wide cap on them is the pipeline's
// concern (pipeline.readAll), not this type's.
func (r *Reader) Next() bool {
	r.recErr = nil
	r.rec = Record{}
	if r.done {
		return false
	}

	var lines [4]string
	n := 0
	for ; n < 4; n++ {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				r.err = errs.NewIoError(r.path, err)
				r.done = true
				return false
			}
			break
		}
		lines[n] = r.scanner.Text()
		r.lineNo++
	}
	if n == 0 {
		r.done = true
		return false
	}
	if n != 4 {
		r.done = true
		r.recErr = errs.NewRecordParseError("truncated record at end of %s (line %d)", r.path, r.lineNo)
		return true
	}

	if len(lines[0]) == 0 || lines[0][0] != '@' {
		r.recErr = errs.NewRecordParseError("%s:%d: expected '@' header, got %q", r.path, r.lineNo-3, lines[0])
		return true
	}
	if len(lines[2]) == 0 || lines[2][0] != '+' {
		r.recErr = errs.NewRecordParseError("%s:%d: expected '+' separator, got %q", r.path, r.lineNo-1, lines[2])
		return true
	}
	if len(lines[1]) != len(lines[3]) {
		r.recErr = errs.NewRecordParseError("%s:%d: sequence/quality length mismatch (%d != %d)", r.path, r.lineNo-2, len(lines[1]), len(lines[3]))
		return true
	}

	r.rec = Record{
		ID:   lines[0][1:],
		Seq:  []byte(lines[1]),
		Plus: lines[2],
		Qual: []byte(lines[3]),
	}
	return true
}

// Record returns the record produced by the most recent successful Next.
// Only valid when RecordErr() is nil.
func (r *Reader) Record() Record { return r.rec }

// RecordErr returns the non-fatal parse error, if any, for the record
// produced by the most recent Next call. It is cleared on every Next call.
func (r *Reader) RecordErr() error { return r.recErr }

// Err returns the fatal I/O error, if any, that stopped iteration.
func (r *Reader) Err() error { return r.err }

// Close releases the underlying file (and gzip reader, if any).
func (r *Reader) Close() error { return r.closer.Close() }

// WriteFASTQ writes a single four-line FASTQ record, following FASTQ
// convention of a bare "+" separator line (spec.md §4.3).
func WriteFASTQ(w io.Writer, id string, seq, qual []byte) error {
	_, err := fmt.Fprintf(w, "@%s\n%s\n+\n%s\n", id, seq, qual)
	return err
}
