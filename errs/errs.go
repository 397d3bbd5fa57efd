// Package errs defines the typed error kinds used across ReadChop and
// their mapping onto process exit codes.
package errs

import "fmt"

// ConfigError reports an invalid or conflicting run option.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config error: " + e.Msg }

// ExitCode implements the exitCoder interface.
func (e *ConfigError) ExitCode() int { return 2 }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// CatalogLoadError reports a malformed pattern database or sample index.
type CatalogLoadError struct {
	Kind string // "missing", "duplicate", "duplicate_sample", "malformed"
	Name string
	Line int
	Msg  string
}

func (e *CatalogLoadError) Error() string {
	switch e.Kind {
	case "missing":
		return fmt.Sprintf("catalog load error: pattern %q referenced by index but not present in database", e.Name)
	case "duplicate":
		return fmt.Sprintf("catalog load error: duplicate pattern name %q", e.Name)
	case "duplicate_sample":
		return fmt.Sprintf("catalog load error: duplicate sample-index pair %q", e.Name)
	case "malformed":
		return fmt.Sprintf("catalog load error: line %d: %s", e.Line, e.Msg)
	default:
		return "catalog load error: " + e.Msg
	}
}

func (e *CatalogLoadError) ExitCode() int { return 2 }

// MissingPattern reports an index entry whose pattern name is absent from
// the database.
func MissingPattern(name string) *CatalogLoadError {
	return &CatalogLoadError{Kind: "missing", Name: name}
}

// DuplicatePattern reports a pattern name that occurs twice in a database.
func DuplicatePattern(name string) *CatalogLoadError {
	return &CatalogLoadError{Kind: "duplicate", Name: name}
}

// DuplicateSample reports a (forward_name, reverse_name) pair that occurs
// twice in a sample-index file.
func DuplicateSample(pair string) *CatalogLoadError {
	return &CatalogLoadError{Kind: "duplicate_sample", Name: pair}
}

// Malformed reports a line that fails to parse.
func Malformed(line int, reason string) *CatalogLoadError {
	return &CatalogLoadError{Kind: "malformed", Line: line, Msg: reason}
}

// IoError reports a failure to open, read, or write a file.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error: %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }
func (e *IoError) ExitCode() int { return 3 }

// NewIoError wraps an underlying error with the path that produced it.
func NewIoError(path string, err error) *IoError {
	return &IoError{Path: path, Err: err}
}

// RecordParseError reports a malformed FASTQ record.
type RecordParseError struct {
	Msg string
}

func (e *RecordParseError) Error() string { return "record parse error: " + e.Msg }
func (e *RecordParseError) ExitCode() int { return 2 }

// NewRecordParseError builds a RecordParseError from a format string.
func NewRecordParseError(format string, args ...any) *RecordParseError {
	return &RecordParseError{Msg: fmt.Sprintf(format, args...)}
}

// InternalError reports a violated invariant.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }
func (e *InternalError) ExitCode() int { return 4 }

// NewInternalError builds an InternalError from a format string.
func NewInternalError(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// exitCoder is implemented by every error kind above.
type exitCoder interface {
	ExitCode() int
}

// ExitCode extracts the process exit code for any error produced by this
// package, defaulting to 1 for anything else (e.g. a bare wrapped error
// that lost its type along the way).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if ec, ok := err.(exitCoder); ok {
			return ec.ExitCode()
		}
	}
	return 1
}
