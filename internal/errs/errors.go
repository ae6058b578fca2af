// Package errs holds the error kinds the offline analysis path can
// return. All failures are explicit return values all the way up to
// main; nothing here panics.
package errs

import "fmt"

// OpenError wraps a failure to read the log file at all.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open log %q: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// FormatError means the magic or header of the log could not be parsed.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%q is not a valid darshan log: %s", e.Path, e.Reason)
}

// UnsupportedVersion means the log's format version has no known decoder set.
type UnsupportedVersion struct {
	Path    string
	Version string
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("%q has unsupported log version %q", e.Path, e.Version)
}

// DecodeError aborts aggregation of a single module; the caller moves on
// to the next module rather than failing the whole run.
type DecodeError struct {
	Module  string
	Version string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("module %s (version %s): decode failed: %v", e.Module, e.Version, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PartialModuleData is fatal unless the caller asked to tolerate it, in
// which case it is downgraded to a warning and parsing continues with
// whatever records the truncated stream yields.
type PartialModuleData struct {
	Module string
}

func (e *PartialModuleData) Error() string {
	return fmt.Sprintf("module %s: log data is incomplete (truncated by runtime)", e.Module)
}

// UsageError is reported for bad CLI arguments; main prints usage and exits 1.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return e.Reason }

// OutOfMemory is recovered locally by the DXT buffer manager: the
// offending segment is dropped, instrumentation continues.
type OutOfMemory struct {
	Requested uintptr
	Remaining uintptr
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("dxt: out of trace memory (wanted %d, remaining %d)", e.Requested, e.Remaining)
}

// MalformedRank is reported and the offending record is skipped rather
// than used to index a per-rank vector out of bounds.
type MalformedRank struct {
	Rank   int32
	NProcs int64
}

func (e *MalformedRank) Error() string {
	return fmt.Sprintf("rank %d out of range [0, %d)", e.Rank, e.NProcs)
}
