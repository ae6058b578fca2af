// Package cache is an on-disk cache of a log's finalized parse result
// (file tally plus performance metrics), keyed by the log's path and
// modification time. darshan-parser consults it before re-reading and
// re-aggregating a log it has already parsed; re-running --file/--perf
// repeatedly against a large, unchanged log is the common case this
// saves work for.
//
// Entries are CBOR-encoded (github.com/fxamacker/cbor/v2) then
// LZ4-compressed (github.com/pierrec/lz4/v4) before being written to
// disk: CBOR keeps the on-disk shape close to the in-memory Go structs
// with no schema file to maintain, LZ4 keeps repeated per-bucket
// entries from costing much more than the logs they summarize.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
)

// Entry is what gets cached per log file: one ModuleResult per deep
// module the log carries, keyed by module name (e.g. "POSIX").
type Entry struct {
	LogPath string
	ModTime int64 // unix seconds, for staleness detection
	Version string
	Modules map[string]ModuleResult
}

// ModuleResult is one module's finalized aggregation output.
type ModuleResult struct {
	FileTally  TallySnapshot
	PerfResult PerfSnapshot
}

// TallySnapshot and PerfSnapshot mirror internal/aggregate's FileTally
// and PerfResult as plain data, so this package does not import
// internal/aggregate and force every cache user to pull in the whole
// aggregation engine.
type TallySnapshot struct {
	Total, ReadOnly, WriteOnly, ReadWrite, Unique, Shared BucketSnapshot
}

type BucketSnapshot struct {
	Count    int64
	Bytes    uint64
	MaxBytes uint64
}

type PerfSnapshot struct {
	SlowestRank                int64
	SlowestRankIOTime          float64
	SlowestRankMDTime          float64
	SlowestRankRWTime          float64
	SharedIOTotalTimeBySlowest float64
	AggTimeBySlowest           float64
	AggPerfBySlowest           float64
	TotalBytes                 uint64
}

// Store is a directory of cached entries.
type Store struct {
	dir string
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) keyFor(logPath string) string {
	sum := sha256.Sum256([]byte(logPath))
	return hex.EncodeToString(sum[:]) + ".cache"
}

// Lookup returns the cached Entry for logPath if present and not stale
// relative to modTime. A cache miss (including a stale or corrupt
// entry) is reported by ok == false, never by an error: callers always
// fall back to parsing.
func (s *Store) Lookup(logPath string, modTime time.Time) (entry Entry, ok bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, s.keyFor(logPath)))
	if err != nil {
		return Entry{}, false
	}

	raw, err := decompress(data)
	if err != nil {
		return Entry{}, false
	}
	if err := cbor.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false
	}
	if entry.ModTime != modTime.Unix() {
		return Entry{}, false
	}
	return entry, true
}

// Put writes entry to the store, overwriting any prior entry for its LogPath.
func (s *Store) Put(entry Entry) error {
	raw, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	compressed, err := compress(raw)
	if err != nil {
		return fmt.Errorf("cache: compress: %w", err)
	}
	dst := filepath.Join(s.dir, s.keyFor(entry.LogPath))
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("cache: write: %w", err)
	}
	return os.Rename(tmp, dst)
}

func compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(p []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(p))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.New("cache: corrupt entry")
	}
	return out, nil
}
