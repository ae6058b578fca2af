// Package common holds the small, shared vocabulary that every layer of
// the offline analysis path agrees on: record identity, rank encoding,
// module identifiers, compression kinds and the file-sharing
// classification bits. None of it is specific to one module's counter
// layout; that lives with each module's decoder.
package common

import "fmt"

// RecordID is the 64-bit opaque hash of a canonicalized file path. It is
// stable across ranks within one job, never across jobs.
type RecordID uint64

// Rank identifies which participant produced a record. Non-negative is a
// genuine per-rank record; Shared is the sentinel for a record that was
// already reduced across every rank of the job (typically by an MPI
// collective the runtime performed before logging).
type Rank int32

// SharedRank is the sentinel rank value meaning "aggregated across all
// ranks", distinct from any real rank index.
const SharedRank Rank = -1

func (r Rank) IsShared() bool { return r == SharedRank }

func (r Rank) String() string {
	if r.IsShared() {
		return "-1"
	}
	return fmt.Sprintf("%d", int32(r))
}

// BaseRecord is embedded in every module's record.
type BaseRecord struct {
	ID   RecordID
	Rank Rank
}

// ModuleID names a self-contained instrumentation layer. Values above
// the named constants are "opaque" modules this tool did not ship a
// typed decoder for; they are still listed by numeric id in diagnostics.
type ModuleID uint16

const (
	ModulePOSIX ModuleID = iota
	ModuleMPIIO
	ModuleSTDIO
	ModuleBGQ
	ModuleDXTPOSIX
	ModuleDXTMPIIO
	ModuleLustre
	numKnownModules
)

var moduleNames = map[ModuleID]string{
	ModulePOSIX:    "POSIX",
	ModuleMPIIO:    "MPI-IO",
	ModuleSTDIO:    "STDIO",
	ModuleBGQ:      "BG/Q",
	ModuleDXTPOSIX: "DXT-POSIX",
	ModuleDXTMPIIO: "DXT-MPIIO",
	ModuleLustre:   "LUSTRE",
}

func (m ModuleID) String() string {
	if s, ok := moduleNames[m]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(m))
}

// Known reports whether m is one of the modules this tool recognizes by
// name, as opposed to an opaque id only ever seen in a log's module
// table.
func (m ModuleID) Known() bool {
	_, ok := moduleNames[m]
	return ok
}

// Deep reports whether m participates in per-file/per-job aggregation
// (spec: "Only POSIX, MPI-IO, and STDIO participate in deeper
// aggregation. Other known modules are pretty-printed only.")
func (m ModuleID) Deep() bool {
	return m == ModulePOSIX || m == ModuleMPIIO || m == ModuleSTDIO
}

// CompressionKind is advertised per-region by the log header.
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionZlib
	CompressionBzip2
	CompressionUnknown
)

func (c CompressionKind) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionZlib:
		return "ZLIB"
	case CompressionBzip2:
		return "BZIP2"
	default:
		return "UNKNOWN"
	}
}

// FileType is a bit set: a file accumulator's sharing classification.
// SHARED and UNIQUE are mutually exclusive; PARTSHARED implies at least
// two per-rank records folded in and no SHARED record seen.
type FileType uint8

const (
	Unique     FileType = 1 << iota // accessed by exactly one rank
	PartShared                      // accessed by >1 rank, no MPI reduction occurred
	Shared                          // accessed by >1 rank with one aggregated record
)

func (t FileType) Has(bit FileType) bool { return t&bit != 0 }

func (t FileType) String() string {
	switch {
	case t == 0:
		return "NONE"
	case t.Has(Shared):
		return "SHARED"
	case t.Has(PartShared):
		return "PARTSHARED"
	default:
		return "UNIQUE"
	}
}

// Bucket returns which of the tally's two sharing buckets (spec §4.4
// finalize_files) this file type falls into.
func (t FileType) Bucket() string {
	if t.Has(Shared) || t.Has(PartShared) {
		return "shared"
	}
	return "unique"
}
