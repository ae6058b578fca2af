// Package module is the module decoder registry (spec §4.2): a dispatch
// table keyed by module id, where each entry knows how to decode one
// record off its module's decompressed stream, describe its own counter
// layout, print one record, and (for POSIX/MPI-IO/STDIO only) fold a
// record pairwise into an accumulator of the same shape.
package module

import (
	"io"

	"github.com/nersc/darshan-go/internal/common"
)

// Record is the narrow view the aggregation engine and the name
// resolver need of any module's record, regardless of that module's
// actual counter layout.
type Record interface {
	Base() common.BaseRecord

	// MetaTime, ReadTime and WriteTime are seconds; their sum is the
	// record's contribution to cumulative and slowest-rank I/O time
	// (spec §3, cumul_io_total_time / slowest_io_total_time).
	MetaTime() float64
	ReadTime() float64
	WriteTime() float64

	BytesRead() uint64
	BytesWritten() uint64

	// ReadCalls and WriteCalls are the module's own notion of "how many
	// operations moved data in this direction" (for MPI-IO this sums the
	// independent/collective/split/nonblocking variants per spec §4.4).
	ReadCalls() uint64
	WriteCalls() uint64

	// SlowestRankTime is meaningful only when Base().Rank.IsShared():
	// the runtime's MPI reduction already computed the slowest
	// participating rank's I/O time for this shared record.
	SlowestRankTime() float64

	// CounterNames/CounterValues are parallel slices used to print one
	// line per (record, counter), per spec §6.
	CounterNames() []string
	CounterValues() []string
}

// Decoder is the per-module capability set of spec §4.2.
type Decoder interface {
	ModuleID() common.ModuleID
	SchemaVersion() string

	// DecodeOne pulls the next record off stream. io.EOF signals a
	// clean end of stream (spec: "returns end-of-stream as None").
	DecodeOne(stream io.Reader) (Record, error)

	PrintDescription(w io.Writer)
	PrintRecord(w io.Writer, rec Record, path, mount, fsType string)
}

// Aggregator is implemented only by the modules that participate in
// deeper aggregation (POSIX, MPI-IO, STDIO). AggregateInto pairwise
// folds src into dst; when first is true, dst is being initialized from
// src rather than combined with it.
type Aggregator interface {
	AggregateInto(dst, src Record, first bool) Record
}

// Registry is the dispatch table, keyed by module id.
type Registry struct {
	decoders map[common.ModuleID]Decoder
}

// NewRegistry builds the standard registry: typed decoders for POSIX,
// MPI-IO and STDIO (the three modules spec §4.2 says participate in
// deep aggregation), plus an opaque decoder for BG/Q and any other
// known-but-shallow module. Modules never registered here (including an
// unrecognized numeric id straight off the log's module table) are
// tolerated by the caller: their region is reported by byte size only.
func NewRegistry(versions map[common.ModuleID]string) *Registry {
	r := &Registry{decoders: make(map[common.ModuleID]Decoder)}
	r.decoders[common.ModulePOSIX] = newPosixDecoder(versions[common.ModulePOSIX])
	r.decoders[common.ModuleMPIIO] = newMPIIODecoder(versions[common.ModuleMPIIO])
	r.decoders[common.ModuleSTDIO] = newStdioDecoder(versions[common.ModuleSTDIO])
	r.decoders[common.ModuleBGQ] = newOpaqueDecoder(common.ModuleBGQ, versions[common.ModuleBGQ])
	r.decoders[common.ModuleLustre] = newOpaqueDecoder(common.ModuleLustre, versions[common.ModuleLustre])
	return r
}

// Lookup returns the decoder for id, if this utility ships one. DXT-POSIX
// and DXT-MPIIO are deliberately never registered here: spec §4.2 says
// they have a separate viewer and this utility skips them outright.
func (r *Registry) Lookup(id common.ModuleID) (Decoder, bool) {
	d, ok := r.decoders[id]
	return d, ok
}

// Skip reports whether the reader should skip a module's region
// entirely rather than hand it to this registry (DXT modules, spec §4.2).
func Skip(id common.ModuleID) bool {
	return id == common.ModuleDXTPOSIX || id == common.ModuleDXTMPIIO
}
