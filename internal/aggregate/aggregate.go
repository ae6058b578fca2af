// Package aggregate is the aggregation engine (spec §4.4): the core of
// the offline parser. It consumes a module's stream of decoded records
// one at a time, keeps a per-file accumulator map keyed by record id, a
// job-wide totals accumulator, and a performance accumulator with
// per-rank timing vectors. At module end it finalizes the file-sharing
// tally and the performance metrics, then resets for the next module.
package aggregate

import (
	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/errs"
	"github.com/nersc/darshan-go/internal/module"
)

// FileAccum is the per-file accumulator, keyed by record id in Engine.files.
type FileAccum struct {
	Type                common.FileType
	Procs               int64
	CumulIOTotalTime    float64
	SlowestIOTotalTime  float64
	RecDat              module.Record
}

// PerfAccum is the workload-wide performance accumulator (spec §3,
// Performance Accumulator). Its rank-indexed vectors are sized to
// nprocs and zeroed (not reallocated) by Reset between modules.
type PerfAccum struct {
	TotalBytes                 uint64
	SharedIOTotalTimeBySlowest float64
	RankCumulIOTotalTime       []float64
	RankCumulRWOnlyTime        []float64
	RankCumulMDOnlyTime        []float64
}

// FileTally is finalize_files' output: six buckets, each a count plus
// cumulative and maximum per-file byte size.
type FileTally struct {
	Total, ReadOnly, WriteOnly, ReadWrite, Unique, Shared Bucket
}

// Bucket is one row of the file tally block (spec §6: "<bucket>: <count>
// <bytes> <max_bytes>").
type Bucket struct {
	Count    int64
	Bytes    uint64
	MaxBytes uint64
}

func (b *Bucket) add(bytes uint64) {
	b.Count++
	b.Bytes += bytes
	if bytes > b.MaxBytes {
		b.MaxBytes = bytes
	}
}

// PerfResult is finalize_perf's output.
type PerfResult struct {
	SlowestRank       int64
	SlowestRankIOTime float64
	SlowestRankMDTime float64
	SlowestRankRWTime float64

	SharedIOTotalTimeBySlowest float64
	AggTimeBySlowest           float64
	AggPerfBySlowest           float64 // MiB/s

	TotalBytes uint64
}

const mib = 1024 * 1024

// Engine holds one module's worth of mutable aggregation state. A fresh
// Engine is created per module (or Reset between modules) so that the
// per-file hash, totals and per-rank vectors start from a known state;
// spec §3's lifecycle rule ("totals and performance accumulators are
// zeroed at module start and reused") is implemented by Reset reusing
// the already-allocated per-rank vector capacity rather than
// reallocating it.
type Engine struct {
	moduleID common.ModuleID
	agg      module.Aggregator
	nprocs   int64

	files  map[common.RecordID]*FileAccum
	totals FileAccum
	perf   PerfAccum
}

// NewEngine creates the engine for one module's aggregation pass. agg
// may be nil for modules that do not participate in deep aggregation
// (spec §4.2); Fold still tracks type/procs/timing for those but
// RecDat stays nil.
func NewEngine(id common.ModuleID, agg module.Aggregator, nprocs int64) *Engine {
	return &Engine{
		moduleID: id,
		agg:      agg,
		nprocs:   nprocs,
		files:    make(map[common.RecordID]*FileAccum),
		perf: PerfAccum{
			RankCumulIOTotalTime: make([]float64, nprocs),
			RankCumulRWOnlyTime:  make([]float64, nprocs),
			RankCumulMDOnlyTime:  make([]float64, nprocs),
		},
	}
}

// Fold updates the per-file accumulator for rec.Base().ID and the
// module's totals accumulator, per spec §4.4's fold rules.
func (e *Engine) Fold(rec module.Record) {
	base := rec.Base()
	f, ok := e.files[base.ID]
	if !ok {
		f = &FileAccum{}
		e.files[base.ID] = f
	}
	e.foldInto(f, rec)
	e.foldInto(&e.totals, rec)
}

func (e *Engine) foldInto(f *FileAccum, rec module.Record) {
	base := rec.Base()
	ioTime := rec.MetaTime() + rec.ReadTime() + rec.WriteTime()

	f.Procs++

	if base.Rank.IsShared() {
		f.SlowestIOTotalTime = rec.SlowestRankTime()
		f.Procs = e.nprocs
		f.Type = common.Shared
	} else {
		if f.Type.Has(common.Shared) {
			// SHARED persists; UNIQUE/PARTSHARED no longer apply.
		} else if f.Procs > 1 {
			f.Type &^= common.Unique
			f.Type |= common.PartShared
		} else {
			f.Type |= common.Unique
		}
		if ioTime > f.SlowestIOTotalTime {
			f.SlowestIOTotalTime = ioTime
		}
	}

	f.CumulIOTotalTime += ioTime

	if e.agg != nil {
		first := f.RecDat == nil
		f.RecDat = e.agg.AggregateInto(f.RecDat, rec, first)
	}
}

// FoldPerf updates the performance accumulator per spec §4.4's
// fold_perf rules. Returns MalformedRank and skips the record if its
// rank is out of [0, nprocs) — the engine refuses rather than index a
// per-rank vector out of bounds.
func (e *Engine) FoldPerf(rec module.Record) error {
	base := rec.Base()
	e.perf.TotalBytes += rec.BytesRead() + rec.BytesWritten()

	if base.Rank.IsShared() {
		e.perf.SharedIOTotalTimeBySlowest += rec.SlowestRankTime()
		return nil
	}

	r := int64(base.Rank)
	if r < 0 || r >= e.nprocs {
		return &errs.MalformedRank{Rank: int32(base.Rank), NProcs: e.nprocs}
	}

	meta, read, write := rec.MetaTime(), rec.ReadTime(), rec.WriteTime()
	e.perf.RankCumulIOTotalTime[r] += meta + read + write
	e.perf.RankCumulMDOnlyTime[r] += meta
	e.perf.RankCumulRWOnlyTime[r] += read + write
	return nil
}

// FinalizeFiles derives the six-bucket file tally (spec §4.4
// finalize_files) in one pass over the per-file hash.
func (e *Engine) FinalizeFiles() FileTally {
	var t FileTally
	for _, f := range e.files {
		var bytes uint64
		var reads, writes uint64
		if f.RecDat != nil {
			bytes = f.RecDat.BytesRead() + f.RecDat.BytesWritten()
			reads = f.RecDat.ReadCalls()
			writes = f.RecDat.WriteCalls()
		}

		t.Total.add(bytes)
		switch {
		case reads > 0 && writes == 0:
			t.ReadOnly.add(bytes)
		case writes > 0 && reads == 0:
			t.WriteOnly.add(bytes)
		case reads > 0 && writes > 0:
			t.ReadWrite.add(bytes)
		}

		if f.Type.Bucket() == "shared" {
			t.Shared.add(bytes)
		} else {
			t.Unique.add(bytes)
		}
	}
	return t
}

// FinalizePerf computes the performance metrics of spec §4.4
// finalize_perf. The division guard covers both agg_time_by_slowest and
// agg_perf_by_slowest (a deliberate departure from the original's
// unbraced guard, which only protected the latter; see DESIGN.md).
func (e *Engine) FinalizePerf() PerfResult {
	var slowest int64
	var slowestTime float64
	for r, t := range e.perf.RankCumulIOTotalTime {
		if t > slowestTime {
			slowestTime = t
			slowest = int64(r)
		}
	}

	var res PerfResult
	res.SlowestRank = slowest
	res.SlowestRankIOTime = slowestTime
	if int(slowest) < len(e.perf.RankCumulMDOnlyTime) {
		res.SlowestRankMDTime = e.perf.RankCumulMDOnlyTime[slowest]
	}
	if int(slowest) < len(e.perf.RankCumulRWOnlyTime) {
		res.SlowestRankRWTime = e.perf.RankCumulRWOnlyTime[slowest]
	}
	res.SharedIOTotalTimeBySlowest = e.perf.SharedIOTotalTimeBySlowest
	res.TotalBytes = e.perf.TotalBytes

	if slowestTime+e.perf.SharedIOTotalTimeBySlowest != 0 {
		res.AggTimeBySlowest = slowestTime + e.perf.SharedIOTotalTimeBySlowest
		res.AggPerfBySlowest = (float64(e.perf.TotalBytes) / mib) / res.AggTimeBySlowest
	}
	return res
}

// Files exposes the per-file accumulator map for callers that need to
// print per-file detail (e.g. the name resolver pass over --file output).
func (e *Engine) Files() map[common.RecordID]*FileAccum { return e.files }

// Totals returns the module-wide totals accumulator (for --total).
func (e *Engine) Totals() *FileAccum { return &e.totals }

// Reset zeroes totals, per-file data and per-rank timing vectors for
// the next module, reusing the already-allocated vector capacity
// (spec §4.4 reset; spec §3 lifecycle: "Per-rank timing vectors are
// zeroed between modules; only rec_dat and hash contents are freed").
func (e *Engine) Reset(nprocs int64) {
	e.nprocs = nprocs
	e.files = make(map[common.RecordID]*FileAccum)
	e.totals = FileAccum{}

	for i := range e.perf.RankCumulIOTotalTime {
		e.perf.RankCumulIOTotalTime[i] = 0
	}
	for i := range e.perf.RankCumulRWOnlyTime {
		e.perf.RankCumulRWOnlyTime[i] = 0
	}
	for i := range e.perf.RankCumulMDOnlyTime {
		e.perf.RankCumulMDOnlyTime[i] = 0
	}
	if int64(len(e.perf.RankCumulIOTotalTime)) != nprocs {
		e.perf.RankCumulIOTotalTime = make([]float64, nprocs)
		e.perf.RankCumulRWOnlyTime = make([]float64, nprocs)
		e.perf.RankCumulMDOnlyTime = make([]float64, nprocs)
	}
	e.perf.TotalBytes = 0
	e.perf.SharedIOTotalTimeBySlowest = 0
}
