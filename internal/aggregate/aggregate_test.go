package aggregate

import (
	"testing"

	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/module"
)

// fakeRecord is a minimal module.Record test double: enough fields to
// exercise fold/fold_perf without pulling in a real decoder.
type fakeRecord struct {
	base         common.BaseRecord
	meta         float64
	read         float64
	write        float64
	bytesRead    uint64
	bytesWritten uint64
	reads        uint64
	writes       uint64
	slowest      float64
}

func (r *fakeRecord) Base() common.BaseRecord   { return r.base }
func (r *fakeRecord) MetaTime() float64         { return r.meta }
func (r *fakeRecord) ReadTime() float64         { return r.read }
func (r *fakeRecord) WriteTime() float64        { return r.write }
func (r *fakeRecord) BytesRead() uint64         { return r.bytesRead }
func (r *fakeRecord) BytesWritten() uint64      { return r.bytesWritten }
func (r *fakeRecord) ReadCalls() uint64         { return r.reads }
func (r *fakeRecord) WriteCalls() uint64        { return r.writes }
func (r *fakeRecord) SlowestRankTime() float64  { return r.slowest }
func (r *fakeRecord) CounterNames() []string    { return nil }
func (r *fakeRecord) CounterValues() []string   { return nil }

// fakeAgg sums bytesRead/bytesWritten/reads/writes, enough to drive
// FinalizeFiles' read/write-only classification in tests.
type fakeAgg struct{}

func (fakeAgg) AggregateInto(dst, src module.Record, first bool) module.Record {
	s := src.(*fakeRecord)
	if first || dst == nil {
		cp := *s
		return &cp
	}
	d := dst.(*fakeRecord)
	d.bytesRead += s.bytesRead
	d.bytesWritten += s.bytesWritten
	d.reads += s.reads
	d.writes += s.writes
	return d
}

func TestFoldSingleRankUniqueFile(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 1)
	rec := &fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}, reads: 4, bytesRead: 1024, meta: 0.1, read: 0.4}
	e.Fold(rec)

	f := e.Files()[1]
	if f.Type != common.Unique {
		t.Fatalf("expected UNIQUE, got %s", f.Type)
	}
	if f.Procs != 1 {
		t.Fatalf("expected procs=1, got %d", f.Procs)
	}
	if f.SlowestIOTotalTime != 0.5 {
		t.Fatalf("expected slowest_io_total_time=0.5, got %v", f.SlowestIOTotalTime)
	}
}

func TestFoldSharedRecordSetsProcsToNprocs(t *testing.T) {
	e := NewEngine(common.ModuleMPIIO, fakeAgg{}, 2)
	rec := &fakeRecord{base: common.BaseRecord{ID: 9, Rank: common.SharedRank}, slowest: 2.0, bytesWritten: 2_000_000, writes: 2}
	e.Fold(rec)

	f := e.Files()[9]
	if f.Procs != 2 {
		t.Fatalf("expected procs=nprocs=2, got %d", f.Procs)
	}
	if !f.Type.Has(common.Shared) {
		t.Fatalf("expected SHARED set, got %s", f.Type)
	}
	if f.Type.Has(common.Unique) {
		t.Fatalf("SHARED and UNIQUE must be mutually exclusive")
	}
}

func TestFoldPartSharedAfterTwoRankRecords(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 4)
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 5, Rank: 0}})
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 5, Rank: 2}})

	f := e.Files()[5]
	if f.Type != common.PartShared {
		t.Fatalf("expected PARTSHARED only, got %s", f.Type)
	}
	if f.Procs != 2 {
		t.Fatalf("expected procs=2, got %d", f.Procs)
	}
	if f.Type.Bucket() != "shared" {
		t.Fatalf("PARTSHARED must bucket as shared")
	}
}

func TestSharedRecordAfterPerRankOverwritesSlowestButKeepsCumulative(t *testing.T) {
	// Spec §9 open question: preserve the observed overwrite-but-accumulate
	// quirk rather than "fix" it.
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 4)
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 3, Rank: 0}, meta: 1, read: 1, write: 1}) // ioTime=3
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 3, Rank: common.SharedRank}, slowest: 9.0})

	f := e.Files()[3]
	if f.SlowestIOTotalTime != 9.0 {
		t.Fatalf("expected shared record to overwrite slowest time, got %v", f.SlowestIOTotalTime)
	}
	if f.CumulIOTotalTime != 3.0 {
		t.Fatalf("expected cumulative time to retain the earlier per-rank fold, got %v", f.CumulIOTotalTime)
	}
	if !f.Type.Has(common.Shared) {
		t.Fatalf("expected SHARED to persist once set")
	}
}

func TestFoldDoublesOnRepeatedFold(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 1)
	rec := &fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}, reads: 4, bytesRead: 1024}
	e.Fold(rec)
	e.Fold(rec)

	f := e.Files()[1]
	if f.Procs != 2 {
		t.Fatalf("expected procs incremented by 2, got %d", f.Procs)
	}
	if f.RecDat.BytesRead() != 2048 {
		t.Fatalf("expected doubled bytes_read, got %d", f.RecDat.BytesRead())
	}
}

func TestFoldPerfMalformedRankRejected(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 2)
	err := e.FoldPerf(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 5}})
	if err == nil {
		t.Fatalf("expected MalformedRank error for rank outside [0,nprocs)")
	}
}

func TestFinalizePerfGuardsBothMetricsWhenZero(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 2)
	res := e.FinalizePerf()
	if res.AggTimeBySlowest != 0 || res.AggPerfBySlowest != 0 {
		t.Fatalf("expected both metrics to stay zero-guarded, got time=%v perf=%v", res.AggTimeBySlowest, res.AggPerfBySlowest)
	}
}

func TestFinalizePerfTieBreakLowestIndexWins(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 3)
	_ = e.FoldPerf(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}, read: 5})
	_ = e.FoldPerf(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 1}, read: 5})
	res := e.FinalizePerf()
	if res.SlowestRank != 0 {
		t.Fatalf("expected tie to favor lowest rank index 0, got %d", res.SlowestRank)
	}
}

func TestFinalizeFilesClassifiesReadWriteUnique(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 2)
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}, reads: 4, bytesRead: 1024})
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 2, Rank: common.SharedRank}, writes: 2, bytesWritten: 2_000_000})

	tally := e.FinalizeFiles()
	if tally.ReadOnly.Count != 1 || tally.ReadOnly.Bytes != 1024 {
		t.Fatalf("read_only bucket wrong: %+v", tally.ReadOnly)
	}
	if tally.WriteOnly.Count != 1 || tally.WriteOnly.Bytes != 2_000_000 {
		t.Fatalf("write_only bucket wrong: %+v", tally.WriteOnly)
	}
	if tally.Unique.Count != 1 {
		t.Fatalf("expected one unique file, got %+v", tally.Unique)
	}
	if tally.Shared.Count != 1 {
		t.Fatalf("expected one shared file, got %+v", tally.Shared)
	}
	if tally.Total.Count != 2 {
		t.Fatalf("expected total count 2, got %d", tally.Total.Count)
	}
}

func TestResetClearsFilesAndPreservesVectorCapacity(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 4)
	e.Fold(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}})
	_ = e.FoldPerf(&fakeRecord{base: common.BaseRecord{ID: 1, Rank: 0}, read: 3})

	before := e.perf.RankCumulIOTotalTime
	e.Reset(4)

	if len(e.Files()) != 0 {
		t.Fatalf("expected per-file hash cleared after reset")
	}
	if len(e.perf.RankCumulIOTotalTime) != len(before) {
		t.Fatalf("expected vector length preserved across reset")
	}
	for _, v := range e.perf.RankCumulIOTotalTime {
		if v != 0 {
			t.Fatalf("expected zeroed per-rank vector after reset")
		}
	}
}

func TestZeroRecordModuleContributesNothing(t *testing.T) {
	e := NewEngine(common.ModulePOSIX, fakeAgg{}, 1)
	tally := e.FinalizeFiles()
	if tally.Total.Count != 0 {
		t.Fatalf("expected empty tally for a module with zero records")
	}
	perf := e.FinalizePerf()
	if perf.TotalBytes != 0 {
		t.Fatalf("expected zeroed perf result for a module with zero records")
	}
}
