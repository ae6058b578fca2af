package module

import (
	"fmt"
	"io"

	"github.com/nersc/darshan-go/internal/common"
)

// layout is the per-module counter schema: names for pretty-printing,
// plus which index (or indices, for the two call-count totals that are
// sums of several raw counters) each of the Record interface's derived
// fields comes from. POSIX, MPI-IO and STDIO are all "a vector of
// counters plus a vector of fcounters" underneath, so one generic
// decoder/record pair driven by a layout replaces three near-identical
// hand-written ones.
type layout struct {
	id      common.ModuleID
	version string

	counterNames  []string
	fcounterNames []string

	bytesReadIdx    int
	bytesWrittenIdx int
	readCallsIdx    []int // summed
	writeCallsIdx   []int // summed

	metaTimeIdx  int
	readTimeIdx  int
	writeTimeIdx int
	slowestIdx   int
}

// genRecord is the Record implementation shared by every layout-driven
// decoder.
type genRecord struct {
	base      common.BaseRecord
	counters  []int64
	fcounters []float64
	lay       *layout
}

func (r *genRecord) Base() common.BaseRecord { return r.base }

func (r *genRecord) at(i int) int64 {
	if i < 0 || i >= len(r.counters) {
		return 0
	}
	return r.counters[i]
}

func (r *genRecord) fat(i int) float64 {
	if i < 0 || i >= len(r.fcounters) {
		return 0
	}
	return r.fcounters[i]
}

func (r *genRecord) MetaTime() float64  { return r.fat(r.lay.metaTimeIdx) }
func (r *genRecord) ReadTime() float64  { return r.fat(r.lay.readTimeIdx) }
func (r *genRecord) WriteTime() float64 { return r.fat(r.lay.writeTimeIdx) }

func (r *genRecord) BytesRead() uint64    { return uint64(r.at(r.lay.bytesReadIdx)) }
func (r *genRecord) BytesWritten() uint64 { return uint64(r.at(r.lay.bytesWrittenIdx)) }

func (r *genRecord) ReadCalls() uint64 {
	var n int64
	for _, i := range r.lay.readCallsIdx {
		n += r.at(i)
	}
	return uint64(n)
}

func (r *genRecord) WriteCalls() uint64 {
	var n int64
	for _, i := range r.lay.writeCallsIdx {
		n += r.at(i)
	}
	return uint64(n)
}

func (r *genRecord) SlowestRankTime() float64 { return r.fat(r.lay.slowestIdx) }

func (r *genRecord) CounterNames() []string {
	names := make([]string, 0, len(r.lay.counterNames)+len(r.lay.fcounterNames))
	names = append(names, r.lay.counterNames...)
	names = append(names, r.lay.fcounterNames...)
	return names
}

func (r *genRecord) CounterValues() []string {
	vals := make([]string, 0, len(r.counters)+len(r.fcounters))
	for _, v := range r.counters {
		vals = append(vals, fmt.Sprintf("%d", v))
	}
	for _, v := range r.fcounters {
		vals = append(vals, fmt.Sprintf("%f", v))
	}
	return vals
}

// genDecoder is the Decoder+Aggregator implementation shared by every
// layout-driven module.
type genDecoder struct {
	lay *layout
}

func newGenDecoder(lay *layout) *genDecoder { return &genDecoder{lay: lay} }

func (d *genDecoder) ModuleID() common.ModuleID { return d.lay.id }
func (d *genDecoder) SchemaVersion() string      { return d.lay.version }

func (d *genDecoder) DecodeOne(stream io.Reader) (Record, error) {
	raw, err := decodeRaw(stream)
	if err != nil {
		return nil, err
	}
	return &genRecord{
		base:      common.BaseRecord{ID: raw.id, Rank: raw.rank},
		counters:  raw.counters,
		fcounters: raw.fcounters,
		lay:       d.lay,
	}, nil
}

func (d *genDecoder) PrintDescription(w io.Writer) {
	fmt.Fprintf(w, "# module %s, version %s\n", d.lay.id, d.lay.version)
	fmt.Fprintf(w, "# counters: %v\n", d.lay.counterNames)
	fmt.Fprintf(w, "# fcounters: %v\n", d.lay.fcounterNames)
}

func (d *genDecoder) PrintRecord(w io.Writer, rec Record, path, mount, fsType string) {
	names := rec.CounterNames()
	vals := rec.CounterValues()
	base := rec.Base()
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			d.lay.id, base.Rank, base.ID, name, val, path, mount, fsType)
	}
}

func (d *genDecoder) AggregateInto(dst, src Record, first bool) Record {
	s, ok := src.(*genRecord)
	if !ok {
		return dst
	}
	if first || dst == nil {
		return &genRecord{
			base:      s.base,
			counters:  append([]int64(nil), s.counters...),
			fcounters: append([]float64(nil), s.fcounters...),
			lay:       d.lay,
		}
	}
	dd, ok := dst.(*genRecord)
	if !ok {
		return dst
	}
	dd.counters = sumInts(dd.counters, s.counters, false)
	dd.fcounters = sumFloats(dd.fcounters, s.fcounters, false)
	return dd
}
