package module

import (
	"fmt"
	"io"

	"github.com/nersc/darshan-go/internal/common"
)

// opaqueRecord wraps whatever counters/fcounters an opaque module's
// stream yields without attaching any meaning to them. Its derived
// numeric fields are all zero; it exists to be pretty-printed and
// counted, not folded.
type opaqueRecord struct {
	base      common.BaseRecord
	counters  []int64
	fcounters []float64
}

func (r *opaqueRecord) Base() common.BaseRecord { return r.base }
func (r *opaqueRecord) MetaTime() float64       { return 0 }
func (r *opaqueRecord) ReadTime() float64       { return 0 }
func (r *opaqueRecord) WriteTime() float64      { return 0 }
func (r *opaqueRecord) BytesRead() uint64       { return 0 }
func (r *opaqueRecord) BytesWritten() uint64    { return 0 }
func (r *opaqueRecord) ReadCalls() uint64       { return 0 }
func (r *opaqueRecord) WriteCalls() uint64      { return 0 }
func (r *opaqueRecord) SlowestRankTime() float64 { return 0 }

func (r *opaqueRecord) CounterNames() []string {
	names := make([]string, 0, len(r.counters)+len(r.fcounters))
	for i := range r.counters {
		names = append(names, fmt.Sprintf("COUNTER_%d", i))
	}
	for i := range r.fcounters {
		names = append(names, fmt.Sprintf("F_COUNTER_%d", i))
	}
	return names
}

func (r *opaqueRecord) CounterValues() []string {
	vals := make([]string, 0, len(r.counters)+len(r.fcounters))
	for _, v := range r.counters {
		vals = append(vals, fmt.Sprintf("%d", v))
	}
	for _, v := range r.fcounters {
		vals = append(vals, fmt.Sprintf("%f", v))
	}
	return vals
}

// opaqueDecoder implements Decoder but not Aggregator: spec §4.2 says
// modules other than POSIX/MPI-IO/STDIO are pretty-printed only, never
// folded into a per-file or job-wide accumulator.
type opaqueDecoder struct {
	id      common.ModuleID
	version string
}

func newOpaqueDecoder(id common.ModuleID, version string) Decoder {
	return &opaqueDecoder{id: id, version: version}
}

func (d *opaqueDecoder) ModuleID() common.ModuleID { return d.id }
func (d *opaqueDecoder) SchemaVersion() string      { return d.version }

func (d *opaqueDecoder) DecodeOne(stream io.Reader) (Record, error) {
	raw, err := decodeRaw(stream)
	if err != nil {
		return nil, err
	}
	return &opaqueRecord{
		base:      common.BaseRecord{ID: raw.id, Rank: raw.rank},
		counters:  raw.counters,
		fcounters: raw.fcounters,
	}, nil
}

func (d *opaqueDecoder) PrintDescription(w io.Writer) {
	fmt.Fprintf(w, "# module %s, version %s (opaque: unnamed raw counters, not aggregated)\n", d.id, d.version)
}

func (d *opaqueDecoder) PrintRecord(w io.Writer, rec Record, path, mount, fsType string) {
	base := rec.Base()
	names := rec.CounterNames()
	vals := rec.CounterValues()
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			d.id, base.Rank, base.ID, name, val, path, mount, fsType)
	}
}
