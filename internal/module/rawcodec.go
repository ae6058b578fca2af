package module

import (
	"encoding/binary"
	"io"

	"github.com/nersc/darshan-go/internal/common"
)

// rawRecord is the wire shape every POSIX/MPI-IO/STDIO record decodes
// from: a base record followed by a version-specific fixed-width vector
// of integer counters and a fixed-width vector of floating counters
// (spec §3, Module Record). Vector lengths travel with the record so
// that a schema version with more counters than this build knows about
// still decodes, at the cost of the extra counters being invisible to
// the typed accessors above.
type rawRecord struct {
	id        common.RecordID
	rank      common.Rank
	counters  []int64
	fcounters []float64
}

// decodeRaw reads one rawRecord from stream, or returns io.EOF at a
// clean end of stream. A partial header (some bytes present, not a full
// record) is reported as io.ErrUnexpectedEOF so the caller can
// distinguish "no more records" from "the stream was truncated
// mid-record" (spec §4.1's partial-module-data tracking).
func decodeRaw(stream io.Reader) (rawRecord, error) {
	var hdr struct {
		ID         uint64
		Rank       int32
		NCounters  uint16
		NFCounters uint16
	}
	if err := binary.Read(stream, binary.LittleEndian, &hdr); err != nil {
		if err == io.ErrUnexpectedEOF {
			return rawRecord{}, io.ErrUnexpectedEOF
		}
		return rawRecord{}, err
	}
	counters := make([]int64, hdr.NCounters)
	if hdr.NCounters > 0 {
		if err := binary.Read(stream, binary.LittleEndian, counters); err != nil {
			return rawRecord{}, io.ErrUnexpectedEOF
		}
	}
	fcounters := make([]float64, hdr.NFCounters)
	if hdr.NFCounters > 0 {
		if err := binary.Read(stream, binary.LittleEndian, fcounters); err != nil {
			return rawRecord{}, io.ErrUnexpectedEOF
		}
	}
	return rawRecord{
		id:        common.RecordID(hdr.ID),
		rank:      common.Rank(hdr.Rank),
		counters:  counters,
		fcounters: fcounters,
	}, nil
}

// EncodeRecord writes one record in the wire shape decodeRaw expects.
// Exported for use by test fixtures and by tools that synthesize
// sample logs (see internal/logio/testlog.go).
func EncodeRecord(w io.Writer, id common.RecordID, rank common.Rank, counters []int64, fcounters []float64) error {
	hdr := struct {
		ID         uint64
		Rank       int32
		NCounters  uint16
		NFCounters uint16
	}{
		ID:         uint64(id),
		Rank:       int32(rank),
		NCounters:  uint16(len(counters)),
		NFCounters: uint16(len(fcounters)),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if len(counters) > 0 {
		if err := binary.Write(w, binary.LittleEndian, counters); err != nil {
			return err
		}
	}
	if len(fcounters) > 0 {
		if err := binary.Write(w, binary.LittleEndian, fcounters); err != nil {
			return err
		}
	}
	return nil
}

// sumInts adds src into dst element-wise, growing dst if src is
// longer (a newer minor schema version with extra trailing counters).
// first discards dst entirely and copies src instead.
func sumInts(dst, src []int64, first bool) []int64 {
	if first {
		out := make([]int64, len(src))
		copy(out, src)
		return out
	}
	if len(src) > len(dst) {
		grown := make([]int64, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}

func sumFloats(dst, src []float64, first bool) []float64 {
	if first {
		out := make([]float64, len(src))
		copy(out, src)
		return out
	}
	if len(src) > len(dst) {
		grown := make([]float64, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}
