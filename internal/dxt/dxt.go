// Package dxt is the runtime-side DXT buffer manager (spec §4.5): it
// captures per-operation I/O segments into per-file growing buffers
// under a fixed global memory budget, and serializes them at job
// shutdown. Two Managers (one per DXT module, POSIX and MPI-IO) share
// one Budget.
//
// The source this is modeled on guards the budget with a recursive
// mutex because the same thread can re-enter the budget math while
// already holding it. This package restructures the call graph so the
// lock is never re-acquired while already held — Go's sync.Mutex has no
// recursive variant, and the restructuring is cheaper than faking one.
package dxt

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// SegmentSize is sizeof(segment_info) in the serialized stream: offset,
// length, start_time, end_time, each 8 bytes.
const SegmentSize = 32

// FileRecordSize is sizeof(dxt_file_record) in the serialized stream:
// record id, rank, write_count, read_count.
const FileRecordSize = 20

// GlobalBudgetBytes is the fixed cap shared by both DXT modules (spec
// §4.5: "a single global memory budget of 4 MiB across both").
const GlobalBudgetBytes = 4 * 1024 * 1024

const initialSegments = 64

// Segment is one {offset, length, start_time, end_time} I/O operation.
// Offset is unused by MPI-IO traces (spec §3).
type Segment struct {
	Offset    int64
	Length    int64
	StartTime float64
	EndTime   float64
}

// Budget is the shared, mutex-guarded high-water-mark memory counter.
// Debits are never credited back; see debitFileRecord/debitGrowth.
type Budget struct {
	mu        sync.Mutex
	remaining int64
}

// NewBudget creates a fresh budget at the full cap. Callers construct
// exactly one and hand it to both Managers.
func NewBudget() *Budget {
	return &Budget{remaining: GlobalBudgetBytes}
}

// debitFileRecord debits FileRecordSize if the full amount is
// available, else refuses (spec: "a new file record is refused ...
// if the remaining budget is smaller than one dxt_file_record").
func (b *Budget) debitFileRecord() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining < FileRecordSize {
		return false
	}
	b.remaining -= FileRecordSize
	return true
}

// debitGrowth clamps want to whatever the remaining budget allows
// (possibly zero) and debits that amount, returning how many bytes
// were actually granted.
func (b *Budget) debitGrowth(want int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	granted := want
	if granted > b.remaining {
		granted = b.remaining
	}
	if granted < 0 {
		granted = 0
	}
	b.remaining -= granted
	return granted
}

func (b *Budget) Remaining() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// fileRecord is the per-file trace buffer. cap tracks each direction's
// current segment capacity (for growth doubling); the slices
// themselves are truncated to that capacity whenever a growth request
// is only partially granted.
type fileRecord struct {
	id   uint64
	rank int32

	writes    []Segment
	writeCap  int
	reads     []Segment
	readCap   int
}

// Manager owns one DXT module's (POSIX or MPI-IO's) file records and a
// reference to the shared Budget. disabled is set once, at Shutdown,
// and short-circuits every trace entry point from then on.
type Manager struct {
	mu       sync.Mutex
	budget   *Budget
	files    map[uint64]*fileRecord
	disabled bool
}

// NewManager creates a Manager sharing budget with its sibling module's
// Manager.
func NewManager(budget *Budget) *Manager {
	return &Manager{budget: budget, files: make(map[uint64]*fileRecord)}
}

func (m *Manager) getOrCreate(id uint64, rank int32) *fileRecord {
	if fr, ok := m.files[id]; ok {
		return fr
	}
	if !m.budget.debitFileRecord() {
		return nil
	}
	fr := &fileRecord{id: id, rank: rank}
	m.files[id] = fr
	return fr
}

// TraceWrite appends a write segment for file id, creating its record
// on first use. No-op once the manager is disabled or the file record
// could not be created (budget exhausted).
func (m *Manager) TraceWrite(id uint64, rank int32, offset, length int64, start, end float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return
	}
	fr := m.getOrCreate(id, rank)
	if fr == nil {
		return
	}
	m.append(&fr.writes, &fr.writeCap, Segment{Offset: offset, Length: length, StartTime: start, EndTime: end})
}

// TraceRead is TraceWrite's read-direction counterpart.
func (m *Manager) TraceRead(id uint64, rank int32, offset, length int64, start, end float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return
	}
	fr := m.getOrCreate(id, rank)
	if fr == nil {
		return
	}
	m.append(&fr.reads, &fr.readCap, Segment{Offset: offset, Length: length, StartTime: start, EndTime: end})
}

// append grows *segs geometrically (starting at initialSegments, then
// doubling) whenever len(*segs) reaches *capPtr, clamping the growth to
// what the shared budget allows. If the budget grants nothing, the
// segment is silently dropped and the count freezes (spec §4.5 and
// §8 scenario S6).
func (m *Manager) append(segs *[]Segment, capPtr *int, s Segment) {
	if *capPtr == 0 {
		granted := m.budget.debitGrowth(initialSegments * SegmentSize)
		*capPtr = int(granted / SegmentSize)
		if *capPtr == 0 {
			return
		}
		*segs = make([]Segment, 0, *capPtr)
	}
	if len(*segs) >= *capPtr {
		want := int64(*capPtr) * SegmentSize // double: grant up to current size again
		granted := m.budget.debitGrowth(want)
		extra := int(granted / SegmentSize)
		if extra == 0 {
			return
		}
		*capPtr += extra
		grown := make([]Segment, len(*segs), *capPtr)
		copy(grown, *segs)
		*segs = grown
	}
	*segs = append(*segs, s)
}

// Shutdown serializes every non-empty file record as
// [file_record, write_segments, read_segments], frees per-record
// buffers, and disables further tracing. Safe to call once; a second
// call returns an empty buffer.
func (m *Manager) Shutdown() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return nil
	}
	m.disabled = true

	var buf bytes.Buffer
	for _, fr := range m.files {
		if len(fr.writes) == 0 && len(fr.reads) == 0 {
			continue
		}
		binary.Write(&buf, binary.LittleEndian, fr.id)
		binary.Write(&buf, binary.LittleEndian, fr.rank)
		binary.Write(&buf, binary.LittleEndian, uint32(len(fr.writes)))
		binary.Write(&buf, binary.LittleEndian, uint32(len(fr.reads)))
		for _, s := range fr.writes {
			writeSegment(&buf, s)
		}
		for _, s := range fr.reads {
			writeSegment(&buf, s)
		}
	}
	m.files = nil
	return buf.Bytes()
}

func writeSegment(buf *bytes.Buffer, s Segment) {
	binary.Write(buf, binary.LittleEndian, s.Offset)
	binary.Write(buf, binary.LittleEndian, s.Length)
	binary.Write(buf, binary.LittleEndian, s.StartTime)
	binary.Write(buf, binary.LittleEndian, s.EndTime)
}
