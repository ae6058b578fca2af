package logio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/nersc/darshan-go/internal/common"
)

// TestModule describes one module's pre-encoded record bytes, for use
// with WriteTestLog.
type TestModule struct {
	ID      common.ModuleID
	Version string
	Partial bool
	Data    []byte // already in the module's wire record shape
}

// WriteTestLog synthesizes a minimal valid log in this package's format,
// zlib-compressing every region, for use by this package's and the
// darshan-parser CLI's tests. Not used by any production code path.
func WriteTestLog(w io.Writer, version string, job, nameHash []byte, modules []TestModule) error {
	compressedJob, err := deflate(job)
	if err != nil {
		return err
	}
	compressedName, err := deflate(nameHash)
	if err != nil {
		return err
	}

	type region struct {
		data []byte
	}
	var compressedModules []region
	for _, m := range modules {
		c, err := deflate(m.Data)
		if err != nil {
			return err
		}
		compressedModules = append(compressedModules, region{data: c})
	}

	var buf bytes.Buffer
	buf.Write(magic[:])

	verBytes := []byte(version)
	binary.Write(&buf, binary.LittleEndian, uint16(len(verBytes)))
	buf.Write(verBytes)

	binary.Write(&buf, binary.LittleEndian, uint8(common.CompressionZlib))

	// Region offsets depend on the header's total length, so the header
	// is written with zero offsets first and the offsets are patched in
	// once its size is known. Layout order: job immediately follows the
	// header, name-hash follows job, modules follow name-hash.

	headerTailStart := buf.Len()
	// Placeholder extents patched below once sizes are known.
	jobOff := int64(0)
	jobLen := int64(len(compressedJob))
	nameOff := int64(0)
	nameLen := int64(len(compressedName))

	binary.Write(&buf, binary.LittleEndian, jobOff)
	binary.Write(&buf, binary.LittleEndian, jobLen)
	binary.Write(&buf, binary.LittleEndian, nameOff)
	binary.Write(&buf, binary.LittleEndian, nameLen)

	binary.Write(&buf, binary.LittleEndian, uint16(len(modules)))

	type patchSite struct {
		offsetPos int
	}
	var patches []patchSite
	for i, m := range modules {
		offsetPos := buf.Len() + 2 // skip the uint16 ID field we're about to write
		binary.Write(&buf, binary.LittleEndian, uint16(m.ID))
		patches = append(patches, patchSite{offsetPos: offsetPos})
		binary.Write(&buf, binary.LittleEndian, int64(0)) // offset placeholder
		binary.Write(&buf, binary.LittleEndian, int64(len(compressedModules[i].data)))
		verB := []byte(m.Version)
		binary.Write(&buf, binary.LittleEndian, uint16(len(verB)))
		buf.Write(verB)
		partial := uint8(0)
		if m.Partial {
			partial = 1
		}
		binary.Write(&buf, binary.LittleEndian, partial)
	}

	_ = headerTailStart
	headerLen := int64(buf.Len())
	jobOff = headerLen
	nameOff = jobOff + jobLen
	moduleOff := nameOff + nameLen

	out := buf.Bytes()
	patchInt64(out, 8+2+len(verBytes)+1, jobOff)
	patchInt64(out, 8+2+len(verBytes)+1+8, jobLen)
	patchInt64(out, 8+2+len(verBytes)+1+16, nameOff)

	cur := moduleOff
	for i, p := range patches {
		patchInt64(out, p.offsetPos, cur)
		cur += int64(len(compressedModules[i].data))
	}

	if _, err := w.Write(out); err != nil {
		return err
	}
	if _, err := w.Write(compressedJob); err != nil {
		return err
	}
	if _, err := w.Write(compressedName); err != nil {
		return err
	}
	for _, m := range compressedModules {
		if _, err := w.Write(m.data); err != nil {
			return err
		}
	}
	return nil
}

func patchInt64(b []byte, pos int, v int64) {
	binary.LittleEndian.PutUint64(b[pos:pos+8], uint64(v))
}

func deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
