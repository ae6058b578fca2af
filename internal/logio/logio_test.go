package logio

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/nersc/darshan-go/internal/common"
)

func writeTempLog(t *testing.T, version string, modules []TestModule) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteTestLog(&buf, version, []byte("job-record-bytes"), []byte("name-hash-bytes"), modules); err != nil {
		t.Fatalf("WriteTestLog: %v", err)
	}
	f, err := os.CreateTemp(t.TempDir(), "*.darshan")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		t.Fatalf("write temp log: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestOpenValidLogRoundTrip(t *testing.T) {
	path := writeTempLog(t, "3.10", []TestModule{
		{ID: common.ModulePOSIX, Version: "3.10", Data: []byte("posix-records")},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Header.Version != "3.10" {
		t.Fatalf("expected version 3.10, got %q", r.Header.Version)
	}
	if r.Header.Compression != common.CompressionZlib {
		t.Fatalf("expected ZLIB compression, got %s", r.Header.Compression)
	}

	job, err := r.OpenJob()
	if err != nil {
		t.Fatalf("OpenJob: %v", err)
	}
	jobBytes, err := io.ReadAll(job)
	if err != nil {
		t.Fatalf("read job: %v", err)
	}
	if string(jobBytes) != "job-record-bytes" {
		t.Fatalf("job region mismatch: %q", jobBytes)
	}

	stream, entry, ok, err := r.OpenModule(common.ModulePOSIX)
	if err != nil || !ok {
		t.Fatalf("OpenModule(POSIX): ok=%v err=%v", ok, err)
	}
	if entry.Version != "3.10" || entry.Partial {
		t.Fatalf("unexpected module entry: %+v", entry)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read module region: %v", err)
	}
	if string(data) != "posix-records" {
		t.Fatalf("module region mismatch: %q", data)
	}

	if _, _, ok, _ := r.OpenModule(common.ModuleMPIIO); ok {
		t.Fatalf("expected no MPI-IO region in this log")
	}
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	path := writeTempLog(t, "99.99", nil)
	if _, err := Open(path); err == nil {
		t.Fatalf("expected UnsupportedVersion error")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.darshan")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Write([]byte("not-a-darshan-log-at-all"))
	f.Close()

	if _, err := Open(f.Name()); err == nil {
		t.Fatalf("expected FormatError for bad magic")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/path/to.darshan"); err == nil {
		t.Fatalf("expected OpenError for a missing file")
	}
}

func TestPartialModuleFlagSurfaces(t *testing.T) {
	path := writeTempLog(t, "3.10", []TestModule{
		{ID: common.ModuleSTDIO, Version: "1.00", Partial: true, Data: nil},
	})
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	_, entry, ok, err := r.OpenModule(common.ModuleSTDIO)
	if err != nil || !ok {
		t.Fatalf("OpenModule(STDIO): ok=%v err=%v", ok, err)
	}
	if !entry.Partial {
		t.Fatalf("expected partial flag to be set")
	}
}
