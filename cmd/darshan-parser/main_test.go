package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/logio"
	"github.com/nersc/darshan-go/internal/module"
)

func writeSyntheticLog(t *testing.T, partial bool) string {
	t.Helper()

	job := []byte(
		"exe: my_app\n" +
			"uid: 1000\n" +
			"jobid: 42\n" +
			"start_time: 1000000000\n" +
			"end_time: 1000000100\n" +
			"nprocs: 1\n" +
			"metadata: lib_ver = 3.10\n" +
			"mount: /scratch\tlustre\n",
	)
	nameHash := []byte("1\t/scratch/data.bin\n")

	var posixBuf bytes.Buffer
	if err := module.EncodeRecord(&posixBuf, common.RecordID(1), common.Rank(0),
		[]int64{1, 4, 0, 0, 0, 1024, 0, 1023, 0},
		[]float64{0.1, 0.4, 0.0, 0.5}); err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}

	var buf bytes.Buffer
	err := logio.WriteTestLog(&buf, "3.10", job, nameHash, []logio.TestModule{
		{ID: common.ModulePOSIX, Version: "3.10", Partial: partial, Data: posixBuf.Bytes()},
	})
	if err != nil {
		t.Fatalf("WriteTestLog: %v", err)
	}

	f, err := os.CreateTemp(t.TempDir(), "*.darshan")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestRunBaseOutputSucceeds(t *testing.T) {
	path := writeSyntheticLog(t, false)
	var out bytes.Buffer
	code := run([]string{path}, &out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "POSIX") {
		t.Fatalf("expected POSIX records in output:\n%s", out.String())
	}
	// spec §6 column order: module, rank, record id, counter, value, path, mount, fstype.
	if !strings.Contains(out.String(), "POSIX\t0\t1\t") {
		t.Fatalf("expected record line to lead with module/rank/record-id, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "# mount entry:\t/scratch\tlustre") {
		t.Fatalf("expected mount table line, got:\n%s", out.String())
	}
}

func TestRunFilePerfBlocks(t *testing.T) {
	path := writeSyntheticLog(t, false)
	var out bytes.Buffer
	code := run([]string{"-file", "-perf", path}, &out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "read_only: 1 1024 1024") {
		t.Fatalf("expected read_only tally line, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "agg_perf_by_slowest:") {
		t.Fatalf("expected perf block, got:\n%s", out.String())
	}
}

func TestRunMissingLogPathIsUsageError(t *testing.T) {
	var out bytes.Buffer
	code := run(nil, &out)
	if code != 1 {
		t.Fatalf("expected exit 1 for missing path, got %d", code)
	}
}

func TestRunPartialModuleFatalWithoutShowIncomplete(t *testing.T) {
	path := writeSyntheticLog(t, true)
	var out bytes.Buffer
	code := run([]string{path}, &out)
	if code == 0 {
		t.Fatalf("expected nonzero exit for partial module data without -show-incomplete")
	}
}

func TestRunZeroRecordModuleStillPrintsLabeledBlocks(t *testing.T) {
	job := []byte("exe: my_app\nuid: 1000\njobid: 42\nstart_time: 1000000000\nend_time: 1000000100\nnprocs: 1\n")
	var buf bytes.Buffer
	err := logio.WriteTestLog(&buf, "3.10", job, nil, []logio.TestModule{
		{ID: common.ModulePOSIX, Version: "3.10", Data: nil},
	})
	if err != nil {
		t.Fatalf("WriteTestLog: %v", err)
	}
	f, err := os.CreateTemp(t.TempDir(), "*.darshan")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Write(buf.Bytes())
	f.Close()

	var out bytes.Buffer
	code := run([]string{"-file", "-perf", f.Name()}, &out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "total: 0 0 0") {
		t.Fatalf("expected zeroed total tally line, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "agg_perf_by_slowest: 0.000000") {
		t.Fatalf("expected zeroed perf line, got:\n%s", out.String())
	}
}

func TestRunCacheRoundTripMatchesUncachedOutput(t *testing.T) {
	path := writeSyntheticLog(t, false)
	cacheDir := t.TempDir()

	var first bytes.Buffer
	if code := run([]string{"-file", "-perf", "-cache", cacheDir, path}, &first); code != 0 {
		t.Fatalf("expected exit 0 on cache-populating run, got %d:\n%s", code, first.String())
	}
	if !strings.Contains(first.String(), "read_only: 1 1024 1024") {
		t.Fatalf("expected read_only tally line on first run, got:\n%s", first.String())
	}

	var second bytes.Buffer
	if code := run([]string{"-file", "-perf", "-cache", cacheDir, path}, &second); code != 0 {
		t.Fatalf("expected exit 0 on cache-hit run, got %d:\n%s", code, second.String())
	}
	if first.String() != second.String() {
		t.Fatalf("cached run diverged from uncached run:\nfirst:\n%s\nsecond:\n%s", first.String(), second.String())
	}
}

func TestRunPartialModuleWarningWithShowIncomplete(t *testing.T) {
	path := writeSyntheticLog(t, true)
	var out bytes.Buffer
	code := run([]string{"-show-incomplete", path}, &out)
	if code != 0 {
		t.Fatalf("expected exit 0 with -show-incomplete, got %d:\n%s", code, out.String())
	}
}
