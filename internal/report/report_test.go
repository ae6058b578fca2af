package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nersc/darshan-go/internal/aggregate"
)

func TestFileTallyAlwaysPrintsSixLines(t *testing.T) {
	var buf bytes.Buffer
	FileTally(&buf, aggregate.FileTally{})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines for an all-zero tally, got %d:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"total:", "read_only:", "write_only:", "read_write:", "unique:", "shared:"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected line prefixed %q, got:\n%s", want, buf.String())
		}
	}
}

func TestNoModuleDataSentinel(t *testing.T) {
	var buf bytes.Buffer
	NoModuleData(&buf)
	if strings.TrimSpace(buf.String()) != "# no module data available." {
		t.Fatalf("unexpected sentinel line: %q", buf.String())
	}
}

func TestPerfBlockIncludesAggregateMetrics(t *testing.T) {
	var buf bytes.Buffer
	Perf(&buf, aggregate.PerfResult{TotalBytes: 1024, AggTimeBySlowest: 0.5, AggPerfBySlowest: 2.0})
	out := buf.String()
	if !strings.Contains(out, "agg_time_by_slowest: 0.500000") || !strings.Contains(out, "agg_perf_by_slowest: 2.000000") {
		t.Fatalf("expected aggregate metric lines, got:\n%s", out)
	}
}
