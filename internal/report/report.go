// Package report renders the offline parser's stable stdout contract
// (spec §6). Every block is a small fmt.Fprintf writer function in the
// style of the teacher's jobs/print.go, not the teacher's heavier
// reflection-driven table package: darshan-parser's output is one
// fixed, versionless text format, not a user-selectable multi-format
// table, so the simpler direct-printer texture fits better.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/nersc/darshan-go/internal/aggregate"
	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/jobinfo"
	"github.com/nersc/darshan-go/internal/logio"
	"github.com/nersc/darshan-go/internal/resolve"
)

// JobHeader prints the log version, compression method and job info
// block, including free-form metadata lines split on the first "=" only.
func JobHeader(w io.Writer, logVersion string, compression common.CompressionKind, info jobinfo.Info) {
	fmt.Fprintf(w, "# darshan log version: %s\n", logVersion)
	fmt.Fprintf(w, "# compression method: %s\n", compression)
	fmt.Fprintf(w, "# exe: %s\n", info.Exe)
	fmt.Fprintf(w, "# uid: %d\n", info.UID)
	fmt.Fprintf(w, "# jobid: %s\n", info.JobID)
	fmt.Fprintf(w, "# start_time: %d %s\n", info.StartTime.Unix(), info.StartTime.Format(time.ANSIC))
	fmt.Fprintf(w, "# end_time: %d %s\n", info.EndTime.Unix(), info.EndTime.Format(time.ANSIC))
	fmt.Fprintf(w, "# nprocs: %d\n", info.NProcs)
	fmt.Fprintf(w, "# run time: %.6f\n", info.RunTime().Seconds())
	for _, m := range info.Metadata {
		fmt.Fprintf(w, "# metadata: %s = %s\n", m.Key, m.Value)
	}
}

// RegionSizes prints the log file region sizes block.
func RegionSizes(w io.Writer, headerBytes, jobBytes, recordTableBytes int64, modules []logio.ModuleEntry) {
	fmt.Fprintf(w, "# header bytes: %d\n", headerBytes)
	fmt.Fprintf(w, "# job bytes: %d\n", jobBytes)
	fmt.Fprintf(w, "# record-table bytes: %d\n", recordTableBytes)
	for _, m := range modules {
		fmt.Fprintf(w, "# module %s bytes: %d (version %s)\n", common.ModuleID(m.ID), m.Length, m.Version)
	}
}

// MountTable prints one "# mount entry:" line per mount.
func MountTable(w io.Writer, mounts []resolve.MountEntry) {
	for _, m := range mounts {
		fmt.Fprintf(w, "# mount entry:\t%s\t%s\n", m.Path, m.FSType)
	}
}

// NoModuleData prints the empty-log sentinel (spec §8 boundary behavior).
func NoModuleData(w io.Writer) {
	fmt.Fprintln(w, "# no module data available.")
}

// Totals prints the `--total` block: one line per counter name/value pair.
func Totals(w io.Writer, moduleID common.ModuleID, names []string, values []string) {
	fmt.Fprintf(w, "# total module: %s\n", moduleID)
	for i, name := range names {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		fmt.Fprintf(w, "total_%s: %s\n", name, val)
	}
}

// FileTally prints the `--file` block: six fixed bucket lines, always
// printed even when all six are zero (spec §8 boundary behavior).
func FileTally(w io.Writer, t aggregate.FileTally) {
	bucket := func(name string, b aggregate.Bucket) {
		fmt.Fprintf(w, "%s: %d %d %d\n", name, b.Count, b.Bytes, b.MaxBytes)
	}
	bucket("total", t.Total)
	bucket("read_only", t.ReadOnly)
	bucket("write_only", t.WriteOnly)
	bucket("read_write", t.ReadWrite)
	bucket("unique", t.Unique)
	bucket("shared", t.Shared)
}

// Perf prints the `--perf` block.
func Perf(w io.Writer, r aggregate.PerfResult) {
	fmt.Fprintf(w, "total_bytes: %d\n", r.TotalBytes)
	fmt.Fprintf(w, "slowest_rank: %d\n", r.SlowestRank)
	fmt.Fprintf(w, "slowest_rank_io_total_time: %.6f\n", r.SlowestRankIOTime)
	fmt.Fprintf(w, "slowest_rank_md_only_time: %.6f\n", r.SlowestRankMDTime)
	fmt.Fprintf(w, "slowest_rank_rw_only_time: %.6f\n", r.SlowestRankRWTime)
	fmt.Fprintf(w, "shared_io_total_time_by_slowest: %.6f\n", r.SharedIOTotalTimeBySlowest)
	fmt.Fprintf(w, "agg_time_by_slowest: %.6f\n", r.AggTimeBySlowest)
	fmt.Fprintf(w, "agg_perf_by_slowest: %.6f\n", r.AggPerfBySlowest)
}
