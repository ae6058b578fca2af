// Command darshan-parser is the offline log analysis CLI (spec §6): it
// opens one log, decodes each present module's records, folds them
// through the aggregation engine, and prints the requested stdout
// blocks. Exit codes: 0 success, 1 usage error, nonzero on I/O/parse
// error (spec §7).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nersc/darshan-go/internal/aggregate"
	"github.com/nersc/darshan-go/internal/cache"
	"github.com/nersc/darshan-go/internal/cli"
	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/errs"
	"github.com/nersc/darshan-go/internal/jobinfo"
	"github.com/nersc/darshan-go/internal/logio"
	"github.com/nersc/darshan-go/internal/module"
	"github.com/nersc/darshan-go/internal/report"
	"github.com/nersc/darshan-go/internal/resolve"
	"github.com/nersc/darshan-go/internal/status"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("darshan-parser", flag.ContinueOnError)
	var out cli.OutputArgs
	out.Add(fs)
	var cacheArgs cli.CacheArgs
	cacheArgs.Add(fs)

	if err := fs.Parse(args); err != nil {
		return 1
	}
	out.Normalize()

	var pos cli.PositionalArgs
	if err := pos.Validate(fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 1
	}

	if err := parseLog(pos.LogPath, out, cacheArgs.Dir, stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}

func parseLog(path string, out cli.OutputArgs, cacheDir string, stdout io.Writer) error {
	var store *cache.Store
	var cached cache.Entry
	haveCached := false
	var modTimeUnix int64
	if cacheDir != "" {
		s, err := cache.Open(cacheDir)
		if err != nil {
			return err
		}
		store = s
		if fi, err := os.Stat(path); err == nil {
			modTimeUnix = fi.ModTime().Unix()
			if e, ok := store.Lookup(path, fi.ModTime()); ok {
				cached = e
				haveCached = true
			}
		}
	}
	// Only the -file/-perf blocks are cacheable: -total needs each
	// record's live CounterNames()/CounterValues(), which the cache
	// does not store, and -base always needs a full per-record decode.
	useCache := haveCached && !out.Base && !out.Total

	r, err := logio.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	jobStream, err := r.OpenJob()
	if err != nil {
		return err
	}
	info, err := jobinfo.Parse(jobStream)
	if err != nil {
		return err
	}
	report.JobHeader(stdout, r.Header.Version, r.Header.Compression, info)

	headerBytes, jobBytes, nameBytes, modules := r.RegionSizes()
	report.RegionSizes(stdout, headerBytes, jobBytes, nameBytes, modules)

	nameStream, err := r.OpenNameHash()
	if err != nil {
		return err
	}
	names, err := resolve.ParseNameHash(nameStream)
	if err != nil {
		return err
	}
	var mounts []resolve.MountEntry
	for _, m := range info.Mounts {
		mounts = append(mounts, resolve.MountEntry{Path: m.Path, FSType: m.FSType})
	}
	names.SetMounts(mounts)
	report.MountTable(stdout, mounts)

	versions := make(map[common.ModuleID]string)
	for _, m := range modules {
		versions[m.ID] = m.Version
	}
	registry := module.NewRegistry(versions)

	var fresh cache.Entry
	if store != nil {
		fresh = cache.Entry{LogPath: path, ModTime: modTimeUnix, Version: r.Header.Version, Modules: map[string]cache.ModuleResult{}}
	}

	anyData := false
	for _, entry := range modules {
		if module.Skip(entry.ID) {
			continue
		}
		dec, ok := registry.Lookup(entry.ID)
		if !ok {
			continue
		}

		if useCache && entry.ID.Deep() {
			if mr, ok := cached.Modules[entry.ID.String()]; ok {
				if out.File {
					report.FileTally(stdout, fromTallySnapshot(mr.FileTally))
				}
				if out.Perf {
					report.Perf(stdout, fromPerfSnapshot(mr.PerfResult))
				}
				fresh.Modules[entry.ID.String()] = mr
				anyData = true
				continue
			}
		}

		stream, _, ok, err := r.OpenModule(entry.ID)
		if err != nil || !ok {
			if err != nil {
				status.Default().Warningf("module %s: %v", entry.ID, err)
			}
			continue
		}

		if entry.Partial {
			if !out.ShowIncomplete {
				return &errs.PartialModuleData{Module: entry.ID.String()}
			}
			status.Default().Warningf("module %s: log data is incomplete, continuing per -show-incomplete", entry.ID)
		}

		agg, _ := dec.(module.Aggregator)
		engine := aggregate.NewEngine(entry.ID, agg, info.NProcs)

		if out.Base {
			dec.PrintDescription(stdout)
		}

		recordCount := 0
		for {
			rec, err := dec.DecodeOne(stream)
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				if !out.ShowIncomplete {
					return &errs.PartialModuleData{Module: entry.ID.String()}
				}
				status.Default().Warningf("module %s: truncated mid-record, stopping early", entry.ID)
				break
			}
			if err != nil {
				status.Default().Warningf("module %s: %v", entry.ID, &errs.DecodeError{Module: entry.ID.String(), Version: entry.Version, Err: err})
				break
			}
			recordCount++
			anyData = true

			base := rec.Base()
			path := names.Path(base.ID, entry.ID)
			mount, fsType := names.Mount(path)

			if out.Base {
				dec.PrintRecord(stdout, rec, path, mount, fsType)
			}
			if entry.ID.Deep() {
				engine.Fold(rec)
				if err := engine.FoldPerf(rec); err != nil {
					status.Default().Warningf("module %s: %v", entry.ID, err)
				}
			}
		}

		if !entry.ID.Deep() {
			continue
		}
		tally := engine.FinalizeFiles()
		perf := engine.FinalizePerf()
		if out.Total {
			totals := engine.Totals()
			if totals.RecDat != nil {
				report.Totals(stdout, entry.ID, totals.RecDat.CounterNames(), totals.RecDat.CounterValues())
			}
		}
		if out.File {
			report.FileTally(stdout, tally)
		}
		if out.Perf {
			report.Perf(stdout, perf)
		}
		if store != nil {
			fresh.Modules[entry.ID.String()] = cache.ModuleResult{
				FileTally:  toTallySnapshot(tally),
				PerfResult: toPerfSnapshot(perf),
			}
		}
	}

	if !anyData {
		report.NoModuleData(stdout)
	}
	if store != nil {
		if err := store.Put(fresh); err != nil {
			status.Default().Warningf("cache: %v", err)
		}
	}
	return nil
}

func toTallySnapshot(t aggregate.FileTally) cache.TallySnapshot {
	b := func(bk aggregate.Bucket) cache.BucketSnapshot {
		return cache.BucketSnapshot{Count: bk.Count, Bytes: bk.Bytes, MaxBytes: bk.MaxBytes}
	}
	return cache.TallySnapshot{
		Total: b(t.Total), ReadOnly: b(t.ReadOnly), WriteOnly: b(t.WriteOnly),
		ReadWrite: b(t.ReadWrite), Unique: b(t.Unique), Shared: b(t.Shared),
	}
}

func fromTallySnapshot(s cache.TallySnapshot) aggregate.FileTally {
	b := func(bk cache.BucketSnapshot) aggregate.Bucket {
		return aggregate.Bucket{Count: bk.Count, Bytes: bk.Bytes, MaxBytes: bk.MaxBytes}
	}
	return aggregate.FileTally{
		Total: b(s.Total), ReadOnly: b(s.ReadOnly), WriteOnly: b(s.WriteOnly),
		ReadWrite: b(s.ReadWrite), Unique: b(s.Unique), Shared: b(s.Shared),
	}
}

func toPerfSnapshot(p aggregate.PerfResult) cache.PerfSnapshot {
	return cache.PerfSnapshot{
		SlowestRank:                p.SlowestRank,
		SlowestRankIOTime:          p.SlowestRankIOTime,
		SlowestRankMDTime:          p.SlowestRankMDTime,
		SlowestRankRWTime:          p.SlowestRankRWTime,
		SharedIOTotalTimeBySlowest: p.SharedIOTotalTimeBySlowest,
		AggTimeBySlowest:           p.AggTimeBySlowest,
		AggPerfBySlowest:           p.AggPerfBySlowest,
		TotalBytes:                 p.TotalBytes,
	}
}

func fromPerfSnapshot(s cache.PerfSnapshot) aggregate.PerfResult {
	return aggregate.PerfResult{
		SlowestRank:                s.SlowestRank,
		SlowestRankIOTime:          s.SlowestRankIOTime,
		SlowestRankMDTime:          s.SlowestRankMDTime,
		SlowestRankRWTime:          s.SlowestRankRWTime,
		SharedIOTotalTimeBySlowest: s.SharedIOTotalTimeBySlowest,
		AggTimeBySlowest:           s.AggTimeBySlowest,
		AggPerfBySlowest:           s.AggPerfBySlowest,
		TotalBytes:                 s.TotalBytes,
	}
}
