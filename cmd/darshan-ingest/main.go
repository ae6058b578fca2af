// Command darshan-ingest is the long-running daemon that reacts to
// "log closed" Kafka notifications by parsing the named log and
// recording its summary in the historical job store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nersc/darshan-go/internal/aggregate"
	"github.com/nersc/darshan-go/internal/common"
	"github.com/nersc/darshan-go/internal/daemonconfig"
	"github.com/nersc/darshan-go/internal/ingest"
	"github.com/nersc/darshan-go/internal/jobinfo"
	"github.com/nersc/darshan-go/internal/logio"
	"github.com/nersc/darshan-go/internal/module"
	"github.com/nersc/darshan-go/internal/status"
	"github.com/nersc/darshan-go/internal/store"
)

func main() {
	configPath := flag.String("config", "/etc/darshan-go/ingest.ini", "path to daemon config file")
	flag.Parse()

	if err := status.StartSyslog("darshan-ingest"); err != nil {
		status.Default().Warningf("syslog unavailable, logging to stderr only: %v", err)
	}

	cfg, err := daemonconfig.Load(*configPath)
	if err != nil {
		status.Fatalf("%v", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURI)
	if err != nil {
		status.Fatalf("%v", err)
	}
	defer db.Close(ctx)

	handle := func(ctx context.Context, n ingest.LogClosedNotification) error {
		return handleClosedLog(ctx, db, n)
	}

	consumer, err := ingest.NewConsumer(cfg.KafkaBroker, cfg.Cluster, handle)
	if err != nil {
		status.Fatalf("%v", err)
	}
	defer consumer.Close()

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	consumer.Run(sigCtx)
}

// handleClosedLog parses one finalized log end-to-end and writes its
// summary. It never touches cmd/darshan-parser's stdout printers —
// those are the offline CLI's concern — it only needs the final
// per-module totals and performance metrics.
func handleClosedLog(ctx context.Context, db *store.DB, n ingest.LogClosedNotification) error {
	r, err := logio.Open(n.LogPath)
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

	_, _, _, modules := r.RegionSizes()
	versions := make(map[common.ModuleID]string)
	for _, m := range modules {
		versions[m.ID] = m.Version
	}
	registry := module.NewRegistry(versions)

	var totalBytes uint64
	var aggTime, aggPerf float64
	var tallies []store.FileTally

	for _, entry := range modules {
		if module.Skip(entry.ID) || !entry.ID.Deep() {
			continue
		}
		dec, ok := registry.Lookup(entry.ID)
		if !ok {
			continue
		}
		stream, _, ok, err := r.OpenModule(entry.ID)
		if err != nil || !ok {
			continue
		}

		agg, _ := dec.(module.Aggregator)
		engine := aggregate.NewEngine(entry.ID, agg, info.NProcs)
		for {
			rec, err := dec.DecodeOne(stream)
			if err != nil {
				break
			}
			engine.Fold(rec)
			_ = engine.FoldPerf(rec)
		}

		tally := engine.FinalizeFiles()
		perf := engine.FinalizePerf()
		totalBytes += perf.TotalBytes
		if perf.AggTimeBySlowest > aggTime {
			aggTime = perf.AggTimeBySlowest
			aggPerf = perf.AggPerfBySlowest
		}

		for name, b := range map[string]aggregate.Bucket{
			"total": tally.Total, "read_only": tally.ReadOnly, "write_only": tally.WriteOnly,
			"read_write": tally.ReadWrite, "unique": tally.Unique, "shared": tally.Shared,
		} {
			tallies = append(tallies, store.FileTally{
				Cluster: n.Cluster, JobID: n.JobID, Bucket: fmt.Sprintf("%s.%s", entry.ID, name),
				Count: b.Count, Bytes: b.Bytes, MaxBytes: b.MaxBytes,
			})
		}
	}

	summary := store.JobSummary{
		Cluster:          n.Cluster,
		JobID:            n.JobID,
		LogPath:          n.LogPath,
		ParsedAt:         time.Now(),
		Exe:              info.Exe,
		UID:              info.UID,
		NProcs:           info.NProcs,
		StartTime:        info.StartTime,
		EndTime:          info.EndTime,
		TotalBytes:       totalBytes,
		AggTimeBySlowest: aggTime,
		AggPerfBySlowest: aggPerf,
	}
	return db.PutJobSummary(ctx, summary, tallies)
}
