// Package apiserver is the typed REST query API behind cmd/darshan-serve
// (github.com/danielgtaylor/huma/v2), serving job summaries and file
// tallies out of internal/store without requiring a client to run
// darshan-parser itself. The teacher's go.mod already declares huma/v2
// as a dependency; nothing in the retrieved example pack exercises it
// directly, so this package is built from huma's own documented
// registration pattern (a humago API bound to a stdlib mux, operations
// registered with huma.Register) rather than adapted from an in-pack
// call site.
package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/nersc/darshan-go/internal/store"
)

// JobSummaryOutput is one job's summary, as returned by GET /jobs/{cluster}/{jobid}.
type JobSummaryOutput struct {
	Body struct {
		Cluster          string  `json:"cluster"`
		JobID            string  `json:"jobid"`
		Exe              string  `json:"exe"`
		NProcs           int64   `json:"nprocs"`
		TotalBytes       uint64  `json:"total_bytes"`
		AggTimeBySlowest float64 `json:"agg_time_by_slowest"`
		AggPerfBySlowest float64 `json:"agg_perf_by_slowest"`
		Tallies          []struct {
			Bucket   string `json:"bucket"`
			Count    int64  `json:"count"`
			Bytes    uint64 `json:"bytes"`
			MaxBytes uint64 `json:"max_bytes"`
		} `json:"tallies"`
	}
}

type jobSummaryInput struct {
	Cluster string `path:"cluster"`
	JobID   string `path:"jobid"`
}

// JobListOutput is GET /jobs/{cluster}'s response: one summary row per job.
type JobListOutput struct {
	Body struct {
		Jobs []JobSummaryOutput `json:"jobs"`
	}
}

type jobListInput struct {
	Cluster string `path:"cluster"`
}

// New builds the API, registering its two operations against db.
func New(db *store.DB) http.Handler {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("darshan-serve", "1.0.0"))

	huma.Register(api, huma.Operation{
		OperationID: "get-job-summary",
		Method:      http.MethodGet,
		Path:        "/jobs/{cluster}/{jobid}",
		Summary:     "Fetch one job's parsed summary",
	}, func(ctx context.Context, in *jobSummaryInput) (*JobSummaryOutput, error) {
		summary, err := db.GetJobSummary(ctx, in.Cluster, in.JobID)
		if err != nil {
			return nil, huma.Error404NotFound(fmt.Sprintf("job %s/%s not found", in.Cluster, in.JobID))
		}
		tallies, err := db.ListFileTallies(ctx, in.Cluster, in.JobID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load file tallies", err)
		}
		return toSummaryOutput(summary, tallies), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-job-summaries",
		Method:      http.MethodGet,
		Path:        "/jobs/{cluster}",
		Summary:     "List all parsed job summaries for a cluster",
	}, func(ctx context.Context, in *jobListInput) (*JobListOutput, error) {
		summaries, err := db.ListJobSummaries(ctx, in.Cluster)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list job summaries", err)
		}
		out := &JobListOutput{}
		for _, s := range summaries {
			tallies, err := db.ListFileTallies(ctx, in.Cluster, s.JobID)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to load file tallies", err)
			}
			out.Body.Jobs = append(out.Body.Jobs, *toSummaryOutput(s, tallies))
		}
		return out, nil
	})

	return mux
}

func toSummaryOutput(s store.JobSummary, tallies []store.FileTally) *JobSummaryOutput {
	out := &JobSummaryOutput{}
	out.Body.Cluster = s.Cluster
	out.Body.JobID = s.JobID
	out.Body.Exe = s.Exe
	out.Body.NProcs = s.NProcs
	out.Body.TotalBytes = s.TotalBytes
	out.Body.AggTimeBySlowest = s.AggTimeBySlowest
	out.Body.AggPerfBySlowest = s.AggPerfBySlowest
	for _, t := range tallies {
		row := struct {
			Bucket   string `json:"bucket"`
			Count    int64  `json:"count"`
			Bytes    uint64 `json:"bytes"`
			MaxBytes uint64 `json:"max_bytes"`
		}{Bucket: t.Bucket, Count: t.Count, Bytes: t.Bytes, MaxBytes: t.MaxBytes}
		out.Body.Tallies = append(out.Body.Tallies, row)
	}
	return out
}
