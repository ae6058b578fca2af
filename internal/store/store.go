// Package store is a historical job-summary store backed by Postgres
// (github.com/jackc/pgx/v5). It is the persistence layer behind
// cmd/darshan-ingest (writer) and cmd/darshan-serve (reader): one row
// per (cluster, jobid) summarizing a parsed log's file tally and
// performance metrics, plus one row per file-sharing bucket so a query
// can slice by bucket without re-parsing the log.
//
// Modeled on the teacher's read-only Postgres accessor
// (db/timescaledb.go): a single *pgx.Conn behind a mutex, query methods
// that collect rows with pgx.CollectRows, schema management left to an
// operator-run migration rather than anything this package does at
// startup.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// JobSummary is one darshan-ingest write: the finalized result of
// parsing one log.
type JobSummary struct {
	Cluster   string
	JobID     string
	LogPath   string
	ParsedAt  time.Time
	Exe       string
	UID       int64
	NProcs    int64
	StartTime time.Time
	EndTime   time.Time

	TotalBytes       uint64
	AggPerfBySlowest float64
	AggTimeBySlowest float64
}

// FileTally is one bucket row (total/read_only/write_only/read_write/unique/shared).
type FileTally struct {
	Cluster  string
	JobID    string
	Bucket   string
	Count    int64
	Bytes    uint64
	MaxBytes uint64
}

// DB wraps a single Postgres connection behind a mutex; pgx.Conn is not
// safe for concurrent use, and both the ingest daemon and the API
// server's request handlers share one DB.
type DB struct {
	conn *pgx.Conn
	mu   sync.Mutex
}

func Open(ctx context.Context, databaseURI string) (*DB, error) {
	conn, err := pgx.Connect(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.conn.Close(ctx)
}

func (db *DB) query(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Query(ctx, q, args...)
}

func (db *DB) exec(ctx context.Context, q string, args ...any) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(ctx, q, args...)
	return err
}

// PutJobSummary upserts one job's summary row and replaces its file
// tally rows. Called by darshan-ingest after a log is fully parsed.
func (db *DB) PutJobSummary(ctx context.Context, s JobSummary, tallies []FileTally) error {
	err := db.exec(ctx, `
		INSERT INTO job_summary
			(cluster, jobid, log_path, parsed_at, exe, uid, nprocs, start_time, end_time,
			 total_bytes, agg_perf_by_slowest, agg_time_by_slowest)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (cluster, jobid) DO UPDATE SET
			log_path = EXCLUDED.log_path,
			parsed_at = EXCLUDED.parsed_at,
			exe = EXCLUDED.exe,
			uid = EXCLUDED.uid,
			nprocs = EXCLUDED.nprocs,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			total_bytes = EXCLUDED.total_bytes,
			agg_perf_by_slowest = EXCLUDED.agg_perf_by_slowest,
			agg_time_by_slowest = EXCLUDED.agg_time_by_slowest
	`, s.Cluster, s.JobID, s.LogPath, s.ParsedAt, s.Exe, s.UID, s.NProcs, s.StartTime, s.EndTime,
		s.TotalBytes, s.AggPerfBySlowest, s.AggTimeBySlowest)
	if err != nil {
		return fmt.Errorf("store: upsert job_summary: %w", err)
	}

	if err := db.exec(ctx, `DELETE FROM file_tally WHERE cluster = $1 AND jobid = $2`, s.Cluster, s.JobID); err != nil {
		return fmt.Errorf("store: clear file_tally: %w", err)
	}
	for _, t := range tallies {
		err := db.exec(ctx, `
			INSERT INTO file_tally (cluster, jobid, bucket, count, bytes, max_bytes)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, t.Cluster, t.JobID, t.Bucket, t.Count, t.Bytes, t.MaxBytes)
		if err != nil {
			return fmt.Errorf("store: insert file_tally: %w", err)
		}
	}
	return nil
}

// GetJobSummary returns one job's summary, or pgx.ErrNoRows if absent.
func (db *DB) GetJobSummary(ctx context.Context, cluster, jobID string) (JobSummary, error) {
	rows, err := db.query(ctx, `
		SELECT cluster, jobid, log_path, parsed_at, exe, uid, nprocs, start_time, end_time,
		       total_bytes, agg_perf_by_slowest, agg_time_by_slowest
		FROM job_summary WHERE cluster = $1 AND jobid = $2
	`, cluster, jobID)
	if err != nil {
		return JobSummary{}, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByPos[JobSummary])
	if err != nil {
		return JobSummary{}, err
	}
	if len(results) == 0 {
		return JobSummary{}, pgx.ErrNoRows
	}
	return results[0], nil
}

// ListJobSummaries returns every job summary recorded for cluster.
func (db *DB) ListJobSummaries(ctx context.Context, cluster string) ([]JobSummary, error) {
	rows, err := db.query(ctx, `
		SELECT cluster, jobid, log_path, parsed_at, exe, uid, nprocs, start_time, end_time,
		       total_bytes, agg_perf_by_slowest, agg_time_by_slowest
		FROM job_summary WHERE cluster = $1 ORDER BY start_time DESC
	`, cluster)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[JobSummary])
}

// ListFileTallies returns every bucket row for one job.
func (db *DB) ListFileTallies(ctx context.Context, cluster, jobID string) ([]FileTally, error) {
	rows, err := db.query(ctx, `
		SELECT cluster, jobid, bucket, count, bytes, max_bytes
		FROM file_tally WHERE cluster = $1 AND jobid = $2
	`, cluster, jobID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[FileTally])
}
