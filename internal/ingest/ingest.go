// Package ingest is the Kafka consumer daemon behind cmd/darshan-ingest
// (github.com/twmb/franz-go). It does not stream live I/O traffic —
// that would cross the "no live-streaming analysis" line SPEC_FULL.md's
// Non-goals draw. Instead it consumes "log closed" notifications (a
// finalized log's path, published once the instrumented job exits) and
// reacts by parsing that whole, already-complete log and writing its
// summary to internal/store.
//
// Modeled on the teacher's daemon/kafka.go: one cluster's consumption
// loop, a single notification handler, soft errors logged rather than
// aborting the loop.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nersc/darshan-go/internal/status"
)

// LogClosedNotification is the message body published to the
// "<cluster>.log-closed" topic once a job's Darshan log is complete.
type LogClosedNotification struct {
	Cluster string `json:"cluster"`
	JobID   string `json:"jobid"`
	LogPath string `json:"log_path"`
}

// Handler processes one fully-closed log. Implemented by the caller
// (cmd/darshan-ingest) so this package stays independent of
// internal/logio and internal/aggregate's concrete types.
type Handler func(ctx context.Context, n LogClosedNotification) error

// Consumer runs one cluster's Kafka consumption loop.
type Consumer struct {
	cluster string
	client  *kgo.Client
	handle  Handler
}

// NewConsumer dials broker and subscribes to "<cluster>.log-closed" in
// consumer group "darshan-ingest".
func NewConsumer(broker, cluster string, handle Handler) (*Consumer, error) {
	topic := cluster + ".log-closed"
	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumerGroup("darshan-ingest"),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: failed to create client: %w", cluster, err)
	}
	return &Consumer{cluster: cluster, client: client, handle: handle}, nil
}

func (c *Consumer) Close() { c.client.Close() }

// Run polls and dispatches until ctx is canceled. Fetch errors and
// per-record handler errors are logged and the loop keeps polling; a
// record whose handler failed is not retried, since offsets are
// committed after every poll. Only ctx cancellation stops the loop.
func (c *Consumer) Run(ctx context.Context) {
	status.Default().Infof("ingest: %s: connected", c.cluster)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				status.Default().Warningf("ingest: %s: fetch error: %v", c.cluster, e.Err)
			}
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			var n LogClosedNotification
			if err := json.Unmarshal(rec.Value, &n); err != nil {
				status.Default().Warningf("ingest: %s: malformed notification on %s: %v", c.cluster, rec.Topic, err)
				continue
			}
			if err := c.handle(ctx, n); err != nil {
				status.Default().Warningf("ingest: %s: handler failed for job %s: %v", c.cluster, n.JobID, err)
			}
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			status.Default().Warningf("ingest: %s: commit failed: %v", c.cluster, err)
		}
	}
}
