package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/messaging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/messaging/nats"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// JetStreamQueue writes failed records to NATS JetStream so several sentry
// instances share one dead-letter stream.
type JetStreamQueue struct {
	js      *nats.JetStreamClient
	stream  jetstream.Stream
	logger  *slog.Logger
	written atomic.Uint64
}

// NewJetStreamQueue creates a DLQ backed by NATS JetStream.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *slog.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.DLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}
	logger.InfoContext(ctx, "dlq stream ready", slog.String("stream", nats.DLQStream.Name))

	return &JetStreamQueue{js: js, stream: stream, logger: logger}, nil
}

// Write publishes a failed record on sentry.dlq.<reason>.
func (q *JetStreamQueue) Write(ctx context.Context, envelope *models.RawEnvelope, record *models.NormalizedRecord, err error, reason string) error {
	if q == nil {
		return nil
	}

	data, marshalErr := json.Marshal(newFailedRecord(envelope, record, err, reason))
	if marshalErr != nil {
		metrics.DLQWrites.WithLabelValues("jetstream", "error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", marshalErr)
	}

	if _, pubErr := q.js.PublishSync(ctx, messaging.DLQSubject(reason), data); pubErr != nil {
		metrics.DLQWrites.WithLabelValues("jetstream", "error").Inc()
		return pubErr
	}

	q.written.Add(1)
	metrics.DLQWrites.WithLabelValues("jetstream", "ok").Inc()
	q.logger.InfoContext(ctx, "published dropped record to dlq", slog.String("reason", reason))
	return nil
}

// Stats reads the stream state; Pending and Bytes cover every instance
// publishing to the stream.
func (q *JetStreamQueue) Stats(ctx context.Context) Stats {
	if q == nil {
		return Stats{Backend: "jetstream"}
	}

	st := Stats{Enabled: true, Backend: "jetstream", Location: nats.DLQStream.Name, Written: q.written.Load()}
	info, err := q.stream.Info(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Pending = info.State.Msgs
	st.Bytes = info.State.Bytes
	return st
}

// List reads up to limit failed records with an ephemeral consumer.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{messaging.SubjectDLQAll},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var out []FailedRecord
	for msg := range msgs.Messages() {
		var failed FailedRecord
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			q.logger.WarnContext(ctx, "failed to parse dlq message", logging.Error(err))
			continue
		}
		out = append(out, failed)
	}
	if err := msgs.Error(); err != nil {
		q.logger.WarnContext(ctx, "dlq fetch completed with error", logging.Error(err))
	}
	return out, nil
}

// Purge removes all messages from the DLQ stream. The returned count is the
// number of messages the stream held before the purge.
func (q *JetStreamQueue) Purge(ctx context.Context) (int, error) {
	if q == nil {
		return 0, fmt.Errorf("dlq not enabled")
	}

	var before int
	if info, err := q.stream.Info(ctx); err == nil {
		before = int(info.State.Msgs)
	}
	if err := q.stream.Purge(ctx); err != nil {
		return 0, fmt.Errorf("purge dlq stream: %w", err)
	}
	return before, nil
}
