// Package outbox relays audit entries from the postgres outbox table to
// Kafka. The relay is the only producer to the audit topic; downstream
// consumers materialize entries back into audit_entries for querying.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Relay polls the outbox table and publishes unpublished rows to Kafka.
// Rows are locked with SKIP LOCKED so multiple relay instances can run.
type Relay struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	batch    int
	interval time.Duration
}

// Option configures the Relay.
type Option func(*Relay)

// WithLogger sets a logger for relay diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

// WithBatchSize overrides how many rows are relayed per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batch = n }
}

// WithPollInterval overrides the poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// New connects to Kafka, ensures the audit topic exists, and returns a relay
// ready to Run.
func New(db *sql.DB, brokers []string, topic string, opts ...Option) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(context.Background(), client, topic); err != nil {
		client.Close()
		return nil, err
	}

	r := &Relay{
		db:       db,
		client:   client,
		topic:    topic,
		batch:    defaultBatchSize,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	_, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure audit topic: %w", err)
	}
	return nil
}

// Run polls until the context is cancelled. A failed batch is logged and
// retried on the next tick; rows stay unpublished until produce succeeds.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				}
			}
		}
	}
}

type outboxRow struct {
	id          string
	eventType   string
	aggregateID string
	payload     []byte
}

func (r *Relay) relayBatch(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // commit path below

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_type, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batch)
	if err != nil {
		return fmt.Errorf("select outbox rows: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.eventType, &row.aggregateID, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pending) == 0 {
		return tx.Commit()
	}

	records := make([]*kgo.Record, 0, len(pending))
	for _, row := range pending {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			// Keying by aggregate keeps per-resource ordering within a partition.
			Key:   []byte(row.aggregateID),
			Value: row.payload,
		})
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}

	ids := make([]any, 0, len(pending))
	placeholders := ""
	for i, row := range pending {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		ids = append(ids, row.id)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE outbox SET published_at = NOW() WHERE id IN ("+placeholders+")",
		ids...,
	); err != nil {
		return fmt.Errorf("mark outbox rows published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox tx: %w", err)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "relayed audit batch", "count", len(pending))
	}
	return nil
}

// Close releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
