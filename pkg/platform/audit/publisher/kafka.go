// Package publisher relays outbox entries to Kafka. The relay polls the
// outbox table and produces each entry exactly once from the database's point
// of view; downstream consumers handle redelivery on the Kafka side.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	auditpg "creditnet/pkg/platform/audit/store/postgres"
)

const (
	// DefaultTopic carries every audit event; consumers fan out by the
	// Category field in the payload.
	DefaultTopic = "creditnet.audit"

	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// KafkaRelay moves audit events from the outbox table to Kafka.
type KafkaRelay struct {
	client       *kgo.Client
	outbox       *auditpg.Store
	topic        string
	logger       *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

type RelayOption func(*KafkaRelay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *KafkaRelay) { r.logger = logger }
}

func WithBatchSize(n int) RelayOption {
	return func(r *KafkaRelay) { r.batchSize = n }
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *KafkaRelay) { r.pollInterval = d }
}

// NewKafkaRelay connects to the brokers and ensures the audit topic exists.
func NewKafkaRelay(ctx context.Context, brokers []string, topic string, outbox *auditpg.Store, opts ...RelayOption) (*KafkaRelay, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	r := &KafkaRelay{
		client:       client,
		outbox:       outbox,
		topic:        topic,
		logger:       slog.Default(),
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, topic); err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	return nil
}

// Run polls the outbox until ctx is cancelled.
func (r *KafkaRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay batch failed", "error", err)
			}
		}
	}
}

func (r *KafkaRelay) relayBatch(ctx context.Context) error {
	entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(entries))
	for i, entry := range entries {
		records[i] = &kgo.Record{
			Key:   []byte(entry.EventID.String()),
			Value: entry.Payload,
		}
	}

	results := r.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]int64, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	if err := r.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
		// The batch was produced but not marked; the next poll will produce
		// duplicates. Consumers dedupe on the event ID key.
		return err
	}

	r.logger.DebugContext(ctx, "relayed audit events", "count", len(entries))
	return nil
}

// Close flushes and closes the Kafka client.
func (r *KafkaRelay) Close() {
	r.client.Close()
}
