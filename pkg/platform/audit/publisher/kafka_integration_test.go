//go:build integration

package publisher_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "creditnet/pkg/domain"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/platform/audit/publisher"
	auditpg "creditnet/pkg/platform/audit/store/postgres"
	"creditnet/pkg/testutil/containers"
)

const relayTestTopic = "creditnet.audit.relay-test"

type KafkaRelaySuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	broker string
	db     *sql.DB
	outbox *auditpg.Store
}

func TestKafkaRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaRelaySuite))
}

func (s *KafkaRelaySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker

	db, err := sql.Open("postgres", s.pg.URL)
	s.Require().NoError(err)
	s.db = db
	s.outbox = auditpg.New(db)
}

func (s *KafkaRelaySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *KafkaRelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *KafkaRelaySuite) appendEvent(action audit.AuditEvent, subject string) {
	err := s.outbox.Append(context.Background(), audit.Event{
		Timestamp: time.Now().UTC(),
		TenantID:  id.TenantID{},
		Subject:   subject,
		Action:    string(action),
		Detail:    "integration",
		RequestID: "req-relay-test",
	})
	s.Require().NoError(err)
}

func (s *KafkaRelaySuite) TestRelayPublishesOutboxEntries() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.appendEvent(audit.EventTenantRegistered, "")
	s.appendEvent(audit.EventScoreAccessed, "buyer-digest")

	relay, err := publisher.NewKafkaRelay(ctx, []string{s.broker}, relayTestTopic, s.outbox,
		publisher.WithPollInterval(50*time.Millisecond),
		publisher.WithBatchSize(10),
	)
	s.Require().NoError(err)
	defer relay.Close()

	runCtx, stopRelay := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(runCtx)
	}()

	s.Eventually(func() bool {
		entries, err := s.outbox.FetchUnpublished(context.Background(), 10)
		return err == nil && len(entries) == 0
	}, 10*time.Second, 100*time.Millisecond, "outbox drains")

	stopRelay()
	<-done

	records := s.consumeAll(ctx, 2)
	s.Require().Len(records, 2)

	actions := make(map[string]string)
	for _, record := range records {
		var payload struct {
			ID       string `json:"ID"`
			Category string `json:"Category"`
			Action   string `json:"Action"`
			Subject  string `json:"Subject"`
		}
		s.Require().NoError(json.Unmarshal(record.Value, &payload))
		s.Equal(payload.ID, string(record.Key), "record keyed by event ID")
		actions[payload.Action] = payload.Category
	}
	s.Equal("compliance", actions["network_tenant_registered"])
	s.Equal("operations", actions["network_score_accessed"])
}

func (s *KafkaRelaySuite) TestEmptyOutboxProducesNothing() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay, err := publisher.NewKafkaRelay(ctx, []string{s.broker}, relayTestTopic, s.outbox,
		publisher.WithPollInterval(50*time.Millisecond),
	)
	s.Require().NoError(err)
	defer relay.Close()

	runCtx, stopRelay := context.WithTimeout(ctx, 300*time.Millisecond)
	defer stopRelay()
	_ = relay.Run(runCtx)

	entries, err := s.outbox.FetchUnpublished(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

// consumeAll reads from the start of the test topic until want records arrive
// or the deadline passes.
func (s *KafkaRelaySuite) consumeAll(ctx context.Context, want int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(relayTestTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline := time.Now().Add(10 * time.Second)
	var records []*kgo.Record
	for len(records) < want && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, time.Second)
		fetches := client.PollFetches(pollCtx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	return records
}
