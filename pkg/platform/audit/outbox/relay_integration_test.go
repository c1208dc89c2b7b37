//go:build integration

package outbox_test

// Justification for integration tests:
// The relay's contract spans two real systems: rows written by the postgres
// audit store must arrive on the Kafka topic exactly once, keyed by resource
// for per-document ordering, and must be marked published afterwards.

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/outbox"
	auditpg "kycgate/pkg/platform/audit/store/postgres"
	"kycgate/pkg/testutil/containers"
)

const testTopic = "kycgate.audit"

func TestRelayPublishesOutboxRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	rp := containers.NewRedpandaContainer(t)

	store := auditpg.New(pg.DB)
	documentID := id.NewDocumentID()
	actor := id.NewUserID()

	entries := []audit.Entry{
		{
			Timestamp:    time.Now().UTC(),
			ActorID:      actor,
			Role:         id.RoleComplianceOfficer,
			Action:       audit.ActionDocumentUploaded,
			ResourceType: audit.ResourceDocument,
			ResourceID:   documentID.String(),
			Success:      true,
			Details:      map[string]any{"document_type": "PAN"},
		},
		{
			Timestamp:    time.Now().UTC(),
			ActorID:      actor,
			Role:         id.RoleComplianceOfficer,
			Action:       audit.ActionDocumentProcessed,
			ResourceType: audit.ResourceDocument,
			ResourceID:   documentID.String(),
			Success:      true,
		},
	}
	for _, entry := range entries {
		require.NoError(t, store.Append(ctx, entry))
	}

	relay, err := outbox.New(pg.DB, []string{rp.SeedBroker}, testTopic,
		outbox.WithPollInterval(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(relay.Close)

	runCtx, stopRelay := context.WithCancel(ctx)
	t.Cleanup(stopRelay)
	go func() { _ = relay.Run(runCtx) }()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.SeedBroker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var records []*kgo.Record
	for len(records) < len(entries) {
		fetches := consumer.PollFetches(pollCtx)
		require.Empty(t, fetches.Errors(), "consume audit topic")
		fetches.EachRecord(func(rec *kgo.Record) {
			records = append(records, rec)
		})
	}
	require.Len(t, records, len(entries))

	actions := make([]string, 0, len(records))
	for _, rec := range records {
		require.Equal(t, documentID.String(), string(rec.Key),
			"records are keyed by resource for per-document ordering")

		var payload struct {
			Action   string
			ActorID  string
			Category string
			Success  bool
		}
		require.NoError(t, json.Unmarshal(rec.Value, &payload))
		require.Equal(t, actor.String(), payload.ActorID)
		require.True(t, payload.Success)
		require.NotEmpty(t, payload.Category)
		actions = append(actions, payload.Action)
	}
	require.Equal(t, []string{audit.ActionDocumentUploaded, audit.ActionDocumentProcessed}, actions)

	// Relayed rows are marked published, so a second pass produces nothing.
	require.Eventually(t, func() bool {
		var pending int
		err := pg.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending)
		return err == nil && pending == 0
	}, 10*time.Second, 100*time.Millisecond)
}
