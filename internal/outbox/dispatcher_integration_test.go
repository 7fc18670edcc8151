//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestDispatcherDeliversAndMarksPublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	challengeID := uuid.NewString()
	userID := uuid.NewString()
	insertOutboxPayload(t, ctx, pool, challengeID, userID)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 100}
	dispatcher := NewDispatcher(pool, producer, registry, 5*time.Millisecond, 10)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	require.Equal(t, "challenge_activity_events", producer.topics[0])
	require.Equal(t, challengeID+":"+userID, string(msg.Key))

	// Confluent framing: magic byte, schema id, then the JSON payload.
	require.GreaterOrEqual(t, len(msg.Value), 5)
	require.Equal(t, byte(0), msg.Value[0])
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value[5:], &decoded))
	require.Equal(t, challengeID, decoded["challenge_id"])

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Equal(t, 0, unpublished)
}

func TestFailedDeliveryRoutesToDLQAndReplays(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	challengeID := uuid.NewString()
	userID := uuid.NewString()
	insertOutboxPayload(t, ctx, pool, challengeID, userID)

	registry := &stubRegistry{id: 100}

	// Initial dispatch fails and parks the message in the DLQ.
	failing := &stubProducer{err: errors.New("kafka unavailable")}
	dispatcher := NewDispatcher(pool, failing, registry, 5*time.Millisecond, 10)
	require.NoError(t, dispatcher.processBatch(ctx))

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	// The DLQ manager requeues the entry into the outbox.
	manager := NewDLQManager(pool, 5, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 0, dlqCount)

	// A healthy dispatch drains the requeued message.
	healthy := &stubProducer{}
	dispatcher = NewDispatcher(pool, healthy, registry, 5*time.Millisecond, 10)
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, healthy.messages, 1)
}

func TestDLQQuarantinesAfterRetryLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	// Entry already at the retry limit and missing schema_subject so a
	// requeue attempt cannot succeed either way.
	_, err := pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, retry_count)
         VALUES (1, 'activity.reconciled', 'challenge_activity_events', '{}', 'test', 5)`)
	require.NoError(t, err)

	manager := NewDLQManager(pool, 5, time.Second)
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("challenges"),
		postgrescontainer.WithUsername("challenge"),
		postgrescontainer.WithPassword("challenge"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	deadline := time.Now().Add(30 * time.Second)
	var pool *pgxpool.Pool
	for {
		pool, err = pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		require.False(t, time.Now().After(deadline), "database never became ready: %v", err)
		time.Sleep(time.Second)
	}

	for _, rel := range []string{
		"../../db/postgres/migrations/0001_init.up.sql",
		"../../db/postgres/migrations/0002_outbox_dlq.up.sql",
	} {
		_, file, _, ok := runtime.Caller(0)
		require.True(t, ok)
		contents, readErr := os.ReadFile(filepath.Join(filepath.Dir(file), rel))
		require.NoError(t, readErr)
		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}

	return pool, func() {
		pool.Close()
		_ = pg.Terminate(context.Background())
	}
}

func insertOutboxPayload(t *testing.T, ctx context.Context, pool *pgxpool.Pool, challengeID, userID string) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"activity_id":   uuid.NewString(),
		"challenge_id":  challengeID,
		"user_id":       userID,
		"activity_date": "2026-03-02",
		"steps":         7500,
		"source":        "apple_health",
		"occurred_at":   time.Now().UTC().Truncate(time.Second),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		"daily_activity",
		uuid.NewString(),
		"activity.reconciled",
		"challenge_activity_events",
		"challenge_activity_events-value",
		challengeID+":"+userID,
		payload,
	)
	require.NoError(t, err)
}

type stubProducer struct {
	err      error
	topics   []string
	messages []kafka.Message
}

func (p *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

type stubRegistry struct {
	id int
}

func (r *stubRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	return r.id, nil
}
