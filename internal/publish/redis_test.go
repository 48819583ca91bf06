package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisPublisherForTest(t *testing.T) (*RedisPublisher, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.Nop()
	return NewRedisPublisher(client, time.Hour, &logger), s, client
}

func waitForKey(t *testing.T, s *miniredis.Miniredis, key string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Exists(key) {
			v, err := s.Get(key)
			require.NoError(t, err)
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("key %s never appeared", key)
	return ""
}

func TestRedisPublisherMirrorsQueue(t *testing.T) {
	p, s, _ := newRedisPublisherForTest(t)

	p.PublishQueue([]models.Mutation{
		{ID: "m-1", Kind: models.KindUpsertRow, OwnerID: "alice", Status: models.MutationPending},
	})

	raw := waitForKey(t, s, redisQueueKey)
	var mirrored []models.Mutation
	require.NoError(t, json.Unmarshal([]byte(raw), &mirrored))
	require.Len(t, mirrored, 1)
	assert.Equal(t, "m-1", mirrored[0].ID)
}

func TestRedisPublisherMirrorsStatus(t *testing.T) {
	p, s, _ := newRedisPublisherForTest(t)

	p.PublishStatus(models.StatusSaving)

	raw := waitForKey(t, s, redisStatusKey)
	assert.Equal(t, string(models.StatusSaving), raw)
}

func TestRedisPublisherPublishesLogEntries(t *testing.T) {
	p, _, client := newRedisPublisherForTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, redisLogChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p.PublishLog(models.LogEntry{
		MutationID: "m-1",
		Kind:       models.KindSaveStats,
		Timestamp:  time.Now(),
		Status:     models.LogSynced,
	})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var entry models.LogEntry
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &entry))
	assert.Equal(t, "m-1", entry.MutationID)
	assert.Equal(t, models.LogSynced, entry.Status)
}

func TestRedisPublisherEntersCooldownWhenDown(t *testing.T) {
	p, s, _ := newRedisPublisherForTest(t)

	s.Close()
	p.PublishStatus(models.StatusIdle)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !p.isDown.Load() {
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, p.isDown.Load(), "a failed publish must enter cooldown")

	// While in cooldown further publishes are skipped without blocking.
	p.PublishStatus(models.StatusSaving)
	assert.True(t, p.skip())
}

func TestPingReportsConnectivity(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	require.NoError(t, Ping(context.Background(), client))

	s.Close()
	require.Error(t, Ping(context.Background(), client))
}
