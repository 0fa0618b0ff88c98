//go:build integration

package workers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func streamKey(t *testing.T, client *redis.Client) string {
	t.Helper()
	key := "test:rewards:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(context.Background(), key) })
	return key
}

// deliverUnacked hands n reward entries to consumer without acking them,
// as if the consumer crashed mid-batch.
func deliverUnacked(t *testing.T, client *redis.Client, key, consumer string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, client.XGroupCreateMkStream(ctx, key, "ledger", "$").Err())
	for i := 0; i < n; i++ {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: key, Values: rewardValues(fmt.Sprintf("-100:%d", i))}).Err())
	}
	entries, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group: "ledger", Consumer: consumer, Streams: []string{key, ">"}, Count: int64(n), Block: -1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, entries[0].Messages, n)
}

func TestRewardStreamWorker_ConsumesAndAcks(t *testing.T) {
	client := redisClient(t)
	f := newFixture(t)
	key := streamKey(t, client)
	f.worker = NewRewardStreamWorker(client, f.ledger, f.identities, StreamConfig{Key: key, Group: "ledger", Consumer: "t1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.worker.Start(ctx)

	// give the worker time to create the group at "$"
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: key, Values: rewardValues("-100:1")}).Err())

	assert.Eventually(t, func() bool {
		b, err := f.ledger.GetOrCreateBalance(ctx, 2, "STAR")
		return err == nil && b.Available().String() == "10"
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, key, "ledger").Result()
		return err == nil && pending.Count == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRewardStreamWorker_DrainsMoreThanOneBatch(t *testing.T) {
	client := redisClient(t)
	f := newFixture(t)
	key := streamKey(t, client)
	deliverUnacked(t, client, key, "t1", 15)

	w := NewRewardStreamWorker(client, f.ledger, f.identities, StreamConfig{Key: key, Group: "ledger", Consumer: "t1"})
	ctx := context.Background()
	assert.Equal(t, 15, w.DrainPending(ctx))

	// ten rewards of 10 empty the sender; the other five are final rejections
	assert.Equal(t, "100", f.available(t, 2))
	assert.Equal(t, "0", f.available(t, 1))

	pending, err := client.XPending(ctx, key, "ledger").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
	assert.Zero(t, w.DrainPending(ctx))
}

func TestRewardStreamWorker_ReclaimsFromDeadConsumer(t *testing.T) {
	client := redisClient(t)
	f := newFixture(t)
	key := streamKey(t, client)
	deliverUnacked(t, client, key, "crashed", 12)

	w := NewRewardStreamWorker(client, f.ledger, f.identities, StreamConfig{
		Key: key, Group: "ledger", Consumer: "t2", MinIdle: time.Millisecond,
	})
	ctx := context.Background()

	// nothing is pending for t2 itself
	assert.Zero(t, w.DrainPending(ctx))

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 12, w.Reclaim(ctx))
	assert.Equal(t, "100", f.available(t, 2))

	pending, err := client.XPending(ctx, key, "ledger").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}
