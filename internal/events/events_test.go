package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-backend/config"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisPublisher_Publish(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	p := NewRedisPublisher(client, "machinery:events", 100)

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	err := p.Publish(ctx, Event{
		Type:       AlertCreated,
		MachineID:  7,
		EntityID:   3,
		Actor:      "Ana Torres",
		OccurredAt: at,
		Data:       map[string]any{"priority": "critica"},
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "machinery:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, AlertCreated, values["type"])
	assert.Equal(t, "7", values["machine_id"])
	assert.NotEmpty(t, values["id"])

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, int64(3), decoded.EntityID)
	assert.Equal(t, "critica", decoded.Data["priority"])
	assert.True(t, decoded.OccurredAt.Equal(at))
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr, client := setupRedis(t)
	p := NewRedisPublisher(client, "machinery:events", 0)
	mr.Close()

	err := p.Publish(context.Background(), Event{Type: MachineCreated, MachineID: 1})
	assert.ErrorContains(t, err, "failed to publish machine.created")
}

func TestDial(t *testing.T) {
	mr, client := setupRedis(t)

	p, err := Dial(context.Background(), config.RedisConfig{Addr: mr.Addr(), Stream: "s"})
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Publish(context.Background(), Event{Type: MachineDeleted, MachineID: 2}))
	n, err := client.XLen(context.Background(), "s").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = Dial(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", Stream: "s"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Type: AlertResolved}))
}
