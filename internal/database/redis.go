package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients splits the two redis roles onto separate connections: Queue
// carries the insight job list and job status records, PubSub carries the
// per-user update channels the WebSocket hub subscribes to. A subscriber
// connection is unusable for commands, hence the split.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient, err := connectRedis(ctx, opt, "queue")
	if err != nil {
		return nil, err
	}

	pubsubClient, err := connectRedis(ctx, opt, "pubsub")
	if err != nil {
		queueClient.Close()
		return nil, err
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

// connectRedis opens a dedicated client for one role and verifies it before
// handing it out. Each call copies the options so the clients never share
// connection state.
func connectRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	roleOpt := *opt
	client := redis.NewClient(&roleOpt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
