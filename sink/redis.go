package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/dhcgn/mailbody/model"
)

type pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Redis appends each result as JSON to a list.
type Redis struct {
	client pusher
	closer func() error
	key    string
}

func OpenRedis(ctx context.Context, addr, password, key string) (*Redis, error) {
	if addr == "" || key == "" {
		return nil, fmt.Errorf("redis sink needs an address and a key")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{client: client, closer: client.Close, key: key}, nil
}

func (r *Redis) Write(ctx context.Context, res model.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return r.client.RPush(ctx, r.key, data).Err()
}

func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
