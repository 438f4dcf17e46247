// Package lock provides a Redis backed mutual exclusion for scheduler runs.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "crosspost:scheduler:run"

// Only the holder's token may delete the key, so an expired lock taken over by
// another run is never released from under it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			slog.Warn("failed to release scheduler lock", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}
