package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares held keys across register replicas. The TTL bounds how
// long a crashed holder can block a session.
type RedisGuard struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisGuard(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, prefix: "pos:checkout:inflight:", logger: logger}
}

func (g *RedisGuard) Key(key string) string {
	return g.prefix + key
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	k := g.Key(key)

	ok, err := g.rdb.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx %s: %w", k, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, g.rdb, []string{k}, token).Err(); err != nil {
			g.logger.Warn("release submission guard", zap.String("key", k), zap.Error(err))
		}
	}, nil
}
