package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/metrics"
)

// Membre sentinelle : un ensemble vide n'existe pas dans Redis,
// or "ne suit personne" est une réponse valide à mettre en cache.
const sentinel = "~"

// Ajout/retrait seulement si l'ensemble est déjà complet en cache :
// sinon on créerait un ensemble partiel pris pour la vérité.
var mutateIfPresent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call(ARGV[1], KEYS[1], ARGV[2])
	redis.call('EXPIRE', KEYS[1], ARGV[3])
	return 1
end
return 0
`)

// RedisFolloweeCache implémente ports.FolloweeCache (un SET par viewer).
type RedisFolloweeCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Collector
}

func NewRedisFolloweeCache(client *redis.Client, ttl time.Duration, m *metrics.Collector) *RedisFolloweeCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisFolloweeCache{client: client, ttl: ttl, metrics: m}
}

// NewClient ouvre la connexion Redis instrumentée (traces OTel).
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, fmt.Errorf("redis tracing: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func key(viewerID string) string {
	return fmt.Sprintf("followees:%s", viewerID)
}

func (c *RedisFolloweeCache) Get(ctx context.Context, viewerID string) ([]string, bool, error) {
	members, err := c.client.SMembers(ctx, key(viewerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, err
	}
	if len(members) == 0 {
		c.miss()
		return nil, false, nil
	}
	c.hit()
	return withoutSentinel(members), true, nil
}

// Set remplace l'ensemble complet en une transaction.
func (c *RedisFolloweeCache) Set(ctx context.Context, viewerID string, ids []string) error {
	k := key(viewerID)
	members := make([]any, 0, len(ids)+1)
	members = append(members, sentinel)
	for _, id := range ids {
		members = append(members, id)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.SAdd(ctx, k, members...)
		pipe.Expire(ctx, k, c.ttl)
		return nil
	})
	return err
}

func (c *RedisFolloweeCache) Add(ctx context.Context, viewerID, followeeID string) error {
	return c.mutate(ctx, "SADD", viewerID, followeeID)
}

func (c *RedisFolloweeCache) Remove(ctx context.Context, viewerID, followeeID string) error {
	return c.mutate(ctx, "SREM", viewerID, followeeID)
}

func (c *RedisFolloweeCache) Invalidate(ctx context.Context, viewerID string) error {
	return c.client.Del(ctx, key(viewerID)).Err()
}

func (c *RedisFolloweeCache) mutate(ctx context.Context, cmd, viewerID, followeeID string) error {
	ttl := int64(c.ttl / time.Second)
	return mutateIfPresent.Run(ctx, c.client, []string{key(viewerID)}, cmd, followeeID, ttl).Err()
}

func (c *RedisFolloweeCache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *RedisFolloweeCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func withoutSentinel(members []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != sentinel {
			out = append(out, m)
		}
	}
	return out
}
