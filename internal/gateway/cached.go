package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskie/backend/internal/cache"
	"taskie/backend/internal/models"
)

// CachedGateway decorates a RemoteGateway with an owner-keyed redis cache on
// the list queries. The cache is strictly best-effort: a breaker keeps a sick
// redis from slowing requests, and every cache error degrades to the inner
// gateway rather than failing the call.
type CachedGateway struct {
	inner   RemoteGateway
	cache   *cache.RedisCache
	breaker *cache.Breaker
	ttl     time.Duration
}

func NewCachedGateway(inner RemoteGateway, redisCache *cache.RedisCache, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedGateway{
		inner:   inner,
		cache:   redisCache,
		breaker: cache.NewBreaker(3, 30*time.Second),
		ttl:     ttl,
	}
}

func taskListKey(ownerID string) string   { return fmt.Sprintf("tasks:owner:%s", ownerID) }
func memberListKey(ownerID string) string { return fmt.Sprintf("members:owner:%s", ownerID) }

func (g *CachedGateway) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if g.cache == nil || !g.breaker.Allow() {
		return false
	}
	err := g.cache.Get(ctx, key, dest)
	if err == nil {
		g.breaker.Success()
		return true
	}
	if err == cache.ErrCacheMiss {
		g.breaker.Success()
		return false
	}
	g.breaker.Failure()
	return false
}

func (g *CachedGateway) cacheSet(ctx context.Context, key string, value interface{}) {
	if g.cache == nil || !g.breaker.Allow() {
		return
	}
	if err := g.cache.Set(ctx, key, value, g.ttl); err != nil {
		g.breaker.Failure()
		return
	}
	g.breaker.Success()
}

func (g *CachedGateway) invalidate(ctx context.Context, keys ...string) {
	if g.cache == nil || !g.breaker.Allow() {
		return
	}
	if err := g.cache.Delete(ctx, keys...); err != nil {
		g.breaker.Failure()
		log.Printf("Cache invalidation failed: %v", err)
		return
	}
	g.breaker.Success()
}

func (g *CachedGateway) QueryTasksByOwner(ctx context.Context, ownerID string) ([]models.TaskRecord, error) {
	key := taskListKey(ownerID)

	var cached []models.TaskRecord
	if g.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	records, err := g.inner.QueryTasksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	g.cacheSet(ctx, key, records)
	return records, nil
}

func (g *CachedGateway) InsertTask(ctx context.Context, rec models.TaskRecord) (models.TaskRecord, error) {
	inserted, err := g.inner.InsertTask(ctx, rec)
	if err != nil {
		return models.TaskRecord{}, err
	}
	g.invalidate(ctx, taskListKey(inserted.UserID))
	return inserted, nil
}

func (g *CachedGateway) UpdateTask(ctx context.Context, id, ownerID string, rec models.TaskRecord) error {
	if err := g.inner.UpdateTask(ctx, id, ownerID, rec); err != nil {
		return err
	}
	g.invalidate(ctx, taskListKey(ownerID))
	return nil
}

func (g *CachedGateway) DeleteTask(ctx context.Context, id, ownerID string) error {
	if err := g.inner.DeleteTask(ctx, id, ownerID); err != nil {
		return err
	}
	g.invalidate(ctx, taskListKey(ownerID))
	return nil
}

func (g *CachedGateway) QueryMembersByOwner(ctx context.Context, ownerID string) ([]models.TeamMember, error) {
	key := memberListKey(ownerID)

	var cached []models.TeamMember
	if g.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	members, err := g.inner.QueryMembersByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	g.cacheSet(ctx, key, members)
	return members, nil
}

func (g *CachedGateway) InsertMember(ctx context.Context, member models.TeamMember) (models.TeamMember, error) {
	inserted, err := g.inner.InsertMember(ctx, member)
	if err != nil {
		return models.TeamMember{}, err
	}
	g.invalidate(ctx, memberListKey(inserted.OwnerID))
	return inserted, nil
}

func (g *CachedGateway) UpdateMember(ctx context.Context, id, ownerID string, member models.TeamMember) error {
	if err := g.inner.UpdateMember(ctx, id, ownerID, member); err != nil {
		return err
	}
	g.invalidate(ctx, memberListKey(ownerID))
	return nil
}

func (g *CachedGateway) DeleteMember(ctx context.Context, id, ownerID string) error {
	if err := g.inner.DeleteMember(ctx, id, ownerID); err != nil {
		return err
	}
	g.invalidate(ctx, memberListKey(ownerID))
	return nil
}

func (g *CachedGateway) ProbeConnectivity(ctx context.Context) ProbeResult {
	return g.inner.ProbeConnectivity(ctx)
}

func (g *CachedGateway) Stats() map[string]interface{} {
	stats := map[string]interface{}{"breaker": g.breaker.Stats()}
	if g.cache != nil {
		stats["redis"] = g.cache.Stats()
	}
	return stats
}
