package store

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"questboard/internal/model"
)

// Backend is the store contract the cache wraps.
type Backend interface {
	FetchSnapshot(ctx context.Context) (model.Snapshot, error)
	UpsertNote(ctx context.Context, n model.Note) error
	DeleteNote(ctx context.Context, id string) error
	CreateTag(ctx context.Context, t model.Tag) error
	DeleteTag(ctx context.Context, name string) error
	CreatePlayer(ctx context.Context, name string) error
	SetLock(ctx context.Context, locked bool) error
}

const (
	// SnapshotCacheKey is where the cached board snapshot lives in redis.
	SnapshotCacheKey = "questboard:snapshot"
	// SnapshotGenKey counts mutations. A cached snapshot is only served while
	// the counter still matches the value read before the backend was.
	SnapshotGenKey = "questboard:snapshot:gen"
)

// cachedSnapshot is the redis value: the snapshot and the generation it was
// read under.
type cachedSnapshot struct {
	Gen      int64          `json:"gen"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// Cache serves FetchSnapshot from redis and invalidates on every mutation.
// Redis errors never fail a call; the backend answers instead.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
	log   log.FieldLogger
}

// NewCache wraps base. A nil client or zero ttl disables caching.
func NewCache(base Backend, client *redis.Client, ttl time.Duration, logger log.FieldLogger) *Cache {
	if base == nil {
		panic("store.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, log: logger}
}

// FetchSnapshot answers from redis when the cached entry belongs to the
// current generation. A snapshot read from the backend is tagged with the
// generation seen before the read, so one that raced a mutation is never
// served afterwards.
func (c *Cache) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	snap, gen, ok := c.load(ctx)
	if ok {
		return snap, nil
	}
	snap, err := c.base.FetchSnapshot(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	if gen >= 0 {
		c.store(ctx, snap, gen)
	}
	return snap, nil
}

func (c *Cache) UpsertNote(ctx context.Context, n model.Note) error {
	return c.mutate(ctx, func() error { return c.base.UpsertNote(ctx, n) })
}

func (c *Cache) DeleteNote(ctx context.Context, id string) error {
	return c.mutate(ctx, func() error { return c.base.DeleteNote(ctx, id) })
}

func (c *Cache) CreateTag(ctx context.Context, t model.Tag) error {
	return c.mutate(ctx, func() error { return c.base.CreateTag(ctx, t) })
}

func (c *Cache) DeleteTag(ctx context.Context, name string) error {
	return c.mutate(ctx, func() error { return c.base.DeleteTag(ctx, name) })
}

func (c *Cache) CreatePlayer(ctx context.Context, name string) error {
	return c.mutate(ctx, func() error { return c.base.CreatePlayer(ctx, name) })
}

func (c *Cache) SetLock(ctx context.Context, locked bool) error {
	return c.mutate(ctx, func() error { return c.base.SetLock(ctx, locked) })
}

func (c *Cache) mutate(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// load reads the cached entry and the current generation in one round trip.
// On a miss it still returns the generation so the caller can tag what it
// stores; gen is -1 when nothing may be stored.
func (c *Cache) load(ctx context.Context) (model.Snapshot, int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return model.Snapshot{}, -1, false
	}
	vals, err := c.redis.MGet(ctx, SnapshotGenKey, SnapshotCacheKey).Result()
	if err != nil {
		c.log.WithError(err).Warn("snapshot cache read failed")
		return model.Snapshot{}, -1, false
	}
	var gen int64
	if s, ok := vals[0].(string); ok {
		gen, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.log.WithError(err).Warn("snapshot cache generation unreadable")
			return model.Snapshot{}, -1, false
		}
	}
	data, ok := vals[1].(string)
	if !ok {
		return model.Snapshot{}, gen, false
	}
	var entry cachedSnapshot
	if err := sonic.ConfigStd.UnmarshalFromString(data, &entry); err != nil {
		_ = c.redis.Del(ctx, SnapshotCacheKey).Err()
		return model.Snapshot{}, gen, false
	}
	if entry.Gen != gen {
		return model.Snapshot{}, gen, false
	}
	return entry.Snapshot, gen, true
}

func (c *Cache) store(ctx context.Context, snap model.Snapshot, gen int64) {
	data, err := sonic.ConfigStd.Marshal(cachedSnapshot{Gen: gen, Snapshot: snap})
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, SnapshotCacheKey, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("snapshot cache write failed")
	}
}

// invalidate bumps the generation, which retires any entry written by a read
// that overlapped the mutation, then drops the current entry.
func (c *Cache) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, SnapshotGenKey)
		pipe.Del(ctx, SnapshotCacheKey)
		return nil
	})
	if err != nil {
		c.log.WithError(err).Warn("snapshot cache invalidate failed")
	}
}
