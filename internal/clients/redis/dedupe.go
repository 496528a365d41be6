package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

// Deduper remembers inbound message ids for a while so redelivered webhooks
// can be dropped.
type Deduper interface {
	// FirstSeen records id and reports whether it was new.
	FirstSeen(ctx context.Context, id string) (bool, error)
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type redisDeduper struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewDeduper(log *logger.Logger, cfg Config) (Deduper, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisDeduper(log, rdb, cfg), nil
}

func newRedisDeduper(log *logger.Logger, rdb *goredis.Client, cfg Config) *redisDeduper {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "waxal:inbound:"
	}
	return &redisDeduper{
		log:    log.With("service", "RedisDeduper"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttlOrDefault(cfg.TTL),
	}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, fmt.Errorf("redis deduper not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return true, nil
	}
	ok, err := d.rdb.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (d *redisDeduper) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}

// memoryDeduper is the single-process fallback when no redis is configured.
type memoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryDeduper(ttl time.Duration) Deduper {
	return &memoryDeduper{
		seen: map[string]time.Time{},
		ttl:  ttlOrDefault(ttl),
		now:  time.Now,
	}
}

func (d *memoryDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return true, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if now.Sub(d.lastSweep) > d.ttl {
		for k, exp := range d.seen {
			if !now.Before(exp) {
				delete(d.seen, k)
			}
		}
		d.lastSweep = now
	}
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return true, nil
}

func (d *memoryDeduper) Close() error { return nil }
