package reports

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RenderCache memoizes rendered chart HTML so repeated renders are cheap.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedChart
	now     func() time.Time
}

type cachedChart struct {
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:     ttl,
		entries: make(map[string]cachedChart),
		now:     time.Now,
	}
}

// GetOrRender returns a cached entry or renders and stores a new one.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Len returns the number of live entries.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ChartCache) get(key string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) set(key, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedChart{
		html:    html,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// ErrCacheMiss is returned by KVStore implementations for absent keys.
var ErrCacheMiss = errors.New("reports: cache miss")

// KVStore is the string key/value surface the shared chart cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKVStore implements KVStore on a go-redis client.
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore wraps client.
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// NewRedisClient opens a client for addr. The connection is lazy; call Ping to check it.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the redis connection.
func (r *RedisKVStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}

// KVChartCache shares rendered charts across processes through a KVStore.
// Store failures degrade to rendering; they are never returned.
type KVChartCache struct {
	store   KVStore
	ttl     time.Duration
	prefix  string
	timeout time.Duration
	onError func(op string, err error)
}

// KVChartCacheOption customizes a KVChartCache.
type KVChartCacheOption func(*KVChartCache)

// WithKeyPrefix namespaces cache keys.
func WithKeyPrefix(prefix string) KVChartCacheOption {
	return func(c *KVChartCache) { c.prefix = prefix }
}

// WithStoreErrorHook observes store failures, e.g. to log them.
func WithStoreErrorHook(fn func(op string, err error)) KVChartCacheOption {
	return func(c *KVChartCache) { c.onError = fn }
}

// NewKVChartCache builds a cache over store.
func NewKVChartCache(store KVStore, ttl time.Duration, opts ...KVChartCacheOption) *KVChartCache {
	c := &KVChartCache{
		store:   store,
		ttl:     ttl,
		prefix:  "reports:chart:",
		timeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRender returns the stored entry or renders and stores a new one.
func (c *KVChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c.store == nil || c.ttl <= 0 {
		return render()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	html, err := c.store.Get(ctx, c.prefix+key)
	if err == nil {
		return html, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.report("get", err)
	}

	html, err = render()
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, c.prefix+key, html, c.ttl); err != nil {
		c.report("set", err)
	}
	return html, nil
}

func (c *KVChartCache) report(op string, err error) {
	if c.onError != nil {
		c.onError(op, err)
	}
}

// configHash returns a deterministic hash for a chart configuration.
func configHash(cfg any) string {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "invalid"
	}
	if string(b) == "null" || string(b) == "{}" {
		return "empty"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
