package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestChartCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewChartCache(time.Minute)
	cache.now = func() time.Time { return now }
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender("key", func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func TestKVChartCacheMissThenHit(t *testing.T) {
	kv := newFakeKV()
	cache := NewKVChartCache(kv, time.Minute, WithKeyPrefix("test:"))
	calls := 0
	render := func() (string, error) {
		calls++
		return "<div>chart</div>", nil
	}

	first, err := cache.GetOrRender("w1", render)
	require.NoError(t, err)
	second, err := cache.GetOrRender("w1", render)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "<div>chart</div>", kv.data["test:w1"])
	assert.Equal(t, time.Minute, kv.ttls["test:w1"])
}

func TestKVChartCacheDegradesOnStoreErrors(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	var ops []string
	cache := NewKVChartCache(kv, time.Minute, WithStoreErrorHook(func(op string, err error) {
		ops = append(ops, op)
	}))

	html, err := cache.GetOrRender("w1", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.Equal(t, []string{"get", "set"}, ops)
}

func TestKVChartCacheWithoutStoreRendersEveryTime(t *testing.T) {
	cache := NewKVChartCache(nil, time.Minute)
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := cache.GetOrRender("w1", func() (string, error) {
			calls++
			return "x", nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestConfigHashIsDeterministic(t *testing.T) {
	a := configHash(map[string]any{"b": 1, "a": []string{"x"}})
	b := configHash(map[string]any{"a": []string{"x"}, "b": 1})
	assert.Equal(t, a, b)
	assert.Equal(t, "empty", configHash(map[string]any{}))
	assert.NotEqual(t, a, configHash(map[string]any{"b": 2}))
}
