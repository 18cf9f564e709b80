package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/tabi/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores encoded result sets.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.items.Set(key, value, ttl)
}

// RedisCache shares cached results between tabi instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "tabi:search:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Search cache read failed", "error", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		slog.Warn("Search cache write failed", "error", err)
	}
}

// CachedProvider serves repeated queries from a Cache. Empty results are
// never cached so a transient provider failure is not remembered.
type CachedProvider struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

var _ Provider = (*CachedProvider)(nil)

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

func (p *CachedProvider) SearchFlights(ctx context.Context, q FlightQuery) Results[Flight] {
	q.Origin, q.Destination = strings.ToUpper(q.Origin), strings.ToUpper(q.Destination)
	return cached(ctx, p, DomainFlights, q, func() Results[Flight] { return p.next.SearchFlights(ctx, q) })
}

func (p *CachedProvider) SearchHotels(ctx context.Context, q HotelQuery) Results[Hotel] {
	return cached(ctx, p, DomainHotels, q, func() Results[Hotel] { return p.next.SearchHotels(ctx, q) })
}

func (p *CachedProvider) SearchPOI(ctx context.Context, q PlaceQuery) Results[Place] {
	return cached(ctx, p, DomainPOI, q, func() Results[Place] { return p.next.SearchPOI(ctx, q) })
}

func (p *CachedProvider) SearchRestaurants(ctx context.Context, q PlaceQuery) Results[Restaurant] {
	return cached(ctx, p, DomainRestaurants, q, func() Results[Restaurant] { return p.next.SearchRestaurants(ctx, q) })
}

func (p *CachedProvider) GetWeather(ctx context.Context, q WeatherQuery) Results[WeatherDay] {
	return cached(ctx, p, DomainWeather, q, func() Results[WeatherDay] { return p.next.GetWeather(ctx, q) })
}

func cached[Q, T any](ctx context.Context, p *CachedProvider, domain Domain, q Q, fetch func() Results[T]) Results[T] {
	key, err := cacheKey(domain, q)
	if err != nil {
		return fetch()
	}

	if raw, ok := p.cache.Get(ctx, key); ok {
		var res Results[T]
		if err := json.Unmarshal(raw, &res); err == nil {
			metrics.ProviderCacheHits.WithLabelValues(string(domain)).Inc()
			return res
		}
	}

	res := fetch()
	if len(res.Data) == 0 {
		return res
	}
	if raw, err := json.Marshal(res); err == nil {
		p.cache.Set(ctx, key, raw, p.ttl)
	}
	return res
}

func cacheKey(domain Domain, q any) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return string(domain) + ":" + strings.ToLower(hex.EncodeToString(sum[:16])), nil
}
