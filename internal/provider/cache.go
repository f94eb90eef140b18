package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"papertrade/internal/logger"
)

// ErrCacheMiss is returned by a QuoteCache that has no entry for a symbol.
var ErrCacheMiss = errors.New("quote cache miss")

// QuoteCache stores recent quotes keyed by symbol.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (Quote, error)
	Set(ctx context.Context, quote Quote) error
}

// RedisQuoteCache keeps quotes in Redis with a fixed TTL.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuoteCache creates a Redis-backed quote cache.
func NewRedisQuoteCache(client *redis.Client, ttl time.Duration) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: ttl}
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("stock:%s:quote", strings.ToUpper(symbol))
}

// Get returns the cached quote for symbol, or ErrCacheMiss.
func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (Quote, error) {
	val, err := c.client.Get(ctx, quoteKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return Quote{}, ErrCacheMiss
	}
	if err != nil {
		return Quote{}, fmt.Errorf("redis get: %w", err)
	}

	var q Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		return Quote{}, fmt.Errorf("decoding cached quote: %w", err)
	}
	return q, nil
}

// Set stores quote until the TTL elapses.
func (c *RedisQuoteCache) Set(ctx context.Context, quote Quote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}
	if err := c.client.Set(ctx, quoteKey(quote.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CachedSource serves quotes from a QuoteCache and falls through to an
// underlying Source on a miss. Cache failures are logged and treated as misses.
type CachedSource struct {
	inner Source
	cache QuoteCache
}

// NewCachedSource wraps inner with cache.
func NewCachedSource(inner Source, cache QuoteCache) *CachedSource {
	return &CachedSource{inner: inner, cache: cache}
}

// Name returns the wrapped source's name.
func (s *CachedSource) Name() string { return s.inner.Name() }

// Quote returns a cached quote when present, otherwise fetches and caches one.
func (s *CachedSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	if q, ok := s.lookup(ctx, symbol); ok {
		return q, nil
	}
	q, err := s.inner.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	s.store(ctx, q)
	return q, nil
}

// Quotes serves hits from the cache and fetches only the misses.
func (s *CachedSource) Quotes(ctx context.Context, symbols []string) BatchResult {
	result := BatchResult{Quotes: make(map[string]Quote, len(symbols))}

	var misses []string
	for _, sym := range symbols {
		if q, ok := s.lookup(ctx, sym); ok {
			result.Quotes[sym] = q
			continue
		}
		misses = append(misses, sym)
	}
	if len(misses) == 0 {
		return result
	}

	fetched := s.inner.Quotes(ctx, misses)
	for sym, q := range fetched.Quotes {
		s.store(ctx, q)
		result.Quotes[sym] = q
	}
	result.Errors = append(result.Errors, fetched.Errors...)
	return result
}

// History is not cached.
func (s *CachedSource) History(ctx context.Context, symbol, period string) ([]Bar, error) {
	return s.inner.History(ctx, symbol, period)
}

func (s *CachedSource) lookup(ctx context.Context, symbol string) (Quote, bool) {
	q, err := s.cache.Get(ctx, symbol)
	if err == nil {
		return q, true
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Get().Warnw("quote cache read failed", "symbol", symbol, "error", err)
	}
	return Quote{}, false
}

func (s *CachedSource) store(ctx context.Context, q Quote) {
	if err := s.cache.Set(ctx, q); err != nil {
		logger.Get().Warnw("quote cache write failed", "symbol", q.Symbol, "error", err)
	}
}

// Fresh returns a Source that bypasses any quote cache wrapped around src.
// Trade execution prices must come from a live fetch.
func Fresh(src Source) Source {
	if c, ok := src.(*CachedSource); ok {
		return c.inner
	}
	return src
}
