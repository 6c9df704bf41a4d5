// Package redis caches parse results in Redis, keyed by locale and a digest
// of the request text.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
	"golang.org/x/sync/singleflight"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Serializer encodes cached values.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonSerializer struct{}

func (s *jsonSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (s *jsonSerializer) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// ParseCache stores complete parse results, taxonomy entities included.
type ParseCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	ttl        time.Duration
	jitter     float64
	serializer Serializer
	group      singleflight.Group

	loadTimeout time.Duration
}

type CacheOption func(*ParseCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *ParseCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ParseCache) { c.ttl = ttl }
}

// WithTTLJitter spreads expiry by +/- fraction of the TTL. Zero disables it.
func WithTTLJitter(fraction float64) CacheOption {
	return func(c *ParseCache) { c.jitter = fraction }
}

// WithLoadTimeout bounds a shared load. Zero leaves it unbounded.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *ParseCache) { c.loadTimeout = d }
}

func WithSerializer(s Serializer) CacheOption {
	return func(c *ParseCache) { c.serializer = s }
}

// NewParseCache returns a cache on client.
func NewParseCache(client *Client, log logging.Logger, opts ...CacheOption) *ParseCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &ParseCache{
		client:     client,
		logger:     log,
		prefix:     "multinlu:parse:",
		ttl:        10 * time.Minute,
		jitter:     0.1,
		serializer: &jsonSerializer{},

		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for a locale and text.
func (c *ParseCache) Key(locale, text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + locale + ":" + hex.EncodeToString(sum[:])
}

func (c *ParseCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 || c.jitter == 0 {
		return ttl
	}
	delta := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

// Get returns the cached result for locale and text, or ErrCacheMiss.
func (c *ParseCache) Get(ctx context.Context, locale, text string) (nlu.ParseResult, error) {
	data, err := c.client.Get(ctx, c.Key(locale, text)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	var result nlu.ParseResult
	if err := c.serializer.Unmarshal(data, &result); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return result, nil
}

// Set stores result for locale and text.
func (c *ParseCache) Set(ctx context.Context, locale, text string, result nlu.ParseResult) error {
	data, err := c.serializer.Marshal(result)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Set(ctx, c.Key(locale, text), data, c.jitterTTL(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write cache")
	}
	return nil
}

// GetOrLoad returns the cached result or calls load once per key, even when
// many callers miss at the same time. The shared load does not inherit the
// cancellation of whichever caller started it; each caller stops waiting
// when its own ctx ends. Cache write failures are logged only.
func (c *ParseCache) GetOrLoad(ctx context.Context, locale, text string,
	load func(ctx context.Context) (nlu.ParseResult, error)) (nlu.ParseResult, bool, error) {

	result, err := c.Get(ctx, locale, text)
	if err == nil {
		return result, true, nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("parse cache read failed", logging.String("locale", locale), logging.Err(err))
	}

	ch := c.group.DoChan(c.Key(locale, text), func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		if c.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, c.loadTimeout)
			defer cancel()
		}
		loaded, loadErr := load(loadCtx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(loadCtx, locale, text, loaded); setErr != nil {
			c.logger.Warn("parse cache write failed", logging.String("locale", locale), logging.Err(setErr))
		}
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		// Concurrent callers share the loaded map; hand each its own copy.
		return res.Val.(nlu.ParseResult).Clone(), false, nil
	}
}

// InvalidateLocale removes every cached result of locale and returns the
// number of keys deleted.
func (c *ParseCache) InvalidateLocale(ctx context.Context, locale string) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + locale + ":*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache scan failed")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Ping checks the connection.
func (c *ParseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

//Personal.AI order the ending
