// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kontcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// Config is [Redis]'s connection configuration, loaded with
// github.com/caarlos0/env the way
// dmitrymomot-foundation/integration/database/redis documents its own
// identically-shaped Config — ConnectionURL plus retry/timeout knobs, all
// overridable by environment variable.
type Config struct {
	ConnectionURL  string        `env:"DOEFF_CACHE_REDIS_URL"`
	RetryAttempts  int           `env:"DOEFF_CACHE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"DOEFF_CACHE_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"DOEFF_CACHE_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// LoadConfig parses [Config] from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sentinel errors, matching the names and meaning
// dmitrymomot-foundation/integration/database/redis documents for its own
// Connect.
var (
	ErrEmptyConnectionURL   = errors.New("kontcache: empty redis connection URL")
	ErrFailedToParseConn    = errors.New("kontcache: failed to parse redis connection string")
	ErrRedisNotReady        = errors.New("kontcache: redis did not become ready within the given time period")
	ErrHealthcheckFailed    = errors.New("kontcache: redis healthcheck failed")
	ErrCacheValueNotDecoded = errors.New("kontcache: stored cache value could not be decoded")
)

// Redis is a [Store] backed by a *redis.Client. Values are encoded as JSON
// on Put and decoded into an any (map[string]any/[]any/etc. for composite
// values) on Get — a Cache entry survives a Redis round trip with the same
// fidelity any JSON value does, not with full Go type identity; callers
// storing a value narrower than any should decode it back into their own
// type themselves rather than type-asserting the returned any directly.
type Redis struct {
	client *redis.Client
}

// Connect dials cfg.ConnectionURL, retrying up to cfg.RetryAttempts times
// with cfg.RetryInterval between attempts and cfg.ConnectTimeout bounding
// each attempt's Ping — the same connect-retry-healthcheck shape
// dmitrymomot-foundation/integration/database/redis's own Connect
// documents.
func Connect(ctx context.Context, cfg Config) (*Redis, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToParseConn, err)
	}
	client := redis.NewClient(opts)

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &Redis{client: client}, nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("%w: %v", ErrRedisNotReady, lastErr)
}

// Healthcheck returns a function suitable for wiring into a readiness
// probe: it pings the underlying client and wraps a failure in
// [ErrHealthcheckFailed].
func Healthcheck(r *Redis) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := r.client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// Get implements [Store].
func (r *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCacheValueNotDecoded, err)
	}
	return v, true, nil
}

// Put implements [Store], encoding value as JSON with no expiry — the
// Cache effect (cache.go) does not model TTLs; an embedder wanting one
// should wrap [Redis] rather than this package growing an option for it.
func (r *Redis) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, 0).Err()
}

// Exists implements [Store].
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete implements [Store]. Deleting an absent key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
