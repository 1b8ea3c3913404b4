// Package validcache provides a read-through Redis cache in front of access
// token verification.
//
// Positive validations are cached under the raw token string for a fixed TTL.
// Negative validations are never cached, so a revoked or malformed token is
// re-checked on every call. EvictOwner clears the owner-keyed namespace only;
// a validation already cached under its token key keeps being served until
// its TTL elapses. Callers that need immediate owner-level revocation must
// account for this bounded staleness.
package validcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	validationKeyPrefix = "token_validation:"
	ownerKeyPrefix      = "user_tokens:"
)

// Result is the outcome of validating an access token.
type Result struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
}

// Verifier checks an access token's signature and expiry and returns the
// username it was issued for.
type Verifier interface {
	Verify(tokenStr string) (string, error)
}

// Cache is a read-through validation cache. It is safe for concurrent use.
type Cache struct {
	rdb      *redis.Client
	verifier Verifier
	ttl      time.Duration
	logger   *slog.Logger
}

// Config holds configuration for the cache.
type Config struct {
	Client   *redis.Client
	Verifier Verifier
	TTL      time.Duration // defaults to 5 minutes
	Logger   *slog.Logger
}

// New creates a Cache instance.
func New(cfg Config) (*Cache, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("verifier is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		rdb:      cfg.Client,
		verifier: cfg.Verifier,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Validate reports whether the access token is currently valid and for which
// owner. Cache hits are returned without recomputing; misses delegate to the
// verifier and cache the result only when it is positive. A cache outage
// degrades to direct verification, it never fails validation.
func (c *Cache) Validate(ctx context.Context, accessToken string) (Result, error) {
	key := validationKeyPrefix + accessToken

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var res Result
		if jsonErr := json.Unmarshal([]byte(cached), &res); jsonErr == nil {
			return res, nil
		}
		// Corrupt entry: drop it and fall through to verification.
		c.logger.WarnContext(ctx, "dropping corrupt validation cache entry")
		if delErr := c.rdb.Del(ctx, key).Err(); delErr != nil {
			c.logger.WarnContext(ctx, "failed to drop corrupt cache entry", "error", delErr.Error())
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "validation cache read failed", "error", err.Error())
	}

	username, verifyErr := c.verifier.Verify(accessToken)
	if verifyErr != nil {
		// Negative results are never cached so revocation is re-checked
		// on the next call.
		return Result{Valid: false}, nil
	}

	res := Result{Valid: true, Username: username}
	payload, err := json.Marshal(res)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode validation result: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "validation cache write failed", "error", err.Error())
	}

	return res, nil
}

// EvictOwner removes cached state for the owner-keyed namespace. Token-keyed
// positive validations are not covered by this key and age out on their own
// TTL (see the package comment).
func (c *Cache) EvictOwner(ctx context.Context, ownerKey string) error {
	if err := c.rdb.Del(ctx, ownerKeyPrefix+ownerKey).Err(); err != nil {
		return fmt.Errorf("failed to evict owner %q: %w", ownerKey, err)
	}
	return nil
}
