package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bundle-storefront/internal/core/domain"
)

const DefaultVerificationTTL = 10 * time.Minute

// VerificationCache remembers successful gateway verifications so repeated
// lookups of the same reference do not hit the gateway.
type VerificationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewVerificationCache(rdb *redis.Client, ttl time.Duration) *VerificationCache {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &VerificationCache{rdb: rdb, ttl: ttl}
}

func verificationKey(ref string) string {
	return "verify:" + ref
}

func (c *VerificationCache) Get(ctx context.Context, reference string) (domain.Verification, bool, error) {
	raw, err := c.rdb.Get(ctx, verificationKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Verification{}, false, nil
	}
	if err != nil {
		return domain.Verification{}, false, fmt.Errorf("redis GET failed: %w", err)
	}

	var v domain.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Verification{}, false, fmt.Errorf("decode cached verification: %w", err)
	}
	return v, true, nil
}

func (c *VerificationCache) Put(ctx context.Context, v domain.Verification) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	if err := c.rdb.Set(ctx, verificationKey(v.Reference), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}
