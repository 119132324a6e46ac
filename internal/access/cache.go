package access

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Cache stores positive permission decisions in Redis. Company state is not
// cached and is read on every request.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type decision struct {
	ActorID    int64  `json:"actor_id"`
	Permission string `json:"permission"`
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Allowed reports whether a still-valid decision grants req.
func (c *Cache) Allowed(ctx context.Context, req Request) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, cacheKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var d decision
	if err := json.Unmarshal(payload, &d); err != nil {
		return false, err
	}
	return d.ActorID == req.UserID && d.Permission == req.Permission, nil
}

// Allow records that req was granted, for the configured TTL.
func (c *Cache) Allow(ctx context.Context, req Request) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(decision{ActorID: req.UserID, Permission: req.Permission})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(req), raw, c.ttl).Err()
}

// InvalidateCompany drops every cached grant for the company.
func (c *Cache) InvalidateCompany(ctx context.Context, tenantID, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, shared.AccessCompanyPattern(tenantID, companyID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func cacheKey(req Request) string {
	return shared.AccessGrantKey(req.TenantID, req.CompanyID, req.UserID, req.Permission)
}
