package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
)

const (
	kvKeyPrefix        = "cardpay:kv:"
	orderKeyPrefix     = "cardpay:order:"
	onboardingCacheKey = "cardpay:onboarding"

	orderCacheTTL = 10 * time.Minute
)

// kvStore implements outbound.KVStorePort.
type kvStore struct {
	client *redis.Client
}

// NewKVStore creates the key-value store adapter.
func NewKVStore(client *redis.Client) outbound.KVStorePort {
	return &kvStore{client: client}
}

func (s *kvStore) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, kvKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", outbound.ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (s *kvStore) SetString(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, kvKeyPrefix+key, value, 0).Err()
}

// orderCache implements outbound.OrderCachePort.
type orderCache struct {
	client *redis.Client
}

// NewOrderCache creates the order cache adapter.
func NewOrderCache(client *redis.Client) outbound.OrderCachePort {
	return &orderCache{client: client}
}

func (c *orderCache) key(id int64) string {
	return fmt.Sprintf("%s%d", orderKeyPrefix, id)
}

func (c *orderCache) Get(ctx context.Context, id int64) (*model.Order, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, outbound.ErrCacheMiss
		}
		return nil, err
	}
	var order model.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *orderCache) Set(ctx context.Context, order *model.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(order.ID), raw, orderCacheTTL).Err()
}

func (c *orderCache) Delete(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

// onboardingCache implements outbound.OnboardingCachePort.
type onboardingCache struct {
	client *redis.Client
}

// NewOnboardingCache creates the onboarding cache adapter.
func NewOnboardingCache(client *redis.Client) outbound.OnboardingCachePort {
	return &onboardingCache{client: client}
}

func (c *onboardingCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, onboardingCacheKey).Err()
}
