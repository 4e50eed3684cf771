package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"avoska/internal/domain"
	"avoska/internal/service"
)

const productListKey = "products:active"

// ProductListCache кэширует JSON списка активных товаров под одним ключом с TTL
type ProductListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductListCache(client *redis.Client, ttl time.Duration) *ProductListCache {
	return &ProductListCache{client: client, ttl: ttl}
}

var _ service.ProductListCache = (*ProductListCache)(nil)

func (c *ProductListCache) Get(ctx context.Context) ([]domain.Product, bool, error) {
	data, err := c.client.Get(ctx, productListKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var list []domain.Product
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (c *ProductListCache) Set(ctx context.Context, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productListKey, data, c.ttl).Err()
}

func (c *ProductListCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, productListKey).Err()
}
