// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值以 sonic 编码为 JSON，支持 TTL. 主要用于链接解析的读穿缓存与响应缓存.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient)
//
//	link, err := cache.GetOrSet(ctx, c, "link:"+code, func(ctx context.Context) (model.Link, error) {
//	    return loadLink(ctx, code)
//	}, 10*time.Minute)
//
// getter 返回错误时不写缓存，因此未命中（NotFound）不会被缓存.
// 同一个键的并发 miss 通过 singleflight 合并为一次 getter 调用.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	group   singleflight.Group
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{kvStore: kvStore}
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// GetBytes 读取原始字节.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.kvStore.Get(ctx, key)
}

// SetBytes 写入原始字节.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.kvStore.Set(ctx, key, value, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，未命中时调用 getter 并回填.
// 回填失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func(context.Context) (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter(ctx)
		if err != nil {
			return value, err
		}

		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Clear 删除 pattern 匹配的键.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	keys, err := c.kvStore.Keys(ctx, pattern)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
