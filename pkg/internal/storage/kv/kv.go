// Package kv 提供用于键值存储的接口和实现，作为链接解析缓存与响应缓存的后端.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeisme/staticmd/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("kv: key not found")

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，不存在时返回包装了 ErrKeyNotFound 的错误.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，ttl<=0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 获取匹配 glob 模式的键，空模式返回全部（用于调试）.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表.
func GetRegisteredKVTypes() []KVType {
	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// Client 在底层 KVStore 之上统一加命名空间前缀.
type Client struct {
	store  KVStore
	prefix string
	kind   KVType
}

// NewKVClient 按配置创建 KV 客户端.
func NewKVClient(ctx context.Context, cfg configs.KVConfig) (*Client, error) {
	kind := KVType(cfg.Type)
	if kind == "" {
		kind = KVTypeMemory
	}

	store, err := NewKVStore(ctx, kind, cfg.BackendConfig())
	if err != nil {
		return nil, err
	}

	return &Client{store: store, prefix: cfg.Prefix, kind: kind}, nil
}

// Wrap 用已有 store 构造客户端，测试与嵌入场景使用.
func Wrap(store KVStore, prefix string) *Client {
	return &Client{store: store, prefix: prefix, kind: KVTypeMemory}
}

// Type 返回后端类型.
func (c *Client) Type() KVType { return c.kind }

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.store.Get(ctx, c.prefix+key)
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.store.Set(ctx, c.prefix+key, value, ttl)
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.prefix+key)
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	return c.store.Exists(ctx, c.prefix+key)
}

// Keys 返回去掉前缀后的键.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.store.Keys(ctx, c.prefix+pattern)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.prefix))
	}

	return out, nil
}

func (c *Client) Close() error {
	return c.store.Close()
}

// HealthCheck 写入并读回一个探测键.
func (c *Client) HealthCheck(ctx context.Context) error {
	const probe = "health:probe"

	if err := c.Set(ctx, probe, []byte("ok"), time.Minute); err != nil {
		return fmt.Errorf("kv set probe: %w", err)
	}

	if _, err := c.Get(ctx, probe); err != nil {
		return fmt.Errorf("kv get probe: %w", err)
	}

	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}
