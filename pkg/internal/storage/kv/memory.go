package kv

import (
	"context"
	"sync"
	"time"
)

// MemoryKV 基于 sync.Map 的内存 KV 实现，单实例部署与测试的默认后端.
type MemoryKV struct {
	data sync.Map
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	return &MemoryKV{now: time.Now}, nil
}

// NewMemoryKVWithClock 使用自定义时间源，便于测试过期.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{now: now}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, notFound(key)
	}

	data, expired, err := decodeWithTTL(value.([]byte), m.now())
	if err != nil {
		return nil, err
	}

	if expired {
		m.data.Delete(key)
		return nil, notFound(key)
	}

	result := make([]byte, len(data))
	copy(result, data)

	return result, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	encoded, err := encodeWithTTL(data, ttl, m.now())
	if err != nil {
		return err
	}

	m.data.Store(key, encoded)

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err != nil {
		return false, nil
	}

	return true, nil
}

func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)
	now := m.now()

	m.data.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok || !matchKey(pattern, k) {
			return true
		}

		if _, expired, err := decodeWithTTL(value.([]byte), now); err == nil && !expired {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
