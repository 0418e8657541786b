package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory 进程内对象存储，用于测试与本地调试.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
	puts    int
}

type memObject struct {
	data         []byte
	contentType  string
	cacheControl string
}

// NewMemory 创建空的内存存储.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[obj.Key] = memObject{data: data, contentType: obj.ContentType, cacheControl: obj.CacheControl}
	m.puts++

	return nil
}

func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, Info, error) {
	m.mu.RLock()
	o, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotExist, key)
	}

	return io.NopCloser(bytes.NewReader(o.data)), Info{Key: key, Size: int64(len(o.data)), ContentType: o.contentType}, nil
}

func (m *Memory) HealthCheck(context.Context) error { return nil }

// Puts 返回 Put 调用次数.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.puts
}

// CacheControl 返回写入时的 Cache-Control.
func (m *Memory) CacheControl(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.objects[key].cacheControl
}

// Delete 删除对象，测试模拟对象丢失时使用.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
}
