// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kontcache provides [doeffvm.CacheStore] backends for the Cache
// effect (cache.go): an in-process Memory store for tests and single-node
// use, and a Redis-backed store for anything that needs the cache to
// outlive one process or be shared across several. Store is structurally
// compatible with doeffvm.CacheStore — this package does not import
// doeffvm and never needs to, the same one-way dependency
// dmitrymomot-foundation/integration/database/redis's Client has on its
// callers.
package kontcache

import (
	"context"
	"sync"
)

// Store is anything that can back the Cache effect: both [Memory] and
// [Redis] implement it, and so does [doeffvm.CacheStore] — the two
// interfaces are structurally identical by design.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Put(ctx context.Context, key string, value any) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process, mutex-guarded key/value [Store]. It keeps
// values exactly as given — no serialization round-trip — so it is the
// right backend for tests and for single-process embedders that don't need
// the cache to cross a process boundary.
type Memory struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]any)}
}

// Get implements [Store].
func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Put implements [Store].
func (m *Memory) Put(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Exists implements [Store].
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

// Delete implements [Store]. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
