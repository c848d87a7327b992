//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package sequence

import (
	"context"
	"errors"
	"sync"
)

var ErrInjected = errors.New("injected backend failure")

// MemoryBackend keeps boundaries in a map. Its contents survive Close, so a
// test can drop a server and open a new one on the same instance to simulate
// a process restart.
//
// BeforePut may veto a write by returning an error; the stored value is then
// left untouched. AfterPut runs once the value is committed and is the hook
// used to simulate a crash between commit and reply.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]uint64
	puts   map[string]int

	BeforePut func(key string, value uint64) error
	AfterPut  func(key string, value uint64)
	GetErr    error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: map[string]uint64{},
		puts:   map[string]int{},
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return 0, false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Put(ctx context.Context, key string, value uint64, sync bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.BeforePut != nil {
		if err := m.BeforePut(key, value); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.values[key] = value
	m.puts[key]++
	after := m.AfterPut
	m.mu.Unlock()

	if after != nil {
		after(key, value)
	}
	return nil
}

// Value returns the stored boundary of key.
func (m *MemoryBackend) Value(key string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Puts returns how many writes for key were committed.
func (m *MemoryBackend) Puts(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[key]
}

func (m *MemoryBackend) Close() error { return nil }
