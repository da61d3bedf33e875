package kv

import (
	"context"
	"sync"
)

// Memory is a process-local Cache used for ephemeral sessions and tests.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory { return &Memory{m: map[string]string{}} }

func (c *Memory) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *Memory) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *Memory) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *Memory) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string]string{}
	return nil
}

// Len returns the number of stored keys.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
